// Package sizeexpr parses and evaluates the size expressions used by
// runtime-array parameters in HAT metadata.
//
// A size expression is integer arithmetic over parameter names that are
// already bound at evaluation time:
//
//	expr, err := sizeexpr.Parse("lda * K")
//	n, err := expr.Eval(sizeexpr.Env{"lda": 256, "K": 32}) // 8192
//
// The grammar covers +, -, *, /, unary minus, parentheses, decimal
// literals, identifiers, and sizeof(ctype) for the fixed-width C types a
// HAT file can declare. Expressions are evaluated as an explicit tree over
// a name-to-value map; there is no dynamic code evaluation.
package sizeexpr
