package sizeexpr

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/microsoft/hat/errors"
)

// Env maps parameter names to their bound integer values.
type Env map[string]int64

// Expr is a parsed size expression over named parameter values.
type Expr struct {
	root node
	src  string
}

// String returns the source text the expression was parsed from.
func (e *Expr) String() string {
	return e.src
}

// Eval evaluates the expression against env. Identifiers missing from env
// fail with KindUnresolvedSizeReference; division by zero fails with
// KindInvalidSizeExpression.
func (e *Expr) Eval(env Env) (int64, error) {
	return e.root.eval(env)
}

// Idents returns the distinct identifiers the expression references, sorted.
func (e *Expr) Idents() []string {
	set := map[string]struct{}{}
	e.root.idents(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// node is one vertex of the expression tree.
type node interface {
	eval(Env) (int64, error)
	idents(map[string]struct{})
}

type literal int64

func (l literal) eval(Env) (int64, error)    { return int64(l), nil }
func (l literal) idents(map[string]struct{}) {}

type ident string

func (id ident) eval(env Env) (int64, error) {
	v, ok := env[string(id)]
	if !ok {
		return 0, errors.UnresolvedSizeReference("", string(id))
	}
	return v, nil
}

func (id ident) idents(set map[string]struct{}) { set[string(id)] = struct{}{} }

type unary struct {
	x node
}

func (u unary) eval(env Env) (int64, error) {
	v, err := u.x.eval(env)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (u unary) idents(set map[string]struct{}) { u.x.idents(set) }

type binary struct {
	lhs, rhs node
	op       byte
}

func (b binary) eval(env Env) (int64, error) {
	l, err := b.lhs.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.rhs.eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, errors.New(errors.PhaseResolve, errors.KindInvalidSizeExpression).
				Detail("division by zero").
				Build()
		}
		return l / r, nil
	}
	return 0, errors.New(errors.PhaseResolve, errors.KindInvalidSizeExpression).
		Detail("unknown operator %q", string(b.op)).
		Build()
}

func (b binary) idents(set map[string]struct{}) {
	b.lhs.idents(set)
	b.rhs.idents(set)
}

// sizeofBytes resolves the C type names accepted inside sizeof(...).
var sizeofBytes = map[string]int64{
	"int8_t":     1,
	"int16_t":    2,
	"int32_t":    4,
	"int64_t":    8,
	"uint8_t":    1,
	"uint16_t":   2,
	"uint32_t":   4,
	"uint64_t":   8,
	"float16_t":  2,
	"bfloat16_t": 2,
	"float":      4,
	"double":     8,
}

// Parse parses an arithmetic expression over integer literals, parameter
// names, and sizeof(ctype). Supported operators: + - * / and parentheses.
func Parse(src string) (*Expr, error) {
	p := &parser{src: src}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return &Expr{root: root, src: src}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.New(errors.PhaseResolve, errors.KindInvalidSizeExpression).
		Value(p.src).
		Detail(format, args...).
		Build()
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseSum := parseProduct (('+' | '-') parseProduct)*
func (p *parser) parseSum() (node, error) {
	lhs, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		lhs = binary{lhs: lhs, rhs: rhs, op: op}
	}
}

// parseProduct := parseAtom (('*' | '/') parseAtom)*
func (p *parser) parseProduct() (node, error) {
	lhs, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		lhs = binary{lhs: lhs, rhs: rhs, op: op}
	}
}

// parseAtom := number | ident | sizeof '(' ctype ')' | '(' parseSum ')' | '-' parseAtom
func (p *parser) parseAtom() (node, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of expression")

	case c == '-':
		p.pos++
		x, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return unary{x: x}, nil

	case c == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil

	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		v, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", p.src[start:p.pos])
		}
		return literal(v), nil

	case isIdentStart(rune(c)):
		name := p.parseIdent()
		if name == "sizeof" {
			return p.parseSizeof()
		}
		return ident(name), nil

	default:
		return nil, p.errorf("unexpected character %q", string(c))
	}
}

func (p *parser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) parseSizeof() (node, error) {
	if p.peek() != '(' {
		return nil, p.errorf("sizeof requires a parenthesized type")
	}
	p.pos++
	p.skipSpace()
	name := p.parseIdent()
	if p.peek() != ')' {
		return nil, p.errorf("sizeof requires a closing parenthesis")
	}
	p.pos++
	size, ok := sizeofBytes[strings.TrimSpace(name)]
	if !ok {
		return nil, p.errorf("sizeof of unknown type %q", name)
	}
	return literal(size), nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
