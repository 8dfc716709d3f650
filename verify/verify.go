package verify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/loader"
	"github.com/microsoft/hat/schema"
	"go.uber.org/zap"
)

// previewElems is how many leading elements an argument preview shows.
const previewElems = 8

// ArgumentState is a human-readable snapshot of one bound argument,
// captured before or after the call.
type ArgumentState struct {
	Name    string
	Usage   string
	Count   int64
	Preview string
}

// Report is the outcome of verifying one function: the argument states
// around a single invocation, or the error that prevented it.
type Report struct {
	Function string
	Before   []ArgumentState
	After    []ArgumentState
	Err      error
}

// Package invokes every host-callable function in the package once with
// random finite inputs and captures argument snapshots before and after
// each call. A function that cannot be resolved or bound is reported in
// its slot without stopping the others.
//
// Verification proves the metadata is callable, not that results are
// numerically correct: there is no reference implementation to compare
// against.
func Package(ctx context.Context, pkg *loader.Package, rng *rand.Rand) []Report {
	names := pkg.HAT.FunctionNames()
	reports := make([]Report, 0, len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, one(pkg, name, rng))
	}
	return reports
}

func one(pkg *loader.Package, name string, rng *rand.Rand) Report {
	rep := Report{Function: name}

	fn, sym, err := pkg.Function(name)
	if err != nil {
		rep.Err = err
		Logger().Warn("cannot verify function", zapFunction(name), zap.Error(err))
		return rep
	}
	rep.Function = fn.Name

	plan, err := bind.Resolve(fn, bind.SynthesizeDims(fn, rng))
	if err != nil {
		rep.Err = err
		Logger().Warn("cannot verify function", zapFunction(fn.Name), zap.Error(err))
		return rep
	}

	frame, err := plan.Bind(nil)
	if err != nil {
		rep.Err = err
		return rep
	}
	bind.FillRandom(frame, rng)

	rep.Before = snapshot(frame)
	logStates(fn.Name, "before call", rep.Before)

	if err := bind.Invoke(sym, frame); err != nil {
		rep.Err = err
		return rep
	}

	rep.After = snapshot(frame)
	logStates(fn.Name, "after call", rep.After)

	dealloc, err := pkg.Deallocator(fn)
	if err == nil && dealloc != nil {
		frame.Policy = hat.OwnershipCallerFrees
	}
	frame.Release(dealloc)
	return rep
}

func snapshot(f *bind.Frame) []ArgumentState {
	states := make([]ArgumentState, 0, len(f.Args))
	for _, a := range f.Args {
		param := a.Spec.Param
		states = append(states, ArgumentState{
			Name:    param.Name,
			Usage:   string(param.Usage),
			Count:   a.Count(),
			Preview: preview(a),
		})
	}
	return states
}

// preview formats the argument's leading elements, eliding the rest.
func preview(a *bind.Arg) string {
	n := a.Count()
	if n <= 0 {
		return "(no data)"
	}
	if a.Spec.Param.LogicalType == schema.Element && len(a.Data()) == 0 {
		return "(by value)"
	}
	shown := n
	if shown > previewElems {
		shown = previewElems
	}

	var b strings.Builder
	b.WriteByte('[')
	for i := int64(0); i < shown; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		v, err := a.Element(i)
		if err != nil {
			return "(unreadable)"
		}
		fmt.Fprintf(&b, "%g", v)
	}
	if shown < n {
		fmt.Fprintf(&b, ", ... %d more", n-shown)
	}
	b.WriteByte(']')
	return b.String()
}

func logStates(fn, stage string, states []ArgumentState) {
	for _, s := range states {
		Logger().Info(stage,
			zapFunction(fn),
			zap.String("param", s.Name),
			zap.String("usage", s.Usage),
			zap.Int64("count", s.Count),
			zap.String("values", s.Preview))
	}
}
