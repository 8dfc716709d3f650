package bench

import (
	"context"
	"math/rand/v2"

	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/loader"
	"go.uber.org/zap"
)

// FunctionResult pairs a function name with its timing result or the
// error that kept it from being benchmarked.
type FunctionResult struct {
	Function string
	Result   *Result
	Err      error
}

// RunPackage benchmarks every host-callable function in the package. A
// function that fails to resolve or bind is reported in its slot and does
// not stop the remaining functions.
//
// Dimension values for dynamically shaped input arrays are synthesized
// per function, so dynamic signatures benchmark without caller-supplied
// dimensions.
func RunPackage(ctx context.Context, pkg *loader.Package, opts Options) []FunctionResult {
	names := pkg.HAT.FunctionNames()
	results := make([]FunctionResult, 0, len(names))
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	for _, name := range names {
		fr := FunctionResult{Function: name}

		fn, sym, err := pkg.Function(name)
		if err != nil {
			fr.Err = err
			Logger().Warn("skipping function", zapFunction(name), zap.Error(err))
			results = append(results, fr)
			continue
		}

		plan, err := bind.Resolve(fn, bind.SynthesizeDims(fn, rng))
		if err != nil {
			fr.Err = err
			Logger().Warn("skipping function", zapFunction(name), zap.Error(err))
			results = append(results, fr)
			continue
		}

		fr.Result, fr.Err = Run(ctx, sym, plan, opts)
		results = append(results, fr)

		if fr.Result != nil {
			Logger().Info("benchmarked function",
				zapFunction(name),
				zap.Int64("iterations", fr.Result.Iterations),
				zap.Duration("mean", fr.Result.Mean))
		}
		if ctx.Err() != nil {
			// Remaining functions would all come back incomplete.
			break
		}
	}
	return results
}

// StoreResults writes each successful mean duration back into the HAT
// file's auxiliary tables and serializes the file in place.
func StoreResults(pkg *loader.Package, results []FunctionResult) error {
	for _, fr := range results {
		if fr.Result == nil || fr.Result.Incomplete {
			continue
		}
		fn, err := pkg.HAT.Function(fr.Function)
		if err != nil {
			return err
		}
		fn.SetMeanDuration(fr.Result.MeanSeconds())
	}
	return pkg.HAT.Serialize(pkg.HAT.Path)
}
