package bench

import (
	"context"
	"math/rand/v2"
	"time"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/errors"
	"go.uber.org/zap"
)

// Result is the timing summary of one benchmarked function.
type Result struct {
	Function   string
	Iterations int64

	// Elapsed is the summed duration of the timed batches. Loop
	// bookkeeping between batches is not included.
	Elapsed time.Duration

	// Mean is Elapsed over total timed iterations.
	Mean time.Duration

	// Order statistics over the per-batch means, robust against scheduler
	// noise in ways the plain mean is not.
	MedianOfMeans    time.Duration
	MeanOfSmallMeans time.Duration
	RobustMean       time.Duration
	MinOfMeans       time.Duration

	// BatchMeans holds the mean duration of every timed batch, in
	// recording order.
	BatchMeans []time.Duration

	// Incomplete marks a result whose loop was stopped before both the
	// iteration and time floors were met.
	Incomplete bool
}

// MeanSeconds returns the mean duration in seconds, the unit the HAT
// auxiliary table records.
func (r *Result) MeanSeconds() float64 {
	return r.Mean.Seconds()
}

// Run times fn against a fresh working set bound from plan.
//
// The timed loop rotates through the working set's replicas so iteration
// i never touches data still cache-hot from iteration i-1, and stops only
// once both MinIterations and MinTime are satisfied. Cancelling ctx stops
// the loop between calls, never mid-call; a result cut short this way is
// returned alongside an incomplete error.
func Run(ctx context.Context, fn hat.Callable, plan *bind.Plan, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.NotInitialized(errors.PhaseBench, "callable")
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	ws, err := NewWorkingSet(plan, opts.MinWorkingSetBytes, rng)
	if err != nil {
		return nil, err
	}

	res := &Result{Function: plan.Function.Name}

	for i := int64(0); i < opts.WarmupIterations; i++ {
		if err := bind.Invoke(fn, ws.Frame(i)); err != nil {
			return nil, err
		}
	}

	Logger().Debug("timed loop starting",
		zapFunction(plan.Function.Name),
		zapReplicas(ws.Replicas()),
		zap.Int64("min_iterations", opts.MinIterations),
		zap.Duration("min_time", opts.MinTime))

	for {
		if res.Iterations >= opts.MinIterations && res.Elapsed >= opts.MinTime {
			break
		}
		if ctx.Err() != nil {
			res.Incomplete = true
			break
		}

		batchStart := time.Now()
		for j := int64(0); j < opts.BatchSize; j++ {
			if err := bind.Invoke(fn, ws.Frame(res.Iterations+j)); err != nil {
				return nil, err
			}
		}
		batch := time.Since(batchStart)

		// Only in-call time accumulates: slot lookup and progress
		// reporting stay out of the recorded durations.
		res.Iterations += opts.BatchSize
		res.Elapsed += batch
		res.BatchMeans = append(res.BatchMeans, batch/time.Duration(opts.BatchSize))

		if opts.Progress != nil {
			opts.Progress(res.Iterations)
		}
	}

	if res.Iterations > 0 {
		res.Mean = res.Elapsed / time.Duration(res.Iterations)
	}
	summarize(res)

	if res.Incomplete {
		return res, errors.Incomplete(plan.Function.Name, ctx.Err())
	}
	return res, nil
}
