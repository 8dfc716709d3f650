package bench

import (
	"time"

	"github.com/microsoft/hat/errors"
)

// Options controls one benchmark session. The zero value is usable:
// normalization fills in the defaults below.
type Options struct {
	// MinIterations is the fewest timed iterations a session may run.
	// Defaults to 16.
	MinIterations int64

	// MinTime is the least wall time the timed loop must cover. The loop
	// stops only once MinIterations and MinTime are both satisfied.
	MinTime time.Duration

	// MinWorkingSetBytes sizes the input working set so that consecutive
	// iterations cannot hit cache-resident data. Zero disables eviction
	// sizing and runs a single replica.
	MinWorkingSetBytes int64

	// WarmupIterations run before timing starts and are not recorded.
	WarmupIterations int64

	// BatchSize is the number of iterations timed as one sample. Batch
	// means feed the order statistics in Result.
	BatchSize int64

	// Progress, when set, is called after each timed batch with the total
	// iteration count so far.
	Progress func(iterations int64)
}

func (o *Options) normalize() error {
	if o.MinIterations < 0 || o.MinTime < 0 || o.MinWorkingSetBytes < 0 ||
		o.WarmupIterations < 0 || o.BatchSize < 0 {
		return errors.InvalidInput(errors.PhaseBench, "benchmark options must be non-negative")
	}
	if o.MinIterations == 0 {
		o.MinIterations = 16
	}
	if o.BatchSize == 0 {
		o.BatchSize = 1
	}
	return nil
}
