package bench

import (
	"math/rand/v2"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/bind"
)

// WorkingSet is a pool of independently bound frames large enough that
// cycling through it evicts earlier replicas from cache. A working set is
// owned by one session; frames are recycled across iterations, never
// shared between goroutines.
type WorkingSet struct {
	frames []*bind.Frame
}

// NewWorkingSet binds enough replicas of the plan to cover
// minWorkingSetBytes of input data, filling every replica with finite
// random values drawn from rng.
//
// The replica count is ceil(minWorkingSetBytes / footprint), never less
// than one. A plan with a zero footprint (all outputs callee-allocated)
// gets a single replica.
func NewWorkingSet(plan *bind.Plan, minWorkingSetBytes int64, rng *rand.Rand) (*WorkingSet, error) {
	n := int64(1)
	if minWorkingSetBytes > 0 && plan.Footprint > 0 {
		n = (minWorkingSetBytes + plan.Footprint - 1) / plan.Footprint
		if n < 1 {
			n = 1
		}
	}

	ws := &WorkingSet{frames: make([]*bind.Frame, 0, n)}
	for i := int64(0); i < n; i++ {
		f, err := plan.Bind(nil)
		if err != nil {
			return nil, err
		}
		bind.FillRandom(f, rng)
		ws.frames = append(ws.frames, f)
	}

	Logger().Debug("working set bound",
		zapFunction(plan.Function.Name),
		zapReplicas(len(ws.frames)),
		zapFootprint(plan.Footprint))
	return ws, nil
}

// Replicas returns the number of independent frames in the set.
func (w *WorkingSet) Replicas() int {
	return len(w.frames)
}

// Frame returns the frame for iteration i, rotating through the replicas
// so that consecutive iterations never reuse a slot when more than one
// replica exists.
func (w *WorkingSet) Frame(i int64) *bind.Frame {
	return w.frames[i%int64(len(w.frames))]
}

// Release releases every frame, passing dealloc through for any
// callee-allocated buffers the session's ownership policy frees.
func (w *WorkingSet) Release(dealloc hat.Callable) {
	for _, f := range w.frames {
		f.Release(dealloc)
	}
}
