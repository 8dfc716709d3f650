package bench

import (
	"sort"
	"time"
)

// summarize reduces the batch means to the report's order statistics. All
// statistics are computed over a sorted copy so BatchMeans keeps its
// recording order.
func summarize(r *Result) {
	n := len(r.BatchMeans)
	if n == 0 {
		return
	}

	sorted := make([]time.Duration, n)
	copy(sorted, r.BatchMeans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r.MinOfMeans = sorted[0]
	r.MedianOfMeans = median(sorted)

	// Mean over the smaller half of the batches, which discounts batches
	// inflated by preemption.
	small := sorted[:max(1, n/2)]
	r.MeanOfSmallMeans = meanOf(small)

	// Trim a fifth from each tail before averaging. With fewer than five
	// batches there is nothing to trim.
	trim := n / 5
	r.RobustMean = meanOf(sorted[trim : n-trim])
}

func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanOf(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}
