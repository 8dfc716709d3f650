// Package bench times native functions under realistic cache pressure.
//
// A session binds a working set of input replicas sized to at least
// MinWorkingSetBytes, fills it with finite random data, and rotates
// through the replicas while timing batches of calls on the monotonic
// clock. The loop runs until both an iteration floor and a wall-time
// floor are met, so short functions accumulate enough samples and long
// functions are not cut off after a single call.
//
// Batch means reduce to the mean plus order statistics (median of means,
// mean of small means, trimmed robust mean, min of means) that hold up
// better under scheduler noise. Results can be written back into the HAT
// file's auxiliary tables or rendered as a CSV report.
package bench
