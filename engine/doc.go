// Package engine runs find-closest-point queries in parallel.
//
// Queries are independent: each one needs a private Scratch and nothing
// else, so parallel execution is one query per worker with no shared
// mutable state. The package offers two entry points built on that
// model:
//
//   - Pool, a fixed set of long-lived workers that each own a Scratch.
//     It amortizes goroutine startup for workloads that issue many small
//     batches.
//   - RunBatch, a one-shot fan-out that spins up workers for a single
//     batch and tears them down afterwards.
//
// Both collect results in input order and fail the whole batch on the
// first query error.
package engine
