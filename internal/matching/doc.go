// Package matching assigns mentors to fellows.
//
// Everything here is a pure function of its inputs: callers hand in immutable
// snapshots of fellow and mentor records and get match decisions back. No I/O,
// no logging, no package-level mutable state. Two modes are offered:
//
//   - greedy-topk: per fellow, the k most compatible eligible mentors.
//   - global-optimal: a one-to-one primary assignment maximizing the total
//     compatibility over the whole cohort, solved exactly with the Hungarian
//     algorithm.
//
// Eligibility is decided by a WorkloadTracker built from the mentor snapshots
// and an optional external capacity ledger.
package matching
