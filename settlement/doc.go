// Package settlement provides the split payment allocation and settlement
// engine: validation of a proposed split of one amount due across
// heterogeneous funding instruments, and saga-style execution of the split
// with reverse-order compensation on failure.
//
// Subpackages:
//
//   - allocation: allocation/item types and the pure allocation validator
//   - funding: funding profile snapshot and ledger mutation contracts
//   - saga: the reusable forward/compensate step primitive
//   - instrument: one settlement executor per funding instrument
//   - orchestration: the settlement orchestrator and execution locking
//   - record: immutable settlement records and persistence sinks
package settlement
