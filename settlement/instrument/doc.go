// Package instrument provides one settlement executor per funding instrument
// kind and the registry the orchestrator dispatches through.
//
// Executors perform the side-effecting settlement action for their
// instrument and mutate only their own item. Every executor re-checks live
// capacity at mutation time; the funding profile snapshot is never trusted.
package instrument
