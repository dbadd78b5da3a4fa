// Package funding defines the customer funding capacity snapshot and the
// ledger mutation contract the settlement executors operate against.
//
// Profiles are read-only snapshots: staleness is tolerated and every mutation
// re-checks the live balance at the moment it applies. MemoryLedger is the
// reference implementation, used by tests and single-process deployments.
package funding
