// Package orchestration drives settlement execution: re-validation, strictly
// sequential instrument execution through the registry, reverse-order
// compensation on failure, and settlement record persistence on success.
//
// At most one settlement executes per (customer, agreement) pair at any time,
// enforced through the Locker contract: the in-process KeyedMutex for a
// single instance, or the redislock manager across instances.
package orchestration
