// Package redislock implements the orchestration Locker contract with the
// RedLock algorithm, serializing per-(customer, agreement) settlements
// across service instances.
package redislock
