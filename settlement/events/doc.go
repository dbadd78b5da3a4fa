// Package events publishes settlement lifecycle events to Kafka for
// downstream consumers (notifications, analytics, reconciliation). Publishing
// is fire-and-forget from the engine's perspective: a publish failure is
// logged and never fails a settlement.
package events
