// Package log provides the engine's structured logging contract with a
// zap-backed implementation and a nop logger for nil-safety.
package log
