package log

import "context"

type nopLogger struct{}

// NewNop returns a Logger that discards everything. Useful as a nil-safe
// default for optional logger dependencies.
//
//nolint:ireturn
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Log(context.Context, Level, string, ...Field) {}

//nolint:ireturn
func (n nopLogger) With(...Field) Logger { return n }

func (nopLogger) Enabled(Level) bool { return false }
