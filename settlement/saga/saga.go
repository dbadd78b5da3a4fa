package saga

import (
	"context"
	"fmt"

	"github.com/fleetgrid/lib-settlement/settlement/log"
)

// Step pairs a forward action with its compensating action.
type Step struct {
	// Name identifies the step in logs and compensation failure reports.
	Name string
	// Forward performs the side-effecting action.
	Forward func(ctx context.Context) error
	// Compensate reverses a completed Forward. Best-effort: errors are
	// collected by Run, never propagated.
	Compensate func(ctx context.Context) error
}

// CompensationFailure reports one compensation that could not complete.
// Any surviving failure means manual reconciliation is required for that step.
type CompensationFailure struct {
	Step string
	Err  error
}

// Result is the outcome of one saga run.
type Result struct {
	// Completed is the number of steps whose forward action succeeded.
	Completed int
	// FailedStep names the step whose forward action failed; empty on success.
	FailedStep string
	// Err is the forward failure that triggered compensation, nil on success.
	Err error
	// CompensationFailures lists compensations that could not complete,
	// in the (reverse) order they were attempted.
	CompensationFailures []CompensationFailure
}

// Succeeded reports whether every forward action completed.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// FullyRolledBack reports whether a failed run unwound every completed step.
// It is false for successful runs and for runs with surviving compensation
// failures.
func (r Result) FullyRolledBack() bool {
	return r.Err != nil && len(r.CompensationFailures) == 0
}

// Run executes steps in order. On the first forward failure it compensates
// every previously-completed step in reverse order and stops; untried steps
// are never attempted. Panics in forward actions are converted to errors and
// trigger the same compensation path.
func Run(ctx context.Context, steps []Step, logger log.Logger) Result {
	if logger == nil {
		logger = log.NewNop()
	}

	for i, step := range steps {
		err := runForward(ctx, step)
		if err == nil {
			continue
		}

		logger.Log(ctx, log.LevelWarn, "saga step failed, compensating in reverse order",
			log.String("step", step.Name), log.Int("completed", i), log.Err(err))

		return Result{
			Completed:            i,
			FailedStep:           step.Name,
			Err:                  err,
			CompensationFailures: compensate(ctx, steps[:i], logger),
		}
	}

	return Result{Completed: len(steps)}
}

func runForward(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, r)
		}
	}()

	if step.Forward == nil {
		return fmt.Errorf("step %s has no forward action", step.Name)
	}

	return step.Forward(ctx)
}

// compensate unwinds completed steps in reverse order, collecting failures.
func compensate(ctx context.Context, completed []Step, logger log.Logger) []CompensationFailure {
	var failures []CompensationFailure

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if err := runCompensate(ctx, step); err != nil {
			logger.Log(ctx, log.LevelError, "compensation failed, manual reconciliation required",
				log.String("step", step.Name), log.Err(err))

			failures = append(failures, CompensationFailure{Step: step.Name, Err: err})

			continue
		}

		logger.Log(ctx, log.LevelInfo, "compensated step", log.String("step", step.Name))
	}

	return failures
}

func runCompensate(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation for step %s panicked: %v", step.Name, r)
		}
	}()

	return step.Compensate(ctx)
}
