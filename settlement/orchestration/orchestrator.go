package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fleetgrid/lib-settlement/settlement"
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/events"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
	"github.com/fleetgrid/lib-settlement/settlement/instrument"
	"github.com/fleetgrid/lib-settlement/settlement/log"
	"github.com/fleetgrid/lib-settlement/settlement/record"
	"github.com/fleetgrid/lib-settlement/settlement/saga"
)

// Construction and execution sentinel errors.
var (
	ErrNilRegistry       = errors.New("orchestration: instrument registry is required")
	ErrNilProfiles       = errors.New("orchestration: funding profile provider is required")
	ErrNilSink           = errors.New("orchestration: settlement record sink is required")
	ErrValidationFailed  = errors.New("orchestration: allocation failed re-validation")
	ErrExecutionFailed   = errors.New("orchestration: settlement execution failed")
	ErrLockNotAcquired   = errors.New("orchestration: settlement lock not acquired")
	ErrAllocationMissing = errors.New("orchestration: allocation is required")
)

// EventPublisher receives settlement lifecycle notifications. Optional;
// publish outcomes never affect the settlement result.
type EventPublisher interface {
	SettlementCompleted(ctx context.Context, event events.SettlementEvent)
	SettlementRolledBack(ctx context.Context, event events.SettlementEvent)
}

// Deps wires the orchestrator's collaborators. Registry, Profiles, and Sink
// are required; the rest are nil-safe optional.
type Deps struct {
	Registry  *instrument.Registry
	Profiles  funding.ProfileProvider
	Sink      record.Sink
	Locker    Locker
	Publisher EventPublisher
	Validator *allocation.Validator
	Logger    log.Logger
	Tracer    trace.Tracer
}

// Orchestrator executes payment allocations as sagas: strictly sequential
// instrument execution with reverse-order compensation on failure.
type Orchestrator struct {
	registry  *instrument.Registry
	profiles  funding.ProfileProvider
	sink      record.Sink
	locker    Locker
	publisher EventPublisher
	validator *allocation.Validator
	logger    log.Logger
	tracer    trace.Tracer
}

// New creates an orchestrator, applying defaults for optional dependencies:
// an in-process keyed mutex, the default validator thresholds, a nop logger,
// and a noop tracer.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, ErrNilRegistry
	}

	if deps.Profiles == nil {
		return nil, ErrNilProfiles
	}

	if deps.Sink == nil {
		return nil, ErrNilSink
	}

	if deps.Locker == nil {
		deps.Locker = NewKeyedMutex()
	}

	if deps.Validator == nil {
		deps.Validator = allocation.NewValidator(allocation.Config{})
	}

	if deps.Logger == nil {
		deps.Logger = log.NewNop()
	}

	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("settlement")
	}

	return &Orchestrator{
		registry:  deps.Registry,
		profiles:  deps.Profiles,
		sink:      deps.Sink,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		validator: deps.Validator,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
	}, nil
}

// Validate checks the allocation against the customer's current funding
// profile without side effects. This is the caller-facing early validation;
// Execute re-validates regardless.
func (o *Orchestrator) Validate(ctx context.Context, alloc *allocation.PaymentAllocation, customerID string) (allocation.ValidationResult, error) {
	profile, err := o.profiles.GetFundingProfile(ctx, customerID)
	if err != nil {
		return allocation.ValidationResult{}, fmt.Errorf("fetch funding profile: %w", err)
	}

	return o.validator.Validate(alloc, &profile), nil
}

// Execute settles the allocation under the (customer, agreement) execution
// lock. Once the first executor has been invoked the settlement runs to
// either full success or full rollback; cancelling the context before that
// point aborts with no side effects.
func (o *Orchestrator) Execute(ctx context.Context, alloc *allocation.PaymentAllocation, cc instrument.CustomerContext) SettlementResult {
	if alloc == nil {
		return SettlementResult{Err: ErrAllocationMissing}
	}

	ctx, span := o.tracer.Start(ctx, "settlement.execute",
		trace.WithAttributes(
			attribute.String("customer_id", cc.CustomerID),
			attribute.String("agreement_id", cc.AgreementID),
			attribute.Int("instruments", len(alloc.Payments)),
		))
	defer span.End()

	var result SettlementResult

	err := o.locker.WithLock(ctx, cc.Key(), func(ctx context.Context) error {
		result = o.executeLocked(ctx, alloc, cc)
		return nil
	})
	if err != nil {
		span.RecordError(err)

		// A context cancelled before acquisition is the caller aborting, not
		// lock contention.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			span.SetStatus(codes.Error, "aborted before execution")

			return SettlementResult{Err: fmt.Errorf("settlement aborted before execution: %w", err)}
		}

		span.SetStatus(codes.Error, "lock not acquired")

		return SettlementResult{Err: fmt.Errorf("%w: %v", ErrLockNotAcquired, err)}
	}

	if result.Err != nil {
		span.SetStatus(codes.Error, "settlement failed")
		span.RecordError(result.Err)
	}

	return result
}

func (o *Orchestrator) executeLocked(ctx context.Context, alloc *allocation.PaymentAllocation, cc instrument.CustomerContext) SettlementResult {
	logger := o.logger.With(
		log.String("customer_id", cc.CustomerID),
		log.String("agreement_id", cc.AgreementID),
	)

	// Funding profiles go stale between user confirmation and execution, so
	// validation always runs again here against a fresh snapshot.
	profile, err := o.profiles.GetFundingProfile(ctx, cc.CustomerID)
	if err != nil {
		return SettlementResult{
			FailedItems: alloc.Payments,
			Err:         fmt.Errorf("fetch funding profile: %w", err),
		}
	}

	validation := o.validator.Validate(alloc, &profile)
	if !validation.Valid {
		logger.Log(ctx, log.LevelWarn, "allocation failed re-validation",
			log.Any("errors", validation.Errors))

		return SettlementResult{
			FailedItems: alloc.Payments,
			Validation:  &validation,
			Err:         fmt.Errorf("%w: %v", ErrValidationFailed, validation.Errors),
		}
	}

	// Resolve every executor before the first side effect so a registry gap
	// cannot strand a half-executed allocation.
	executors := make([]instrument.Executor, len(alloc.Payments))

	for i, item := range alloc.Payments {
		executor, err := o.registry.Resolve(item.Method)
		if err != nil {
			return SettlementResult{FailedItems: alloc.Payments, Err: err}
		}

		executors[i] = executor
	}

	// Pristine copy taken before execution: on failure the caller gets the
	// allocation back exactly as proposed, re-offerable for retry.
	pristine := alloc.ClonePayments()

	steps := make([]saga.Step, len(alloc.Payments))
	for i := range alloc.Payments {
		steps[i] = o.buildStep(executors[i], alloc.Payments[i], cc, i)
	}

	// Past the pre-flight checks the settlement must run to full success or
	// full rollback. Execution is detached from the caller's cancellation so
	// a client disconnect cannot fail a forward step mid-flight or poison
	// the compensations of already-committed instruments; each step is still
	// bounded by its executor's own timeout.
	execCtx := context.WithoutCancel(ctx)

	sagaResult := saga.Run(execCtx, steps, logger)
	if !sagaResult.Succeeded() {
		return o.failureResult(execCtx, cc, pristine, sagaResult, logger)
	}

	return o.successResult(execCtx, alloc, cc, logger)
}

func (o *Orchestrator) buildStep(executor instrument.Executor, item *allocation.SplitPaymentItem, cc instrument.CustomerContext, index int) saga.Step {
	name := fmt.Sprintf("%s[%d]", item.Method, index)

	return saga.Step{
		Name: name,
		Forward: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, executor.Timeout())
			defer cancel()

			if err := executor.Execute(ctx, item, cc); err != nil {
				item.Status = allocation.StatusFailed
				item.SetMeta(allocation.MetaFailureReason, err.Error())

				return err
			}

			return nil
		},
		Compensate: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, executor.Timeout())
			defer cancel()

			return executor.Compensate(ctx, item, cc)
		},
	}
}

func (o *Orchestrator) failureResult(
	ctx context.Context,
	cc instrument.CustomerContext,
	pristine []*allocation.SplitPaymentItem,
	sagaResult saga.Result,
	logger log.Logger,
) SettlementResult {
	rolledBack := sagaResult.FullyRolledBack()

	if rolledBack {
		logger.Log(ctx, log.LevelWarn, "settlement rolled back",
			log.String("failed_step", sagaResult.FailedStep), log.Err(sagaResult.Err))
	} else {
		logger.Log(ctx, log.LevelError, "settlement rolled back with compensation failures, manual reconciliation required",
			log.String("failed_step", sagaResult.FailedStep),
			log.Int("compensation_failures", len(sagaResult.CompensationFailures)),
			log.Err(sagaResult.Err))
	}

	if o.publisher != nil {
		o.publisher.SettlementRolledBack(ctx, events.SettlementEvent{
			CustomerID:  cc.CustomerID,
			AgreementID: cc.AgreementID,
			Reason:      sagaResult.Err.Error(),
		})
	}

	return SettlementResult{
		FailedItems:          pristine,
		Err:                  fmt.Errorf("%w: step %s: %w", ErrExecutionFailed, sagaResult.FailedStep, sagaResult.Err),
		RolledBack:           rolledBack,
		CompensationFailures: sagaResult.CompensationFailures,
	}
}

func (o *Orchestrator) successResult(ctx context.Context, alloc *allocation.PaymentAllocation, cc instrument.CustomerContext, logger log.Logger) SettlementResult {
	records := make([]record.SettlementRecord, len(alloc.Payments))
	for i, item := range alloc.Payments {
		records[i] = record.FromItem(cc.CustomerID, cc.AgreementID, item)
	}

	if err := o.sink.Persist(ctx, records); err != nil {
		// Instruments committed but the records did not land. Reversing real
		// money movements here is judged riskier than flagged manual
		// reconciliation, so this reports partial success with instrument
		// statuses intact.
		logger.Log(ctx, log.LevelError, "settlement completed but record persistence failed, manual reconciliation required",
			log.Int("records", len(records)), log.Err(err))

		return SettlementResult{
			CompletedItems: alloc.Payments,
			Err: settlement.NewDomainError(
				settlement.ErrorRecordPersistence,
				"records",
				fmt.Sprintf("settlement completed but records were not persisted: %v", err),
			),
		}
	}

	logger.Log(ctx, log.LevelInfo, "settlement completed",
		log.Int("instruments", len(alloc.Payments)),
		log.String("total", alloc.TotalAmount.String()))

	if o.publisher != nil {
		o.publisher.SettlementCompleted(ctx, events.SettlementEvent{
			CustomerID:  cc.CustomerID,
			AgreementID: cc.AgreementID,
			Records:     records,
			OccurredAt:  time.Now().UTC(),
		})
	}

	return SettlementResult{
		Success:          true,
		CompletedItems:   alloc.Payments,
		RecordsPersisted: true,
	}
}
