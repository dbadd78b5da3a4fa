package instrument

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fleetgrid/lib-settlement/settlement"
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// Per-instrument execution timeouts. Ledger mutations are local and fast;
// external rails get a generous window.
const (
	LedgerTimeout = 5 * time.Second
	RailTimeout   = 30 * time.Second
	LinkTimeout   = 10 * time.Second
)

// CustomerContext identifies the customer-agreement pair a settlement
// executes under.
type CustomerContext struct {
	CustomerID  string
	AgreementID string
}

// Key returns the mutual-exclusion key for the pair. At most one settlement
// may be in flight per key. Components are escaped so IDs containing the
// separator cannot collide across distinct pairs.
func (c CustomerContext) Key() string {
	return fmt.Sprintf("settlement:%s:%s", url.QueryEscape(c.CustomerID), url.QueryEscape(c.AgreementID))
}

// Executor performs the settlement action for one instrument kind.
//
// Execute mutates only the given item: on success it sets the item's status,
// transaction reference, and metadata. Compensate reverses a completed
// Execute; it is best-effort and its errors are logged by the caller, never
// propagated.
type Executor interface {
	Method() allocation.Method
	// Timeout bounds one Execute or Compensate call. A timeout is treated
	// identically to an explicit failure.
	Timeout() time.Duration
	Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error
	Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error
}

// Registry maps instrument kinds to executors, replacing per-method
// switch dispatch. Adding an instrument means registering an executor, not
// touching the orchestrator.
type Registry struct {
	executors map[allocation.Method]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[allocation.Method]Executor)}
}

// Register adds an executor under its own method, replacing any previous one.
func (r *Registry) Register(executor Executor) {
	r.executors[executor.Method()] = executor
}

// Resolve returns the executor for a method.
func (r *Registry) Resolve(method allocation.Method) (Executor, error) {
	executor, ok := r.executors[method]
	if !ok {
		return nil, settlement.NewDomainError(
			settlement.ErrorExecutorMissing,
			"method",
			fmt.Sprintf("no executor registered for method %q", method),
		)
	}

	return executor, nil
}

// Methods returns the registered instrument kinds.
func (r *Registry) Methods() []allocation.Method {
	methods := make([]allocation.Method, 0, len(r.executors))
	for method := range r.executors {
		methods = append(methods, method)
	}

	return methods
}

// NewDefaultRegistry wires the full instrument set: ledger-backed executors
// for points, wallet, and credit; rail-backed executors for both card kinds
// and the manual instruments; and the deferred payment link executor.
func NewDefaultRegistry(ledger funding.Ledger, rail CardRail, links LinkGateway) *Registry {
	registry := NewRegistry()

	registry.Register(NewLoyaltyExecutor(ledger))
	registry.Register(NewWalletExecutor(ledger))
	registry.Register(NewCreditExecutor(ledger))
	registry.Register(NewCardExecutor(allocation.MethodCreditCard, rail))
	registry.Register(NewCardExecutor(allocation.MethodDebitCard, rail))
	registry.Register(NewPaymentLinkExecutor(links))
	registry.Register(NewManualExecutor(allocation.MethodCash))
	registry.Register(NewManualExecutor(allocation.MethodBankTransfer))

	return registry
}
