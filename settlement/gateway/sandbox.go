package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetgrid/lib-settlement/settlement/instrument"
)

// ErrChargeDeclined is returned by a sandbox rail configured to decline.
var ErrChargeDeclined = errors.New("gateway: charge declined")

// SandboxCardRail approves every charge with a generated reference. A
// decline can be injected for failure-path exercises.
type SandboxCardRail struct {
	mu          sync.Mutex
	declineNext bool
	charges     map[string]decimal.Decimal
	refunds     map[string]decimal.Decimal
	cardLast4   string
}

var _ instrument.CardRail = (*SandboxCardRail)(nil)

// NewSandboxCardRail creates an approving sandbox rail.
func NewSandboxCardRail() *SandboxCardRail {
	return &SandboxCardRail{
		charges:   make(map[string]decimal.Decimal),
		refunds:   make(map[string]decimal.Decimal),
		cardLast4: "4242",
	}
}

// DeclineNext makes the next charge fail with ErrChargeDeclined.
func (r *SandboxCardRail) DeclineNext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declineNext = true
}

// Charge implements instrument.CardRail.
func (r *SandboxCardRail) Charge(ctx context.Context, req instrument.ChargeRequest) (instrument.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return instrument.ChargeResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.declineNext {
		r.declineNext = false
		return instrument.ChargeResult{}, ErrChargeDeclined
	}

	ref := fmt.Sprintf("chg_%s", uuid.NewString())
	r.charges[ref] = req.Amount

	return instrument.ChargeResult{TransactionRef: ref, CardLast4: r.cardLast4}, nil
}

// Refund implements instrument.CardRail.
func (r *SandboxCardRail) Refund(ctx context.Context, transactionRef string, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.charges[transactionRef]; !ok {
		return fmt.Errorf("gateway: unknown charge %q", transactionRef)
	}

	r.refunds[transactionRef] = amount

	return nil
}

// Refunded reports the refunded amount for a charge, if any.
func (r *SandboxCardRail) Refunded(transactionRef string) (decimal.Decimal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amount, ok := r.refunds[transactionRef]

	return amount, ok
}

// SandboxLinkGateway issues links that expire after a fixed TTL and records
// cancellations.
type SandboxLinkGateway struct {
	mu        sync.Mutex
	ttl       time.Duration
	cancelled map[string]bool
}

var _ instrument.LinkGateway = (*SandboxLinkGateway)(nil)

// NewSandboxLinkGateway creates a link gateway with the given link TTL.
func NewSandboxLinkGateway(ttl time.Duration) *SandboxLinkGateway {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SandboxLinkGateway{ttl: ttl, cancelled: make(map[string]bool)}
}

// CreateLink implements instrument.LinkGateway.
func (g *SandboxLinkGateway) CreateLink(ctx context.Context, req instrument.LinkRequest) (instrument.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return instrument.PaymentLink{}, err
	}

	token := fmt.Sprintf("plk_%s", uuid.NewString())

	return instrument.PaymentLink{
		Token:     token,
		URL:       fmt.Sprintf("https://pay.sandbox.local/links/%s", token),
		ExpiresAt: time.Now().UTC().Add(g.ttl),
	}, nil
}

// CancelLink implements instrument.LinkGateway.
func (g *SandboxLinkGateway) CancelLink(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelled[token] = true

	return nil
}

// Cancelled reports whether a link token was voided.
func (g *SandboxLinkGateway) Cancelled(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.cancelled[token]
}
