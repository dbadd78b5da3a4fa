package instrument

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

// ChargeRequest asks an external card/cash rail to capture an amount.
type ChargeRequest struct {
	CustomerID  string
	AgreementID string
	Method      allocation.Method
	Amount      decimal.Decimal
}

// ChargeResult is the rail's settlement confirmation.
type ChargeResult struct {
	TransactionRef string
	CardLast4      string
}

// CardRail is an opaque external settlement backend for card instruments.
type CardRail interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	// Refund reverses a prior charge through the same rail. Best-effort:
	// callers log failures rather than retrying automatically.
	Refund(ctx context.Context, transactionRef string, amount decimal.Decimal) error
}

// LinkRequest asks the gateway for a deferred payment link.
type LinkRequest struct {
	CustomerID  string
	AgreementID string
	Amount      decimal.Decimal
}

// PaymentLink is a deferred settlement link with an expiry.
type PaymentLink struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

// LinkGateway creates and voids deferred payment links.
type LinkGateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (PaymentLink, error)
	// CancelLink voids the link so a customer cannot complete it after the
	// agreement is rolled back or voided.
	CancelLink(ctx context.Context, token string) error
}
