package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetgrid/lib-settlement/settlement"
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

// PaymentLinkExecutor creates a deferred payment link instead of settling
// immediately. The item stays pending: a legitimate non-terminal outcome,
// not a failure.
type PaymentLinkExecutor struct {
	links LinkGateway
}

var _ Executor = (*PaymentLinkExecutor)(nil)

// NewPaymentLinkExecutor creates the payment_link executor.
func NewPaymentLinkExecutor(links LinkGateway) *PaymentLinkExecutor {
	return &PaymentLinkExecutor{links: links}
}

// Method implements Executor.
func (e *PaymentLinkExecutor) Method() allocation.Method {
	return allocation.MethodPaymentLink
}

// Timeout implements Executor.
func (e *PaymentLinkExecutor) Timeout() time.Duration {
	return LinkTimeout
}

// Execute creates the link and records its token, URL, and expiry. The link
// token doubles as the item's transaction reference.
func (e *PaymentLinkExecutor) Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	link, err := e.links.CreateLink(ctx, LinkRequest{
		CustomerID:  cc.CustomerID,
		AgreementID: cc.AgreementID,
		Amount:      item.Amount,
	})
	if err != nil {
		return settlement.NewDomainError(
			settlement.ErrorLinkGateway,
			"payment_link",
			fmt.Sprintf("payment link creation failed: %v", err),
		)
	}

	// Deferred settlement: the item stays pending until out-of-band
	// confirmation.
	item.Status = allocation.StatusPending
	item.TransactionRef = link.Token
	item.SetMeta(allocation.MetaLinkToken, link.Token)
	item.SetMeta(allocation.MetaLinkURL, link.URL)
	item.SetMeta(allocation.MetaLinkExpiresAt, link.ExpiresAt.UTC().Format(time.RFC3339))

	return nil
}

// Compensate voids the link so the customer cannot complete it after the
// allocation is rolled back.
func (e *PaymentLinkExecutor) Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.links.CancelLink(ctx, item.TransactionRef); err != nil {
		item.SetMeta(allocation.MetaRollbackError, err.Error())
		return err
	}

	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
