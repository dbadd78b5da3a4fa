package allocation

import (
	"github.com/shopspring/decimal"
)

// Method identifies a funding instrument kind.
type Method string

const (
	// MethodLoyaltyPoints settles by redeeming loyalty points.
	MethodLoyaltyPoints Method = "loyalty_points"
	// MethodCustomerWallet settles from the customer's wallet balance.
	MethodCustomerWallet Method = "customer_wallet"
	// MethodCredit settles against the customer's store credit line.
	MethodCredit Method = "credit"
	// MethodCreditCard settles through an external card rail.
	MethodCreditCard Method = "credit_card"
	// MethodDebitCard settles through an external card rail.
	MethodDebitCard Method = "debit_card"
	// MethodPaymentLink defers settlement to an out-of-band payment link.
	MethodPaymentLink Method = "payment_link"
	// MethodCash records a manual cash settlement.
	MethodCash Method = "cash"
	// MethodBankTransfer records a manual bank transfer settlement.
	MethodBankTransfer Method = "bank_transfer"
)

// Methods lists every supported instrument kind.
func Methods() []Method {
	return []Method{
		MethodLoyaltyPoints,
		MethodCustomerWallet,
		MethodCredit,
		MethodCreditCard,
		MethodDebitCard,
		MethodPaymentLink,
		MethodCash,
		MethodBankTransfer,
	}
}

// Valid reports whether m is a supported instrument kind.
func (m Method) Valid() bool {
	switch m {
	case MethodLoyaltyPoints, MethodCustomerWallet, MethodCredit,
		MethodCreditCard, MethodDebitCard, MethodPaymentLink,
		MethodCash, MethodBankTransfer:
		return true
	default:
		return false
	}
}

// Deferred reports whether settlement through m happens out-of-band rather
// than at execution time.
func (m Method) Deferred() bool {
	return m == MethodPaymentLink
}

// ItemStatus is the lifecycle state of one split payment item.
type ItemStatus string

const (
	// StatusPending marks an item not yet executed, or a deferred item awaiting
	// out-of-band confirmation.
	StatusPending ItemStatus = "pending"
	// StatusCompleted marks an item whose instrument settled successfully.
	StatusCompleted ItemStatus = "completed"
	// StatusFailed marks an item whose executor could not complete.
	StatusFailed ItemStatus = "failed"
)

// Valid reports whether s is a known lifecycle state.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Metadata keys written by executors and compensations.
const (
	MetaBalanceBefore = "balance_before"
	MetaBalanceAfter  = "balance_after"
	MetaCardLast4     = "card_last4"
	MetaLinkToken     = "link_token"
	MetaLinkURL       = "link_url"
	MetaLinkExpiresAt = "link_expires_at"
	MetaFailureReason = "failure_reason"
	MetaRolledBack    = "rolled_back"
	MetaRollbackError = "rollback_error"
	MetaManualRail    = "manual_rail"
)

// SplitPaymentItem is one instrument's contribution to an allocation.
//
// An item is created by the caller as pending and mutated only by its own
// executor (to completed/failed) or by a compensation, which records the
// rollback outcome in Metadata.
type SplitPaymentItem struct {
	Method            Method          `json:"method"`
	Amount            decimal.Decimal `json:"amount"`
	LoyaltyPointsUsed int64           `json:"loyaltyPointsUsed,omitempty"`
	Status            ItemStatus      `json:"status"`
	TransactionRef    string          `json:"transactionRef,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
}

// SetMeta records an instrument-specific side value, allocating the metadata
// map on first use.
func (i *SplitPaymentItem) SetMeta(key string, value any) {
	if i.Metadata == nil {
		i.Metadata = make(map[string]any)
	}

	i.Metadata[key] = value
}

// Clone returns a deep copy of the item.
func (i *SplitPaymentItem) Clone() *SplitPaymentItem {
	clone := *i
	if i.Metadata != nil {
		clone.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// PaymentAllocation is a proposed or realized split of one amount due across
// funding instruments.
type PaymentAllocation struct {
	AgreementID string              `json:"agreementId"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Payments    []*SplitPaymentItem `json:"payments"`
}

// AllocatedAmount returns the sum of all item amounts as currently proposed.
func (a *PaymentAllocation) AllocatedAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range a.Payments {
		sum = sum.Add(item.Amount)
	}

	return sum
}

// RemainingAmount returns TotalAmount minus AllocatedAmount. Negative means
// the allocation is over-allocated.
func (a *PaymentAllocation) RemainingAmount() decimal.Decimal {
	return a.TotalAmount.Sub(a.AllocatedAmount())
}

// ClonePayments returns deep copies of the allocation's items, preserving
// order. The orchestrator uses this to keep a pristine retry-offer copy.
func (a *PaymentAllocation) ClonePayments() []*SplitPaymentItem {
	items := make([]*SplitPaymentItem, len(a.Payments))
	for idx, item := range a.Payments {
		items[idx] = item.Clone()
	}

	return items
}

// ValidationResult is the transient output of the allocation validator.
// Errors block execution; warnings are informational only.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

func (r *ValidationResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
