package record

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

func TestFromItem(t *testing.T) {
	t.Parallel()

	item := &allocation.SplitPaymentItem{
		Method:         allocation.MethodCustomerWallet,
		Amount:         decimal.NewFromInt(500),
		Status:         allocation.StatusCompleted,
		TransactionRef: "txn-1",
		Metadata:       map[string]any{allocation.MetaBalanceBefore: "2000"},
	}

	rec := FromItem("cus-1", "agr-1", item)

	assert.Equal(t, "cus-1", rec.CustomerID)
	assert.Equal(t, "agr-1", rec.AgreementID)
	assert.Equal(t, allocation.MethodCustomerWallet, rec.Method)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "txn-1", rec.TransactionRef)
	assert.Equal(t, string(allocation.StatusCompleted), rec.Status)
	assert.False(t, rec.RecordedAt.IsZero())
	assert.Equal(t, "2000", rec.Metadata[allocation.MetaBalanceBefore])
}

func TestMemorySink(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Persist(ctx, []SettlementRecord{
		{AgreementID: "agr-1", TransactionRef: "txn-1"},
		{AgreementID: "agr-1", TransactionRef: "txn-2"},
	}))
	require.NoError(t, sink.Persist(ctx, []SettlementRecord{
		{AgreementID: "agr-2", TransactionRef: "txn-3"},
	}))

	records := sink.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "txn-3", records[2].TransactionRef)

	// Records returns a copy, not the live slice.
	records[0].TransactionRef = "mutated"
	assert.Equal(t, "txn-1", sink.Records()[0].TransactionRef)
}
