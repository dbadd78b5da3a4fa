package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
	"github.com/fleetgrid/lib-settlement/settlement/gateway"
	"github.com/fleetgrid/lib-settlement/settlement/instrument"
	"github.com/fleetgrid/lib-settlement/settlement/orchestration"
	"github.com/fleetgrid/lib-settlement/settlement/record"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	app  *fiber.App
	rail *gateway.SandboxCardRail
	sink *record.MemorySink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ledger := funding.NewMemoryLedger()
	ledger.Seed("cus-1", funding.Account{
		WalletBalance: decimal.NewFromInt(2000),
		LoyaltyPoints: 100000,
		CreditLimit:   decimal.NewFromInt(1000),
	})

	rail := gateway.NewSandboxCardRail()
	sink := record.NewMemorySink()

	orchestrator, err := orchestration.New(orchestration.Deps{
		Registry: instrument.NewDefaultRegistry(ledger, rail, gateway.NewSandboxLinkGateway(time.Hour)),
		Profiles: ledger,
		Sink:     sink,
	})
	require.NoError(t, err)

	app := fiber.New()
	NewHandler(orchestrator).Register(app)

	return &testEnv{app: app, rail: rail, sink: sink}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

func walletAllocation(total, amount string) map[string]any {
	return map[string]any{
		"agreementId": "agr-1",
		"totalAmount": total,
		"payments": []map[string]any{
			{"method": "customer_wallet", "amount": amount, "status": "pending"},
		},
	}
}

// ---------------------------------------------------------------------------
// POST /v1/settlements/validate
// ---------------------------------------------------------------------------

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("valid allocation", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, raw := env.post(t, "/v1/settlements/validate", map[string]any{
			"customerId": "cus-1",
			"allocation": walletAllocation("500", "500"),
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result allocation.ValidationResult
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.True(t, result.Valid)
	})

	t.Run("invalid allocation reports errors without failing the call", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, raw := env.post(t, "/v1/settlements/validate", map[string]any{
			"customerId": "cus-1",
			"allocation": walletAllocation("1000", "500"),
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result allocation.ValidationResult
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, _ := env.post(t, "/v1/settlements/validate", map[string]any{
			"customerId": "cus-1",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown customer", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, _ := env.post(t, "/v1/settlements/validate", map[string]any{
			"customerId": "nobody",
			"allocation": walletAllocation("500", "500"),
		})

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

// ---------------------------------------------------------------------------
// POST /v1/settlements/execute
// ---------------------------------------------------------------------------

func TestExecuteEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("settles and returns completed items", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, raw := env.post(t, "/v1/settlements/execute", map[string]any{
			"customerId":  "cus-1",
			"agreementId": "agr-1",
			"allocation":  walletAllocation("500", "500"),
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Success          bool                           `json:"success"`
			RecordsPersisted bool                           `json:"recordsPersisted"`
			CompletedItems   []*allocation.SplitPaymentItem `json:"completedItems"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.True(t, body.Success)
		assert.True(t, body.RecordsPersisted)
		require.Len(t, body.CompletedItems, 1)
		assert.Equal(t, allocation.StatusCompleted, body.CompletedItems[0].Status)

		assert.Len(t, env.sink.Records(), 1)
	})

	t.Run("rolled back settlement is unprocessable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.rail.DeclineNext()

		resp, raw := env.post(t, "/v1/settlements/execute", map[string]any{
			"customerId":  "cus-1",
			"agreementId": "agr-1",
			"allocation": map[string]any{
				"agreementId": "agr-1",
				"totalAmount": "1500",
				"payments": []map[string]any{
					{"method": "customer_wallet", "amount": "500", "status": "pending"},
					{"method": "credit_card", "amount": "1000", "status": "pending"},
				},
			},
		})

		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body struct {
			Success    bool   `json:"success"`
			RolledBack bool   `json:"rolledBack"`
			Error      string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.False(t, body.Success)
		assert.True(t, body.RolledBack)
		assert.NotEmpty(t, body.Error)

		assert.Empty(t, env.sink.Records())
	})

	t.Run("over-allocation is unprocessable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, raw := env.post(t, "/v1/settlements/execute", map[string]any{
			"customerId":  "cus-1",
			"agreementId": "agr-1",
			"allocation":  walletAllocation("500", "900"),
		})

		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body struct {
			Validation *allocation.ValidationResult `json:"validation"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		require.NotNil(t, body.Validation)
		assert.False(t, body.Validation.Valid)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp, _ := env.post(t, "/v1/settlements/execute", map[string]any{
			"customerId": "cus-1",
			"allocation": walletAllocation("500", "500"),
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/settlements/execute", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
