package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetgrid/lib-settlement/settlement"
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/instrument"
	"github.com/fleetgrid/lib-settlement/settlement/orchestration"
)

// Handler serves the settlement caller API.
type Handler struct {
	orchestrator *orchestration.Orchestrator
}

// NewHandler creates the API handler.
func NewHandler(orchestrator *orchestration.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Register mounts the settlement routes on the app.
func (h *Handler) Register(app *fiber.App) {
	v1 := app.Group("/v1/settlements")
	v1.Post("/validate", h.Validate)
	v1.Post("/execute", h.Execute)
}

type validateRequest struct {
	CustomerID string                        `json:"customerId"`
	Allocation *allocation.PaymentAllocation `json:"allocation"`
}

type executeRequest struct {
	CustomerID  string                        `json:"customerId"`
	AgreementID string                        `json:"agreementId"`
	Allocation  *allocation.PaymentAllocation `json:"allocation"`
}

type executeResponse struct {
	orchestration.SettlementResult
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Validate checks a proposed allocation against the customer's live funding
// profile. No side effects.
func (h *Handler) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.CustomerID == "" || req.Allocation == nil {
		return badRequest(c, "customerId and allocation are required")
	}

	result, err := h.orchestrator.Validate(c.UserContext(), req.Allocation, req.CustomerID)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(errorResponse{Message: err.Error()})
	}

	return c.Status(http.StatusOK).JSON(result)
}

// Execute settles the allocation. The response status reflects the outcome:
// 200 settled, 409 another settlement in flight for the pair, 422 validation
// or business failure (rolled back), 500 infrastructure failure.
func (h *Handler) Execute(c *fiber.Ctx) error {
	var req executeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.CustomerID == "" || req.AgreementID == "" || req.Allocation == nil {
		return badRequest(c, "customerId, agreementId, and allocation are required")
	}

	result := h.orchestrator.Execute(c.UserContext(), req.Allocation, instrument.CustomerContext{
		CustomerID:  req.CustomerID,
		AgreementID: req.AgreementID,
	})

	response := executeResponse{SettlementResult: result}
	if result.Err != nil {
		response.Error = result.Err.Error()
	}

	return c.Status(statusFor(result)).JSON(response)
}

func statusFor(result orchestration.SettlementResult) int {
	if result.Success {
		return http.StatusOK
	}

	switch {
	case errors.Is(result.Err, orchestration.ErrLockNotAcquired):
		return http.StatusConflict
	case errors.Is(result.Err, orchestration.ErrValidationFailed),
		errors.Is(result.Err, orchestration.ErrAllocationMissing):
		return http.StatusUnprocessableEntity
	case settlement.IsBusinessFailure(result.Err):
		return http.StatusUnprocessableEntity
	case errors.Is(result.Err, orchestration.ErrExecutionFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(errorResponse{
		Code:    string(settlement.ErrorInvalidInput),
		Message: message,
	})
}
