package settlement

import (
	"errors"
	"fmt"
)

// ErrorCode is a domain error code shared across the settlement engine.
type ErrorCode string

const (
	// ErrorInvalidInput indicates a malformed allocation or item field.
	ErrorInvalidInput ErrorCode = "1001"
	// ErrorAllocationMismatch indicates allocated amounts do not match the total due.
	ErrorAllocationMismatch ErrorCode = "1002"
	// ErrorPointsConversion indicates loyalty points do not match the configured conversion rate.
	ErrorPointsConversion ErrorCode = "1003"
	// ErrorPointsFloor indicates a redemption below the minimum points floor.
	ErrorPointsFloor ErrorCode = "1004"
	// ErrorInsufficientFunds indicates an instrument exceeds the customer's live capacity.
	ErrorInsufficientFunds ErrorCode = "2001"
	// ErrorRailDeclined indicates an external card/cash rail declined or timed out.
	ErrorRailDeclined ErrorCode = "2002"
	// ErrorLinkGateway indicates the deferred payment link gateway failed.
	ErrorLinkGateway ErrorCode = "2003"
	// ErrorExecutorMissing indicates no executor is registered for an instrument kind.
	ErrorExecutorMissing ErrorCode = "2004"
	// ErrorRecordPersistence indicates settlement records could not be persisted
	// after all instruments completed.
	ErrorRecordPersistence ErrorCode = "3001"
)

// DomainError is a structured settlement domain error.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error returns the formatted domain error string.
func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewDomainError creates a domain error with code, field, and message.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

// IsBusinessFailure reports whether err is an expected business failure
// (insufficient balance/points/credit detected at execution time) as opposed
// to an infrastructure failure. Business failures are retryable by re-offering
// the same allocation once the customer tops up the instrument.
func IsBusinessFailure(err error) bool {
	var de DomainError
	if !errors.As(err, &de) {
		return false
	}

	return de.Code == ErrorInsufficientFunds
}
