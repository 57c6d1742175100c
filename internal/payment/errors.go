package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation failure kinds
var (
	ErrInvalidClaim        = errors.New("invalid claim")
	ErrUnknownTier         = errors.New("unknown energy tier")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSenderMismatch      = errors.New("invalid sender address")
	ErrAmountMismatch      = errors.New("amount mismatch")
	ErrMissingPayload      = errors.New("no incoming message in transaction")
)

// ValidationError is a rejected claim. It keeps enough context to
// settle a dispute later.
type ValidationError struct {
	Kind    error
	TxHash  string
	Address string
	Tier    int

	// set for ErrSenderMismatch
	ExpectedSender string
	ActualSender   string

	// set for ErrAmountMismatch, in TON
	Expected decimal.Decimal
	Actual   decimal.Decimal

	Detail string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrAmountMismatch:
		return fmt.Sprintf("Amount mismatch: expected %s TON, received %s TON", e.Expected, e.Actual)
	case ErrUnknownTier:
		return fmt.Sprintf("%s: %d", e.Kind, e.Tier)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Reason returns a short label for metrics
func (e *ValidationError) Reason() string {
	switch e.Kind {
	case ErrInvalidClaim:
		return "invalid_claim"
	case ErrUnknownTier:
		return "unknown_tier"
	case ErrTransactionNotFound:
		return "not_found"
	case ErrSenderMismatch:
		return "sender_mismatch"
	case ErrAmountMismatch:
		return "amount_mismatch"
	case ErrMissingPayload:
		return "missing_payload"
	}
	return "invalid"
}

// IsValidationError reports whether err rejects the claim itself
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
