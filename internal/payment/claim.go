// Package payment decides whether a claimed on-chain payment is real.
package payment

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Claim is a client's statement that it paid for energy.
// The recipient is never taken from the client.
type Claim struct {
	TransactionHash string          `validate:"required"`
	SenderAddress   string          `validate:"required"`
	EnergyAmount    int             `validate:"required,gt=0"`
	TonAmount       decimal.Decimal // informational only
}

// Check validates the claim shape
func (c *Claim) Check() error {
	c.TransactionHash = strings.TrimSpace(c.TransactionHash)
	c.SenderAddress = strings.TrimSpace(c.SenderAddress)

	if err := validate.Struct(c); err != nil {
		return &ValidationError{
			Kind:    ErrInvalidClaim,
			TxHash:  c.TransactionHash,
			Address: c.SenderAddress,
			Detail:  fmt.Sprintf("validation failed: %v", err),
		}
	}
	return nil
}
