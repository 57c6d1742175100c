package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suspectuso/ton-energy/internal/contract"
	"github.com/suspectuso/ton-energy/internal/metrics"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

// TransactionSource returns recent transactions of an address
type TransactionSource interface {
	GetTransactions(ctx context.Context, address string, limit int, cursor *toncenter.Cursor) ([]toncenter.Transaction, error)
}

// Matcher checks payment claims against the recipient's transaction history
type Matcher struct {
	source    TransactionSource
	recipient string
	window    int
	log       *slog.Logger
}

// MatcherOption configures a Matcher
type MatcherOption func(*Matcher)

// WithWindow sets how many recent transactions are searched. Values <= 0 are ignored.
func WithWindow(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.window = n
		}
	}
}

// NewMatcher creates a matcher for payments sent to recipient
func NewMatcher(source TransactionSource, recipient string, log *slog.Logger, opts ...MatcherOption) *Matcher {
	if log == nil {
		log = slog.Default()
	}
	m := &Matcher{
		source:    source,
		recipient: recipient,
		window:    LookupWindow,
		log:       log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recipient returns the address payments must be sent to
func (m *Matcher) Recipient() string { return m.recipient }

// Validate returns the transaction backing the claim. A *ValidationError
// rejects the claim; any other error is a gateway failure.
func (m *Matcher) Validate(ctx context.Context, claim Claim) (*toncenter.Transaction, error) {
	tx, err := m.validate(ctx, claim)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			metrics.ValidationsTotal.WithLabelValues(ve.Reason()).Inc()
			m.log.Info("payment rejected",
				"reason", ve.Reason(),
				"tx_hash", claim.TransactionHash,
				"sender", claim.SenderAddress,
				"energy", claim.EnergyAmount,
				"error", ve,
			)
		} else {
			metrics.ValidationsTotal.WithLabelValues("gateway_error").Inc()
		}
		return nil, err
	}

	metrics.ValidationsTotal.WithLabelValues("ok").Inc()
	m.log.Info("payment matched",
		"tx_hash", tx.Hash(),
		"sender", tx.Source(),
		"energy", claim.EnergyAmount,
		"amount", tx.Value().String(),
		"claimed_amount", claim.TonAmount.String(),
	)
	return tx, nil
}

func (m *Matcher) validate(ctx context.Context, claim Claim) (*toncenter.Transaction, error) {
	expected, ok := PriceOf(claim.EnergyAmount)
	if !ok {
		return nil, &ValidationError{
			Kind:    ErrUnknownTier,
			TxHash:  claim.TransactionHash,
			Address: claim.SenderAddress,
			Tier:    claim.EnergyAmount,
		}
	}
	if err := claim.Check(); err != nil {
		return nil, err
	}

	txs, err := m.source.GetTransactions(ctx, m.recipient, m.window, nil)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}

	var tx *toncenter.Transaction
	for i := range txs {
		if txs[i].Hash() == claim.TransactionHash {
			tx = &txs[i]
			break
		}
	}
	if tx == nil {
		return nil, &ValidationError{
			Kind:    ErrTransactionNotFound,
			TxHash:  claim.TransactionHash,
			Address: claim.SenderAddress,
			Tier:    claim.EnergyAmount,
			Detail:  fmt.Sprintf("%s not among the last %d transactions", claim.TransactionHash, m.window),
		}
	}

	if !toncenter.SameAddress(tx.Source(), claim.SenderAddress) {
		return nil, &ValidationError{
			Kind:           ErrSenderMismatch,
			TxHash:         claim.TransactionHash,
			Address:        claim.SenderAddress,
			Tier:           claim.EnergyAmount,
			ExpectedSender: claim.SenderAddress,
			ActualSender:   tx.Source(),
		}
	}

	actual, err := tx.ParseValue()
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", claim.TransactionHash, err)
	}
	if !WithinTolerance(expected, actual) {
		return nil, &ValidationError{
			Kind:     ErrAmountMismatch,
			TxHash:   claim.TransactionHash,
			Address:  claim.SenderAddress,
			Tier:     claim.EnergyAmount,
			Expected: expected,
			Actual:   actual,
		}
	}

	if !tx.HasPayload() {
		return nil, &ValidationError{
			Kind:    ErrMissingPayload,
			TxHash:  claim.TransactionHash,
			Address: claim.SenderAddress,
			Tier:    claim.EnergyAmount,
		}
	}

	if !tx.InMsg.HasData() {
		m.log.Debug("payment without comment or body", "tx_hash", tx.Hash())
	}
	m.inspectBody(tx, claim.EnergyAmount)
	return tx, nil
}

// inspectBody logs what the message body says it bought. Advisory only.
func (m *Matcher) inspectBody(tx *toncenter.Transaction, tier int) {
	if tx.Body() == "" {
		return
	}
	body, err := contract.DecodeBody(tx.Body())
	if err != nil {
		m.log.Debug("undecodable payment body", "tx_hash", tx.Hash(), "error", err)
		return
	}
	if body.Op == contract.OpComment {
		return
	}
	if opTier, ok := body.Tier(); ok && opTier != tier {
		m.log.Warn("payment op does not match claimed tier",
			"tx_hash", tx.Hash(),
			"op", fmt.Sprintf("0x%08x", body.Op),
			"op_tier", opTier,
			"claimed_tier", tier,
		)
	}
}
