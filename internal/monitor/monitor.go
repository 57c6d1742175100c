// Package monitor aggregates recipient wallet history into payment statistics.
// Classification is by exact amount and is advisory only: nothing here
// decides whether energy is credited.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

const (
	// SummaryWindow is how many recent transactions Summarize looks at
	SummaryWindow = 50

	// CheckWindow is how many recent transactions FindTransaction searches by default
	CheckWindow = 100

	// EnergyComment marks game payments in transfer comments
	EnergyComment = "SECCO Energy"
)

// Gateway is the subset of the toncenter client the reporter reads from
type Gateway interface {
	GetTransactions(ctx context.Context, address string, limit int, cursor *toncenter.Cursor) ([]toncenter.Transaction, error)
	GetAddressBalance(ctx context.Context, address string) (int64, error)
}

// Payment is a transaction classified as an energy purchase
type Payment struct {
	Hash      string
	LT        string
	Amount    decimal.Decimal
	From      string
	Timestamp time.Time
	Tier      int
	Comment   string
}

// Summary is the payment statistics of a wallet
type Summary struct {
	Address         string
	TotalBalance    decimal.Decimal
	TotalPayments   decimal.Decimal
	Payments        []Payment
	LastTransaction *toncenter.Transaction
}

// AveragePayment returns the mean energy payment, zero when there are none
func (s *Summary) AveragePayment() decimal.Decimal {
	if len(s.Payments) == 0 {
		return decimal.Zero
	}
	return s.TotalPayments.Div(decimal.NewFromInt(int64(len(s.Payments))))
}

// ByTier counts payments per tier
func (s *Summary) ByTier() map[int]int {
	out := make(map[int]int)
	for _, p := range s.Payments {
		out[p.Tier]++
	}
	return out
}

// Reporter reads wallet history for dashboards and the CLI
type Reporter struct {
	gw  Gateway
	log *slog.Logger
}

// NewReporter creates a Reporter
func NewReporter(gw Gateway, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{gw: gw, log: log}
}

// Summarize classifies the last SummaryWindow transactions of address
func (r *Reporter) Summarize(ctx context.Context, address string) (*Summary, error) {
	txs, err := r.gw.GetTransactions(ctx, address, SummaryWindow, nil)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	balance, err := r.gw.GetAddressBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	s := &Summary{
		Address:       address,
		TotalBalance:  toncenter.NanoToTON(balance),
		TotalPayments: decimal.Zero,
	}
	if len(txs) > 0 {
		s.LastTransaction = &txs[0]
	}

	for i := range txs {
		p, ok := Classify(&txs[i])
		if !ok {
			continue
		}
		s.TotalPayments = s.TotalPayments.Add(p.Amount)
		s.Payments = append(s.Payments, p)
	}

	r.log.Debug("wallet summarized",
		"address", address,
		"transactions", len(txs),
		"payments", len(s.Payments),
	)
	return s, nil
}

// Classify reports whether tx looks like an energy purchase: an incoming
// value of exactly one tier price
func Classify(tx *toncenter.Transaction) (Payment, bool) {
	if tx.InMsg == nil {
		return Payment{}, false
	}
	amount := tx.Value()
	tier, ok := payment.TierForAmount(amount)
	if !ok {
		return Payment{}, false
	}
	return Payment{
		Hash:      tx.Hash(),
		LT:        tx.LT(),
		Amount:    amount,
		From:      tx.Source(),
		Timestamp: tx.Timestamp(),
		Tier:      tier,
		Comment:   tx.Comment(),
	}, true
}

// IsEnergyComment reports whether a transfer comment marks a game payment
func IsEnergyComment(comment string) bool {
	return strings.Contains(comment, EnergyComment)
}

// Balance returns the wallet balance in TON
func (r *Reporter) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	nano, err := r.gw.GetAddressBalance(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return toncenter.NanoToTON(nano), nil
}

// FindTransaction searches the last window transactions of address for hash.
// It returns nil without error when the hash is not there.
func (r *Reporter) FindTransaction(ctx context.Context, address, hash string, window int) (*toncenter.Transaction, error) {
	if window <= 0 {
		window = CheckWindow
	}
	txs, err := r.gw.GetTransactions(ctx, address, window, nil)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	for i := range txs {
		if txs[i].Hash() == hash {
			return &txs[i], nil
		}
	}
	return nil, nil
}
