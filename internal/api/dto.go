package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

// PurchaseRequest is the body of POST /api/validate-energy-purchase
type PurchaseRequest struct {
	TxHash        string          `json:"txHash" binding:"required"`
	WalletAddress string          `json:"walletAddress" binding:"required"`
	EnergyAmount  int             `json:"energyAmount" binding:"required"`
	TonAmount     decimal.Decimal `json:"tonAmount"`
}

// GameDataRequest is the body of POST /api/update-game-data
type GameDataRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Balance       int64  `json:"balance" binding:"min=0"`
	Energy        int    `json:"energy"`
	Level         int    `json:"level" binding:"min=0"`
	XP            int64  `json:"xp" binding:"min=0"`
}

// UserResponse is a player account
type UserResponse struct {
	WalletAddress    string    `json:"walletAddress"`
	Balance          int64     `json:"balance"`
	Energy           int       `json:"energy"`
	Level            int       `json:"level"`
	XP               int64     `json:"xp"`
	LastEnergyUpdate time.Time `json:"lastEnergyUpdate"`
}

func newUserResponse(address string, a *storage.Account) UserResponse {
	return UserResponse{
		WalletAddress:    address,
		Balance:          a.Balance,
		Energy:           a.Energy,
		Level:            a.Level,
		XP:               a.Experience,
		LastEnergyUpdate: a.LastEnergyRegenAt.UTC(),
	}
}

// TransactionResponse is a matched ledger transaction
type TransactionResponse struct {
	Hash    string  `json:"hash"`
	LT      string  `json:"lt"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Value   float64 `json:"value"`
	Utime   int64   `json:"utime"`
	Comment string  `json:"comment,omitempty"`
}

func newTransactionResponse(tx *toncenter.Transaction) *TransactionResponse {
	if tx == nil {
		return nil
	}
	return &TransactionResponse{
		Hash:    tx.Hash(),
		LT:      tx.LT(),
		From:    tx.Source(),
		To:      tx.Destination(),
		Value:   tx.Value().InexactFloat64(),
		Utime:   tx.Utime,
		Comment: tx.Comment(),
	}
}

// PurchaseResponse is returned after a credited purchase
type PurchaseResponse struct {
	Success     bool                 `json:"success"`
	NewEnergy   int                  `json:"newEnergy"`
	TxHash      string               `json:"txHash"`
	Transaction *TransactionResponse `json:"transaction"`
}

// PaymentResponse is an energy payment in the stats
type PaymentResponse struct {
	Hash      string  `json:"hash"`
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	Timestamp int64   `json:"timestamp"`
	LT        string  `json:"lt"`
	Tier      int     `json:"tier"`
}

// StatsResponse is the body of GET /api/contract-stats
type StatsResponse struct {
	OwnerWallet             string            `json:"ownerWallet"`
	ContractAddress         string            `json:"contractAddress"`
	TotalEnergyPayments     float64           `json:"totalEnergyPayments"`
	EnergyTransactionsCount int               `json:"energyTransactionsCount"`
	TotalBalance            float64           `json:"totalBalance"`
	RecentTransactions      []PaymentResponse `json:"recentTransactions"`
	LastUpdate              time.Time         `json:"lastUpdate"`
}

const recentPayments = 10

func newStatsResponse(owner, contract string, s *monitor.Summary, now time.Time) StatsResponse {
	resp := StatsResponse{
		OwnerWallet:             owner,
		ContractAddress:         contract,
		TotalEnergyPayments:     s.TotalPayments.InexactFloat64(),
		EnergyTransactionsCount: len(s.Payments),
		TotalBalance:            s.TotalBalance.InexactFloat64(),
		RecentTransactions:      []PaymentResponse{},
		LastUpdate:              now.UTC(),
	}
	for i, p := range s.Payments {
		if i == recentPayments {
			break
		}
		resp.RecentTransactions = append(resp.RecentTransactions, PaymentResponse{
			Hash:      p.Hash,
			Amount:    p.Amount.InexactFloat64(),
			From:      p.From,
			Timestamp: p.Timestamp.Unix(),
			LT:        p.LT,
			Tier:      p.Tier,
		})
	}
	return resp
}

// ErrorResponse is every non-2xx body
type ErrorResponse struct {
	Error string `json:"error"`
}
