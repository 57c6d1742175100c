// Package api serves the game's HTTP surface.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

// Accounts is the ledger as seen by the handlers
type Accounts interface {
	GetOrCreate(ctx context.Context, address string) (*storage.Account, error)
	Get(ctx context.Context, address string) (*storage.Account, error)
	IsCredited(ctx context.Context, txHash string) (bool, error)
	CreditEnergy(ctx context.Context, address, txHash string, amount int, valueNano int64) (*storage.Account, error)
	UpdateProgress(ctx context.Context, address string, p ledger.Progress) (*storage.Account, error)
}

// Verifier matches payment claims against the ledger
type Verifier interface {
	Validate(ctx context.Context, claim payment.Claim) (*toncenter.Transaction, error)
}

// Stats summarizes wallet payments
type Stats interface {
	Summarize(ctx context.Context, address string) (*monitor.Summary, error)
}

// Handler holds the route handlers
type Handler struct {
	accounts Accounts
	verifier Verifier
	stats    Stats
	owner    string
	contract string
	log      *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler. owner is summarized by contract-stats; contract is reported alongside.
func NewHandler(accounts Accounts, verifier Verifier, stats Stats, owner, contract string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		accounts: accounts,
		verifier: verifier,
		stats:    stats,
		owner:    owner,
		contract: contract,
		log:      log,
		now:      time.Now,
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	h.log.Error(msg, "path", c.FullPath(), "error", err)
	abort(c, http.StatusInternalServerError, "Internal server error")
}

// GetUser handles GET /api/user/:address
func (h *Handler) GetUser(c *gin.Context) {
	address := c.Param("address")

	acc, err := h.accounts.GetOrCreate(c.Request.Context(), address)
	if err != nil {
		h.internalError(c, "get user", err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(address, acc))
}

// ValidatePurchase handles POST /api/validate-energy-purchase
func (h *Handler) ValidatePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	h.log.Info("validating energy purchase",
		"tx_hash", toncenter.ShortAddr(req.TxHash, 8),
		"wallet", toncenter.ShortAddr(req.WalletAddress, 6),
		"energy", req.EnergyAmount,
		"ton", req.TonAmount.String(),
	)

	if _, err := h.accounts.Get(ctx, req.WalletAddress); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			abort(c, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(c, "get user", err)
		return
	}

	credited, err := h.accounts.IsCredited(ctx, req.TxHash)
	if err != nil {
		h.internalError(c, "check credit", err)
		return
	}
	if credited {
		abort(c, http.StatusBadRequest, "Transaction already credited")
		return
	}

	tx, err := h.verifier.Validate(ctx, payment.Claim{
		TransactionHash: req.TxHash,
		SenderAddress:   req.WalletAddress,
		EnergyAmount:    req.EnergyAmount,
		TonAmount:       req.TonAmount,
	})
	if err != nil {
		if payment.IsValidationError(err) {
			abort(c, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(c, "validate purchase", err)
		return
	}

	acc, err := h.accounts.CreditEnergy(ctx, req.WalletAddress, tx.Hash(), req.EnergyAmount, tx.ValueNano())
	switch {
	case errors.Is(err, ledger.ErrAlreadyCredited):
		abort(c, http.StatusBadRequest, "Transaction already credited")
		return
	case errors.Is(err, ledger.ErrAccountNotFound):
		abort(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.internalError(c, "credit energy", err)
		return
	}

	c.JSON(http.StatusOK, PurchaseResponse{
		Success:     true,
		NewEnergy:   acc.Energy,
		TxHash:      req.TxHash,
		Transaction: newTransactionResponse(tx),
	})
}

// UpdateGameData handles POST /api/update-game-data
func (h *Handler) UpdateGameData(c *gin.Context) {
	var req GameDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	_, err := h.accounts.UpdateProgress(c.Request.Context(), req.WalletAddress, ledger.Progress{
		Balance:    req.Balance,
		Energy:     req.Energy,
		Level:      req.Level,
		Experience: req.XP,
	})
	if errors.Is(err, ledger.ErrAccountNotFound) {
		abort(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.internalError(c, "update game data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ContractStats handles GET /api/contract-stats
func (h *Handler) ContractStats(c *gin.Context) {
	s, err := h.stats.Summarize(c.Request.Context(), h.owner)
	if err != nil {
		h.internalError(c, "contract stats", err)
		return
	}

	c.JSON(http.StatusOK, newStatsResponse(h.owner, h.contract, s, h.now()))
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
