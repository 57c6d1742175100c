// Package ledger keeps player accounts and grants energy for verified
// payments at most once per transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/suspectuso/ton-energy/internal/lock"
	"github.com/suspectuso/ton-energy/internal/metrics"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

const (
	MaxEnergy     = 100
	RegenInterval = 12 * time.Hour
)

var (
	ErrAccountNotFound = errors.New("user not found")
	ErrAlreadyCredited = errors.New("transaction already credited")
	ErrInvalidAmount   = errors.New("energy amount must be positive")
)

// Store persists accounts and consumed transaction hashes
type Store interface {
	GetAccount(ctx context.Context, address string) (*storage.Account, error)
	CreateAccount(ctx context.Context, a *storage.Account) error
	UpdateAccount(ctx context.Context, a *storage.Account) error
	// ApplyCredit records c and writes a together, or neither
	ApplyCredit(ctx context.Context, a *storage.Account, c storage.Credit) error
	GetCredit(ctx context.Context, txHash string) (*storage.Credit, error)
}

// Progress is the game state pushed by the client
type Progress struct {
	Balance    int64
	Energy     int
	Level      int
	Experience int64
}

// Ledger applies the account rules on top of a Store
type Ledger struct {
	store  Store
	locker lock.Locker
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocker replaces the in-process per-address lock
func WithLocker(locker lock.Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

// New creates a Ledger
func New(store Store, log *slog.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{
		store:  store,
		locker: lock.NewKeyedMutex(),
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the store key of an address: raw form when parseable
func Key(address string) string {
	return toncenter.NormalizeAddress(address)
}

// GetOrCreate returns the account, creating it with full energy when unseen.
// Regeneration is applied and persisted before returning.
func (l *Ledger) GetOrCreate(ctx context.Context, address string) (*storage.Account, error) {
	key := Key(address)

	unlock, err := l.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := l.store.GetAccount(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return l.create(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := l.regenerate(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Get returns an existing account with regeneration applied
func (l *Ledger) Get(ctx context.Context, address string) (*storage.Account, error) {
	key := Key(address)

	unlock, err := l.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := l.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := l.regenerate(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (l *Ledger) create(ctx context.Context, key string) (*storage.Account, error) {
	now := l.now()
	acc := &storage.Account{
		Address:           key,
		Energy:            MaxEnergy,
		Level:             1,
		LastEnergyRegenAt: now,
		CreatedAt:         now,
	}

	err := l.store.CreateAccount(ctx, acc)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// another replica created it first
		existing, err := l.store.GetAccount(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get account: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	l.log.Info("account created", "address", key)
	return acc, nil
}

func (l *Ledger) load(ctx context.Context, key string) (*storage.Account, error) {
	acc, err := l.store.GetAccount(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// regenerate refills energy once a full window has passed since the last refill
func (l *Ledger) regenerate(ctx context.Context, acc *storage.Account) error {
	if !applyRegen(acc, l.now()) {
		return nil
	}
	if err := l.store.UpdateAccount(ctx, acc); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	l.log.Debug("energy regenerated", "address", acc.Address)
	return nil
}

func applyRegen(acc *storage.Account, now time.Time) bool {
	if now.Sub(acc.LastEnergyRegenAt) < RegenInterval {
		return false
	}
	acc.Energy = MaxEnergy
	acc.LastEnergyRegenAt = now
	return true
}

// IsCredited reports whether a transaction hash was already consumed
func (l *Ledger) IsCredited(ctx context.Context, txHash string) (bool, error) {
	_, err := l.store.GetCredit(ctx, txHash)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get credit: %w", err)
	}
	return true, nil
}

// CreditEnergy grants amount energy for txHash, capped at MaxEnergy.
// Callers must have validated the payment behind txHash first.
func (l *Ledger) CreditEnergy(ctx context.Context, address, txHash string, amount int, valueNano int64) (*storage.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	key := Key(address)

	unlock, err := l.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := l.load(ctx, key)
	if err != nil {
		return nil, err
	}

	now := l.now()
	applyRegen(acc, now)
	acc.Energy = clampEnergy(acc.Energy + amount)

	err = l.store.ApplyCredit(ctx, acc, storage.Credit{
		TxHash:     txHash,
		Address:    key,
		Energy:     amount,
		ValueNano:  valueNano,
		CreditedAt: now,
	})
	if errors.Is(err, storage.ErrAlreadyCredited) {
		metrics.ReplaysTotal.Inc()
		l.log.Warn("replayed credit", "address", key, "tx_hash", txHash)
		return nil, ErrAlreadyCredited
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apply credit: %w", err)
	}

	metrics.CreditsTotal.WithLabelValues(strconv.Itoa(amount)).Inc()
	l.log.Info("energy credited",
		"address", key,
		"tx_hash", txHash,
		"amount", amount,
		"energy", acc.Energy,
	)
	return acc, nil
}

// UpdateProgress overwrites the game state of an existing account
func (l *Ledger) UpdateProgress(ctx context.Context, address string, p Progress) (*storage.Account, error) {
	key := Key(address)

	unlock, err := l.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := l.load(ctx, key)
	if err != nil {
		return nil, err
	}

	acc.Balance = p.Balance
	acc.Energy = clampEnergy(p.Energy)
	acc.Level = p.Level
	acc.Experience = p.Experience

	if err := l.store.UpdateAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return acc, nil
}

func clampEnergy(e int) int {
	if e < 0 {
		return 0
	}
	if e > MaxEnergy {
		return MaxEnergy
	}
	return e
}
