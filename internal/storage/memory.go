package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process store with the same semantics as Storage
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	credits  map[string]Credit
	links    map[int64]WalletLink
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]Account),
		credits:  make(map[string]Credit),
		links:    make(map[int64]WalletLink),
	}
}

// Close is a no-op
func (m *Memory) Close() error { return nil }

// GetAccount returns a copy of the account
func (m *Memory) GetAccount(_ context.Context, address string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// CreateAccount inserts a new account
func (m *Memory) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.Address]; ok {
		return ErrAlreadyExists
	}
	m.accounts[a.Address] = *a
	return nil
}

// UpdateAccount overwrites an existing account
func (m *Memory) UpdateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(a)
}

func (m *Memory) update(a *Account) error {
	old, ok := m.accounts[a.Address]
	if !ok {
		return ErrNotFound
	}
	updated := *a
	updated.CreatedAt = old.CreatedAt
	m.accounts[a.Address] = updated
	return nil
}

// ApplyCredit records the credit and writes the account atomically
func (m *Memory) ApplyCredit(_ context.Context, a *Account, c Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.credits[c.TxHash]; ok {
		return ErrAlreadyCredited
	}
	if err := m.update(a); err != nil {
		return err
	}
	m.credits[c.TxHash] = c
	return nil
}

// GetCredit returns the credit recorded for a transaction hash
func (m *Memory) GetCredit(_ context.Context, txHash string) (*Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.credits[txHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListCredits returns the credits of an address, newest first
func (m *Memory) ListCredits(_ context.Context, address string) ([]Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Credit
	for _, c := range m.credits {
		if c.Address == address {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreditedAt.After(out[j].CreditedAt)
	})
	return out, nil
}

// LinkWallet sets the wallet a Telegram user plays with
func (m *Memory) LinkWallet(_ context.Context, userID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[userID] = WalletLink{UserID: userID, Address: address, CreatedAt: time.Now()}
	return nil
}

// GetWalletLink returns the wallet linked to a Telegram user
func (m *Memory) GetWalletLink(_ context.Context, userID int64) (*WalletLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.links[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}
