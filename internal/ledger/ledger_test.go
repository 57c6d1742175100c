package ledger_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/storage"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T) (*ledger.Ledger, *storage.Memory, *clock) {
	t.Helper()
	store := storage.NewMemory()
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ledger.New(store, log, ledger.WithClock(clk.Now)), store, clk
}

func setEnergy(t *testing.T, store *storage.Memory, address string, energy int) {
	t.Helper()
	acc, err := store.GetAccount(context.Background(), address)
	require.NoError(t, err)
	acc.Energy = energy
	require.NoError(t, store.UpdateAccount(context.Background(), acc))
}

func TestLedger_GetOrCreate(t *testing.T) {
	l, _, clk := setup(t)
	ctx := context.Background()

	acc, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, "W1", acc.Address)
	assert.Equal(t, ledger.MaxEnergy, acc.Energy)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Equal(t, clk.Now(), acc.LastEnergyRegenAt)

	again, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, acc.CreatedAt, again.CreatedAt)
}

func TestLedger_RegenAfterThirteenHours(t *testing.T) {
	l, store, clk := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 10)

	clk.Advance(13 * time.Hour)
	acc, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 100, acc.Energy)
	assert.Equal(t, clk.Now(), acc.LastEnergyRegenAt)

	stored, err := store.GetAccount(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Energy)
	assert.Equal(t, clk.Now(), stored.LastEnergyRegenAt)
}

func TestLedger_RegenBoundary(t *testing.T) {
	l, store, clk := setup(t)
	ctx := context.Background()

	created, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 30)

	clk.Advance(ledger.RegenInterval - time.Millisecond)
	acc, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 30, acc.Energy)
	assert.Equal(t, created.LastEnergyRegenAt, acc.LastEnergyRegenAt)

	clk.Advance(time.Millisecond)
	acc, err = l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 100, acc.Energy)
	assert.Equal(t, clk.Now(), acc.LastEnergyRegenAt)
}

func TestLedger_CreditEnergy(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 10)

	acc, err := l.CreditEnergy(ctx, "W1", "abc", 25, 490_000_000)
	require.NoError(t, err)
	assert.Equal(t, 35, acc.Energy)

	credited, err := l.IsCredited(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, credited)
}

func TestLedger_CreditCapped(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 90)

	acc, err := l.CreditEnergy(ctx, "W1", "abc", 100, 2_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxEnergy, acc.Energy)
}

func TestLedger_CreditTwice(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 0)

	_, err = l.CreditEnergy(ctx, "W1", "abc", 25, 500_000_000)
	require.NoError(t, err)

	_, err = l.CreditEnergy(ctx, "W1", "abc", 25, 500_000_000)
	assert.ErrorIs(t, err, ledger.ErrAlreadyCredited)

	acc, err := l.Get(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 25, acc.Energy)
}

func TestLedger_CreditUnknownAccount(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	_, err := l.CreditEnergy(ctx, "ghost", "abc", 25, 500_000_000)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	credited, err := l.IsCredited(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, credited)
}

func TestLedger_CreditInvalidAmount(t *testing.T) {
	l, _, _ := setup(t)

	_, err := l.CreditEnergy(context.Background(), "W1", "abc", 0, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestLedger_CreditAppliesRegenFirst(t *testing.T) {
	l, store, clk := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 10)

	clk.Advance(13 * time.Hour)
	acc, err := l.CreditEnergy(ctx, "W1", "abc", 25, 500_000_000)
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxEnergy, acc.Energy)
	assert.Equal(t, clk.Now(), acc.LastEnergyRegenAt)
}

func TestLedger_ConcurrentCredits(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.CreditEnergy(ctx, "W1", fmt.Sprintf("tx-%d", i), 25, 500_000_000)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	acc, err := l.Get(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 100, acc.Energy)
}

func TestLedger_ConcurrentReplays(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)
	setEnergy(t, store, "W1", 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.CreditEnergy(ctx, "W1", "abc", 25, 500_000_000); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ledger.ErrAlreadyCredited)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	acc, err := l.Get(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 25, acc.Energy)
}

func TestLedger_UpdateProgress(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, "W1")
	require.NoError(t, err)

	acc, err := l.UpdateProgress(ctx, "W1", ledger.Progress{Balance: 1250, Energy: 150, Level: 8, Experience: 5420})
	require.NoError(t, err)
	assert.Equal(t, int64(1250), acc.Balance)
	assert.Equal(t, ledger.MaxEnergy, acc.Energy)
	assert.Equal(t, 8, acc.Level)

	acc, err = l.UpdateProgress(ctx, "W1", ledger.Progress{Energy: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Energy)

	_, err = l.UpdateProgress(ctx, "ghost", ledger.Progress{})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestLedger_Get(t *testing.T) {
	l, _, _ := setup(t)

	_, err := l.Get(context.Background(), "W1")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
