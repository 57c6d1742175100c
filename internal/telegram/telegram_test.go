package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/ton-energy/internal/config"
	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/storage"
)

const rawAddr = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"

func TestParseReferral(t *testing.T) {
	tests := []struct {
		text string
		id   int64
		ok   bool
	}{
		{"/start ref_12345", 12345, true},
		{"/start  ref_7 ", 7, true},
		{"/start", 0, false},
		{"/start hello", 0, false},
		{"/start ref_", 0, false},
		{"/start ref_abc", 0, false},
		{"/start ref_-3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			id, ok := parseReferral(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://t.me/secco_tap_bot?start=ref_42", referralLink("secco_tap_bot", 42))
	assert.Equal(t, "https://t.me/secco_tap_bot?start=ref_42", referralLink("@secco_tap_bot", 42))

	id, ok := parseReferral("/start " + strings.TrimPrefix(referralLink("x", 99), "https://t.me/x?start="))
	require.True(t, ok)
	assert.Equal(t, int64(99), id)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "5,420", formatNumber(5420))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-12,000", formatNumber(-12000))
}

func TestExtractAddress(t *testing.T) {
	friendly := "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"

	assert.Equal(t, rawAddr, extractAddress("my wallet: "+rawAddr))
	assert.Equal(t, friendly, extractAddress(friendly))
	assert.Equal(t, friendly, extractAddress("  "+friendly+"\n"))
	assert.Empty(t, extractAddress("hello"))
	assert.Empty(t, extractAddress("EQshort"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "friend", displayName(nil))
	assert.Equal(t, "Alice", displayName(&models.User{FirstName: "Alice", Username: "alice"}))
	assert.Equal(t, "alice", displayName(&models.User{Username: "alice"}))
	assert.Equal(t, "friend", displayName(&models.User{}))
}

func TestWelcomeTextEscapesName(t *testing.T) {
	text := welcomeText("<b>Bob</b>")
	assert.Contains(t, text, "&lt;b&gt;Bob&lt;/b&gt;")
}

func TestStatsText(t *testing.T) {
	acc := &storage.Account{
		Address:    rawAddr,
		Balance:    1250,
		Energy:     35,
		Level:      8,
		Experience: 5420,
		CreatedAt:  time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
	}

	text := statsText(rawAddr, acc, nil)
	assert.Contains(t, text, "1,250 SECCO")
	assert.Contains(t, text, "35/100")
	assert.Contains(t, text, "<b>Level:</b> 8")
	assert.Contains(t, text, "5,420")
	assert.Contains(t, text, "09 Mar 2024")
	assert.NotContains(t, text, rawAddr)
	assert.NotContains(t, text, "Energy bought")

	text = statsText(rawAddr, acc, []storage.Credit{
		{TxHash: "b", Address: rawAddr, Energy: 50, ValueNano: 990_000_000, CreditedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		{TxHash: "a", Address: rawAddr, Energy: 25, ValueNano: 500_000_000, CreditedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	})
	assert.Contains(t, text, "75 in 2 purchases (1.49 TON)")
	assert.Contains(t, text, "Last purchase:</b> 02 May 2024")
}

func TestStatsView_ShowsCreditedPurchases(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := storage.NewMemory()
	accounts := ledger.New(st, log)
	b := &Bot{
		cfg:      &config.Config{WebAppURL: "https://game.example/"},
		accounts: accounts,
		links:    st,
		credits:  st,
		states:   NewStateManager(),
		log:      log,
	}

	text, _ := b.statsView(ctx, 7)
	assert.Contains(t, text, "Send the TON wallet address")
	require.NotNil(t, b.states.Get(7))

	friendly := "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
	require.NoError(t, st.LinkWallet(ctx, 7, friendly))
	_, err := accounts.GetOrCreate(ctx, friendly)
	require.NoError(t, err)

	text, _ = b.statsView(ctx, 7)
	assert.NotContains(t, text, "Energy bought")

	_, err = accounts.CreditEnergy(ctx, friendly, "tx1", 25, 500_000_000)
	require.NoError(t, err)
	_, err = accounts.CreditEnergy(ctx, friendly, "tx2", 100, 2_000_000_000)
	require.NoError(t, err)

	text, _ = b.statsView(ctx, 7)
	assert.Contains(t, text, "125 in 2 purchases (2.50 TON)")
}

func TestKeyboards(t *testing.T) {
	const webApp = "https://game.example/"

	for name, kb := range map[string]*models.InlineKeyboardMarkup{
		"main":  MainKeyboard(webApp),
		"game":  GameKeyboard(webApp),
		"stats": StatsKeyboard(webApp),
		"help":  HelpKeyboard(webApp),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, kb.InlineKeyboard)
			first := kb.InlineKeyboard[0][0]
			require.NotNil(t, first.WebApp)
			assert.Equal(t, webApp, first.WebApp.URL)
		})
	}

	link := referralLink("secco_tap_bot", 1)
	share := ReferralKeyboard(link).InlineKeyboard[0][0].URL
	u, err := url.Parse(share)
	require.NoError(t, err)
	assert.Equal(t, link, u.Query().Get("url"))

	assert.Equal(t, "back", BackKeyboard().InlineKeyboard[0][0].CallbackData)
}

func TestStateManager(t *testing.T) {
	sm := NewStateManager()
	assert.Nil(t, sm.Get(1))

	sm.Set(1, StateWaitAddress)
	state := sm.Get(1)
	require.NotNil(t, state)
	assert.Equal(t, StateWaitAddress, state.State)

	sm.Clear(1)
	assert.Nil(t, sm.Get(1))
}

func TestStateManager_Expires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sm := NewStateManager()
	sm.now = func() time.Time { return now }

	sm.Set(1, StateWaitAddress)

	now = now.Add(DefaultStateTTL)
	require.NotNil(t, sm.Get(1))

	now = now.Add(time.Second)
	assert.Nil(t, sm.Get(1))
}
