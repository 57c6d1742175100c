package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Validate(ctx context.Context, claim payment.Claim) (*toncenter.Transaction, error) {
	args := m.Called(ctx, claim.TransactionHash, claim.SenderAddress, claim.EnergyAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*toncenter.Transaction), args.Error(1)
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) Summarize(ctx context.Context, address string) (*monitor.Summary, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*monitor.Summary), args.Error(1)
}

type testEnv struct {
	router   *gin.Engine
	store    *storage.Memory
	ledger   *ledger.Ledger
	verifier *mockVerifier
	stats    *mockStats
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemory()
	l := ledger.New(store, log)
	v := new(mockVerifier)
	s := new(mockStats)
	h := NewHandler(l, v, s, "OWNER", "CONTRACT", log)
	return &testEnv{
		router:   NewRouter(h, log),
		store:    store,
		ledger:   l,
		verifier: v,
		stats:    s,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, address string, energy int) {
	t.Helper()
	_, err := e.ledger.GetOrCreate(context.Background(), address)
	require.NoError(t, err)
	_, err = e.ledger.UpdateProgress(context.Background(), address, ledger.Progress{Energy: energy, Level: 1})
	require.NoError(t, err)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func matched(hash string) *toncenter.Transaction {
	return &toncenter.Transaction{
		TransactionID: toncenter.TransactionID{LT: "47000000000001", Hash: hash},
		Utime:         1700000000,
		InMsg:         &toncenter.Message{Source: "W1", Destination: "CONTRACT", Value: "490000000", Comment: "SECCO Energy"},
	}
}

func purchase(hash string, energy int) gin.H {
	return gin.H{"txHash": hash, "walletAddress": "W1", "energyAmount": energy, "tonAmount": 0.5}
}

func TestGetUser_CreatesAccount(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodGet, "/api/user/W1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "W1", resp.WalletAddress)
	assert.Equal(t, 100, resp.Energy)
	assert.Equal(t, int64(0), resp.Balance)
	assert.Equal(t, 1, resp.Level)
}

func TestValidatePurchase_Success(t *testing.T) {
	env := setup(t)
	env.createUser(t, "W1", 10)
	env.verifier.On("Validate", mock.Anything, "abc", "W1", 25).Return(matched("abc"), nil)

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PurchaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 35, resp.NewEnergy)
	assert.Equal(t, "abc", resp.TxHash)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, 0.49, resp.Transaction.Value)
	assert.Equal(t, "W1", resp.Transaction.From)
}

func TestValidatePurchase_Replay(t *testing.T) {
	env := setup(t)
	env.createUser(t, "W1", 10)
	env.verifier.On("Validate", mock.Anything, "abc", "W1", 25).Return(matched("abc"), nil).Once()

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Transaction already credited", decodeError(t, w))

	acc, err := env.ledger.Get(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, 35, acc.Energy)
	env.verifier.AssertNumberOfCalls(t, "Validate", 1)
}

func TestValidatePurchase_UnknownUser(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeError(t, w))
	env.verifier.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidatePurchase_AmountMismatch(t *testing.T) {
	env := setup(t)
	env.createUser(t, "W1", 10)
	env.verifier.On("Validate", mock.Anything, "abc", "W1", 25).Return(nil, &payment.ValidationError{
		Kind:     payment.ErrAmountMismatch,
		TxHash:   "abc",
		Expected: decimal.RequireFromString("0.5"),
		Actual:   decimal.RequireFromString("0.4"),
	})

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Amount mismatch: expected 0.5 TON, received 0.4 TON", decodeError(t, w))

	acc, err := env.ledger.Get(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, 10, acc.Energy)
}

func TestValidatePurchase_GatewayFailure(t *testing.T) {
	env := setup(t)
	env.createUser(t, "W1", 10)
	env.verifier.On("Validate", mock.Anything, "abc", "W1", 25).Return(nil, &toncenter.NetworkError{Method: "getTransactions", Err: io.EOF})

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", purchase("abc", 25))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
}

func TestValidatePurchase_BadBody(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/api/validate-energy-purchase", gin.H{"walletAddress": "W1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "invalid request")
}

func TestUpdateGameData(t *testing.T) {
	env := setup(t)
	env.createUser(t, "W1", 100)

	w := env.do(t, http.MethodPost, "/api/update-game-data", gin.H{
		"walletAddress": "W1", "balance": 1250, "energy": 150, "level": 8, "xp": 5420,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	acc, err := env.ledger.Get(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), acc.Balance)
	assert.Equal(t, 100, acc.Energy)
	assert.Equal(t, 8, acc.Level)
	assert.Equal(t, int64(5420), acc.Experience)
}

func TestUpdateGameData_UnknownUser(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/api/update-game-data", gin.H{"walletAddress": "ghost", "energy": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContractStats(t *testing.T) {
	env := setup(t)

	var payments []monitor.Payment
	for i := 0; i < 12; i++ {
		payments = append(payments, monitor.Payment{
			Hash:      "h",
			Amount:    decimal.RequireFromString("0.5"),
			From:      "W1",
			Timestamp: time.Unix(1700000000, 0),
			Tier:      25,
		})
	}
	env.stats.On("Summarize", mock.Anything, "OWNER").Return(&monitor.Summary{
		Address:       "OWNER",
		TotalBalance:  decimal.RequireFromString("12.34"),
		TotalPayments: decimal.RequireFromString("6"),
		Payments:      payments,
	}, nil)

	w := env.do(t, http.MethodGet, "/api/contract-stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OWNER", resp.OwnerWallet)
	assert.Equal(t, "CONTRACT", resp.ContractAddress)
	assert.Equal(t, 6.0, resp.TotalEnergyPayments)
	assert.Equal(t, 12, resp.EnergyTransactionsCount)
	assert.Equal(t, 12.34, resp.TotalBalance)
	assert.Len(t, resp.RecentTransactions, 10)
}

func TestContractStats_GatewayFailure(t *testing.T) {
	env := setup(t)
	env.stats.On("Summarize", mock.Anything, "OWNER").Return(nil, &toncenter.RemoteError{Method: "getTransactions", Code: 500})

	w := env.do(t, http.MethodGet, "/api/contract-stats", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/update-game-data", nil)
	req.Header.Set("Origin", "https://game.example")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setup(t)
	env.do(t, http.MethodGet, "/api/user/W1", nil)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "energy_http_requests_total")
}
