package toncenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/suspectuso/ton-energy/internal/metrics"
)

const (
	MainnetBaseURL = "https://toncenter.com/api/v2"
	TestnetBaseURL = "https://testnet.toncenter.com/api/v2"
)

// BaseURL returns the public toncenter endpoint for the network
func BaseURL(testnet bool) string {
	if testnet {
		return TestnetBaseURL
	}
	return MainnetBaseURL
}

// Client is a toncenter JSON-RPC client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	nextID     atomic.Int64

	pollInterval time.Duration

	// Rate limiting
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMinDelay sets the minimum spacing between requests
func WithMinDelay(d time.Duration) Option {
	return func(c *Client) { c.minDelay = d }
}

// WithPollInterval sets the WaitForTransaction polling interval
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a new toncenter client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: 2 * time.Second,
		minDelay:     1100 * time.Millisecond, // keyless limit is 1 RPS
	}
	if apiKey != "" {
		c.minDelay = 250 * time.Millisecond // ~4 RPS
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastCall)
	if elapsed < c.minDelay {
		t := time.NewTimer(c.minDelay - elapsed)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	c.lastCall = time.Now()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		var netErr *NetworkError
		var remoteErr *RemoteError
		switch {
		case errors.As(err, &netErr):
			status = "network_error"
		case errors.As(err, &remoteErr):
			status = "remote_error"
		case err != nil:
			status = "error"
		}
		metrics.GatewayRequestsTotal.WithLabelValues(method, status).Inc()
		metrics.GatewayRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if err := c.throttle(ctx); err != nil {
		return &NetworkError{Method: method, Err: err}
	}

	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{
		ID:      c.nextID.Add(1),
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jsonRPC", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, Err: fmt.Errorf("read body: %w", err)}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &RemoteError{Method: method, Code: resp.StatusCode, Message: truncate(string(data), 200)}
	}

	if remoteErr := decodeRemoteError(method, envelope, resp.StatusCode); remoteErr != nil {
		return remoteErr
	}
	if resp.StatusCode >= 400 {
		return &RemoteError{Method: method, Code: resp.StatusCode, Message: truncate(string(data), 200)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}

func decodeRemoteError(method string, envelope rpcResponse, status int) *RemoteError {
	raw := bytes.TrimSpace(envelope.Error)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var obj rpcError
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			return &RemoteError{Method: method, Code: obj.Code, Message: obj.Message}
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			code := envelope.Code
			if code == 0 {
				code = status
			}
			return &RemoteError{Method: method, Code: code, Message: msg}
		}
		return &RemoteError{Method: method, Code: status, Message: string(raw)}
	}
	if envelope.OK != nil && !*envelope.OK {
		return &RemoteError{Method: method, Code: envelope.Code, Message: "request not ok"}
	}
	return nil
}

// GetAddressInformation returns account state and balance
func (c *Client) GetAddressInformation(ctx context.Context, address string) (*AddressInformation, error) {
	var info AddressInformation
	if err := c.call(ctx, "getAddressInformation", map[string]any{"address": address}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetAddressBalance returns the account balance in nanoTON
func (c *Client) GetAddressBalance(ctx context.Context, address string) (int64, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "getAddressBalance", map[string]any{"address": address}, &raw); err != nil {
		return 0, err
	}
	balance, err := parseNano(raw)
	if err != nil {
		return 0, fmt.Errorf("parse balance: %w", err)
	}
	return balance, nil
}

// GetTransactions returns up to limit most recent transactions of an address,
// starting from cursor when it is set
func (c *Client) GetTransactions(ctx context.Context, address string, limit int, cursor *Cursor) ([]Transaction, error) {
	params := map[string]any{
		"address":  address,
		"limit":    limit,
		"archival": false,
	}
	if cursor != nil {
		if cursor.LT != "" {
			params["lt"] = cursor.LT
		}
		if cursor.Hash != "" {
			params["hash"] = cursor.Hash
		}
	}

	var txs []Transaction
	if err := c.call(ctx, "getTransactions", params, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// SendBoc submits a serialized message to the network
func (c *Client) SendBoc(ctx context.Context, bocBase64 string) error {
	return c.call(ctx, "sendBoc", map[string]any{"boc": bocBase64}, nil)
}

// RunGetMethod executes a contract get method
func (c *Client) RunGetMethod(ctx context.Context, address, method string, stack [][]any) (*GetMethodResult, error) {
	if stack == nil {
		stack = [][]any{}
	}
	params := map[string]any{
		"address": address,
		"method":  method,
		"stack":   stack,
	}

	var res GetMethodResult
	if err := c.call(ctx, "runGetMethod", params, &res); err != nil {
		return nil, err
	}
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, &RemoteError{
			Method:  "runGetMethod",
			Code:    res.ExitCode,
			Message: fmt.Sprintf("get method %s exited with code %d", method, res.ExitCode),
		}
	}
	return &res, nil
}

// EstimateFee estimates the fees of an external message
func (c *Client) EstimateFee(ctx context.Context, req FeeRequest) (*Fees, error) {
	var fees Fees
	if err := c.call(ctx, "estimateFee", req, &fees); err != nil {
		return nil, err
	}
	return &fees, nil
}

// GetMasterchainInfo returns the latest masterchain block
func (c *Client) GetMasterchainInfo(ctx context.Context) (*MasterchainInfo, error) {
	var info MasterchainInfo
	if err := c.call(ctx, "getMasterchainInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// IsValidAddress reports whether the API can resolve the address
func (c *Client) IsValidAddress(ctx context.Context, address string) bool {
	_, err := c.GetAddressInformation(ctx, address)
	return err == nil
}

func parseNano(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
