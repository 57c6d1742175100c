package toncenter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tonkeeper/tongo/boc"
)

// rpcRequest is a JSON-RPC 2.0 request envelope
type rpcRequest struct {
	ID      int64  `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// rpcResponse is the toncenter response envelope
type rpcResponse struct {
	OK     *bool           `json:"ok,omitempty"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error,omitempty"`
	Code   int             `json:"code,omitempty"`
}

// rpcError is the JSON-RPC 2.0 error object
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TransactionID identifies a transaction by logical time and hash
type TransactionID struct {
	LT   string `json:"lt"`
	Hash string `json:"hash"`
}

// Cursor selects the page of transactions ending at the given transaction
type Cursor struct {
	LT   string
	Hash string
}

// MessageData is the msg_data object of a raw message
type MessageData struct {
	Type      string `json:"@type"`
	Body      string `json:"body,omitempty"`
	Text      string `json:"text,omitempty"`
	InitState string `json:"init_state,omitempty"`
}

// Message is a raw inbound or outbound message
type Message struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Value       string      `json:"value"`
	FwdFee      string      `json:"fwd_fee,omitempty"`
	CreatedLT   string      `json:"created_lt,omitempty"`
	BodyHash    string      `json:"body_hash,omitempty"`
	MsgData     MessageData `json:"msg_data"`
	Comment     string      `json:"message,omitempty"`
}

// ValueNano returns the message value in nanoTON, 0 when absent or malformed.
// Use ParseValue where a malformed value must not pass for zero.
func (m *Message) ValueNano() int64 {
	v, _ := m.ParseValue()
	return v
}

// ParseValue returns the message value in nanoTON
func (m *Message) ParseValue() (int64, error) {
	if m == nil || m.Value == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(m.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q", ErrMalformedResponse, m.Value)
	}
	return v, nil
}

// HasData reports whether the message carries a comment or a non-empty body cell
func (m *Message) HasData() bool {
	if m == nil {
		return false
	}
	if m.Comment != "" || m.MsgData.Text != "" {
		return true
	}
	if m.MsgData.Body == "" {
		return false
	}
	cells, err := boc.DeserializeBocBase64(m.MsgData.Body)
	if err != nil || len(cells) == 0 {
		return false
	}
	return cells[0].BitSize() > 0 || cells[0].RefsSize() > 0
}

// Transaction is a raw.transaction returned by getTransactions
type Transaction struct {
	TransactionID TransactionID `json:"transaction_id"`
	Utime         int64         `json:"utime"`
	Fee           string        `json:"fee,omitempty"`
	StorageFee    string        `json:"storage_fee,omitempty"`
	OtherFee      string        `json:"other_fee,omitempty"`
	InMsg         *Message      `json:"in_msg,omitempty"`
	OutMsgs       []Message     `json:"out_msgs,omitempty"`
}

// Hash returns the transaction hash
func (t *Transaction) Hash() string { return t.TransactionID.Hash }

// LT returns the transaction logical time
func (t *Transaction) LT() string { return t.TransactionID.LT }

// Timestamp returns the transaction time
func (t *Transaction) Timestamp() time.Time { return time.Unix(t.Utime, 0) }

// Source returns the sender of the incoming message
func (t *Transaction) Source() string {
	if t.InMsg == nil {
		return ""
	}
	return t.InMsg.Source
}

// Destination returns the receiver of the incoming message
func (t *Transaction) Destination() string {
	if t.InMsg == nil {
		return ""
	}
	return t.InMsg.Destination
}

// ValueNano returns the incoming value in nanoTON
func (t *Transaction) ValueNano() int64 { return t.InMsg.ValueNano() }

// Value returns the incoming value in TON
func (t *Transaction) Value() decimal.Decimal { return NanoToTON(t.ValueNano()) }

// Comment returns the text comment of the incoming message, if any
func (t *Transaction) Comment() string {
	if t.InMsg == nil {
		return ""
	}
	if t.InMsg.Comment != "" {
		return t.InMsg.Comment
	}
	return t.InMsg.MsgData.Text
}

// Body returns the base64 BOC body of the incoming message
func (t *Transaction) Body() string {
	if t.InMsg == nil {
		return ""
	}
	return t.InMsg.MsgData.Body
}

// ParseValue returns the incoming value in TON, failing on a malformed value
func (t *Transaction) ParseValue() (decimal.Decimal, error) {
	nano, err := t.InMsg.ParseValue()
	if err != nil {
		return decimal.Zero, err
	}
	return NanoToTON(nano), nil
}

// HasPayload reports whether the transaction has an incoming message
func (t *Transaction) HasPayload() bool { return t.InMsg != nil }

// AddressInformation is the result of getAddressInformation
type AddressInformation struct {
	Balance           string        `json:"balance"`
	State             string        `json:"state"`
	Code              string        `json:"code,omitempty"`
	Data              string        `json:"data,omitempty"`
	LastTransactionID TransactionID `json:"last_transaction_id"`
	FrozenHash        string        `json:"frozen_hash,omitempty"`
	SyncUtime         int64         `json:"sync_utime"`
}

// BalanceNano returns the account balance in nanoTON
func (a *AddressInformation) BalanceNano() int64 {
	v, _ := strconv.ParseInt(a.Balance, 10, 64)
	return v
}

// GetMethodResult is the result of runGetMethod
type GetMethodResult struct {
	GasUsed  int64               `json:"gas_used"`
	Stack    [][]json.RawMessage `json:"stack"`
	ExitCode int                 `json:"exit_code"`
}

// FeeRequest describes an estimateFee call
type FeeRequest struct {
	Address  string `json:"address"`
	Body     string `json:"body"`
	InitCode string `json:"init_code,omitempty"`
	InitData string `json:"init_data,omitempty"`
}

// FeeBreakdown is one side of a fee estimate, in nanoTON
type FeeBreakdown struct {
	InFwdFee   int64 `json:"in_fwd_fee"`
	StorageFee int64 `json:"storage_fee"`
	GasFee     int64 `json:"gas_fee"`
	FwdFee     int64 `json:"fwd_fee"`
}

// Total returns the sum of all fee parts
func (f FeeBreakdown) Total() int64 {
	return f.InFwdFee + f.StorageFee + f.GasFee + f.FwdFee
}

// Fees is the result of estimateFee
type Fees struct {
	SourceFees      FeeBreakdown   `json:"source_fees"`
	DestinationFees []FeeBreakdown `json:"destination_fees"`
}

// BlockID identifies a block
type BlockID struct {
	Workchain int32  `json:"workchain"`
	Shard     string `json:"shard"`
	Seqno     int64  `json:"seqno"`
	RootHash  string `json:"root_hash"`
	FileHash  string `json:"file_hash"`
}

// MasterchainInfo is the result of getMasterchainInfo
type MasterchainInfo struct {
	Last          BlockID `json:"last"`
	StateRootHash string  `json:"state_root_hash"`
	Init          BlockID `json:"init"`
}
