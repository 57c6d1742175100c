package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	"github.com/suspectuso/ton-energy/internal/toncenter"
)

var ErrBadStack = errors.New("unexpected get method stack")

// GetMethodRunner runs contract get methods
type GetMethodRunner interface {
	RunGetMethod(ctx context.Context, address, method string, stack [][]any) (*toncenter.GetMethodResult, error)
}

// Prices are the tier prices stored in the contract, in nanoTON
type Prices struct {
	Price25  int64
	Price50  int64
	Price100 int64
}

// ByTier returns the price of a tier
func (p Prices) ByTier() map[int]int64 {
	return map[int]int64{25: p.Price25, 50: p.Price50, 100: p.Price100}
}

// Contract reads state from a deployed energy purchase contract
type Contract struct {
	address string
	runner  GetMethodRunner
}

// New creates a contract reader for address
func New(address string, runner GetMethodRunner) *Contract {
	return &Contract{address: address, runner: runner}
}

// Address returns the contract address
func (c *Contract) Address() string { return c.address }

// TotalCollected returns the total TON collected by the contract, in nanoTON
func (c *Contract) TotalCollected(ctx context.Context) (int64, error) {
	res, err := c.runner.RunGetMethod(ctx, c.address, "get_total_collected", nil)
	if err != nil {
		return 0, err
	}
	if len(res.Stack) < 1 {
		return 0, ErrBadStack
	}
	return stackNum(res.Stack[0])
}

// EnergyPrices returns the three tier prices
func (c *Contract) EnergyPrices(ctx context.Context) (Prices, error) {
	res, err := c.runner.RunGetMethod(ctx, c.address, "get_energy_prices", nil)
	if err != nil {
		return Prices{}, err
	}
	if len(res.Stack) < 3 {
		return Prices{}, ErrBadStack
	}

	var p Prices
	if p.Price25, err = stackNum(res.Stack[0]); err != nil {
		return Prices{}, err
	}
	if p.Price50, err = stackNum(res.Stack[1]); err != nil {
		return Prices{}, err
	}
	if p.Price100, err = stackNum(res.Stack[2]); err != nil {
		return Prices{}, err
	}
	return p, nil
}

// OwnerAddress returns the owner wallet in raw form
func (c *Contract) OwnerAddress(ctx context.Context) (string, error) {
	res, err := c.runner.RunGetMethod(ctx, c.address, "get_owner_address", nil)
	if err != nil {
		return "", err
	}
	if len(res.Stack) < 1 {
		return "", ErrBadStack
	}
	return stackAddress(res.Stack[0])
}

func stackType(entry []json.RawMessage) (string, error) {
	if len(entry) != 2 {
		return "", ErrBadStack
	}
	var typ string
	if err := json.Unmarshal(entry[0], &typ); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadStack, err)
	}
	return typ, nil
}

func stackNum(entry []json.RawMessage) (int64, error) {
	typ, err := stackType(entry)
	if err != nil {
		return 0, err
	}
	if typ != "num" {
		return 0, fmt.Errorf("%w: want num, got %s", ErrBadStack, typ)
	}

	var s string
	if err := json.Unmarshal(entry[1], &s); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadStack, err)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "0x")

	n, ok := new(big.Int).SetString(s, 16)
	if !ok || !n.IsInt64() {
		return 0, fmt.Errorf("%w: bad number %q", ErrBadStack, s)
	}
	if neg {
		n.Neg(n)
	}
	return n.Int64(), nil
}

func stackAddress(entry []json.RawMessage) (string, error) {
	typ, err := stackType(entry)
	if err != nil {
		return "", err
	}
	if typ != "cell" && typ != "slice" {
		return "", fmt.Errorf("%w: want slice, got %s", ErrBadStack, typ)
	}

	var v struct {
		Bytes string `json:"bytes"`
	}
	if err := json.Unmarshal(entry[1], &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadStack, err)
	}
	cells, err := boc.DeserializeBocBase64(v.Bytes)
	if err != nil || len(cells) == 0 {
		return "", fmt.Errorf("%w: bad address cell", ErrBadStack)
	}

	acc, err := readStdAddress(cells[0])
	if err != nil {
		return "", err
	}
	return acc.String(), nil
}

// readStdAddress reads addr_std$10 anycast:(Maybe Anycast) workchain_id:int8 address:bits256
func readStdAddress(c *boc.Cell) (ton.AccountID, error) {
	tag, err := c.ReadUint(2)
	if err != nil {
		return ton.AccountID{}, err
	}
	if tag != 2 {
		return ton.AccountID{}, fmt.Errorf("%w: not a std address", ErrBadStack)
	}
	anycast, err := c.ReadUint(1)
	if err != nil {
		return ton.AccountID{}, err
	}
	if anycast != 0 {
		return ton.AccountID{}, fmt.Errorf("%w: anycast address", ErrBadStack)
	}
	wc, err := c.ReadUint(8)
	if err != nil {
		return ton.AccountID{}, err
	}
	raw, err := c.ReadBytes(32)
	if err != nil {
		return ton.AccountID{}, err
	}

	acc := ton.AccountID{Workchain: int32(int8(wc))}
	copy(acc.Address[:], raw)
	return acc, nil
}
