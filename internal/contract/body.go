// Package contract speaks the wire format of the energy purchase contract:
// op codes, message bodies and get methods.
package contract

import (
	"errors"
	"fmt"

	"github.com/tonkeeper/tongo/boc"
)

// Op codes understood by the contract
const (
	OpComment      uint32 = 0
	OpBuyEnergy25  uint32 = 0x12345601
	OpBuyEnergy50  uint32 = 0x12345602
	OpBuyEnergy100 uint32 = 0x12345603
	OpWithdraw     uint32 = 0x12345604
)

var (
	ErrUnknownTier = errors.New("no buy op for energy tier")
	ErrEmptyBody   = errors.New("message body is empty")
)

var buyOps = map[int]uint32{
	25:  OpBuyEnergy25,
	50:  OpBuyEnergy50,
	100: OpBuyEnergy100,
}

// BuyOp returns the buy op code for an energy tier
func BuyOp(tier int) (uint32, bool) {
	op, ok := buyOps[tier]
	return op, ok
}

// TierForOp returns the energy tier bought by op
func TierForOp(op uint32) (int, bool) {
	for tier, o := range buyOps {
		if o == op {
			return tier, true
		}
	}
	return 0, false
}

// Body is a decoded inbound message body
type Body struct {
	Op      uint32
	QueryID uint64
	Amount  uint64 // withdraw amount in nanoTON
	Comment string
}

// Tier returns the tier bought by this body, if it is a buy
func (b Body) Tier() (int, bool) { return TierForOp(b.Op) }

// BuyBody builds op:uint32 query_id:uint64 for a buy of the given tier
func BuyBody(tier int, queryID uint64) (*boc.Cell, error) {
	op, ok := BuyOp(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, tier)
	}

	c := boc.NewCell()
	if err := c.WriteUint(uint64(op), 32); err != nil {
		return nil, err
	}
	if err := c.WriteUint(queryID, 64); err != nil {
		return nil, err
	}
	return c, nil
}

// WithdrawBody builds op:uint32 query_id:uint64 amount:Coins
func WithdrawBody(queryID, amountNano uint64) (*boc.Cell, error) {
	c := boc.NewCell()
	if err := c.WriteUint(uint64(OpWithdraw), 32); err != nil {
		return nil, err
	}
	if err := c.WriteUint(queryID, 64); err != nil {
		return nil, err
	}
	if err := writeCoins(c, amountNano); err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeBody serializes a body cell to a base64 BOC
func EncodeBody(c *boc.Cell) (string, error) {
	return c.ToBocBase64()
}

// DecodeBody parses a base64 BOC message body
func DecodeBody(bocBase64 string) (Body, error) {
	if bocBase64 == "" {
		return Body{}, ErrEmptyBody
	}
	cells, err := boc.DeserializeBocBase64(bocBase64)
	if err != nil {
		return Body{}, fmt.Errorf("deserialize boc: %w", err)
	}
	if len(cells) == 0 {
		return Body{}, ErrEmptyBody
	}
	c := cells[0]
	if c.BitsAvailableForRead() < 32 {
		return Body{}, ErrEmptyBody
	}

	op, err := c.ReadUint(32)
	if err != nil {
		return Body{}, err
	}
	body := Body{Op: uint32(op)}

	if body.Op == OpComment {
		text, err := c.ReadBytes(c.BitsAvailableForRead() / 8)
		if err != nil {
			return Body{}, fmt.Errorf("read comment: %w", err)
		}
		body.Comment = string(text)
		return body, nil
	}

	if c.BitsAvailableForRead() >= 64 {
		if body.QueryID, err = c.ReadUint(64); err != nil {
			return Body{}, err
		}
	}
	if body.Op == OpWithdraw {
		if body.Amount, err = readCoins(c); err != nil {
			return Body{}, fmt.Errorf("read amount: %w", err)
		}
	}
	return body, nil
}

// writeCoins stores a VarUInteger 16
func writeCoins(c *boc.Cell, amount uint64) error {
	n := 0
	for v := amount; v > 0; v >>= 8 {
		n++
	}
	if err := c.WriteUint(uint64(n), 4); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return c.WriteUint(amount, n*8)
}

func readCoins(c *boc.Cell) (uint64, error) {
	n, err := c.ReadUint(4)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if n > 8 {
		return 0, fmt.Errorf("coins length %d overflows uint64", n)
	}
	return c.ReadUint(int(n) * 8)
}
