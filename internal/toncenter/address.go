package toncenter

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tonkeeper/tongo/ton"
)

// NanoPerTON is the number of nanoTON in one TON
const NanoPerTON = 1_000_000_000

var nanoPerTON = decimal.NewFromInt(NanoPerTON)

// NanoToTON converts nanoTON to TON
func NanoToTON(nano int64) decimal.Decimal {
	return decimal.NewFromInt(nano).Div(nanoPerTON)
}

// TONToNano converts TON to nanoTON, truncating below one nanoTON
func TONToNano(amount decimal.Decimal) int64 {
	return amount.Mul(nanoPerTON).IntPart()
}

// RawToFriendly converts raw address (0:...) to friendly format (UQ.../EQ...)
func RawToFriendly(raw string) string {
	if raw == "" {
		return ""
	}

	acc, err := ton.ParseAccountID(raw)
	if err != nil {
		return raw
	}

	// bounceable, URL-safe
	return acc.ToHuman(true, false)
}

// NormalizeAddress converts any address format to raw (0:...).
// Input tongo cannot parse is returned trimmed and unchanged otherwise.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	acc, err := ton.ParseAccountID(addr)
	if err != nil {
		return addr
	}

	return acc.String()
}

// SameAddress reports whether two addresses point at the same account
// regardless of their textual form
func SameAddress(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	return na != "" && na == nb
}

// ShortAddr returns a shortened address for display
func ShortAddr(addr string, n int) string {
	if addr == "" {
		return "unknown"
	}
	if len(addr) < n*2+3 {
		return addr
	}
	return addr[:n] + "..." + addr[len(addr)-n:]
}
