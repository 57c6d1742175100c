package toncenter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const rawAddr = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"

func TestAddressForms(t *testing.T) {
	friendly := RawToFriendly(rawAddr)
	assert.NotEqual(t, rawAddr, friendly)
	assert.Len(t, friendly, 48)

	assert.Equal(t, rawAddr, NormalizeAddress(friendly))
	assert.Equal(t, rawAddr, NormalizeAddress("  "+rawAddr+" "))
	assert.True(t, SameAddress(rawAddr, friendly))
	assert.False(t, SameAddress(rawAddr, "0:"+rawAddr[2:65]+"0"))
}

func TestNormalizeAddress_Unparsable(t *testing.T) {
	assert.Equal(t, "W1", NormalizeAddress(" W1 "))
	assert.Equal(t, "", NormalizeAddress("   "))
	assert.Equal(t, "", RawToFriendly(""))
	assert.Equal(t, "W1", RawToFriendly("W1"))

	assert.True(t, SameAddress("W1", " W1"))
	assert.False(t, SameAddress("", ""))
}

func TestNanoConversions(t *testing.T) {
	assert.Equal(t, "0.49", NanoToTON(490_000_000).String())
	assert.Equal(t, "2", NanoToTON(2_000_000_000).String())
	assert.Equal(t, int64(1_500_000_000), TONToNano(decimal.RequireFromString("1.5")))
	assert.Equal(t, int64(1), TONToNano(decimal.RequireFromString("0.0000000019")))
}

func TestShortAddr(t *testing.T) {
	assert.Equal(t, "unknown", ShortAddr("", 6))
	assert.Equal(t, "short", ShortAddr("short", 6))
	assert.Equal(t, "0:83df...0f31a8", ShortAddr(rawAddr, 6))
}
