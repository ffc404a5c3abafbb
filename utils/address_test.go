package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"all lowercase", "0xabcdef0123456789abcdef0123456789abcdef01", true},
		{"all uppercase body", "0xABCDEF0123456789ABCDEF0123456789ABCDEF01", true},
		{"too short", "0xabcdef", false},
		{"missing prefix", "abcdef0123456789abcdef0123456789abcdef0123", false},
		{"non hex body", "0xzzcdef0123456789abcdef0123456789abcdef01", false},
		{"zero address", "0x0000000000000000000000000000000000000000", false},
		{"zero address uppercase prefix", "0X0000000000000000000000000000000000000000", false},
		{"blank", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAddress(tt.addr))
		})
	}
}

func TestValidAddressChecksum(t *testing.T) {
	lower := "0xabcdef0123456789abcdef0123456789abcdef01"
	checksummed := "0x" + checksumAddress(lower[2:])

	require.True(t, ValidAddress(checksummed))

	// Breaking the case of one checksummed letter must invalidate it.
	broken := []byte(checksummed)
	for i := 2; i < len(broken); i++ {
		if broken[i] >= 'a' && broken[i] <= 'f' {
			broken[i] = broken[i] - 'a' + 'A'
			break
		}
	}
	if string(broken) != checksummed {
		assert.False(t, ValidAddress(string(broken)))
	}
}

func TestNormalizeAddress(t *testing.T) {
	addr := "0xABCDef0123456789ABCDEF0123456789abcdef01"
	assert.Equal(t, strings.ToLower(addr), NormalizeAddress(addr))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  \t\n"))
	assert.False(t, IsBlank(" x "))
}
