package utils

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/novanet-dev/nova-incentive-server/constdef"

	"golang.org/x/crypto/sha3"
)

func IsBlank(str string) bool {
	if str == "" {
		return true
	}

	for _, c := range str {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

// ValidAddress reports whether addr is a well-formed 0x-prefixed account
// address. Mixed-case addresses must also carry a valid checksum.
func ValidAddress(addr string) bool {
	if len(addr) != constdef.AddressHexLength {
		return false
	}
	if addr[0] != '0' || (addr[1] != 'x' && addr[1] != 'X') {
		return false
	}
	body := addr[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}
	if IsZeroAddress(addr) {
		return false
	}

	hasUpper := strings.ContainsAny(body, "ABCDEF")
	hasLower := strings.ContainsAny(body, "abcdef")
	if hasUpper && hasLower {
		return checksumAddress(body) == body
	}
	return true
}

// checksumAddress uppercases hex digits of the lowercased address body
// according to the keccak hash of the body, mirroring the convention wallets
// use for display addresses.
func checksumAddress(body string) string {
	lower := strings.ToLower(body)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	sum := hasher.Sum(nil)
	sumHex := hex.EncodeToString(sum)

	out := []byte(lower)
	for i := range out {
		if out[i] >= 'a' && out[i] <= 'f' && sumHex[i] >= '8' {
			out[i] = out[i] - 'a' + 'A'
		}
	}
	return string(out)
}

// NormalizeAddress lowercases an address so lookups are case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

func IsZeroAddress(addr string) bool {
	return NormalizeAddress(addr) == constdef.ZeroAddress
}
