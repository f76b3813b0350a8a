package utils

import (
	"regexp"
	"strings"
)

var (
	addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Unlike common.IsHexAddress it requires the 0x prefix.
func IsAddress(s string) bool {
	return addressRe.MatchString(s)
}

func IsTxHash(s string) bool {
	return txHashRe.MatchString(s)
}

// NormalizeAddress trims and lowercases a wallet address. Wallet identity is case-insensitive.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
