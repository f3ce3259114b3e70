// Package utils provides small shared helpers.
package utils

import (
	"fmt"
	"strings"
)

// SanitizeAddress strips formatting artifacts the host may wrap around a raw
// address value in a creation receipt (stray quotes, whitespace, trailing
// newlines) before validation.
func SanitizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	return strings.TrimSpace(s)
}

// ValidateAddress checks that an address is a plausible bech32 account
// address: lowercase alphanumeric, a "1" separator after the prefix, and
// sane length bounds. It does not verify the checksum; the chain does that.
func ValidateAddress(addr string) error {
	if len(addr) < 8 || len(addr) > 128 {
		return fmt.Errorf("invalid address length %d", len(addr))
	}
	if strings.ToLower(addr) != addr {
		return fmt.Errorf("address must be lowercase: %s", addr)
	}
	sep := strings.LastIndex(addr, "1")
	if sep < 1 {
		return fmt.Errorf("missing bech32 separator: %s", addr)
	}
	for _, c := range addr {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return fmt.Errorf("invalid character %q in address", c)
		}
	}
	return nil
}
