package domain

import (
	"regexp"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 32

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// IsValidAddress reports whether addr is a 0x-prefixed hex account address
// of at most 32 bytes. Short forms such as "0x1" are accepted.
func IsValidAddress(addr string) bool {
	return addressPattern.MatchString(strings.TrimSpace(addr))
}

// NormalizeAddress lowercases addr and left-pads it to the full 64 hex digits.
// It returns false when addr is not a valid address.
func NormalizeAddress(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if !IsValidAddress(addr) {
		return "", false
	}
	hex := strings.ToLower(addr[2:])
	return "0x" + strings.Repeat("0", AddressLength*2-len(hex)) + hex, true
}

// ShortAddress strips leading zeros, so 0x000...01 becomes 0x1.
func ShortAddress(addr string) string {
	full, ok := NormalizeAddress(addr)
	if !ok {
		return addr
	}
	trimmed := strings.TrimLeft(full[2:], "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}

// AddressesEqual compares two addresses ignoring case and zero padding.
func AddressesEqual(a, b string) bool {
	na, okA := NormalizeAddress(a)
	nb, okB := NormalizeAddress(b)
	return okA && okB && na == nb
}
