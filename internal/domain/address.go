package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the size of an account identifier in bytes.
const AddressLength = 32

// Address is a 32-byte account identifier. The zero value is not a
// valid account.
type Address [AddressLength]byte

// String renders the address as 0x-prefixed lowercase hex, always
// 64 hex digits. This is the form used in signing messages and in
// every external representation.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero returns true for the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress parses a 0x-prefixed hex account identifier. Short
// forms are accepted and left-padded to 32 bytes, matching how
// on-chain addresses are commonly abbreviated.
func ParseAddress(s string) (Address, error) {
	var a Address

	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, &ValidationError{Message: fmt.Sprintf("address %q must be 0x-prefixed hex", s)}
	}
	digits := s[2:]
	if len(digits) == 0 || len(digits) > AddressLength*2 {
		return a, &ValidationError{Message: fmt.Sprintf("address %q must be 1-64 hex digits", s)}
	}
	// Left-pad odd-length and short forms.
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hex.DecodeString(strings.ToLower(digits))
	if err != nil {
		return a, &ValidationError{Message: fmt.Sprintf("address %q is not valid hex", s)}
	}
	copy(a[AddressLength-len(raw):], raw)
	return a, nil
}
