package entities

import "strings"

// ZeroAddress is the null address.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// Address names a deployed logic provider.
type Address string

// NormalizeAddress trims and lower-cases v so that checksum casing does not
// produce distinct addresses.
func NormalizeAddress(v string) Address {
	return Address(strings.ToLower(strings.TrimSpace(v)))
}

// IsZero reports whether a is empty or the null address.
func (a Address) IsZero() bool {
	normalized := NormalizeAddress(string(a))
	return normalized == "" || normalized == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}
