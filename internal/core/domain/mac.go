package domain

import (
	"bytes"
	"fmt"
	"net"
)

// MacAddress is a 6-byte hardware address. It is a value type: two
// MacAddress values compare equal iff their bytes match, which makes it
// safe to use directly as a map key (no identity-based hashing).
type MacAddress [6]byte

// ParseMAC parses a colon/dash separated or bare-hex MAC address string.
func ParseMAC(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MacAddress{}, fmt.Errorf("parse mac %q: %w", s, err)
	}
	if len(hw) != 6 {
		return MacAddress{}, fmt.Errorf("parse mac %q: expected 6 bytes, got %d", s, len(hw))
	}
	var mac MacAddress
	copy(mac[:], hw)
	return mac, nil
}

// MacFromBytes builds a MacAddress from a 6-byte slice.
func MacFromBytes(b []byte) (MacAddress, error) {
	if len(b) != 6 {
		return MacAddress{}, fmt.Errorf("mac address must be 6 bytes, got %d", len(b))
	}
	var mac MacAddress
	copy(mac[:], b)
	return mac, nil
}

// String renders the address as lowercase colon-separated hex groups.
func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Equal reports whether two addresses hold the same bytes.
func (m MacAddress) Equal(other MacAddress) bool {
	return m == other
}

// Less orders addresses by byte sequence, making a sorted MacAddress
// slice deterministic regardless of insertion order.
func (m MacAddress) Less(other MacAddress) bool {
	return bytes.Compare(m[:], other[:]) < 0
}

// IsZero reports whether the address is the all-zero placeholder.
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}
