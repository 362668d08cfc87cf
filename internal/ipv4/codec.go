// Package ipv4 parses dotted-quad IPv4 addresses and builds the
// reversed-octet names used by DNSBL and Team Cymru queries.
package ipv4

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxLength is the length of the longest valid dotted quad ("255.255.255.255")
const MaxLength = 15

// ErrInvalidAddress is returned for any input that is not a dotted-quad IPv4 address
var ErrInvalidAddress = errors.New("invalid IPv4 address")

// Address is a validated IPv4 address, most significant octet first
type Address [4]byte

// Parse validates raw and returns the address it denotes.
// Surrounding whitespace is ignored.
func Parse(raw string) (Address, error) {
	var addr Address

	s := strings.TrimSpace(raw)
	if s == "" {
		return addr, fmt.Errorf("%w: empty input", ErrInvalidAddress)
	}
	if len(s) > MaxLength {
		return addr, fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidAddress, s, MaxLength)
	}

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return addr, fmt.Errorf("%w: %q must have 4 octets, got %d", ErrInvalidAddress, s, len(parts))
	}

	for i, p := range parts {
		v, err := parseOctet(p)
		if err != nil {
			return addr, fmt.Errorf("%w: %q octet %d: %s", ErrInvalidAddress, s, i+1, err.Error())
		}
		addr[i] = v
	}

	return addr, nil
}

// MustParse is Parse for constants and tests
func MustParse(raw string) Address {
	addr, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func parseOctet(p string) (byte, error) {
	if p == "" {
		return 0, errors.New("empty octet")
	}
	if len(p) > 3 {
		return 0, errors.New("too many digits")
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q", c)
		}
	}
	if len(p) > 1 && p[0] == '0' {
		return 0, errors.New("leading zero")
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 0, err
	}
	if n > 255 {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return byte(n), nil
}

// String returns the canonical dotted-quad form
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// Octets returns the four octets, most significant first
func (a Address) Octets() [4]int {
	return [4]int{int(a[0]), int(a[1]), int(a[2]), int(a[3])}
}

// Reverse returns the octets least significant first.
// "1.2.3.4" -> [4 3 2 1]
func (a Address) Reverse() [4]int {
	return [4]int{int(a[3]), int(a[2]), int(a[1]), int(a[0])}
}

// QueryName builds a reversed-octet DNS name under zoneSuffix.
// The suffix may be given with or without its leading dot.
func QueryName(addr Address, zoneSuffix string) string {
	r := addr.Reverse()
	suffix := strings.TrimPrefix(zoneSuffix, ".")
	return fmt.Sprintf("%d.%d.%d.%d.%s", r[0], r[1], r[2], r[3], suffix)
}

// ToUint32 returns the big-endian integer form of addr
func ToUint32(addr Address) uint32 {
	return uint32(addr[0])<<24 | uint32(addr[1])<<16 | uint32(addr[2])<<8 | uint32(addr[3])
}

// FromUint32 is the inverse of ToUint32
func FromUint32(n uint32) Address {
	return Address{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}
