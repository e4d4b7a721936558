package bypass

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidRange indicates that a string is not a literal address followed
// by a valid prefix length.
var ErrInvalidRange = errors.New("bypass: invalid address range")

// maxPrefixDigits bounds the prefix length text ("128" is the longest valid one).
const maxPrefixDigits = 3

// Range is a contiguous block of IPv4 or IPv6 addresses in CIDR form.
// The zero Range is invalid and contains nothing.
type Range struct {
	prefix netip.Prefix
}

// ParseRange parses "a.b.c.d/n" (0 <= n <= 32) or "<ipv6>/n" (0 <= n <= 128).
//
// The address must be a numeric literal; hostnames are never resolved. Host
// bits below the prefix are allowed and ignored, so "127.0.0.1/8" is the same
// range as "127.0.0.0/8". Errors wrap ErrInvalidRange.
func ParseRange(s string) (Range, error) {
	text := strings.TrimSpace(s)
	addrText, bitsText, ok := strings.Cut(text, "/")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q: missing prefix length", ErrInvalidRange, s)
	}

	addr, err := netip.ParseAddr(addrText)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, s, err)
	}
	if addr.Zone() != "" {
		return Range{}, fmt.Errorf("%w: %q: zoned addresses are not ranges", ErrInvalidRange, s)
	}

	bits, err := parsePrefixLen(bitsText)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, s, err)
	}
	if bits > addr.BitLen() {
		return Range{}, fmt.Errorf("%w: %q: prefix length %d exceeds %d", ErrInvalidRange, s, bits, addr.BitLen())
	}

	return Range{prefix: netip.PrefixFrom(addr, bits).Masked()}, nil
}

// parsePrefixLen accepts only plain decimal digits, so signs, spaces and
// suffixes such as "33.html" are rejected.
func parsePrefixLen(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty prefix length")
	}
	if len(s) > maxPrefixDigits {
		return 0, fmt.Errorf("prefix length %q too long", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("prefix length %q is not a number", s)
		}
	}
	return strconv.Atoi(s)
}

// MustParseRange is like ParseRange but panics on error.
// It is intended for tables of well-known ranges.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// IsValidIPv4Range reports whether s is a valid IPv4 range such as "10.0.0.0/8".
func IsValidIPv4Range(s string) bool {
	r, err := ParseRange(s)
	return err == nil && r.Is4()
}

// IsValidIPv6Range reports whether s is a valid IPv6 range such as "2001:db8::/32".
func IsValidIPv6Range(s string) bool {
	r, err := ParseRange(s)
	return err == nil && r.Is6()
}

// IsValid reports whether r was produced by a successful parse.
func (r Range) IsValid() bool { return r.prefix.IsValid() }

// Is4 reports whether r is an IPv4 range.
func (r Range) Is4() bool { return r.prefix.IsValid() && r.prefix.Addr().Is4() }

// Is6 reports whether r is an IPv6 range.
func (r Range) Is6() bool { return r.prefix.IsValid() && r.prefix.Addr().Is6() }

// Bits returns the prefix length, or -1 for the zero Range.
func (r Range) Bits() int { return r.prefix.Bits() }

// Prefix returns the masked network prefix.
func (r Range) Prefix() netip.Prefix { return r.prefix }

// IPRange returns the first and last address covered by r.
func (r Range) IPRange() netipx.IPRange { return netipx.RangeOfPrefix(r.prefix) }

// Contains reports whether addr lies inside r.
//
// Addresses of the other family never match; an IPv4-mapped IPv6 address is
// an IPv6 candidate and is not compared against IPv4 ranges.
func (r Range) Contains(addr netip.Addr) bool {
	if !r.prefix.IsValid() || !addr.IsValid() {
		return false
	}
	if addr.BitLen() != r.prefix.Addr().BitLen() {
		return false
	}
	return r.prefix.Contains(addr.WithZone(""))
}

// ContainsString parses s as a literal address and reports whether it lies
// inside r. Unparseable input does not match.
func (r Range) ContainsString(s string) bool {
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return false
	}
	return r.Contains(addr)
}

// String returns the canonical CIDR form of r.
func (r Range) String() string {
	if !r.prefix.IsValid() {
		return "invalid Range"
	}
	return r.prefix.String()
}
