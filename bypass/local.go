package bypass

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"go4.org/netipx"
)

// localSet holds the address blocks that are always treated as local.
var localSet *netipx.IPSet

func init() {
	prefixes := []string{
		// IPv4 "this host".
		"0.0.0.0/32",
		// IPv4 loopback.
		"127.0.0.0/8",
		// IPv4 link-local.
		"169.254.0.0/16",
		// IPv6 unspecified.
		"::/128",
		// IPv6 loopback.
		"::1/128",
		// IPv6 link-local.
		"fe80::/10",
	}
	var b netipx.IPSetBuilder
	for _, p := range prefixes {
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			panic(fmt.Sprintf("failed to parse prefix %q: %v", p, err))
		}
		b.AddPrefix(prefix)
	}
	set, err := b.IPSet()
	if err != nil {
		panic(fmt.Sprintf("failed to build local set: %v", err))
	}
	localSet = set
}

// LocalFilter accepts hosts that are on the local network: plain names
// without a dot, "localhost", and loopback, link-local or unspecified
// addresses. It never resolves names.
type LocalFilter struct{}

// Accept reports whether u targets a local host.
func (LocalFilter) Accept(u *url.URL) bool {
	if u == nil {
		return false
	}
	return isLocalHost(canonicalHost(u.Hostname()))
}

// isLocalHost expects a canonical host as produced by canonicalHost.
func isLocalHost(host string) bool {
	if host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return localSet.Contains(addr.Unmap().WithZone(""))
	}
	return !strings.Contains(host, ".")
}
