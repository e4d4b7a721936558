// Package bypass decides whether a target URL should skip the proxy and be
// reached directly.
//
// A bypass list is a separator-delimited set of tokens. Each token is either
// a hostname pattern ("example.com", "*.example.com", "intranet*",
// ".example.com") or an address range in CIDR notation ("10.0.0.0/8",
// "fd00::/8"). The special token "<local>" bypasses plain hostnames without
// a dot and loopback, link-local or unspecified addresses.
//
// Lists are parsed once into an immutable Filter:
//
//	f := bypass.Parse("localhost, *.corp.example, 10.0.0.0/8")
//	if f.Accept(u) {
//	    // connect directly
//	}
package bypass
