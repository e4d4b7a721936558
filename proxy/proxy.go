package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when a proxy description cannot be parsed or
// carries an out of range port.
var ErrInvalidFormat = errors.New("proxy: invalid format")

// Type identifies how a connection is made.
type Type uint8

const (
	// TypeDirect connects to the target without an intermediary.
	TypeDirect Type = iota

	// TypeHTTP tunnels through an HTTP proxy (CONNECT or absolute-form requests).
	TypeHTTP

	// TypeSOCKS tunnels through a SOCKS5 proxy.
	TypeSOCKS
)

// String returns the upper-case name of the type.
func (t Type) String() string {
	switch t {
	case TypeDirect:
		return "DIRECT"
	case TypeHTTP:
		return "HTTP"
	case TypeSOCKS:
		return "SOCKS"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Proxy describes one connection choice. Proxy values are comparable with
// ==; hosts are stored lower-cased so equality ignores host case.
//
// The zero value is Direct.
type Proxy struct {
	Type Type
	Host string
	Port int
}

// Direct is the unique "no proxy" choice.
var Direct = Proxy{}

// New returns a proxy of the given type. For TypeDirect the host and port are
// ignored and Direct is returned. Otherwise host must be non-empty and port
// must be in 1-65535. IPv6 hosts may be given with or without brackets.
func New(typ Type, host string, port int) (Proxy, error) {
	switch typ {
	case TypeDirect:
		return Direct, nil
	case TypeHTTP, TypeSOCKS:
	default:
		return Direct, fmt.Errorf("%w: unknown proxy type %d", ErrInvalidFormat, typ)
	}

	host = strings.TrimSpace(host)
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return Direct, fmt.Errorf("%w: empty host", ErrInvalidFormat)
	}
	if port < 1 || port > 65535 {
		return Direct, fmt.Errorf("%w: port %d out of range", ErrInvalidFormat, port)
	}
	return Proxy{Type: typ, Host: strings.ToLower(host), Port: port}, nil
}

// MustNew is like New but panics on error.
func MustNew(typ Type, host string, port int) Proxy {
	p, err := New(typ, host, port)
	if err != nil {
		panic(err)
	}
	return p
}

// IsDirect reports whether p is Direct.
func (p Proxy) IsDirect() bool { return p.Type == TypeDirect }

// Addr returns "host:port", or "" for Direct.
func (p Proxy) Addr() string {
	if p.IsDirect() {
		return ""
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the proxy as a URL suitable for http.Transport.Proxy or
// golang.org/x/net/proxy.FromURL. It returns nil for Direct.
func (p Proxy) URL() *url.URL {
	switch p.Type {
	case TypeHTTP:
		return &url.URL{Scheme: "http", Host: p.Addr()}
	case TypeSOCKS:
		return &url.URL{Scheme: "socks5", Host: p.Addr()}
	default:
		return nil
	}
}

// String returns "DIRECT" or "<TYPE> @ host:port".
func (p Proxy) String() string {
	if p.IsDirect() {
		return "DIRECT"
	}
	return p.Type.String() + " @ " + p.Addr()
}

// dedup removes repeated entries while keeping the first occurrence of each.
func dedup(in []Proxy) []Proxy {
	out := make([]Proxy, 0, len(in))
	seen := make(map[Proxy]struct{}, len(in))
	for _, p := range in {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
