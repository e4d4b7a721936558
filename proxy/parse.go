package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Default ports used when a proxy description omits one.
const (
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
	DefaultSOCKSPort = 1080
)

// ParseProxy parses "host:port", "host" or "scheme://host[:port]".
//
// URL schemes http and https select TypeHTTP; socks, socks4, socks5 and
// socks5h select TypeSOCKS. Without a scheme, typ is used. A missing port
// defaults to the well-known port of the resulting type. Errors wrap
// ErrInvalidFormat.
func ParseProxy(s string, typ Type) (Proxy, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Direct, fmt.Errorf("%w: empty proxy", ErrInvalidFormat)
	}

	defaultPort := defaultPortFor(typ)
	hostport := text
	if scheme, rest, ok := strings.Cut(text, "://"); ok {
		u, err := url.Parse(text)
		if err != nil {
			return Direct, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, s, err)
		}
		switch strings.ToLower(scheme) {
		case "http":
			typ, defaultPort = TypeHTTP, DefaultHTTPPort
		case "https":
			typ, defaultPort = TypeHTTP, DefaultHTTPSPort
		case "socks", "socks4", "socks4a", "socks5", "socks5h":
			typ, defaultPort = TypeSOCKS, DefaultSOCKSPort
		default:
			return Direct, fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidFormat, s, scheme)
		}
		if u.Host == "" {
			return Direct, fmt.Errorf("%w: %q: missing host in %q", ErrInvalidFormat, s, rest)
		}
		hostport = u.Host
	}

	host, port, err := splitHostPort(hostport, defaultPort)
	if err != nil {
		return Direct, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, s, err)
	}
	if typ == TypeDirect {
		typ = TypeHTTP
	}
	return New(typ, host, port)
}

// ParseProxyList parses a Windows style proxy list such as
// "http=proxy:8080;https=secure:8443;socks=socks:1080" or a single
// "proxy:8080" that applies to every scheme.
//
// Entries are separated by ';' or spaces. Scoped entries are keyed by their
// lower-cased scheme; unscoped entries are keyed by DefaultScheme. The first
// entry for a key wins. An entry for "socks" yields a TypeSOCKS proxy; all
// others use defaultType. Malformed entries are skipped and reported in the
// joined error, so callers can use the partial result.
func ParseProxyList(s string, defaultType Type) (map[string]Proxy, error) {
	out := make(map[string]Proxy)
	var errs []error

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		key := DefaultScheme
		value := field
		if scheme, rest, ok := strings.Cut(field, "="); ok {
			key = strings.ToLower(strings.TrimSpace(scheme))
			value = rest
		}
		if key == "" {
			errs = append(errs, fmt.Errorf("%w: %q: empty scheme", ErrInvalidFormat, field))
			continue
		}
		if _, dup := out[key]; dup {
			continue
		}

		typ := defaultType
		if key == "socks" {
			typ = TypeSOCKS
		}
		p, err := ParseProxy(value, typ)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[key] = p
	}
	return out, errors.Join(errs...)
}

// ParsePACResult parses a PAC FindProxyForURL result such as
// "PROXY a:8080; SOCKS b:1080; DIRECT". Unknown or malformed directives are
// skipped. An empty or blank result yields an empty list.
func ParsePACResult(s string) []Proxy {
	var out []Proxy
	for _, directive := range strings.Split(s, ";") {
		fields := strings.Fields(directive)
		if len(fields) == 0 {
			continue
		}

		var (
			typ         Type
			defaultPort int
		)
		switch strings.ToUpper(fields[0]) {
		case "DIRECT":
			out = append(out, Direct)
			continue
		case "PROXY", "HTTP":
			typ, defaultPort = TypeHTTP, DefaultHTTPPort
		case "HTTPS":
			typ, defaultPort = TypeHTTP, DefaultHTTPSPort
		case "SOCKS", "SOCKS4", "SOCKS5":
			typ, defaultPort = TypeSOCKS, DefaultSOCKSPort
		default:
			continue
		}
		if len(fields) < 2 {
			continue
		}
		host, port, err := splitHostPort(fields[1], defaultPort)
		if err != nil {
			continue
		}
		p, err := New(typ, host, port)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitHostPort splits "host[:port]" and applies defaultPort when the port is
// absent. Bracketed IPv6 literals are accepted with or without a port.
func splitHostPort(hostport string, defaultPort int) (string, int, error) {
	hostport = strings.TrimSuffix(strings.TrimSpace(hostport), "/")
	if hostport == "" {
		return "", 0, errors.New("empty address")
	}

	host, portText, err := net.SplitHostPort(hostport)
	if err != nil {
		// Bare host, bare bracketed IPv6 or bare unbracketed IPv6.
		host = strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
		portText = ""
	}
	if host == "" {
		return "", 0, fmt.Errorf("empty host in %q", hostport)
	}
	if portText == "" {
		if defaultPort == 0 {
			return "", 0, fmt.Errorf("missing port in %q", hostport)
		}
		return host, defaultPort, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portText)
	}
	return host, port, nil
}

func defaultPortFor(t Type) int {
	if t == TypeSOCKS {
		return DefaultSOCKSPort
	}
	return DefaultHTTPPort
}
