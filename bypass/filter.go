package bypass

import (
	"context"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"go4.org/netipx"
	"golang.org/x/net/idna"
)

// DefaultSeparators separates tokens in NO_PROXY style lists.
const DefaultSeparators = ","

// LocalToken is the Internet Explorer marker for "bypass local hosts".
const LocalToken = "<local>"

// defaultLookupTimeout bounds a single hostname resolution in Accept.
const defaultLookupTimeout = 2 * time.Second

// Resolver resolves a hostname to addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Option configures a Filter at parse time.
type Option func(*options)

type options struct {
	resolver      Resolver
	lookupTimeout time.Duration
}

// WithResolver sets the resolver used for range tokens when the target host
// is not a literal address. A nil resolver disables resolution, so only
// literal hosts can match ranges.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLookupTimeout bounds each resolution performed by Accept.
func WithLookupTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lookupTimeout = d
		}
	}
}

type tokenKind uint8

const (
	kindExact tokenKind = iota
	kindSuffix
	kindPrefix
	kindContains
	kindRange
	kindLocal
)

type token struct {
	kind    tokenKind
	raw     string
	pattern string
}

// Filter is a parsed bypass list. It is immutable after Parse and safe for
// concurrent use. A nil *Filter accepts nothing.
type Filter struct {
	tokens   []token
	ranges   *netipx.IPSet
	invalid  []string
	resolver Resolver
	timeout  time.Duration
}

// Parse parses a comma separated bypass list.
func Parse(spec string, opts ...Option) *Filter {
	return ParseSep(spec, DefaultSeparators, opts...)
}

// ParseSep parses a bypass list whose tokens are separated by any of the
// runes in seps. Tokens are trimmed and empty tokens are skipped.
//
// Tokens that contain a "/" but are not valid ranges are skipped and
// reported by Invalid.
func ParseSep(spec, seps string, opts ...Option) *Filter {
	o := options{
		resolver:      net.DefaultResolver,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Filter{
		resolver: o.resolver,
		timeout:  o.lookupTimeout,
	}

	var ranges netipx.IPSetBuilder
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	for _, field := range fields {
		raw := strings.TrimSpace(field)
		if raw == "" {
			continue
		}

		if strings.EqualFold(raw, LocalToken) {
			f.tokens = append(f.tokens, token{kind: kindLocal, raw: LocalToken})
			continue
		}

		if strings.Contains(raw, "/") {
			r, err := ParseRange(raw)
			if err != nil {
				f.invalid = append(f.invalid, raw)
				continue
			}
			ranges.AddPrefix(r.Prefix())
			f.tokens = append(f.tokens, token{kind: kindRange, raw: r.String()})
			continue
		}

		f.tokens = append(f.tokens, hostToken(raw))
	}

	set, err := ranges.IPSet()
	if err != nil {
		// Every prefix added above is valid, so the builder cannot fail.
		panic("bypass: building range set: " + err.Error())
	}
	f.ranges = set
	return f
}

// hostToken classifies a hostname pattern. A single "*" matches every host.
func hostToken(raw string) token {
	lead := strings.HasPrefix(raw, "*")
	trail := len(raw) > 1 && strings.HasSuffix(raw, "*")
	core := strings.Trim(raw, "*")

	switch {
	case lead && trail:
		return token{kind: kindContains, raw: raw, pattern: canonicalHost(core)}
	case lead:
		return token{kind: kindSuffix, raw: raw, pattern: canonicalSuffix(core)}
	case trail:
		return token{kind: kindPrefix, raw: raw, pattern: strings.ToLower(core)}
	case strings.HasPrefix(raw, "."):
		return token{kind: kindSuffix, raw: raw, pattern: canonicalSuffix(raw)}
	default:
		return token{kind: kindExact, raw: raw, pattern: canonicalHost(strings.Trim(raw, "[]"))}
	}
}

// canonicalSuffix canonicalizes a suffix pattern and keeps its leading dot.
func canonicalSuffix(s string) string {
	if rest, ok := strings.CutPrefix(s, "."); ok {
		return "." + canonicalHost(rest)
	}
	return canonicalHost(s)
}

// canonicalHost lower-cases a hostname, drops a trailing root dot and
// converts internationalized names to their ASCII form.
func canonicalHost(h string) string {
	h = strings.TrimSuffix(strings.ToLower(h), ".")
	if isASCII(h) {
		return h
	}
	if a, err := idna.Lookup.ToASCII(h); err == nil {
		return a
	}
	return h
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Accept reports whether u should bypass the proxy.
func (f *Filter) Accept(u *url.URL) bool {
	return f.AcceptContext(context.Background(), u)
}

// AcceptContext is like Accept but bounds hostname resolution by ctx.
//
// Tokens are evaluated in order and the first match wins. The target host is
// resolved at most once, and only when a range token is reached while the
// host is not a literal address. Resolution failures never match.
func (f *Filter) AcceptContext(ctx context.Context, u *url.URL) bool {
	if f == nil || u == nil || len(f.tokens) == 0 {
		return false
	}
	host := canonicalHost(u.Hostname())
	if host == "" {
		return false
	}

	rangesChecked := false
	for _, t := range f.tokens {
		switch t.kind {
		case kindExact:
			if host == t.pattern {
				return true
			}
		case kindSuffix:
			if strings.HasSuffix(host, t.pattern) {
				return true
			}
		case kindPrefix:
			if strings.HasPrefix(host, t.pattern) {
				return true
			}
		case kindContains:
			if strings.Contains(host, t.pattern) {
				return true
			}
		case kindLocal:
			if isLocalHost(host) {
				return true
			}
		case kindRange:
			// All ranges live in one set, so the first range token answers
			// for every later one.
			if rangesChecked {
				continue
			}
			rangesChecked = true
			for _, addr := range f.addrs(ctx, host) {
				if f.ranges.Contains(addr) {
					return true
				}
			}
		}
	}
	return false
}

// addrs returns the literal address of host, or its resolved addresses.
func (f *Filter) addrs(ctx context.Context, host string) []netip.Addr {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr.WithZone("")}
	}
	if f.resolver == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	resolved, err := f.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil
	}
	out := make([]netip.Addr, 0, len(resolved))
	for _, a := range resolved {
		// Resolvers may hand back IPv4 answers in mapped form.
		out = append(out, a.Unmap().WithZone(""))
	}
	return out
}

// Invalid returns the tokens that were skipped because they looked like
// ranges but did not parse.
func (f *Filter) Invalid() []string {
	if f == nil || len(f.invalid) == 0 {
		return nil
	}
	out := make([]string, len(f.invalid))
	copy(out, f.invalid)
	return out
}

// Len returns the number of usable tokens.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// Ranges returns the union of all range tokens.
func (f *Filter) Ranges() *netipx.IPSet {
	if f == nil {
		return nil
	}
	return f.ranges
}

// String returns the usable tokens joined with ", ".
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(f.tokens))
	for i, t := range f.tokens {
		parts[i] = t.raw
	}
	return strings.Join(parts, ", ")
}
