package proxy

import "net/url"

// FixedSelector answers every URL with the same proxy.
type FixedSelector struct {
	proxy Proxy
}

var _ Selector = (*FixedSelector)(nil)

// NewFixedSelector returns a selector that always selects p.
func NewFixedSelector(p Proxy) *FixedSelector {
	return &FixedSelector{proxy: p}
}

// NewFixedHTTPSelector returns a selector for an HTTP proxy at host:port.
func NewFixedHTTPSelector(host string, port int) (*FixedSelector, error) {
	p, err := New(TypeHTTP, host, port)
	if err != nil {
		return nil, err
	}
	return NewFixedSelector(p), nil
}

// Proxy returns the configured proxy.
func (s *FixedSelector) Proxy() Proxy { return s.proxy }

// Select returns a fresh single-element list.
func (s *FixedSelector) Select(u *url.URL) []Proxy {
	mustURL(u)
	return []Proxy{s.proxy}
}

// ConnectFailed does nothing; there is no alternative to fall back to.
func (s *FixedSelector) ConnectFailed(*url.URL, string, error) {}

func (s *FixedSelector) String() string { return "fixed(" + s.proxy.String() + ")" }
