package proxy

import "net/url"

// Selector chooses proxies for a target URL.
//
// Implementations must be safe for concurrent use. Select panics if u is nil;
// every other input yields a (possibly empty) list.
type Selector interface {
	// Select returns the proxies to try for u, most preferred first.
	Select(u *url.URL) []Proxy

	// ConnectFailed reports that connecting to addr while handling u failed.
	// It never blocks and never reports errors back.
	ConnectFailed(u *url.URL, addr string, err error)
}

// SelectorFunc adapts a function to the Selector interface.
// Its ConnectFailed is a no-op.
type SelectorFunc func(u *url.URL) []Proxy

// Select calls f(u).
func (f SelectorFunc) Select(u *url.URL) []Proxy {
	mustURL(u)
	return f(u)
}

// ConnectFailed does nothing.
func (f SelectorFunc) ConnectFailed(*url.URL, string, error) {}

// Filter decides whether a URL bypasses the proxy. *bypass.Filter and
// bypass.LocalFilter satisfy it.
type Filter interface {
	Accept(u *url.URL) bool
}

// NoProxy returns a selector that always answers [Direct].
func NoProxy() Selector {
	return NewFixedSelector(Direct)
}

func mustURL(u *url.URL) {
	if u == nil {
		panic("proxy: Select called with nil URL")
	}
}
