package proxy

import "net/url"

// BypassSelector answers [Direct] for URLs its filter accepts and defers to
// the wrapped selector otherwise.
type BypassSelector struct {
	delegate Selector
	filter   Filter
}

var _ Selector = (*BypassSelector)(nil)

// NewBypassSelector wraps delegate with filter. A nil filter bypasses nothing.
func NewBypassSelector(delegate Selector, filter Filter) *BypassSelector {
	return &BypassSelector{delegate: delegate, filter: filter}
}

// Select returns [Direct] when u is bypassed.
func (b *BypassSelector) Select(u *url.URL) []Proxy {
	mustURL(u)
	if b.filter != nil && b.filter.Accept(u) {
		return []Proxy{Direct}
	}
	if b.delegate == nil {
		return []Proxy{}
	}
	return b.delegate.Select(u)
}

// ConnectFailed forwards to the wrapped selector.
func (b *BypassSelector) ConnectFailed(u *url.URL, addr string, err error) {
	if b.delegate != nil {
		b.delegate.ConnectFailed(u, addr, err)
	}
}
