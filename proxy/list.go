package proxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
)

// ListSelector merges the answers of several selectors.
//
// Select concatenates the non-empty answers of its children in order. When
// every child answers with nothing, the fallback's answer is used instead.
// The result always ends with Direct and never contains duplicates.
type ListSelector struct {
	selectors []Selector
	fallback  Selector
	logger    *slog.Logger
}

var _ Selector = (*ListSelector)(nil)

// NewListSelector returns a ListSelector over selectors. fallback may be nil.
// Nil entries in selectors are ignored.
func NewListSelector(selectors []Selector, fallback Selector) *ListSelector {
	kept := make([]Selector, 0, len(selectors))
	for _, s := range selectors {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &ListSelector{
		selectors: kept,
		fallback:  fallback,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used to report recovered ConnectFailed panics
// and returns l.
func (l *ListSelector) WithLogger(logger *slog.Logger) *ListSelector {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Selectors returns the child selectors in order.
func (l *ListSelector) Selectors() []Selector {
	out := make([]Selector, len(l.selectors))
	copy(out, l.selectors)
	return out
}

// Select returns the merged, deduplicated answer for u.
func (l *ListSelector) Select(u *url.URL) []Proxy {
	mustURL(u)
	var merged []Proxy
	for _, s := range l.selectors {
		merged = append(merged, s.Select(u)...)
	}
	if len(merged) == 0 && l.fallback != nil {
		merged = append(merged, l.fallback.Select(u)...)
	}
	merged = append(merged, Direct)
	return dedup(merged)
}

// ConnectFailed notifies every child and the fallback. A panicking child does
// not prevent the others from being notified.
func (l *ListSelector) ConnectFailed(u *url.URL, addr string, err error) {
	for _, s := range l.selectors {
		l.notify(s, u, addr, err)
	}
	if l.fallback != nil {
		l.notify(l.fallback, u, addr, err)
	}
}

func (l *ListSelector) notify(s Selector, u *url.URL, addr string, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Debug("connect failure notification panicked", "selector", fmt.Sprintf("%T", s), "panic", r)
		}
	}()
	s.ConnectFailed(u, addr, err)
}
