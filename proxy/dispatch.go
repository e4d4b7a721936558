package proxy

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// DefaultScheme is the binding consulted when a URL's scheme has none.
const DefaultScheme = "default"

// DispatchSelector routes each URL to the selector bound to its scheme.
//
// Scheme names are case-insensitive. A URL whose scheme is not bound falls
// back to the DefaultScheme binding; with neither, Select returns an empty
// list. It is safe for concurrent use.
type DispatchSelector struct {
	mu        sync.RWMutex
	selectors map[string]Selector
}

var _ Selector = (*DispatchSelector)(nil)

// NewDispatchSelector returns a selector with no bindings.
func NewDispatchSelector() *DispatchSelector {
	return &DispatchSelector{selectors: make(map[string]Selector)}
}

// SetSelector binds scheme to s, replacing any earlier binding. A nil s
// removes the binding.
func (d *DispatchSelector) SetSelector(scheme string, s Selector) {
	key := strings.ToLower(scheme)
	d.mu.Lock()
	defer d.mu.Unlock()
	if s == nil {
		delete(d.selectors, key)
		return
	}
	d.selectors[key] = s
}

// Selector returns the selector bound to scheme, or nil.
func (d *DispatchSelector) Selector(scheme string) Selector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selectors[strings.ToLower(scheme)]
}

// Schemes returns the bound scheme names in sorted order.
func (d *DispatchSelector) Schemes() []string {
	d.mu.RLock()
	keys := make([]string, 0, len(d.selectors))
	for k := range d.selectors {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of bindings.
func (d *DispatchSelector) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.selectors)
}

// Select delegates to the binding for u's scheme.
func (d *DispatchSelector) Select(u *url.URL) []Proxy {
	mustURL(u)
	s := d.lookup(u.Scheme)
	if s == nil {
		return []Proxy{}
	}
	if out := s.Select(u); out != nil {
		return out
	}
	return []Proxy{}
}

// ConnectFailed forwards to the selector that would handle u.
func (d *DispatchSelector) ConnectFailed(u *url.URL, addr string, err error) {
	if u == nil {
		return
	}
	if s := d.lookup(u.Scheme); s != nil {
		s.ConnectFailed(u, addr, err)
	}
}

func (d *DispatchSelector) lookup(scheme string) Selector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.selectors[strings.ToLower(scheme)]; ok {
		return s
	}
	return d.selectors[DefaultScheme]
}
