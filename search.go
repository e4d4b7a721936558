package proxysearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/zhangyunhao116/proxysearch/platform"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name    string
	Enabled bool
}

type strategyRecord struct {
	strategy Strategy
	enabled  bool
}

// Search is an ordered registry of strategies. Each call to Selector asks the
// enabled strategies, in order, for a selector and combines the answers.
//
// A Search is safe for concurrent use. Registry changes are copy-on-write, so
// a Selector call in progress keeps the list it started with.
type Search struct {
	mu      sync.RWMutex
	records []strategyRecord
	logger  *slog.Logger
}

// NewSearch creates a Search from cfg. A nil cfg uses DefaultConfig().
// The configuration is validated and deep-copied; later changes to cfg do not
// affect the Search.
func NewSearch(cfg *Config, opts ...Option) (*Search, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &searchOptions{}
	for _, opt := range opts {
		opt(o)
	}

	c := deepCopyConfig(cfg)
	if o.logger != nil {
		c.Logger = o.logger
	}

	s := &Search{logger: c.logger()}
	for _, name := range c.strategyOrder() {
		if slices.Contains(o.skip, name) {
			continue
		}
		st, err := newBuiltin(name, &c)
		if err != nil {
			return nil, err
		}
		s.records = append(s.records, strategyRecord{strategy: st, enabled: true})
	}
	for i := len(o.front) - 1; i >= 0; i-- {
		s.AddStrategy(o.front[i], true)
	}
	for _, st := range o.back {
		s.AddStrategy(st, false)
	}
	for _, name := range c.Disabled {
		s.SetEnabled(name, false)
	}
	return s, nil
}

// DefaultSelector builds a Search from DefaultConfig and returns its
// current selector.
func DefaultSelector(ctx context.Context) (proxy.Selector, error) {
	s, err := NewSearch(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return s.Selector(ctx), nil
}

// AddStrategy registers st at the head (atFront) or tail of the list. If a
// strategy with the same name is already registered, st takes its slot and
// is enabled. A nil st is ignored.
func (s *Search) AddStrategy(st Strategy, atFront bool) {
	if st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := slices.Clone(s.records)
	rec := strategyRecord{strategy: st, enabled: true}
	if i := indexOf(records, st.Name()); i >= 0 {
		records[i] = rec
	} else if atFront {
		records = slices.Insert(records, 0, rec)
	} else {
		records = append(records, rec)
	}
	s.records = records
}

// RemoveStrategy unregisters the strategy called name. It reports whether a
// strategy was removed.
func (s *Search) RemoveStrategy(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.records, name)
	if i < 0 {
		return false
	}
	s.records = slices.Delete(slices.Clone(s.records), i, i+1)
	return true
}

// SetEnabled enables or disables the strategy called name. Disabled
// strategies stay registered but are skipped by Selector. It reports whether
// the strategy exists.
func (s *Search) SetEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.records, name)
	if i < 0 {
		return false
	}
	records := slices.Clone(s.records)
	records[i].enabled = enabled
	s.records = records
	return true
}

// Strategies returns a snapshot of the registered strategies in order.
func (s *Search) Strategies() []StrategyInfo {
	records := s.snapshot()
	out := make([]StrategyInfo, len(records))
	for i, r := range records {
		out[i] = StrategyInfo{Name: r.strategy.Name(), Enabled: r.enabled}
	}
	return out
}

// Selector evaluates every enabled strategy in order and combines the
// selectors they yield.
//
// With no yields the result always answers [Direct]. With one yield the
// result is that selector, except that an empty answer becomes [Direct].
// With several yields the result is a proxy.ListSelector over them that
// falls back to the first. Failing strategies are logged and skipped; a
// cancelled ctx stops the evaluation and combines what was collected.
func (s *Search) Selector(ctx context.Context) proxy.Selector {
	var yields []proxy.Selector
	for _, r := range s.snapshot() {
		if !r.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.Debug("strategy evaluation stopped", "err", err)
			break
		}
		name := r.strategy.Name()
		sel, err := s.evaluate(ctx, r.strategy)
		switch {
		case err != nil:
			s.logFailure(name, err)
		case sel == nil:
			s.logger.Debug("strategy yielded nothing", "strategy", name)
		default:
			s.logger.Debug("strategy yielded a selector", "strategy", name)
			yields = append(yields, sel)
		}
	}

	switch len(yields) {
	case 0:
		return proxy.NoProxy()
	case 1:
		return &guardedSelector{sel: yields[0], logger: s.logger}
	default:
		return proxy.NewListSelector(yields, yields[0]).WithLogger(s.logger)
	}
}

// Resolve returns the proxies to try for u under the current configuration.
func (s *Search) Resolve(ctx context.Context, u *url.URL) []proxy.Proxy {
	return s.Selector(ctx).Select(u)
}

// evaluate runs st, turning a panic into an error.
func (s *Search) evaluate(ctx context.Context, st Strategy) (sel proxy.Selector, err error) {
	defer func() {
		if r := recover(); r != nil {
			sel, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Selector(ctx)
}

func (s *Search) logFailure(name string, err error) {
	var nce *platform.NativeCallError
	switch {
	case errors.Is(err, ErrConfigUnavailable):
		s.logger.Debug("strategy yielded nothing", "strategy", name, "err", err)
	case errors.As(err, &nce) && nce.Expected():
		s.logger.Debug("strategy yielded nothing", "strategy", name, "code", nce.Code)
	case nce != nil:
		s.logger.Warn("strategy failed", "strategy", name, "code", nce.Code, "err", err)
	default:
		s.logger.Warn("strategy failed", "strategy", name, "err", &StrategyError{Strategy: name, Err: err})
	}
}

func (s *Search) snapshot() []strategyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

func indexOf(records []strategyRecord, name string) int {
	return slices.IndexFunc(records, func(r strategyRecord) bool {
		return r.strategy.Name() == name
	})
}

// guardedSelector answers [Direct] where the wrapped selector answers
// nothing.
type guardedSelector struct {
	sel    proxy.Selector
	logger *slog.Logger
}

var _ proxy.Selector = (*guardedSelector)(nil)

func (g *guardedSelector) Select(u *url.URL) []proxy.Proxy {
	if u == nil {
		panic("proxysearch: Select called with nil URL")
	}
	out := g.sel.Select(u)
	if len(out) == 0 {
		return []proxy.Proxy{proxy.Direct}
	}
	return out
}

func (g *guardedSelector) ConnectFailed(u *url.URL, addr string, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Debug("connect failure notification panicked", "selector", fmt.Sprintf("%T", g.sel), "panic", r)
		}
	}()
	g.sel.ConnectFailed(u, addr, err)
}
