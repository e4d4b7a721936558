package proxysearch

import (
	"context"
	"strings"

	"github.com/zhangyunhao116/proxysearch/proxy"
)

// ManualStrategy serves the fixed proxies of Config.Manual.
type ManualStrategy struct {
	cfg *Config
}

var _ Strategy = (*ManualStrategy)(nil)

// NewManualStrategy returns the "manual" strategy.
func NewManualStrategy(cfg *Config) *ManualStrategy {
	return &ManualStrategy{cfg: cfg}
}

// Name returns "manual".
func (s *ManualStrategy) Name() string { return StrategyManual }

// Selector binds each configured scheme to its proxy behind the bypass list.
func (s *ManualStrategy) Selector(_ context.Context) (proxy.Selector, error) {
	m := s.cfg.Manual
	if m == nil || len(m.Proxies) == 0 {
		return nil, unavailable("no manual proxies")
	}
	proxies := make(map[string]proxy.Proxy, len(m.Proxies))
	for scheme, value := range m.Proxies {
		p, err := parseManualProxy(scheme, value)
		if err != nil {
			s.cfg.logger().Warn("skipping manual proxy", "source", scheme, "err", err)
			continue
		}
		proxies[strings.ToLower(strings.TrimSpace(scheme))] = p
	}
	if len(proxies) == 0 {
		return nil, unavailable("no usable manual proxies")
	}
	return dispatchFromProxies(proxies, s.cfg.bypassFilter(m.Bypass, ",;", StrategyManual)), nil
}

// PACStrategy evaluates the PAC file at Config.PACURL.
type PACStrategy struct {
	cfg *Config
}

var _ Strategy = (*PACStrategy)(nil)

// NewPACStrategy returns the "pac" strategy.
func NewPACStrategy(cfg *Config) *PACStrategy {
	return &PACStrategy{cfg: cfg}
}

// Name returns "pac".
func (s *PACStrategy) Name() string { return StrategyPAC }

// Selector returns a PAC selector for Config.PACURL.
func (s *PACStrategy) Selector(ctx context.Context) (proxy.Selector, error) {
	if s.cfg.PACURL == "" {
		return nil, unavailable("no PAC URL")
	}
	return s.cfg.pacSelector(ctx, s.cfg.PACURL)
}
