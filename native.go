package proxysearch

import (
	"context"
	"errors"

	"github.com/zhangyunhao116/proxysearch/platform"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// detectReaderFn is the function used to pick the platform reader when
// Config.Reader is nil. It can be overridden in tests.
var detectReaderFn = platform.Detect

// NativeStrategy reads the operating system proxy settings.
type NativeStrategy struct {
	cfg *Config
}

var _ Strategy = (*NativeStrategy)(nil)

// NewNativeStrategy returns the "native" strategy.
func NewNativeStrategy(cfg *Config) *NativeStrategy {
	return &NativeStrategy{cfg: cfg}
}

// Name returns "native".
func (s *NativeStrategy) Name() string { return StrategyNative }

// Selector converts the platform settings into a selector. Direct access
// answers [Direct]; named proxies become a dispatch table behind the bypass
// list; automatic configuration goes through Config.PACFactory.
func (s *NativeStrategy) Selector(ctx context.Context) (proxy.Selector, error) {
	reader := s.cfg.reader()
	if !reader.Available() {
		return nil, unavailable("platform reader %s not available", reader.Name())
	}
	settings, err := reader.Read(ctx)
	switch {
	case errors.Is(err, platform.ErrNotSupported):
		return nil, unavailable("%v", err)
	case err != nil:
		return nil, err
	case settings == nil:
		return nil, unavailable("platform reader %s returned no settings", reader.Name())
	}

	logger := s.cfg.logger().With("source", settings.Source)
	switch settings.AccessType {
	case platform.AccessDirect:
		return proxy.NoProxy(), nil
	case platform.AccessNamed:
		proxies, err := proxy.ParseProxyList(settings.Proxy, proxy.TypeHTTP)
		if err != nil {
			logger.Warn("skipping native proxy entries", "err", err)
		}
		if len(proxies) == 0 {
			return nil, unavailable("no usable proxy in %q", settings.Proxy)
		}
		filter := s.cfg.bypassFilter(settings.Bypass, ";,", settings.Source)
		return dispatchFromProxies(proxies, filter), nil
	case platform.AccessAuto:
		if settings.AutoConfigURL != "" {
			return s.cfg.pacSelector(ctx, settings.AutoConfigURL)
		}
		if settings.AutoDetect {
			return s.cfg.detectedPAC(ctx)
		}
		return nil, unavailable("automatic configuration without a script")
	default:
		return nil, unavailable("unknown access type %s", settings.AccessType)
	}
}
