package proxysearch

import (
	"context"

	"github.com/zhangyunhao116/proxysearch/internal/envutil"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// envVars maps each dispatch scheme to the variables that configure it,
// lower-case first.
var envVars = []struct {
	scheme string
	keys   []string
}{
	{"http", []string{"http_proxy", "HTTP_PROXY"}},
	{"https", []string{"https_proxy", "HTTPS_PROXY"}},
	{"ftp", []string{"ftp_proxy", "FTP_PROXY"}},
	{proxy.DefaultScheme, []string{"all_proxy", "ALL_PROXY"}},
}

var noProxyVars = []string{"no_proxy", "NO_PROXY"}

// EnvStrategy reads the conventional proxy variables from an environment
// slice.
type EnvStrategy struct {
	cfg *Config
}

var _ Strategy = (*EnvStrategy)(nil)

// NewEnvStrategy returns the "env" strategy reading cfg.Env.
func NewEnvStrategy(cfg *Config) *EnvStrategy {
	return &EnvStrategy{cfg: cfg}
}

// Name returns "env".
func (s *EnvStrategy) Name() string { return StrategyEnv }

// Selector returns a dispatch selector for the proxies set in the
// environment. Values with a socks scheme become SOCKS proxies; everything
// else is HTTP. Malformed values are logged and skipped.
func (s *EnvStrategy) Selector(_ context.Context) (proxy.Selector, error) {
	proxies := make(map[string]proxy.Proxy)
	for _, v := range envVars {
		value, key, ok := envutil.Lookup(s.cfg.Env, v.keys...)
		if !ok {
			continue
		}
		p, err := proxy.ParseProxy(value, proxy.TypeHTTP)
		if err != nil {
			s.cfg.logger().Warn("skipping proxy variable", "source", key, "err", err)
			continue
		}
		proxies[v.scheme] = p
	}
	if len(proxies) == 0 {
		return nil, unavailable("no proxy variables set")
	}

	noProxy, key, _ := envutil.Lookup(s.cfg.Env, noProxyVars...)
	return dispatchFromProxies(proxies, s.cfg.bypassFilter(noProxy, ",", key)), nil
}
