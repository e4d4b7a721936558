package proxysearch

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/zhangyunhao116/proxysearch/internal/envutil"
	"github.com/zhangyunhao116/proxysearch/internal/pathutil"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

const kdeSection = "Proxy Settings"

// kioslaverc ProxyType values.
const (
	kdeDirect = "0"
	kdeManual = "1"
	kdePAC    = "2"
	kdeWPAD   = "3"
	kdeEnv    = "4"
)

// kdeProxyKeys maps kioslaverc proxy keys to dispatch schemes.
var kdeProxyKeys = []struct {
	key    string
	scheme string
	typ    proxy.Type
}{
	{"httpProxy", "http", proxy.TypeHTTP},
	{"httpsProxy", "https", proxy.TypeHTTP},
	{"ftpProxy", "ftp", proxy.TypeHTTP},
	{"socksProxy", socksScheme, proxy.TypeSOCKS},
}

// KDEStrategy reads the proxy settings from KDE's kioslaverc.
type KDEStrategy struct {
	cfg *Config
}

var _ Strategy = (*KDEStrategy)(nil)

// NewKDEStrategy returns the "kde" strategy.
func NewKDEStrategy(cfg *Config) *KDEStrategy {
	return &KDEStrategy{cfg: cfg}
}

// Name returns "kde".
func (s *KDEStrategy) Name() string { return StrategyKDE }

// Selector reads the [Proxy Settings] section of the first kioslaverc found.
func (s *KDEStrategy) Selector(ctx context.Context) (proxy.Selector, error) {
	path := pathutil.FirstExisting(s.candidates()...)
	if path == "" {
		return nil, unavailable("no kioslaverc")
	}
	settings, err := readKDESettings(path)
	if err != nil {
		return nil, err
	}

	switch t := settings["ProxyType"]; t {
	case "", kdeDirect:
		return proxy.NoProxy(), nil
	case kdeManual:
		return s.manual(settings, false)
	case kdePAC:
		script := settings["Proxy Config Script"]
		if script == "" {
			return nil, unavailable("KDE PAC mode without a script")
		}
		return s.cfg.pacSelector(ctx, script)
	case kdeWPAD:
		return s.cfg.detectedPAC(ctx)
	case kdeEnv:
		return s.manual(settings, true)
	default:
		return nil, fmt.Errorf("%w: kioslaverc ProxyType %q", ErrInvalidFormat, t)
	}
}

// manual builds the selector for ProxyType 1, or for ProxyType 4 when
// fromEnv is set, in which case every value names an environment variable.
func (s *KDEStrategy) manual(settings map[string]string, fromEnv bool) (proxy.Selector, error) {
	value := func(key string) string {
		v := strings.TrimSpace(settings[key])
		if fromEnv && v != "" {
			v, _ = envutil.GetEnv(s.cfg.Env, v)
		}
		return strings.TrimSpace(v)
	}

	proxies := make(map[string]proxy.Proxy)
	for _, k := range kdeProxyKeys {
		v := value(k.key)
		if v == "" {
			continue
		}
		p, err := proxy.ParseProxy(kdeProxyValue(v), k.typ)
		if err != nil {
			s.cfg.logger().Warn("skipping KDE proxy", "source", k.key, "err", err)
			continue
		}
		proxies[k.scheme] = p
	}
	if len(proxies) == 0 {
		return nil, unavailable("KDE manual mode without proxies")
	}

	filter := s.cfg.bypassFilter(value("NoProxyFor"), ",", "NoProxyFor")
	if filter != nil && strings.EqualFold(settings["ReversedException"], "true") {
		filter = invertedFilter{inner: filter}
	}
	return dispatchFromProxies(proxies, filter), nil
}

// candidates lists the kioslaverc locations in lookup order.
func (s *KDEStrategy) candidates() []string {
	if len(s.cfg.KDEConfigPaths) > 0 {
		out := make([]string, len(s.cfg.KDEConfigPaths))
		for i, p := range s.cfg.KDEConfigPaths {
			out[i] = pathutil.ExpandHome(p, s.cfg.HomeDir)
		}
		return out
	}

	var out []string
	if xdg, ok := envutil.GetEnv(s.cfg.Env, "XDG_CONFIG_HOME"); ok && filepath.IsAbs(xdg) {
		out = append(out, filepath.Join(xdg, "kioslaverc"))
	}
	if home := s.cfg.HomeDir; home != "" {
		out = append(out,
			filepath.Join(home, ".config", "kioslaverc"),
			filepath.Join(home, ".kde4", "share", "config", "kioslaverc"),
			filepath.Join(home, ".kde", "share", "config", "kioslaverc"),
		)
	}
	return out
}

// readKDESettings returns the [Proxy Settings] keys of a kioslaverc file.
// KDE's "[$e]" key flags are dropped.
func readKDESettings(path string) (map[string]string, error) {
	f, err := loadINI(path)
	if err != nil {
		return nil, err
	}
	sec, err := f.GetSection(kdeSection)
	if err != nil {
		return nil, unavailable("%s has no [%s] section", path, kdeSection)
	}
	settings := make(map[string]string, len(sec.Keys()))
	for _, k := range sec.Keys() {
		name := k.Name()
		if i := strings.Index(name, "[$"); i > 0 {
			name = name[:i]
		}
		settings[name] = k.Value()
	}
	return settings, nil
}

// kdeProxyValue normalises KDE's "scheme://host port" form to
// "scheme://host:port". Other forms are returned unchanged.
func kdeProxyValue(v string) string {
	host, port, ok := strings.Cut(strings.TrimSpace(v), " ")
	if !ok {
		return v
	}
	port = strings.TrimSpace(port)
	if port == "" || port == "0" {
		return host
	}
	scheme, rest, hasScheme := strings.Cut(host, "://")
	if !hasScheme {
		return net.JoinHostPort(strings.Trim(host, "[]"), port)
	}
	return scheme + "://" + net.JoinHostPort(strings.Trim(rest, "[]/"), port)
}
