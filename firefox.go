package proxysearch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/zhangyunhao116/proxysearch/internal/envutil"
	"github.com/zhangyunhao116/proxysearch/internal/pathutil"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

const (
	firefoxPrefPrefix    = "network.proxy."
	firefoxDefaultBypass = "localhost, 127.0.0.1"
)

// Firefox network.proxy.type values.
const (
	firefoxDirect = "0"
	firefoxManual = "1"
	firefoxPAC    = "2"
	firefoxWPAD   = "4"
	firefoxSystem = "5"
)

// FirefoxStrategy reads the proxy preferences of the default Firefox
// profile.
type FirefoxStrategy struct {
	cfg *Config
}

var _ Strategy = (*FirefoxStrategy)(nil)

// NewFirefoxStrategy returns the "browser" strategy.
func NewFirefoxStrategy(cfg *Config) *FirefoxStrategy {
	return &FirefoxStrategy{cfg: cfg}
}

// Name returns "browser".
func (s *FirefoxStrategy) Name() string { return StrategyBrowser }

// Selector locates profiles.ini, picks the default profile and turns its
// network.proxy.* preferences into a selector. A profile that defers to the
// system settings yields nothing.
func (s *FirefoxStrategy) Selector(ctx context.Context) (proxy.Selector, error) {
	prefs, err := s.readPrefs()
	if err != nil {
		return nil, err
	}

	switch t := prefs[firefoxPrefPrefix+"type"]; t {
	case firefoxDirect:
		return proxy.NoProxy(), nil
	case firefoxManual:
		return s.manual(prefs)
	case firefoxPAC:
		pacURL := prefs[firefoxPrefPrefix+"autoconfig_url"]
		if pacURL == "" {
			return nil, unavailable("Firefox PAC mode without autoconfig_url")
		}
		return s.cfg.pacSelector(ctx, pacURL)
	case firefoxWPAD:
		return s.cfg.detectedPAC(ctx)
	case "", firefoxSystem:
		return nil, unavailable("Firefox uses the system settings")
	default:
		return nil, fmt.Errorf("%w: network.proxy.type %q", ErrInvalidFormat, t)
	}
}

func (s *FirefoxStrategy) manual(prefs map[string]string) (proxy.Selector, error) {
	get := func(key string) string {
		return strings.TrimSpace(prefs[firefoxPrefPrefix+key])
	}
	proxies := make(map[string]proxy.Proxy)
	add := func(scheme, key string, typ proxy.Type) {
		host := get(key)
		if host == "" {
			return
		}
		port, _ := strconv.Atoi(get(key + "_port"))
		p, err := proxy.New(typ, host, port)
		if err != nil {
			s.cfg.logger().Warn("skipping Firefox proxy", "source", firefoxPrefPrefix+key, "err", err)
			return
		}
		proxies[scheme] = p
	}

	add("http", "http", proxy.TypeHTTP)
	if p, ok := proxies["http"]; ok && get("share_proxy_settings") == "true" {
		for _, scheme := range []string{"https", "ftp", proxy.DefaultScheme} {
			proxies[scheme] = p
		}
	} else {
		add("https", "ssl", proxy.TypeHTTP)
		add("ftp", "ftp", proxy.TypeHTTP)
		add(socksScheme, "socks", proxy.TypeSOCKS)
	}
	if len(proxies) == 0 {
		return nil, unavailable("Firefox manual mode without proxies")
	}

	noProxy, ok := prefs[firefoxPrefPrefix+"no_proxies_on"]
	if !ok {
		noProxy = firefoxDefaultBypass
	}
	return dispatchFromProxies(proxies, s.cfg.bypassFilter(noProxy, ",", "no_proxies_on")), nil
}

// readPrefs returns the network.proxy.* preferences of the default profile.
func (s *FirefoxStrategy) readPrefs() (map[string]string, error) {
	dir := s.profilesDir()
	iniPath := pathutil.FirstExisting(filepath.Join(dir, "profiles.ini"))
	if dir == "" || iniPath == "" {
		return nil, unavailable("no Firefox profiles.ini")
	}
	f, err := loadINI(iniPath)
	if err != nil {
		return nil, err
	}
	profile, err := defaultProfile(f, dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(profile, "prefs.js"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, unavailable("Firefox profile %s has no prefs.js", profile)
	}
	if err != nil {
		return nil, err
	}
	return parsePrefs(string(data)), nil
}

// profilesDir returns the directory that holds profiles.ini.
func (s *FirefoxStrategy) profilesDir() string {
	if s.cfg.FirefoxProfilesDir != "" {
		return pathutil.ExpandHome(s.cfg.FirefoxProfilesDir, s.cfg.HomeDir)
	}
	home := s.cfg.HomeDir
	switch goos {
	case "windows":
		if appData, ok := envutil.GetEnv(s.cfg.Env, "APPDATA"); ok && appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox")
		}
		if home == "" {
			return ""
		}
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox")
	case "darwin":
		if home == "" {
			return ""
		}
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		if home == "" {
			return ""
		}
		dir := filepath.Join(home, ".mozilla", "firefox")
		snap := filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox")
		if pathutil.FirstExisting(filepath.Join(dir, "profiles.ini")) == "" &&
			pathutil.FirstExisting(filepath.Join(snap, "profiles.ini")) != "" {
			return snap
		}
		return dir
	}
}

// defaultProfile returns the directory of the profile named "default", or
// else of the profile marked Default=1. Relative profile paths must stay
// inside base.
func defaultProfile(f *ini.File, base string) (string, error) {
	var chosen *ini.Section
	for _, sec := range f.Sections() {
		if !strings.HasPrefix(sec.Name(), "Profile") {
			continue
		}
		if sec.Key("Name").String() == "default" {
			chosen = sec
			break
		}
		if chosen == nil && sec.Key("Default").String() == "1" {
			chosen = sec
		}
	}
	if chosen == nil {
		return "", unavailable("no default Firefox profile")
	}

	path := chosen.Key("Path").String()
	if path == "" {
		return "", fmt.Errorf("%w: profile %s has no Path", ErrInvalidFormat, chosen.Name())
	}
	if chosen.Key("IsRelative").MustInt(1) == 0 {
		if !filepath.IsAbs(path) {
			return "", fmt.Errorf("%w: profile path %q is not absolute", ErrInvalidFormat, path)
		}
		return filepath.Clean(path), nil
	}
	return pathutil.JoinWithinBoundary(base, filepath.FromSlash(path))
}

// parsePrefs extracts user_pref("network.proxy.*", value); lines from a
// prefs.js file. String values are unquoted; other values are kept as
// written.
func parsePrefs(data string) map[string]string {
	prefs := make(map[string]string)
	for line := range strings.Lines(data) {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), `user_pref("`+firefoxPrefPrefix)
		if !ok {
			continue
		}
		rest = strings.TrimSuffix(rest, ";")
		rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")
		key, value, ok := strings.Cut(rest, ",")
		if !ok {
			continue
		}
		key = strings.TrimSuffix(strings.TrimSpace(key), `"`)
		if key == "" || strings.ContainsAny(key, `"\`) {
			continue
		}
		value = strings.TrimSpace(value)
		if unq, err := strconv.Unquote(value); err == nil {
			value = unq
		}
		prefs[firefoxPrefPrefix+key] = value
	}
	return prefs
}
