package proxysearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zhangyunhao116/proxysearch/bypass"
	"github.com/zhangyunhao116/proxysearch/internal/pathutil"
	"github.com/zhangyunhao116/proxysearch/platform"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// PACFactory returns an evaluator for the PAC file at pacURL. proxysearch
// ships no PAC interpreter; callers that want PAC support plug one in here.
type PACFactory func(ctx context.Context, pacURL string) (proxy.PACEvaluator, error)

// ManualConfig holds fixed proxy settings for the "manual" strategy.
type ManualConfig struct {
	// Proxies maps a scheme ("http", "https", "ftp", "socks" or "default")
	// to a proxy given as "host:port" or as a URL such as
	// "socks5://host:1080". The "default" entry applies to schemes without
	// their own entry.
	Proxies map[string]string

	// Bypass lists hosts that are reached directly, separated by ',' or ';'.
	// Entries may be host patterns ("*.corp", ".corp"), address ranges
	// ("10.0.0.0/8") or "<local>".
	Bypass string
}

// Config holds the complete configuration for a Search.
type Config struct {
	// Strategies lists built-in strategy names in evaluation order.
	// If nil, the order is "manual" (when Manual is set), "pac" (when PACURL
	// is set), then DefaultStrategies for the current operating system.
	Strategies []string

	// Disabled lists strategy names that are registered but not evaluated.
	Disabled []string

	// Env is the environment read by the "env" strategy and by KDE's
	// environment mode, as KEY=VALUE entries.
	Env []string

	// HomeDir is the user's home directory, used to locate browser and
	// desktop configuration files.
	HomeDir string

	// Reader supplies the operating system settings for the "native"
	// strategy. If nil, platform.Detect() is used.
	Reader platform.Reader

	// PACFactory creates PAC evaluators. If nil, every PAC source (explicit
	// URL, browser, KDE, native auto-config) yields nothing.
	PACFactory PACFactory

	// PACURL is the PAC file location used by the "pac" strategy.
	PACURL string

	// PACTimeout bounds each PAC evaluation. 0 uses the proxy package default.
	PACTimeout time.Duration

	// Manual holds the settings for the "manual" strategy.
	Manual *ManualConfig

	// FirefoxProfilesDir overrides the directory containing profiles.ini.
	FirefoxProfilesDir string

	// KDEConfigPaths overrides the kioslaverc candidates, first existing wins.
	KDEConfigPaths []string

	// Resolver resolves host names for address-range bypass entries.
	// If nil, net.DefaultResolver is used.
	Resolver bypass.Resolver

	// Logger is the structured logger for strategy diagnostics such as
	// skipped entries and failed sources.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config that reads the current process environment
// and home directory. Both are snapshotted once, here.
// If the user's home directory cannot be determined, HomeDir is left empty
// and file based strategies yield nothing.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Config{
		Env:     os.Environ(),
		HomeDir: home,
	}
}

// Validate checks the configuration for errors and returns a descriptive error
// if any field is invalid. The returned error wraps ErrConfigInvalid.
func (c *Config) Validate() error {
	var errs []string

	errs = c.validateStrategies(errs)
	errs = c.validatePaths(errs)

	for i, e := range c.Env {
		if !strings.Contains(e, "=") {
			errs = append(errs, fmt.Sprintf("Env[%d]: %q must be KEY=VALUE", i, e))
		}
	}

	if c.PACURL != "" {
		u, err := url.Parse(c.PACURL)
		if err != nil || u.Scheme == "" {
			errs = append(errs, fmt.Sprintf("PACURL: %q is not an absolute URL", c.PACURL))
		}
	}
	if c.PACTimeout < 0 {
		errs = append(errs, "PACTimeout: must be >= 0")
	}

	if c.Manual != nil {
		for scheme, value := range c.Manual.Proxies {
			if strings.TrimSpace(scheme) == "" {
				errs = append(errs, "Manual.Proxies: scheme must not be empty")
				continue
			}
			if _, err := parseManualProxy(scheme, value); err != nil {
				errs = append(errs, fmt.Sprintf("Manual.Proxies[%s]: %v", scheme, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// validateStrategies checks strategy names and the settings they need.
func (c *Config) validateStrategies(errs []string) []string {
	seen := make(map[string]struct{}, len(c.Strategies))
	for i, name := range c.Strategies {
		switch {
		case name == "":
			errs = append(errs, fmt.Sprintf("Strategies[%d]: must not be empty", i))
			continue
		case !IsBuiltin(name):
			errs = append(errs, fmt.Sprintf("Strategies[%d]: unknown strategy %q", i, name))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("Strategies[%d]: duplicate strategy %q", i, name))
		}
		seen[name] = struct{}{}

		if name == StrategyManual && c.Manual == nil {
			errs = append(errs, "Strategies: \"manual\" requires Manual")
		}
		if name == StrategyPAC && c.PACURL == "" {
			errs = append(errs, "Strategies: \"pac\" requires PACURL")
		}
	}
	for i, name := range c.Disabled {
		if name == "" {
			errs = append(errs, fmt.Sprintf("Disabled[%d]: must not be empty", i))
		}
	}
	return errs
}

// validatePaths checks the file system locations.
func (c *Config) validatePaths(errs []string) []string {
	if pathutil.ContainsNullByte(c.HomeDir) {
		errs = append(errs, "HomeDir: must not contain null bytes")
	} else if c.HomeDir != "" && !filepath.IsAbs(c.HomeDir) {
		errs = append(errs, fmt.Sprintf("HomeDir: %q must be an absolute path", c.HomeDir))
	}
	if pathutil.ContainsNullByte(c.FirefoxProfilesDir) {
		errs = append(errs, "FirefoxProfilesDir: must not contain null bytes")
	}
	for i, p := range c.KDEConfigPaths {
		if p == "" || pathutil.ContainsNullByte(p) {
			errs = append(errs, fmt.Sprintf("KDEConfigPaths[%d]: must be a non-empty path without null bytes", i))
		}
	}
	return errs
}

// strategyOrder returns the names NewSearch registers.
func (c *Config) strategyOrder() []string {
	if c.Strategies != nil {
		return slices.Clone(c.Strategies)
	}
	var order []string
	if c.Manual != nil {
		order = append(order, StrategyManual)
	}
	if c.PACURL != "" {
		order = append(order, StrategyPAC)
	}
	return append(order, DefaultStrategies(goos)...)
}

// logger returns the configured logger or slog.Default().
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// deepCopyConfig returns a copy of cfg with all slice and map fields
// deep-copied to prevent aliasing. Reader, PACFactory, Resolver and Logger
// are shared by reference.
func deepCopyConfig(cfg *Config) Config {
	cfgCopy := *cfg
	cfgCopy.Strategies = slices.Clone(cfg.Strategies)
	cfgCopy.Disabled = append([]string(nil), cfg.Disabled...)
	cfgCopy.Env = append([]string(nil), cfg.Env...)
	cfgCopy.KDEConfigPaths = append([]string(nil), cfg.KDEConfigPaths...)
	if cfg.Manual != nil {
		m := ManualConfig{Bypass: cfg.Manual.Bypass, Proxies: make(map[string]string, len(cfg.Manual.Proxies))}
		for k, v := range cfg.Manual.Proxies {
			m.Proxies[k] = v
		}
		cfgCopy.Manual = &m
	}
	return cfgCopy
}
