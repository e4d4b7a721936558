package proxysearch

import (
	"context"
	"runtime"

	"github.com/zhangyunhao116/proxysearch/proxy"
)

// Built-in strategy names.
const (
	// StrategyEnv reads HTTP_PROXY, HTTPS_PROXY, FTP_PROXY, ALL_PROXY and
	// NO_PROXY from Config.Env.
	StrategyEnv = "env"

	// StrategyBrowser reads the default Firefox profile's prefs.js.
	StrategyBrowser = "browser"

	// StrategyKDE reads kioslaverc.
	StrategyKDE = "kde"

	// StrategyNative reads the operating system settings through
	// Config.Reader.
	StrategyNative = "native"

	// StrategyManual uses the fixed proxies of Config.Manual.
	StrategyManual = "manual"

	// StrategyPAC evaluates the PAC file at Config.PACURL.
	StrategyPAC = "pac"
)

// goos is the operating system identifier used to choose the default
// strategy order. It defaults to runtime.GOOS and can be overridden in tests.
var goos = runtime.GOOS

// Strategy produces a proxy selector from one configuration source.
//
// Selector returns a selector when the source is configured, (nil, nil) or
// an error wrapping ErrConfigUnavailable when the source has nothing to
// offer, and any other error when the source is present but unusable.
// Implementations must be safe for concurrent use.
type Strategy interface {
	Name() string
	Selector(ctx context.Context) (proxy.Selector, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	// StrategyName is returned by Name.
	StrategyName string
	// Func is called by Selector.
	Func func(ctx context.Context) (proxy.Selector, error)
}

// NewStrategyFunc returns a Strategy named name that calls fn.
func NewStrategyFunc(name string, fn func(ctx context.Context) (proxy.Selector, error)) *StrategyFunc {
	return &StrategyFunc{StrategyName: name, Func: fn}
}

// Name returns s.StrategyName.
func (s *StrategyFunc) Name() string { return s.StrategyName }

// Selector calls s.Func. A nil Func yields nothing.
func (s *StrategyFunc) Selector(ctx context.Context) (proxy.Selector, error) {
	if s.Func == nil {
		return nil, nil
	}
	return s.Func(ctx)
}

// DefaultStrategies returns the default strategy order for the operating
// system goos.
//
//   - windows, darwin: native, browser, env
//   - linux and others: native (GNOME), kde, browser, env
func DefaultStrategies(goos string) []string {
	switch goos {
	case "windows", "darwin":
		return []string{StrategyNative, StrategyBrowser, StrategyEnv}
	default:
		return []string{StrategyNative, StrategyKDE, StrategyBrowser, StrategyEnv}
	}
}

// builtinNames lists every name newBuiltin accepts.
var builtinNames = map[string]struct{}{
	StrategyEnv:     {},
	StrategyBrowser: {},
	StrategyKDE:     {},
	StrategyNative:  {},
	StrategyManual:  {},
	StrategyPAC:     {},
}

// IsBuiltin reports whether name is a built-in strategy name.
func IsBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

// newBuiltin returns the built-in strategy called name, configured from cfg.
func newBuiltin(name string, cfg *Config) (Strategy, error) {
	switch name {
	case StrategyEnv:
		return NewEnvStrategy(cfg), nil
	case StrategyBrowser:
		return NewFirefoxStrategy(cfg), nil
	case StrategyKDE:
		return NewKDEStrategy(cfg), nil
	case StrategyNative:
		return NewNativeStrategy(cfg), nil
	case StrategyManual:
		return NewManualStrategy(cfg), nil
	case StrategyPAC:
		return NewPACStrategy(cfg), nil
	default:
		return nil, &StrategyError{Strategy: name, Err: ErrUnknownStrategy}
	}
}
