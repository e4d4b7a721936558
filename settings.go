package proxysearch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/zhangyunhao116/proxysearch/bypass"
	"github.com/zhangyunhao116/proxysearch/platform"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// socksScheme is the proxy list key of a SOCKS proxy.
const socksScheme = "socks"

// dispatchFromProxies binds every scheme in proxies to a fixed selector
// behind filter. A lone "socks" entry also serves as the default binding
// when no unscoped proxy exists.
func dispatchFromProxies(proxies map[string]proxy.Proxy, filter proxy.Filter) *proxy.DispatchSelector {
	d := proxy.NewDispatchSelector()
	for scheme, p := range proxies {
		d.SetSelector(scheme, bypassed(proxy.NewFixedSelector(p), filter))
	}
	if _, ok := proxies[proxy.DefaultScheme]; !ok {
		if p, ok := proxies[socksScheme]; ok {
			d.SetSelector(proxy.DefaultScheme, bypassed(proxy.NewFixedSelector(p), filter))
		}
	}
	return d
}

func bypassed(sel proxy.Selector, filter proxy.Filter) proxy.Selector {
	if filter == nil {
		return sel
	}
	return proxy.NewBypassSelector(sel, filter)
}

// bypassFilter parses a bypass list whose entries are separated by any rune
// in seps. Invalid entries are logged and skipped. It returns nil when the
// list has no usable entry.
func (c *Config) bypassFilter(spec, seps, source string) proxy.Filter {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	var opts []bypass.Option
	if c.Resolver != nil {
		opts = append(opts, bypass.WithResolver(c.Resolver))
	}
	f := bypass.ParseSep(spec, seps, opts...)
	for _, tok := range f.Invalid() {
		c.logger().Warn("skipping bypass entry", "source", source, "token", tok, "err", ErrInvalidFormat)
	}
	if f.Len() == 0 {
		return nil
	}
	return f
}

// invertedFilter accepts exactly the URLs its inner filter rejects.
type invertedFilter struct {
	inner proxy.Filter
}

func (f invertedFilter) Accept(u *url.URL) bool {
	return !f.inner.Accept(u)
}

// parseManualProxy parses a proxy bound to scheme. Entries bound to "socks"
// default to SOCKS, all others to HTTP.
func parseManualProxy(scheme, value string) (proxy.Proxy, error) {
	typ := proxy.TypeHTTP
	if strings.EqualFold(strings.TrimSpace(scheme), socksScheme) {
		typ = proxy.TypeSOCKS
	}
	return proxy.ParseProxy(value, typ)
}

// pacSelector returns a PAC selector for pacURL built with c.PACFactory.
func (c *Config) pacSelector(ctx context.Context, pacURL string) (proxy.Selector, error) {
	if c.PACFactory == nil {
		return nil, unavailable("no PAC evaluator for %s", pacURL)
	}
	eval, err := c.PACFactory(ctx, pacURL)
	if err != nil {
		return nil, fmt.Errorf("loading PAC %s: %w", pacURL, err)
	}
	if eval == nil {
		return nil, unavailable("no PAC evaluator for %s", pacURL)
	}
	return proxy.NewPACSelector(&proxy.PACConfig{
		Evaluator: eval,
		Timeout:   c.PACTimeout,
		Logger:    c.logger(),
	})
}

// detectedPAC asks the platform reader for a WPAD location and returns a PAC
// selector for it. Platforms without detection and the expected "nothing
// found" result yield nothing.
func (c *Config) detectedPAC(ctx context.Context) (proxy.Selector, error) {
	pacURL, err := c.reader().DetectAutoConfigURL(ctx)
	switch {
	case errors.Is(err, platform.ErrNotSupported), platform.IsExpected(err):
		return nil, unavailable("auto-config detection: %v", err)
	case err != nil:
		return nil, err
	case pacURL == "":
		return nil, unavailable("auto-config detection found nothing")
	}
	return c.pacSelector(ctx, pacURL)
}

// reader returns c.Reader or the reader for the running system.
func (c *Config) reader() platform.Reader {
	if c.Reader != nil {
		return c.Reader
	}
	return detectReaderFn()
}

// loadINI parses a profiles.ini or kioslaverc file. Values keep any ';' or
// '#' they contain.
func loadINI(path string) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		KeyValueDelimiters:  "=",
	}, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, nil
}
