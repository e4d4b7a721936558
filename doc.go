// Package proxysearch finds out which proxy a client should use for a URL.
//
// It asks several configuration sources, called strategies, in order: the
// operating system settings, KDE's kioslaverc, the default Firefox profile,
// the proxy environment variables, a fixed manual configuration and an
// explicit PAC file. Each source that is configured yields a proxy.Selector;
// the yields are combined into one selector whose answer is deduplicated and
// always ends with a direct connection.
//
// Key features:
//   - Per-scheme dispatch with a "default" fallback binding
//   - Bypass lists with host patterns, CIDR ranges and "<local>"
//   - Custom strategies through the Strategy interface
//   - YAML configuration files
//   - No cgo; Windows settings come from WinHTTP and the registry
//
// Basic usage:
//
//	s, err := proxysearch.NewSearch(proxysearch.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sel := s.Selector(ctx)
//	for _, p := range sel.Select(u) {
//	    fmt.Println(p)
//	}
package proxysearch
