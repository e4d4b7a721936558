// Package proxy models proxy choices and the selectors that produce them.
//
// A Proxy is a small comparable value describing one way to reach a target:
// Direct, an HTTP proxy or a SOCKS proxy. A Selector maps a target URL to an
// ordered list of Proxy values, most preferred first.
//
// Selectors compose: FixedSelector always answers with one proxy,
// DispatchSelector routes by URL scheme, BypassSelector short-circuits to
// Direct for URLs matched by a bypass filter, PACSelector consults a PAC
// evaluator, and ListSelector merges several selectors into one
// deduplicated answer that always ends with Direct.
//
// Dialer and ForwardProxy put a Selector to work: the first dials a target
// through the selected proxies in order, the second is a local HTTP proxy
// that routes every request through a Dialer.
package proxy
