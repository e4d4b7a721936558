package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default timeouts for the forward proxy.
const (
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

// maxRequestBodySize is the maximum allowed size for incoming request bodies
// forwarded through the proxy (10 MB).
const maxRequestBodySize = 10 << 20

// hopByHopHeaders lists the hop-by-hop headers that must be removed when
// forwarding HTTP requests through the proxy.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// ForwardConfig configures a ForwardProxy.
type ForwardConfig struct {
	// Dialer carries every outbound connection. Required.
	Dialer *Dialer

	// IdleTimeout is the idle timeout for the proxy HTTP server.
	// Defaults to 60s if zero.
	IdleTimeout time.Duration

	// MaxRequestBodySize is the maximum allowed size in bytes for incoming
	// request bodies. Defaults to 10 MB if zero.
	MaxRequestBodySize int64

	// Logger is the structured logger. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// ForwardProxy is a local HTTP proxy that sends plain HTTP requests and
// CONNECT tunnels through a Dialer, so clients that only understand one
// static proxy still benefit from full proxy resolution.
type ForwardProxy struct {
	config    *ForwardConfig
	dialer    *Dialer
	transport *http.Transport
	server    *http.Server
	addr      net.Addr
	mu        sync.Mutex
}

// NewForwardProxy creates a ForwardProxy.
func NewForwardProxy(cfg *ForwardConfig) (*ForwardProxy, error) {
	if cfg == nil || cfg.Dialer == nil {
		return nil, errors.New("proxy: forward proxy requires a dialer")
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = defaultIdleTimeout
	}
	maxBodySize := cfg.MaxRequestBodySize
	if maxBodySize <= 0 {
		maxBodySize = maxRequestBodySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &ForwardProxy{
		config: &ForwardConfig{
			Dialer:             cfg.Dialer,
			IdleTimeout:        idleTimeout,
			MaxRequestBodySize: maxBodySize,
			Logger:             logger,
		},
		dialer: cfg.Dialer,
	}
	p.transport = &http.Transport{
		DialContext:       cfg.Dialer.DialContext,
		DisableKeepAlives: true,
	}
	return p, nil
}

// ListenAndServe starts the proxy on addr ("host:port", ":0" for a random
// port) and returns the address it listens on.
func (p *ForwardProxy) ListenAndServe(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: listen: %w", err)
	}
	return p.Serve(ln), nil
}

// Serve serves on ln in the background and returns its address.
func (p *ForwardProxy) Serve(ln net.Listener) net.Addr {
	srv := &http.Server{
		Handler:           p,
		IdleTimeout:       p.config.IdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	p.mu.Lock()
	p.addr = ln.Addr()
	p.server = srv
	p.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.config.Logger.Error("forward proxy server error", "err", err)
		}
	}()
	return ln.Addr()
}

// Shutdown gracefully shuts down the proxy.
func (p *ForwardProxy) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv := p.server
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	p.transport.CloseIdleConnections()
	return srv.Shutdown(ctx)
}

// Addr returns the listening address, or nil before ListenAndServe.
func (p *ForwardProxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// ServeHTTP tunnels CONNECT requests and forwards everything else.
func (p *ForwardProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
	} else {
		p.handleHTTP(w, r)
	}
}

func (p *ForwardProxy) handleHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.config.MaxRequestBodySize)

	if r.URL.Host == "" {
		http.Error(w, "proxy: missing host in request URL", http.StatusBadRequest)
		return
	}
	if _, _, err := parseHostPort(r.URL.Host, "80"); err != nil {
		http.Error(w, fmt.Sprintf("proxy: invalid host: %s", err), http.StatusBadRequest)
		return
	}

	outReq := r.Clone(WithTargetURL(r.Context(), r.URL))
	outReq.RequestURI = ""
	removeHopByHopHeaders(outReq.Header)

	resp, err := p.transport.RoundTrip(outReq)
	if err != nil {
		p.config.Logger.Error("upstream request failed", "url", r.URL.Redacted(), "err", err)
		http.Error(w, "proxy: upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	removeHopByHopHeaders(resp.Header)
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		p.config.Logger.Debug("forward: response body copy error", "err", err)
	}
}

func (p *ForwardProxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	host, port, err := parseHostPort(r.Host, "443")
	if err != nil {
		http.Error(w, fmt.Sprintf("proxy: invalid CONNECT host: %s", err), http.StatusBadRequest)
		return
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		http.Error(w, fmt.Sprintf("proxy: invalid port %q", port), http.StatusBadRequest)
		return
	}

	targetAddr := net.JoinHostPort(host, port)
	target := &url.URL{Scheme: schemeForAddr(targetAddr), Host: targetAddr}
	targetConn, via, err := p.dialer.DialURL(r.Context(), target)
	if err != nil {
		p.config.Logger.Error("CONNECT dial failed", "target", targetAddr, "err", err)
		http.Error(w, "proxy: dial target failed", http.StatusBadGateway)
		return
	}
	p.config.Logger.Debug("CONNECT established", "target", targetAddr, "via", via.String())

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		_ = targetConn.Close() // best-effort cleanup
		http.Error(w, "proxy: hijacking not supported", http.StatusInternalServerError)
		return
	}

	// Hijack before answering so WriteHeader and Hijack cannot race.
	clientConn, bufRW, err := hijacker.Hijack()
	if err != nil {
		_ = targetConn.Close() // best-effort cleanup
		p.config.Logger.Error("forward: hijack failed", "err", err)
		return
	}

	_, _ = bufRW.WriteString("HTTP/1.1 200 Connection Established\r\n\r\n")
	_ = bufRW.Flush()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() { _ = targetConn.Close() }() // best-effort cleanup
		defer func() { _ = clientConn.Close() }() // best-effort cleanup
		if _, err := io.Copy(targetConn, bufRW); err != nil {
			p.config.Logger.Debug("forward: CONNECT copy error (client→target)", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		defer func() { _ = clientConn.Close() }() // best-effort cleanup
		defer func() { _ = targetConn.Close() }() // best-effort cleanup
		if _, err := io.Copy(clientConn, targetConn); err != nil {
			p.config.Logger.Debug("forward: CONNECT copy error (target→client)", "err", err)
		}
	}()
	wg.Wait()
}

// parseHostPort splits a host:port string. If no port is present, defaultPort
// is used. It handles IPv6 addresses in bracket notation (e.g., [::1]:80).
func parseHostPort(hostport, defaultPort string) (host, port string, err error) {
	if hostport == "" {
		return "", "", errors.New("empty address")
	}

	host, port, err = net.SplitHostPort(hostport)
	if err != nil {
		if defaultPort == "" {
			return "", "", fmt.Errorf("missing port in address %q", hostport)
		}
		if strings.HasPrefix(hostport, "[") && strings.HasSuffix(hostport, "]") {
			host = hostport[1 : len(hostport)-1]
		} else {
			host = hostport
		}
		port = defaultPort
	}

	if host == "" {
		return "", "", fmt.Errorf("empty host in address %q", hostport)
	}
	if port == "" {
		if defaultPort == "" {
			return "", "", fmt.Errorf("empty port in address %q", hostport)
		}
		port = defaultPort
	}
	return host, port, nil
}

// removeHopByHopHeaders removes hop-by-hop headers from the given header map.
func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
