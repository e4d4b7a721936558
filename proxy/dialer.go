package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// defaultDialTimeout bounds each connection attempt.
const defaultDialTimeout = 10 * time.Second

// ErrNoRoute is returned by Dialer when every selected proxy failed.
var ErrNoRoute = errors.New("proxy: all routes failed")

// DialerConfig configures a Dialer.
type DialerConfig struct {
	// Selector chooses the proxies for each target. Required.
	Selector Selector

	// Timeout bounds each connection attempt. Defaults to 10s if zero.
	Timeout time.Duration

	// Forward dials the direct legs: the target itself for Direct, and the
	// proxy for HTTP and SOCKS. Defaults to a net.Dialer with Timeout.
	Forward xproxy.ContextDialer

	// Logger is the structured logger. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Dialer connects to targets through the proxies a Selector picks, trying
// each in order until one succeeds.
type Dialer struct {
	sel     Selector
	timeout time.Duration
	forward xproxy.ContextDialer
	logger  *slog.Logger
}

var _ xproxy.ContextDialer = (*Dialer)(nil)

// NewDialer returns a Dialer for cfg.
func NewDialer(cfg *DialerConfig) (*Dialer, error) {
	if cfg == nil || cfg.Selector == nil {
		return nil, errors.New("proxy: dialer requires a selector")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	forward := cfg.Forward
	if forward == nil {
		forward = &net.Dialer{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dialer{sel: cfg.Selector, timeout: timeout, forward: forward, logger: logger}, nil
}

type targetURLKey struct{}

// WithTargetURL attaches the URL being fetched to ctx. DialContext uses it
// to consult the selector with the real scheme instead of guessing one from
// the port.
func WithTargetURL(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, targetURLKey{}, u)
}

// DialContext dials addr, a "host:port" pair, through the selected proxies.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	u, ok := ctx.Value(targetURLKey{}).(*url.URL)
	if !ok || u == nil {
		u = &url.URL{Scheme: schemeForAddr(addr), Host: addr}
	}
	conn, _, err := d.dial(ctx, network, addr, u)
	return conn, err
}

// DialURL dials the host of u and reports which proxy carried the
// connection. A missing port is derived from the scheme.
func (d *Dialer) DialURL(ctx context.Context, u *url.URL) (net.Conn, Proxy, error) {
	mustURL(u)
	host, port, err := splitHostPort(u.Host, portForScheme(u.Scheme))
	if err != nil {
		return nil, Direct, fmt.Errorf("proxy: target %q: %w", u.Redacted(), err)
	}
	return d.dial(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)), u)
}

func (d *Dialer) dial(ctx context.Context, network, addr string, u *url.URL) (net.Conn, Proxy, error) {
	candidates := d.sel.Select(u)
	if len(candidates) == 0 {
		candidates = []Proxy{Direct}
	}

	var errs []error
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		conn, err := d.dialVia(ctx, p, network, addr)
		if err == nil {
			d.logger.Debug("dialed", "target", addr, "via", p.String())
			return conn, p, nil
		}
		d.logger.Debug("dial failed", "target", addr, "via", p.String(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", p, err))
		if !p.IsDirect() {
			d.sel.ConnectFailed(u, p.Addr(), err)
		}
	}
	return nil, Direct, fmt.Errorf("%w: %s: %w", ErrNoRoute, addr, errors.Join(errs...))
}

func (d *Dialer) dialVia(ctx context.Context, p Proxy, network, addr string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch p.Type {
	case TypeDirect:
		return d.forward.DialContext(ctx, network, addr)
	case TypeSOCKS:
		socks, err := xproxy.FromURL(p.URL(), contextDialerAdapter{d.forward})
		if err != nil {
			return nil, err
		}
		if cd, ok := socks.(xproxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return socks.Dial(network, addr)
	case TypeHTTP:
		return d.dialConnect(ctx, p, network, addr)
	default:
		return nil, fmt.Errorf("unsupported proxy type %s", p.Type)
	}
}

// dialConnect opens a tunnel with an HTTP CONNECT request.
func (d *Dialer) dialConnect(ctx context.Context, p Proxy, network, addr string) (net.Conn, error) {
	conn, err := d.forward.DialContext(ctx, network, p.Addr())
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close() // best-effort cleanup
		return nil, fmt.Errorf("write CONNECT: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close() // best-effort cleanup
		return nil, fmt.Errorf("read CONNECT response: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close() // best-effort cleanup
		return nil, fmt.Errorf("CONNECT %s: %s", addr, resp.Status)
	}

	_ = conn.SetDeadline(time.Time{})
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn replays bytes the CONNECT response reader consumed early.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) { return c.r.Read(b) }

// contextDialerAdapter lets a ContextDialer serve as the forward dialer of
// golang.org/x/net/proxy, which accepts a plain Dialer.
type contextDialerAdapter struct {
	xproxy.ContextDialer
}

func (a contextDialerAdapter) Dial(network, addr string) (net.Conn, error) {
	return a.DialContext(context.Background(), network, addr)
}

// schemeForAddr guesses a scheme for a bare host:port.
func schemeForAddr(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "https"
	}
	switch port {
	case "80":
		return "http"
	case "21":
		return "ftp"
	default:
		return "https"
	}
}

func portForScheme(scheme string) int {
	switch scheme {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	case "ftp":
		return 21
	case "socks", "socks5":
		return DefaultSOCKSPort
	default:
		return 0
	}
}
