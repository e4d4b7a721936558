package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/proxysearch/proxy/internal/socks5"
)

// SOCKSConfig configures a SOCKSFrontend.
type SOCKSConfig struct {
	// Dialer carries every outbound connection. Required.
	Dialer *Dialer

	// Logger is the structured logger. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// SOCKSFrontend is a local SOCKS5 server that sends every CONNECT through a
// Dialer. Destination names are not resolved locally, so the selector sees
// the hostname the client asked for.
type SOCKSFrontend struct {
	dialer *Dialer
	logger *slog.Logger
	server *socks5.Server
	mu     sync.Mutex
	ln     net.Listener
	addr   net.Addr
	closed atomic.Bool
}

// NewSOCKSFrontend creates a SOCKSFrontend.
func NewSOCKSFrontend(cfg *SOCKSConfig) (*SOCKSFrontend, error) {
	if cfg == nil || cfg.Dialer == nil {
		return nil, fmt.Errorf("proxy: socks frontend requires a dialer")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	f := &SOCKSFrontend{dialer: cfg.Dialer, logger: logger}
	f.server = socks5.New(&socks5.Config{
		Dial:   f.dial,
		Logger: logger,
	})
	return f, nil
}

func (f *SOCKSFrontend) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := f.dialer.DialContext(ctx, network, addr)
	if err != nil {
		f.logger.Info("socks5: no route", "target", addr, "err", err)
		return nil, err
	}
	return conn, nil
}

// ListenAndServe starts the server on addr (":0" picks a random port) and
// returns the address it listens on. The server runs in the background
// until Shutdown.
func (f *SOCKSFrontend) ListenAndServe(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: listen: %w", err)
	}

	f.mu.Lock()
	f.ln = ln
	f.addr = ln.Addr()
	f.closed.Store(false)
	f.mu.Unlock()

	go func() {
		if err := f.server.Serve(ln); err != nil && !f.closed.Load() {
			f.logger.Error("socks5 server stopped", "err", err)
		}
	}()
	return ln.Addr(), nil
}

// Shutdown closes the listener. Established tunnels run until either side
// closes them.
func (f *SOCKSFrontend) Shutdown(context.Context) error {
	f.mu.Lock()
	ln := f.ln
	f.ln = nil
	f.mu.Unlock()

	if ln == nil {
		return nil
	}
	f.closed.Store(true)
	return ln.Close()
}

// Addr returns the listening address, or nil before ListenAndServe.
func (f *SOCKSFrontend) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}
