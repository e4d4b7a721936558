// Package socks5 implements the server side of SOCKS5 (RFC 1928) for the
// CONNECT command with no authentication. It is the front end of the local
// resolver proxy: the destination is handed to a dial function, which picks
// the real route.
package socks5

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"syscall"
)

// SOCKS5 protocol constants.
const (
	socks5Version        = uint8(5)
	noAuth               = uint8(0)
	noAcceptable         = uint8(0xFF)
	connectCommand       = uint8(1)
	ipv4Address          = uint8(1)
	fqdnAddress          = uint8(3)
	ipv6Address          = uint8(4)
	successReply         = uint8(0)
	serverFailure        = uint8(1)
	ruleFailure          = uint8(2)
	hostUnreachable      = uint8(4)
	connectionRefused    = uint8(5)
	commandNotSupported  = uint8(7)
	addrTypeNotSupported = uint8(8)
)

// AddrSpec is the destination of a SOCKS5 request. Exactly one of FQDN and
// IP is set.
type AddrSpec struct {
	FQDN string
	IP   net.IP
	Port int
}

// Address returns host:port suitable for dialing.
func (a *AddrSpec) Address() string {
	host := a.FQDN
	if host == "" {
		host = a.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

func (a *AddrSpec) String() string { return a.Address() }

// Request is a parsed client request.
type Request struct {
	Command  uint8
	DestAddr *AddrSpec
}

// RuleSet decides whether a request may proceed.
type RuleSet interface {
	Allow(ctx context.Context, req *Request) (context.Context, bool)
}

// NameResolver resolves destination names on the server side.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (context.Context, net.IP, error)
}

// Config configures a Server.
type Config struct {
	// Rules gates requests. Nil permits everything.
	Rules RuleSet

	// Resolver resolves FQDN destinations before dialing. Nil passes the
	// name through to Dial unchanged, which lets the dialer resolve it or
	// hand it to an upstream proxy.
	Resolver NameResolver

	// Dial opens the outbound connection. Defaults to net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	// Logger receives per-connection failures at debug level.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Server is a SOCKS5 CONNECT server.
type Server struct {
	rules    RuleSet
	resolver NameResolver
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	logger   *slog.Logger
}

// New returns a Server for conf. A nil conf uses every default.
func New(conf *Config) *Server {
	if conf == nil {
		conf = &Config{}
	}
	s := &Server{
		rules:    conf.Rules,
		resolver: conf.Resolver,
		dial:     conf.Dial,
		logger:   conf.Logger,
	}
	if s.rules == nil {
		s.rules = PermitAll()
	}
	if s.dial == nil {
		var d net.Dialer
		s.dial = d.DialContext
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Serve accepts connections on l until it is closed, handling each in its
// own goroutine. It returns nil when l is closed.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			if err := s.ServeConn(conn); err != nil {
				s.logger.Debug("socks5: connection ended", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

// ServeConn runs one connection from greeting to the end of the relay.
// conn is always closed before ServeConn returns.
func (s *Server) ServeConn(conn net.Conn) error {
	defer conn.Close() //nolint:errcheck // best-effort close

	if err := s.negotiate(conn); err != nil {
		return err
	}

	req, err := readRequest(conn)
	if err != nil {
		status := serverFailure
		if errors.Is(err, errAddrType) {
			status = addrTypeNotSupported
		}
		_ = sendReply(conn, status)
		return err
	}
	if req.Command != connectCommand {
		_ = sendReply(conn, commandNotSupported)
		return fmt.Errorf("unsupported command: %d", req.Command)
	}
	return s.handleConnect(conn, req)
}

// negotiate reads the method list and selects "no authentication".
func (s *Server) negotiate(conn io.ReadWriter) error {
	var head [2]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	if head[0] != socks5Version {
		return fmt.Errorf("unsupported SOCKS version: %d", head[0])
	}
	methods := make([]byte, head[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return fmt.Errorf("read methods: %w", err)
	}
	for _, m := range methods {
		if m == noAuth {
			if _, err := conn.Write([]byte{socks5Version, noAuth}); err != nil {
				return fmt.Errorf("send method selection: %w", err)
			}
			return nil
		}
	}
	_, _ = conn.Write([]byte{socks5Version, noAcceptable})
	return errors.New("no acceptable auth method")
}

func (s *Server) handleConnect(conn net.Conn, req *Request) error {
	ctx := context.Background()

	dest := req.DestAddr
	dialAddr := dest.Address()
	if dest.FQDN != "" && s.resolver != nil {
		rctx, ip, err := s.resolver.Resolve(ctx, dest.FQDN)
		if err != nil {
			_ = sendReply(conn, hostUnreachable)
			return fmt.Errorf("resolve %q: %w", dest.FQDN, err)
		}
		ctx = rctx
		dialAddr = (&AddrSpec{IP: ip, Port: dest.Port}).Address()
	}

	ctx, ok := s.rules.Allow(ctx, req)
	if !ok {
		_ = sendReply(conn, ruleFailure)
		return fmt.Errorf("request to %s denied by rules", dest)
	}

	target, err := s.dial(ctx, "tcp", dialAddr)
	if err != nil {
		_ = sendReply(conn, replyForDialError(err))
		return fmt.Errorf("dial %s: %w", dest, err)
	}
	defer target.Close() //nolint:errcheck // best-effort close

	if err := sendReply(conn, successReply); err != nil {
		return fmt.Errorf("send success reply: %w", err)
	}
	relay(conn, target)
	return nil
}

// replyForDialError maps a dial failure to the closest SOCKS5 status.
func replyForDialError(err error) uint8 {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return connectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return hostUnreachable
	default:
		return serverFailure
	}
}

// relay copies both directions and half-closes each side once its source
// is drained, so the peer sees EOF without losing in-flight data.
func relay(conn, target net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	halfClose := func(c net.Conn) {
		if cw, ok := c.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
	}
	go func() {
		defer wg.Done()
		_, _ = io.Copy(target, conn)
		halfClose(target)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(conn, target)
		halfClose(conn)
	}()
	wg.Wait()
}

var errAddrType = errors.New("unsupported address type")

func readRequest(r io.Reader) (*Request, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read request header: %w", err)
	}
	if header[0] != socks5Version {
		return nil, fmt.Errorf("unsupported version in request: %d", header[0])
	}

	addr := &AddrSpec{}
	switch header[3] {
	case ipv4Address:
		ip := make([]byte, net.IPv4len)
		if _, err := io.ReadFull(r, ip); err != nil {
			return nil, fmt.Errorf("read IPv4 address: %w", err)
		}
		addr.IP = net.IP(ip)
	case ipv6Address:
		ip := make([]byte, net.IPv6len)
		if _, err := io.ReadFull(r, ip); err != nil {
			return nil, fmt.Errorf("read IPv6 address: %w", err)
		}
		addr.IP = net.IP(ip)
	case fqdnAddress:
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return nil, fmt.Errorf("read FQDN length: %w", err)
		}
		fqdn := make([]byte, n[0])
		if _, err := io.ReadFull(r, fqdn); err != nil {
			return nil, fmt.Errorf("read FQDN: %w", err)
		}
		addr.FQDN = string(fqdn)
	default:
		return nil, fmt.Errorf("%w: %d", errAddrType, header[3])
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return nil, fmt.Errorf("read port: %w", err)
	}
	addr.Port = int(binary.BigEndian.Uint16(port[:]))

	return &Request{Command: header[1], DestAddr: addr}, nil
}

// sendReply writes a reply with an unspecified bound address.
func sendReply(w io.Writer, status uint8) error {
	_, err := w.Write([]byte{
		socks5Version, status, 0x00, ipv4Address,
		0, 0, 0, 0,
		0, 0,
	})
	return err
}

type permitAllRuleSet struct{}

func (permitAllRuleSet) Allow(ctx context.Context, _ *Request) (context.Context, bool) {
	return ctx, true
}

// PermitAll returns a RuleSet that allows every request.
func PermitAll() RuleSet {
	return permitAllRuleSet{}
}
