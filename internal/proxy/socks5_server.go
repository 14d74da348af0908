package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/corvid-net/ferry/internal/dialer"
	"github.com/corvid-net/ferry/internal/metrics"
	"github.com/corvid-net/ferry/internal/resolver"
	"github.com/corvid-net/ferry/internal/socks5"
)

// SOCKS5Server accepts SOCKS5 clients and relays CONNECT requests to their
// targets. The listener decides the transport: plain TCP and TLS listeners
// feed the same handler.
type SOCKS5Server struct {
	cfg Config
}

func NewSOCKS5Server(cfg Config) *SOCKS5Server {
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.System()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = dialer.NewDirectDialer(dialer.Config{KeepAlive: cfg.KeepAlive})
	}
	return &SOCKS5Server{cfg: cfg}
}

// Serve accepts connections until the listener fails, running one handler
// goroutine per connection. Handler errors are logged, never returned; the
// accept loop does not wait on slow handlers.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) {
	defer conn.Close()

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	logger := log.WithField("client", conn.RemoteAddr().String())
	logger.Debug("accepted connection")

	// No cancellation is propagated into a running handler; it finishes
	// on its own when either side closes.
	if err := s.handle(context.Background(), conn, logger); err != nil {
		logger.WithError(err).Warn("connection failed")
		return
	}
	logger.Debug("connection closed")
}

func (s *SOCKS5Server) handle(ctx context.Context, conn net.Conn, logger *log.Entry) error {
	if err := s.negotiate(conn, logger); err != nil {
		return err
	}

	var req socks5.Request
	if _, err := req.ReadFrom(conn); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	if req.Cmd != socks5.CmdConnect {
		// BIND and UDP ASSOCIATE are not implemented. The failure reply
		// echoes the requested address.
		_, _ = (&socks5.Reply{Rep: socks5.RepCommandNotSupported, Addr: req.Addr}).WriteTo(conn)
		return fmt.Errorf("%s: %w", req.String(), socks5.ErrCommandNotSupported)
	}

	upstream, err := s.connect(ctx, conn, req.Addr)
	if err != nil {
		return err
	}
	defer upstream.Close()

	boundAddr, ok := socks5.AddrFromNetAddr(upstream.LocalAddr())
	if !ok {
		// The upstream socket could not be introspected; echo the
		// requested address instead.
		boundAddr = req.Addr
	}
	if _, err := (&socks5.Reply{Rep: socks5.RepSuccess, Addr: boundAddr}).WriteTo(conn); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	toUpstream, toClient, err := CopyBidirectional(ctx, conn, upstream)
	metrics.BytesRelayed.WithLabelValues(metrics.DirectionToUpstream).Add(float64(toUpstream))
	metrics.BytesRelayed.WithLabelValues(metrics.DirectionToClient).Add(float64(toClient))
	logger.WithFields(log.Fields{
		"target":         req.Addr.String(),
		"bytes_sent":     toUpstream,
		"bytes_received": toClient,
	}).Debug("relay finished")

	if err != nil {
		return fmt.Errorf("relay %s: %w", req.Addr.String(), err)
	}
	return nil
}

// negotiate runs method selection and, when required, the RFC 1929
// username/password exchange against the allow-list.
func (s *SOCKS5Server) negotiate(conn net.Conn, logger *log.Entry) error {
	var greeting socks5.MethodRequest
	if _, err := greeting.ReadFrom(conn); err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}

	if !s.cfg.AuthRequired {
		if !greeting.Contains(socks5.MethodNone) {
			_, _ = (&socks5.MethodReply{Method: socks5.MethodNoAcceptable}).WriteTo(conn)
			return socks5.ErrNoAcceptableAuthMethod
		}
		if _, err := (&socks5.MethodReply{Method: socks5.MethodNone}).WriteTo(conn); err != nil {
			return fmt.Errorf("write method reply: %w", err)
		}
		return nil
	}

	if !greeting.Contains(socks5.MethodUserPass) {
		_, _ = (&socks5.MethodReply{Method: socks5.MethodNoAcceptable}).WriteTo(conn)
		return socks5.ErrNoAcceptableAuthMethod
	}
	if _, err := (&socks5.MethodReply{Method: socks5.MethodUserPass}).WriteTo(conn); err != nil {
		return fmt.Errorf("write method reply: %w", err)
	}

	var creds socks5.UserPassRequest
	if _, err := creds.ReadFrom(conn); err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}

	// A nil allow-list with AuthRequired set denies everyone.
	if !s.cfg.Users.Check(creds.Username, creds.Password) {
		_, _ = (&socks5.UserPassReply{Status: socks5.UserPassStatusFailure}).WriteTo(conn)
		return fmt.Errorf("user %q: %w", creds.Username, socks5.ErrAuthFailed)
	}
	if _, err := (&socks5.UserPassReply{Status: socks5.UserPassStatusSuccess}).WriteTo(conn); err != nil {
		return fmt.Errorf("write auth status: %w", err)
	}

	logger.WithField("user", creds.Username).Debug("authenticated")
	return nil
}

// connect resolves and dials the requested target, sending the matching
// failure reply to the client when either step fails.
func (s *SOCKS5Server) connect(ctx context.Context, conn net.Conn, target socks5.Addr) (net.Conn, error) {
	dialAddr := target.String()
	if target.Type == socks5.AddrTypeDomain {
		ips, err := s.cfg.Resolver.LookupIP(ctx, target.Domain)
		if err == nil && len(ips) == 0 {
			err = errors.New("no addresses found")
		}
		if err != nil {
			_, _ = socks5.ZeroReply(socks5.RepHostUnreachable).WriteTo(conn)
			return nil, fmt.Errorf("resolve %q: %w", target.Domain, err)
		}
		dialAddr = net.JoinHostPort(ips[0].String(), strconv.Itoa(int(target.Port)))
	}

	upstream, err := s.cfg.Dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		_, _ = socks5.ZeroReply(replyForDialError(err)).WriteTo(conn)
		return nil, fmt.Errorf("dial %s: %w", dialAddr, err)
	}
	return upstream, nil
}

// replyForDialError maps a dial failure to the closest RFC 1928 reply code.
func replyForDialError(err error) byte {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return socks5.RepConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH):
		return socks5.RepNetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH):
		return socks5.RepHostUnreachable
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return socks5.RepAddrTypeNotSupported
	}
	return socks5.RepNetworkUnreachable
}
