package dialer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/corvid-net/ferry/internal/socks5"
)

// SOCKS5ProxyDialer tunnels connections through an upstream SOCKS5 proxy,
// optionally over TLS. Method negotiation, RFC 1929 authentication, and
// the CONNECT exchange run against the abstract connection, so the TLS and
// plain paths share one state machine.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	username  string
	password  string
	tlsConfig *tls.Config // nil for a plain TCP transport
}

// NewSOCKS5ProxyDialer returns a Dialer tunneling through the SOCKS5 proxy
// at proxyAddr. Empty username disables authentication.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, username, password string) Dialer {
	return &SOCKS5ProxyDialer{cfg: cfg, proxyAddr: proxyAddr, username: username, password: password}
}

// NewSOCKS5TLSProxyDialer is NewSOCKS5ProxyDialer with the proxy
// connection wrapped in TLS before any SOCKS5 bytes are exchanged.
func NewSOCKS5TLSProxyDialer(cfg Config, proxyAddr, username, password string, tlsConfig *tls.Config) Dialer {
	return &SOCKS5ProxyDialer{cfg: cfg, proxyAddr: proxyAddr, username: username, password: password, tlsConfig: tlsConfig}
}

// DialContext connects to the proxy, runs the SOCKS5 exchange for address
// (a host:port whose host may be a domain name or IP literal), and returns
// the connection positioned at the start of the relayed payload. Any
// failure closes the connection; there are no retries and no fallback to
// an unauthenticated or unencrypted path.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	target, err := socks5.AddrFromString(address)
	if err != nil {
		return nil, err
	}

	dd := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := dd.DialContext(ctx, "tcp", d.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("dial proxy %s: %w", d.proxyAddr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	if d.tlsConfig != nil {
		tlsConn := tls.Client(conn, d.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tls handshake with proxy %s: %w", d.proxyAddr, err)
		}
		conn = tlsConn
	}

	if err := d.negotiate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("socks5 negotiate: %w", err)
	}
	if err := connect(conn, target); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("socks5 connect %s: %w", address, err)
	}

	return conn, nil
}

// negotiate sends the greeting and completes the method the proxy selects.
func (d *SOCKS5ProxyDialer) negotiate(conn net.Conn) error {
	greeting := socks5.MethodRequest{Methods: []byte{socks5.MethodNone}}
	if d.username != "" {
		greeting.Methods = append(greeting.Methods, socks5.MethodUserPass)
	}
	if _, err := greeting.WriteTo(conn); err != nil {
		return fmt.Errorf("write greeting: %w", err)
	}

	var choice socks5.MethodReply
	if _, err := choice.ReadFrom(conn); err != nil {
		return fmt.Errorf("read method reply: %w", err)
	}

	switch choice.Method {
	case socks5.MethodNone:
		return nil

	case socks5.MethodUserPass:
		if d.username == "" {
			return socks5.ErrAuthRequired
		}

		creds := socks5.UserPassRequest{Username: d.username, Password: d.password}
		if _, err := creds.WriteTo(conn); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}
		var status socks5.UserPassReply
		if _, err := status.ReadFrom(conn); err != nil {
			return fmt.Errorf("read auth status: %w", err)
		}
		if !status.Success() {
			return socks5.ErrAuthFailed
		}
		return nil

	case socks5.MethodNoAcceptable:
		return socks5.ErrNoAcceptableAuthMethod

	default:
		return fmt.Errorf("proxy selected unexpected method 0x%02x", choice.Method)
	}
}

// connect sends the CONNECT request and checks the reply. The bound
// address in the reply is decoded and discarded so the stream ends up
// positioned exactly at the relayed payload; decode failures there surface
// rather than being swallowed.
func connect(conn net.Conn, target socks5.Addr) error {
	req := socks5.Request{Cmd: socks5.CmdConnect, Addr: target}
	if _, err := req.WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	var reply socks5.Reply
	if _, err := reply.ReadHeaderFrom(conn); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if reply.Rep != socks5.RepSuccess {
		return &socks5.RejectedError{Rep: reply.Rep}
	}
	if _, err := reply.Addr.ReadFrom(conn); err != nil {
		return fmt.Errorf("read bound address: %w", err)
	}
	return nil
}
