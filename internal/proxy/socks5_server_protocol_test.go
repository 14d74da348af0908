package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corvid-net/ferry/internal/dialer"
	"github.com/corvid-net/ferry/internal/socks5"
	"github.com/corvid-net/ferry/internal/testutil"
)

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

type resolverFunc func(ctx context.Context, host string) ([]net.IP, error)

func (f resolverFunc) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return f(ctx, host)
}

func dialSOCKS5(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()

	c, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func assertReadBytes(t *testing.T, r io.Reader, want []byte) {
	t.Helper()

	got := make([]byte, len(want))
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % x got % x", want, got)
	}
}

func assertClosed(t *testing.T, c net.Conn) {
	t.Helper()

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSOCKS5MethodSelectionNoAuth(t *testing.T) {
	ln := startSOCKS5Server(t, Config{})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x00})
}

func TestSOCKS5MethodSelectionAuthRequired(t *testing.T) {
	ln := startSOCKS5Server(t, Config{
		AuthRequired: true,
		Users:        NewUserList(User{Username: "user", Password: "pass"}),
	})

	// NO AUTHENTICATION REQUIRED alone is not acceptable here.
	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0xff})
	assertClosed(t, c)
}

func TestSOCKS5AuthWrongPassword(t *testing.T) {
	ln := startSOCKS5Server(t, Config{
		AuthRequired: true,
		Users:        NewUserList(User{Username: "user", Password: "pass"}),
	})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x02, 0x00, 0x02}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x02})

	if _, err := c.Write([]byte{0x01, 0x04, 'u', 's', 'e', 'r', 0x05, 'w', 'r', 'o', 'n', 'g'}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x01, 0x01})

	// The request phase is never reached.
	assertClosed(t, c)
}

func TestSOCKS5AuthDeniedWithoutUsers(t *testing.T) {
	ln := startSOCKS5Server(t, Config{AuthRequired: true})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x02, 0x00, 0x02}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x02})

	if _, err := c.Write([]byte{0x01, 0x04, 'u', 's', 'e', 'r', 0x04, 'p', 'a', 's', 's'}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x01, 0x01})
	assertClosed(t, c)
}

func TestSOCKS5CommandNotSupported(t *testing.T) {
	var dialed atomic.Bool
	ln := startSOCKS5Server(t, Config{
		Dialer: dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
			dialed.Store(true)
			return nil, errors.New("unexpected dial")
		}),
	})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x00})

	target, err := socks5.AddrFromString("example.com:80")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&socks5.Request{Cmd: socks5.CmdBind, Addr: target}).WriteTo(c); err != nil {
		t.Fatal(err)
	}

	var reply socks5.Reply
	if _, err := reply.ReadFrom(c); err != nil {
		t.Fatal(err)
	}
	if reply.Rep != socks5.RepCommandNotSupported {
		t.Fatalf("expected reply %#02x got %#02x", socks5.RepCommandNotSupported, reply.Rep)
	}
	if reply.Addr.String() != target.String() {
		t.Fatalf("expected echoed address %q got %q", target.String(), reply.Addr.String())
	}
	if dialed.Load() {
		t.Fatal("upstream dial attempted for unsupported command")
	}
	assertClosed(t, c)
}

func TestSOCKS5ConnectRefused(t *testing.T) {
	// Grab a loopback port with nothing listening on it.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closedAddr := probe.Addr().String()
	_ = probe.Close()

	ln := startSOCKS5Server(t, Config{
		Dialer: dialer.NewDirectDialer(dialer.Config{DialTimeout: 2 * time.Second}),
	})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x00})

	target, err := socks5.AddrFromString(closedAddr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&socks5.Request{Cmd: socks5.CmdConnect, Addr: target}).WriteTo(c); err != nil {
		t.Fatal(err)
	}

	var reply socks5.Reply
	if _, err := reply.ReadFrom(c); err != nil {
		t.Fatal(err)
	}
	if reply.Rep != socks5.RepConnectionRefused {
		t.Fatalf("expected reply %#02x got %#02x", socks5.RepConnectionRefused, reply.Rep)
	}
	assertClosed(t, c)
}

func TestSOCKS5ResolveFailure(t *testing.T) {
	ln := startSOCKS5Server(t, Config{
		Resolver: resolverFunc(func(ctx context.Context, host string) ([]net.IP, error) {
			return nil, errors.New("no such host")
		}),
	})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x00})

	target, err := socks5.AddrFromString("missing.example.com:80")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&socks5.Request{Cmd: socks5.CmdConnect, Addr: target}).WriteTo(c); err != nil {
		t.Fatal(err)
	}

	var reply socks5.Reply
	if _, err := reply.ReadFrom(c); err != nil {
		t.Fatal(err)
	}
	if reply.Rep != socks5.RepHostUnreachable {
		t.Fatalf("expected reply %#02x got %#02x", socks5.RepHostUnreachable, reply.Rep)
	}
	assertClosed(t, c)
}

func TestSOCKS5ConnectDomainTarget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()
	echoPort := echoLn.Addr().(*net.TCPAddr).Port

	ln := startSOCKS5Server(t, Config{
		Dialer: dialer.NewDirectDialer(dialer.Config{DialTimeout: 2 * time.Second}),
		Resolver: resolverFunc(func(ctx context.Context, host string) ([]net.IP, error) {
			if host != "echo.internal" {
				return nil, errors.New("no such host")
			}
			return []net.IP{net.IPv4(127, 0, 0, 1)}, nil
		}),
	})

	c := dialSOCKS5(t, ln)
	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	assertReadBytes(t, c, []byte{0x05, 0x00})

	target := socks5.Addr{Type: socks5.AddrTypeDomain, Domain: "echo.internal", Port: uint16(echoPort)}
	if _, err := (&socks5.Request{Cmd: socks5.CmdConnect, Addr: target}).WriteTo(c); err != nil {
		t.Fatal(err)
	}

	var reply socks5.Reply
	if _, err := reply.ReadFrom(c); err != nil {
		t.Fatal(err)
	}
	if reply.Rep != socks5.RepSuccess {
		t.Fatalf("expected success reply, got %#02x", reply.Rep)
	}

	testutil.AssertEcho(t, c, c, []byte("hello via domain"))
}
