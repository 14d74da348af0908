package socks5_test

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/corvid-net/ferry/internal/socks5"
)

func TestReplyRoundTrip(t *testing.T) {
	orig := socks5.Reply{
		Rep:  socks5.RepSuccess,
		Addr: socks5.Addr{Type: socks5.AddrTypeIPv4, IP: net.IPv4(127, 0, 0, 1).To4(), Port: 45123},
	}

	var buf bytes.Buffer
	n1, err := orig.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks5.Reply
	n2, err := parsed.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if n1 != n2 {
		t.Errorf("wrote %d bytes, read %d", n1, n2)
	}
	if parsed.Rep != socks5.RepSuccess {
		t.Errorf("expected RepSuccess, got %d", parsed.Rep)
	}
	if parsed.Addr.String() != orig.Addr.String() {
		t.Errorf("expected addr %s, got %s", orig.Addr, parsed.Addr)
	}
}

func TestZeroReplyWireFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := socks5.ZeroReply(socks5.RepConnectionRefused).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x05, 0x05, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("expected %v, got %v", want, buf.Bytes())
	}
}

func TestReplyReadFromBadVersion(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	var r socks5.Reply
	if _, err := r.ReadFrom(bytes.NewReader(data)); !errors.Is(err, socks5.ErrProtocolMismatch) {
		t.Fatalf("expected ErrProtocolMismatch, got %v", err)
	}
}

func TestReplyReadFromBadBoundAddr(t *testing.T) {
	// Success header followed by a garbage ATYP: the bound address is
	// unused by callers but its decode errors must still surface.
	data := []byte{0x05, 0x00, 0x00, 0x09, 0, 0}
	var r socks5.Reply
	if _, err := r.ReadFrom(bytes.NewReader(data)); !errors.Is(err, socks5.ErrUnsupportedAddressType) {
		t.Fatalf("expected ErrUnsupportedAddressType, got %v", err)
	}
}

func TestRejectedErrorMessage(t *testing.T) {
	err := &socks5.RejectedError{Rep: socks5.RepConnectionRefused}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("unexpected message %q", err.Error())
	}

	var rej *socks5.RejectedError
	if !errors.As(error(err), &rej) || rej.Rep != socks5.RepConnectionRefused {
		t.Error("errors.As failed to extract RejectedError")
	}
}
