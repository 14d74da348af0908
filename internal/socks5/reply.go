package socks5

import (
	"fmt"
	"io"
	"net"
)

// Reply is a SOCKS5 server reply: reply code plus bound address.
type Reply struct {
	Rep  byte
	Addr Addr
}

// ZeroReply returns a reply carrying the given code and an all-zero IPv4
// bound address, used for failure replies where no socket was bound.
func ZeroReply(rep byte) *Reply {
	return &Reply{
		Rep:  rep,
		Addr: Addr{Type: AddrTypeIPv4, IP: net.IPv4zero.To4()},
	}
}

// ReadHeaderFrom reads only the three-byte reply header, failing with
// ErrProtocolMismatch on a version byte other than 5. It lets a client
// inspect the reply code before consuming the bound address.
func (r *Reply) ReadHeaderFrom(src io.Reader) (int64, error) {
	var hdr [3]byte
	n, err := io.ReadFull(src, hdr[:])
	if err != nil {
		return int64(n), err
	}
	if hdr[0] != Version {
		return int64(n), fmt.Errorf("reply version 0x%02x: %w", hdr[0], ErrProtocolMismatch)
	}
	r.Rep = hdr[1]
	return int64(n), nil
}

// ReadFrom reads a full reply. The bound address is decoded in full so the
// stream is left positioned at the start of the relayed payload.
func (r *Reply) ReadFrom(src io.Reader) (int64, error) {
	total, err := r.ReadHeaderFrom(src)
	if err != nil {
		return total, err
	}

	an, err := r.Addr.ReadFrom(src)
	total += an
	return total, err
}

// WriteTo writes a reply with a zero reserved byte.
func (r *Reply) WriteTo(dst io.Writer) (int64, error) {
	buf, err := r.Addr.appendBinary([]byte{Version, r.Rep, 0x00})
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(buf)
	return int64(n), err
}

func (r *Reply) String() string {
	return fmt.Sprintf("Reply{Rep=%s, Addr=%s}", RepMessage(r.Rep), r.Addr)
}
