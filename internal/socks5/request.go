package socks5

import (
	"fmt"
	"io"
)

// Request is a SOCKS5 connection request: command plus destination address.
type Request struct {
	Cmd  byte
	Addr Addr
}

// ReadFrom reads a connection request, failing with ErrProtocolMismatch on
// a version byte other than 5. The reserved byte is ignored. The command
// is not validated here; the server handler decides which commands it
// supports.
func (r *Request) ReadFrom(src io.Reader) (int64, error) {
	var hdr [3]byte
	n, err := io.ReadFull(src, hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	if hdr[0] != Version {
		return total, fmt.Errorf("request version 0x%02x: %w", hdr[0], ErrProtocolMismatch)
	}
	r.Cmd = hdr[1]

	an, err := r.Addr.ReadFrom(src)
	total += an
	return total, err
}

// WriteTo writes a connection request with a zero reserved byte.
func (r *Request) WriteTo(dst io.Writer) (int64, error) {
	buf, err := r.Addr.appendBinary([]byte{Version, r.Cmd, 0x00})
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(buf)
	return int64(n), err
}

func (r *Request) String() string {
	var cmd string
	switch r.Cmd {
	case CmdConnect:
		cmd = "CONNECT"
	case CmdBind:
		cmd = "BIND"
	case CmdUDPAssociate:
		cmd = "UDP_ASSOCIATE"
	default:
		cmd = fmt.Sprintf("0x%02x", r.Cmd)
	}
	return fmt.Sprintf("Request{Cmd=%s, Addr=%s}", cmd, r.Addr)
}
