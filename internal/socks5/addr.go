package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"unicode/utf8"
)

// Addr is the SOCKS5 address form used in requests and replies: an IPv4 or
// IPv6 literal or a domain name, plus a port. Exactly one of IP and Domain
// is set, selected by Type.
type Addr struct {
	Type   byte   // ATYP
	IP     net.IP // set for AddrTypeIPv4/AddrTypeIPv6
	Domain string // set for AddrTypeDomain
	Port   uint16
}

// AddrFromString parses a "host:port" string into an Addr. A host that is
// not an IP literal becomes a domain-name address.
func AddrFromString(address string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return Addr{}, fmt.Errorf("parse address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("parse port %q: %w", portStr, err)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return Addr{Type: AddrTypeIPv4, IP: ip4, Port: uint16(port)}, nil
		}
		return Addr{Type: AddrTypeIPv6, IP: ip.To16(), Port: uint16(port)}, nil
	}
	return Addr{Type: AddrTypeDomain, Domain: host, Port: uint16(port)}, nil
}

// AddrFromNetAddr converts a *net.TCPAddr into an Addr. It reports false
// for other net.Addr implementations or a missing IP.
func AddrFromNetAddr(na net.Addr) (Addr, bool) {
	ta, ok := na.(*net.TCPAddr)
	if !ok || ta.IP == nil {
		return Addr{}, false
	}
	if ip4 := ta.IP.To4(); ip4 != nil {
		return Addr{Type: AddrTypeIPv4, IP: ip4, Port: uint16(ta.Port)}, true
	}
	return Addr{Type: AddrTypeIPv6, IP: ta.IP.To16(), Port: uint16(ta.Port)}, true
}

// Host returns the domain name or IP literal without the port.
func (a Addr) Host() string {
	if a.Type == AddrTypeDomain {
		return a.Domain
	}
	return a.IP.String()
}

// String returns the "host:port" form.
func (a Addr) String() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port)))
}

// ReadFrom decodes ATYP, address, and port. A domain name that is not
// valid UTF-8 fails with ErrInvalidEncoding; an unknown ATYP fails with
// ErrUnsupportedAddressType.
func (a *Addr) ReadFrom(src io.Reader) (int64, error) {
	var atyp [1]byte
	n, err := io.ReadFull(src, atyp[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	a.Type = atyp[0]

	switch a.Type {
	case AddrTypeIPv4:
		buf := make([]byte, 4)
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		a.IP = net.IP(buf)

	case AddrTypeIPv6:
		buf := make([]byte, 16)
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		a.IP = net.IP(buf)

	case AddrTypeDomain:
		var ln [1]byte
		n, err = io.ReadFull(src, ln[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		buf := make([]byte, ln[0])
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if !utf8.Valid(buf) {
			return total, fmt.Errorf("domain name: %w", ErrInvalidEncoding)
		}
		a.Domain = string(buf)

	default:
		return total, fmt.Errorf("ATYP 0x%02x: %w", a.Type, ErrUnsupportedAddressType)
	}

	var portBuf [2]byte
	n, err = io.ReadFull(src, portBuf[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	a.Port = binary.BigEndian.Uint16(portBuf[:])

	return total, nil
}

// WriteTo encodes ATYP, address, and port. A domain name longer than 255
// bytes fails with ErrValueTooLarge before any bytes are written.
func (a Addr) WriteTo(dst io.Writer) (int64, error) {
	buf, err := a.appendBinary(nil)
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(buf)
	return int64(n), err
}

func (a Addr) appendBinary(buf []byte) ([]byte, error) {
	switch a.Type {
	case AddrTypeIPv4:
		ip4 := a.IP.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("not an IPv4 address: %v", a.IP)
		}
		buf = append(buf, AddrTypeIPv4)
		buf = append(buf, ip4...)

	case AddrTypeIPv6:
		ip16 := a.IP.To16()
		if ip16 == nil {
			return nil, fmt.Errorf("not an IPv6 address: %v", a.IP)
		}
		buf = append(buf, AddrTypeIPv6)
		buf = append(buf, ip16...)

	case AddrTypeDomain:
		if len(a.Domain) > 255 {
			return nil, fmt.Errorf("domain name %d bytes: %w", len(a.Domain), ErrValueTooLarge)
		}
		buf = append(buf, AddrTypeDomain, byte(len(a.Domain)))
		buf = append(buf, a.Domain...)

	default:
		return nil, fmt.Errorf("ATYP 0x%02x: %w", a.Type, ErrUnsupportedAddressType)
	}

	return binary.BigEndian.AppendUint16(buf, a.Port), nil
}
