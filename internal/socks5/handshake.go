package socks5

import (
	"fmt"
	"io"
)

// MethodRequest is the client greeting listing the authentication methods
// it supports.
type MethodRequest struct {
	Methods []byte
}

// Contains reports whether the greeting offers the given method.
func (m *MethodRequest) Contains(method byte) bool {
	for _, b := range m.Methods {
		if b == method {
			return true
		}
	}
	return false
}

// ReadFrom reads a greeting. A version byte other than 5 fails with
// ErrProtocolMismatch without consuming the method list.
func (m *MethodRequest) ReadFrom(src io.Reader) (int64, error) {
	var hdr [2]byte
	n, err := io.ReadFull(src, hdr[:])
	if err != nil {
		return int64(n), err
	}
	if hdr[0] != Version {
		return int64(n), fmt.Errorf("greeting version 0x%02x: %w", hdr[0], ErrProtocolMismatch)
	}

	methods := make([]byte, hdr[1])
	n2, err := io.ReadFull(src, methods)
	total := int64(n + n2)
	if err != nil {
		return total, err
	}
	m.Methods = methods
	return total, nil
}

// WriteTo writes the greeting. More than 255 methods fails with
// ErrValueTooLarge.
func (m *MethodRequest) WriteTo(dst io.Writer) (int64, error) {
	if len(m.Methods) > 255 {
		return 0, fmt.Errorf("%d methods: %w", len(m.Methods), ErrValueTooLarge)
	}
	buf := append([]byte{Version, byte(len(m.Methods))}, m.Methods...)
	n, err := dst.Write(buf)
	return int64(n), err
}

// MethodReply is the server's method selection, MethodNoAcceptable when
// the greeting offered nothing usable.
type MethodReply struct {
	Method byte
}

// ReadFrom reads a method selection, failing with ErrProtocolMismatch on a
// version byte other than 5.
func (m *MethodReply) ReadFrom(src io.Reader) (int64, error) {
	var buf [2]byte
	n, err := io.ReadFull(src, buf[:])
	if err != nil {
		return int64(n), err
	}
	if buf[0] != Version {
		return int64(n), fmt.Errorf("method reply version 0x%02x: %w", buf[0], ErrProtocolMismatch)
	}
	m.Method = buf[1]
	return int64(n), nil
}

// WriteTo writes the method selection.
func (m *MethodReply) WriteTo(dst io.Writer) (int64, error) {
	buf := [2]byte{Version, m.Method}
	n, err := dst.Write(buf[:])
	return int64(n), err
}
