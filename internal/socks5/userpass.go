package socks5

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// UserPassRequest is the RFC 1929 username/password subnegotiation message.
type UserPassRequest struct {
	Username string
	Password string
}

// ReadFrom reads a subnegotiation request. A subversion byte other than 1
// fails with ErrProtocolMismatch; a username or password that is not valid
// UTF-8 fails with ErrInvalidEncoding.
func (r *UserPassRequest) ReadFrom(src io.Reader) (int64, error) {
	var hdr [2]byte
	n, err := io.ReadFull(src, hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	if hdr[0] != UserPassVersion {
		return total, fmt.Errorf("auth subversion 0x%02x: %w", hdr[0], ErrProtocolMismatch)
	}

	username := make([]byte, hdr[1])
	n, err = io.ReadFull(src, username)
	total += int64(n)
	if err != nil {
		return total, err
	}

	var plen [1]byte
	n, err = io.ReadFull(src, plen[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	password := make([]byte, plen[0])
	n, err = io.ReadFull(src, password)
	total += int64(n)
	if err != nil {
		return total, err
	}

	if !utf8.Valid(username) {
		return total, fmt.Errorf("username: %w", ErrInvalidEncoding)
	}
	if !utf8.Valid(password) {
		return total, fmt.Errorf("password: %w", ErrInvalidEncoding)
	}

	r.Username = string(username)
	r.Password = string(password)
	return total, nil
}

// WriteTo writes the subnegotiation request. A username or password longer
// than 255 bytes fails with ErrValueTooLarge before any bytes are written.
func (r *UserPassRequest) WriteTo(dst io.Writer) (int64, error) {
	if len(r.Username) > 255 {
		return 0, fmt.Errorf("username %d bytes: %w", len(r.Username), ErrValueTooLarge)
	}
	if len(r.Password) > 255 {
		return 0, fmt.Errorf("password %d bytes: %w", len(r.Password), ErrValueTooLarge)
	}

	buf := make([]byte, 0, 3+len(r.Username)+len(r.Password))
	buf = append(buf, UserPassVersion, byte(len(r.Username)))
	buf = append(buf, r.Username...)
	buf = append(buf, byte(len(r.Password)))
	buf = append(buf, r.Password...)

	n, err := dst.Write(buf)
	return int64(n), err
}

// String omits the password.
func (r *UserPassRequest) String() string {
	return fmt.Sprintf("UserPassRequest{Username=%q, PasswordLen=%d}", r.Username, len(r.Password))
}

// UserPassReply is the one-byte status answering a UserPassRequest.
type UserPassReply struct {
	Status byte
}

// Success reports whether the exchange was accepted.
func (r *UserPassReply) Success() bool {
	return r.Status == UserPassStatusSuccess
}

// ReadFrom reads a status reply, failing with ErrProtocolMismatch on a
// subversion byte other than 1.
func (r *UserPassReply) ReadFrom(src io.Reader) (int64, error) {
	var buf [2]byte
	n, err := io.ReadFull(src, buf[:])
	if err != nil {
		return int64(n), err
	}
	if buf[0] != UserPassVersion {
		return int64(n), fmt.Errorf("auth reply subversion 0x%02x: %w", buf[0], ErrProtocolMismatch)
	}
	r.Status = buf[1]
	return int64(n), nil
}

// WriteTo writes the status reply.
func (r *UserPassReply) WriteTo(dst io.Writer) (int64, error) {
	buf := [2]byte{UserPassVersion, r.Status}
	n, err := dst.Write(buf[:])
	return int64(n), err
}
