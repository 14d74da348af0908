package socks5

import (
	"errors"
	"fmt"
)

// Errors shared across the protocol messages and the client/server state
// machines built on them.
var (
	// ErrProtocolMismatch is returned when a peer sends a version byte
	// other than 5 (or an RFC 1929 subversion other than 1).
	ErrProtocolMismatch = errors.New("protocol version mismatch")

	// ErrUnsupportedAddressType is returned for an ATYP byte that is not
	// IPv4, IPv6, or domain.
	ErrUnsupportedAddressType = errors.New("unsupported address type")

	// ErrValueTooLarge is returned when encoding a domain name, username,
	// or password whose length does not fit in one byte.
	ErrValueTooLarge = errors.New("value exceeds 255 bytes")

	// ErrInvalidEncoding is returned when a text field on the wire is not
	// valid UTF-8.
	ErrInvalidEncoding = errors.New("text field is not valid UTF-8")

	// ErrNoAcceptableAuthMethod is returned when method negotiation ends
	// with the 0xFF "no acceptable methods" marker.
	ErrNoAcceptableAuthMethod = errors.New("no acceptable authentication method")

	// ErrAuthRequired is returned by the client when the proxy selects
	// username/password authentication but no credentials are configured.
	ErrAuthRequired = errors.New("proxy requires username/password credentials")

	// ErrAuthFailed is returned when the username/password exchange ends
	// with a failure status.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrCommandNotSupported is returned by the server for any command
	// other than CONNECT.
	ErrCommandNotSupported = errors.New("command not supported")
)

// RejectedError is returned by the client when the proxy answers a CONNECT
// request with a non-success reply code.
type RejectedError struct {
	Rep byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("proxy rejected request: %s", RepMessage(e.Rep))
}

// RepMessage returns the RFC 1928 meaning of a reply code.
func RepMessage(rep byte) string {
	switch rep {
	case RepSuccess:
		return "succeeded"
	case RepGeneralFailure:
		return "general SOCKS server failure"
	case RepConnectionNotAllowed:
		return "connection not allowed by ruleset"
	case RepNetworkUnreachable:
		return "network unreachable"
	case RepHostUnreachable:
		return "host unreachable"
	case RepConnectionRefused:
		return "connection refused"
	case RepTTLExpired:
		return "TTL expired"
	case RepCommandNotSupported:
		return "command not supported"
	case RepAddrTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown reply code 0x%02x", rep)
	}
}
