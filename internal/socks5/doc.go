package socks5

// Package socks5 implements the SOCKS5 wire protocol (RFC 1928) and the
// username/password subnegotiation (RFC 1929).
//
// Each protocol message is a struct with ReadFrom/WriteTo methods operating
// on io.Reader/io.Writer, so the same codec drives both ends of a
// connection regardless of whether the underlying stream is a plain TCP
// connection or TLS-wrapped. The client and server state machines built on
// top of these messages live in internal/dialer and internal/proxy.
