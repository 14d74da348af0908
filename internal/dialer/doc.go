package dialer

// Package dialer provides outbound dialing implementations.
//
// Dialers implement a small interface (DialContext) and are used both by
// the proxy listener to reach requested targets and by client code to
// tunnel connections through an upstream SOCKS5 proxy, optionally over
// TLS. The SOCKS5 client engine here drives the handshake, the optional
// RFC 1929 authentication, and the CONNECT exchange, and hands back the
// connection positioned at the start of the relayed payload.
