package proxy

// Package proxy implements the listener side of the SOCKS5 server: the
// accept loop, the per-connection handshake/auth/request state machine,
// the credential allow-list, and the bidirectional relay.
//
// One goroutine runs per accepted connection with no shared mutable state
// between connections; the allow-list is read-only after construction. A
// failure on one connection is logged and never affects the listener or
// other connections.
