package dialer

import (
	"crypto/tls"
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds the TCP connect to the target or upstream proxy.
	// Zero means no timeout; the SOCKS5 exchange itself is never bounded.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// TLSConfig is used by the socks5+tls upstream scheme.
	TLSConfig *tls.Config
}
