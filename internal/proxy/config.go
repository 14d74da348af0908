package proxy

import (
	"net"

	"github.com/corvid-net/ferry/internal/dialer"
	"github.com/corvid-net/ferry/internal/resolver"
)

type Config struct {
	// AuthRequired forces username/password authentication. When set
	// without Users, every authentication attempt is denied.
	AuthRequired bool

	// Users is the credential allow-list checked when AuthRequired is set.
	Users *UserList

	// Dialer establishes upstream connections.
	Dialer dialer.Dialer

	// Resolver resolves domain-name targets. Defaults to the system
	// resolver when nil.
	Resolver resolver.Resolver

	KeepAlive net.KeepAliveConfig
}
