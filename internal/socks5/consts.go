package socks5

// Version is the SOCKS protocol version implemented by this package.
const Version = 5

// Command codes (CMD).
const (
	CmdConnect      = 1
	CmdBind         = 2
	CmdUDPAssociate = 3
)

// Address types (ATYP).
const (
	AddrTypeIPv4   = 1
	AddrTypeDomain = 3
	AddrTypeIPv6   = 4
)

// Authentication methods (METHOD).
const (
	MethodNone         = 0x00
	MethodGSSAPI       = 0x01
	MethodUserPass     = 0x02
	MethodNoAcceptable = 0xFF
)

// Username/password subnegotiation (RFC 1929).
const (
	UserPassVersion       = 1
	UserPassStatusSuccess = 0
	UserPassStatusFailure = 1
)

// Reply codes (REP).
const (
	RepSuccess              = 0
	RepGeneralFailure       = 1
	RepConnectionNotAllowed = 2
	RepNetworkUnreachable   = 3
	RepHostUnreachable      = 4
	RepConnectionRefused    = 5
	RepTTLExpired           = 6
	RepCommandNotSupported  = 7
	RepAddrTypeNotSupported = 8
)
