package resolver

import (
	"context"
	"fmt"
	"net"
)

// Resolver turns a domain name into candidate IP addresses. The server
// handler dials the first result.
type Resolver interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

type systemResolver struct {
	r *net.Resolver
}

// System returns a Resolver backed by the operating system's stub resolver.
func System() Resolver {
	return &systemResolver{r: net.DefaultResolver}
}

func (s *systemResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := s.r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", host, err)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}
