package resolver

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

type dnsResolver struct {
	server string
	client *dns.Client
}

// DNS returns a Resolver that queries the given DNS server (host:port)
// directly over UDP, bypassing the system stub resolver.
func DNS(server string) Resolver {
	return &dnsResolver{
		server: server,
		client: &dns.Client{Net: "udp"},
	}
}

func (d *dnsResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	ips, err := d.query(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		// No A records; fall through to AAAA before giving up.
		ips, err = d.query(ctx, host, dns.TypeAAAA)
		if err != nil {
			return nil, err
		}
	}
	return ips, nil
}

func (d *dnsResolver) query(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	resp, _, err := d.client.ExchangeContext(ctx, m, d.server)
	if err != nil {
		return nil, fmt.Errorf("query %s for %q: %w", d.server, host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s for %q: rcode %s", d.server, host, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			ips = append(ips, rr.A)
		case *dns.AAAA:
			ips = append(ips, rr.AAAA)
		}
	}
	return ips, nil
}
