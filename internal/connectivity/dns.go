package connectivity

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNSStatus is the outcome of resolving the connectivity host.
type DNSStatus struct {
	Host          string
	HasAOrAAAA    bool
	IPs           []net.IP
	Class         string // "RESOLVES" | "NXDOMAIN" | "SERVFAIL_or_TIMEOUT" | "INVALID_NAME"
	ResolverError string
}

// Online reports whether the lookup proves the host can reach a resolver.
// NXDOMAIN still needs an upstream answer, so only resolver failures count as offline.
func (s DNSStatus) Online() bool {
	return s.Class == "RESOLVES" || s.Class == "NXDOMAIN"
}

var dnsTimeout = 3 * time.Second

// Resolver is the subset of *net.Resolver the watcher needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

func CheckDNS(ctx context.Context, r Resolver, host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") {
		s.Class = "INVALID_NAME"
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", s.Host)
	switch {
	case err == nil && len(ips) > 0:
		s.HasAOrAAAA = true
		s.IPs = ips
		s.Class = "RESOLVES"
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) && de.IsNotFound {
			s.Class = "NXDOMAIN"
		} else {
			s.Class = "SERVFAIL_or_TIMEOUT"
		}
	default:
		s.Class = "NXDOMAIN"
	}
	return s
}
