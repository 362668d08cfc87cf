// Package resolver defines the DNS lookups the ipcheck package needs and
// provides a miekg/dns client that talks to one nameserver directly.
package resolver

import (
	"context"
	"errors"
	"net"
)

// Resolver is the subset of *net.Resolver used for IP intelligence lookups.
// Implementations must report a missing record as a *net.DNSError with
// IsNotFound set.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

var _ Resolver = (*net.Resolver)(nil)

// System returns the Go resolver configured from the host
func System() Resolver {
	return net.DefaultResolver
}

// IsNotFound checks if the error is a DNS "not found" error
func IsNotFound(err error) bool {
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) {
		return false
	}
	return dnsErr.IsNotFound
}

// IsTimeout checks if the error is a DNS timeout
func IsTimeout(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
