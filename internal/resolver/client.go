package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const DefaultTimeout = 3 * time.Second

// Client resolves names by querying a single nameserver with miekg/dns.
// It is used instead of the system resolver when DNS_SERVER is set.
type Client struct {
	server  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client for server ("host" or "host:port", port 53 by default)
func NewClient(server string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		server:  withPort(server),
		timeout: timeout,
		logger:  logger.With("module", "resolver.client"),
	}
}

// Server returns the nameserver address in host:port form
func (c *Client) Server() string {
	return c.server
}

// LookupHost returns the IPv4 addresses of host (A records only)
func (c *Client) LookupHost(ctx context.Context, host string) ([]string, error) {
	answers, err := c.query(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	if len(addrs) == 0 {
		return nil, c.notFound(host)
	}
	return addrs, nil
}

// LookupTXT returns the TXT records of name, in answer order.
// Character-strings of one record are concatenated like net.Resolver does.
func (c *Client) LookupTXT(ctx context.Context, name string) ([]string, error) {
	answers, err := c.query(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var txts []string
	for _, rr := range answers {
		if t, ok := rr.(*dns.TXT); ok {
			txts = append(txts, strings.Join(t.Txt, ""))
		}
	}
	if len(txts) == 0 {
		return nil, c.notFound(name)
	}
	return txts, nil
}

// LookupAddr performs a reverse lookup of addr
func (c *Client) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, &net.DNSError{Err: err.Error(), Name: addr, Server: c.server}
	}

	answers, err := c.query(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range answers {
		if p, ok := rr.(*dns.PTR); ok {
			names = append(names, p.Ptr)
		}
	}
	if len(names) == 0 {
		return nil, c.notFound(arpa)
	}
	return names, nil
}

func (c *Client) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: c.timeout}
	resp, _, err := client.ExchangeContext(ctx, m, c.server)
	if err == nil && resp != nil && resp.Truncated {
		// answer did not fit a UDP datagram; ask again over TCP
		client.Net = "tcp"
		resp, _, err = client.ExchangeContext(ctx, m, c.server)
	}
	if err != nil {
		c.logger.Debug("DNS exchange fail",
			"query_name", name,
			"query_type", dns.TypeToString[qtype],
			"error_detail", err.Error(),
		)
		return nil, c.exchangeError(name, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp.Answer, nil
	case dns.RcodeNameError:
		return nil, c.notFound(name)
	default:
		return nil, &net.DNSError{
			Err:         fmt.Sprintf("server returned %s", dns.RcodeToString[resp.Rcode]),
			Name:        name,
			Server:      c.server,
			IsTemporary: resp.Rcode == dns.RcodeServerFailure,
		}
	}
}

func (c *Client) notFound(name string) error {
	return &net.DNSError{
		Err:        "no such host",
		Name:       strings.TrimSuffix(name, "."),
		Server:     c.server,
		IsNotFound: true,
	}
}

func (c *Client) exchangeError(name string, err error) error {
	dnsErr := &net.DNSError{
		Err:    err.Error(),
		Name:   name,
		Server: c.server,
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		dnsErr.IsTimeout = true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		dnsErr.IsTimeout = true
	}
	return dnsErr
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
