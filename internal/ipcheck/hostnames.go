package ipcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/resolver"
)

// ErrNoHostnames is returned when an address has no PTR records
var ErrNoHostnames = errors.New("no reverse DNS names")

// Hostnames enumerates the reverse DNS names of an address and what each
// of them resolves back to
type Hostnames struct {
	resolver resolver.Resolver
	logger   *slog.Logger
}

func NewHostnames(r resolver.Resolver, logger *slog.Logger) *Hostnames {
	initMetrics()
	return &Hostnames{
		resolver: r,
		logger:   logger.With("module", "ipcheck.hostnames"),
	}
}

// LookupDNSData validates raw before calling Lookup
func (h *Hostnames) LookupDNSData(ctx context.Context, raw string) (domain.DNSData, error) {
	addr, err := ipv4.Parse(raw)
	if err != nil {
		return domain.DNSData{}, err
	}
	return h.Lookup(ctx, addr)
}

// Lookup resolves the PTR names of addr, then each name forward, one at a
// time. Names that do not resolve forward are left out.
func (h *Hostnames) Lookup(ctx context.Context, addr ipv4.Address) (domain.DNSData, error) {
	start := time.Now()
	defer observeLookup("dns", start)

	names, err := h.resolver.LookupAddr(ctx, addr.String())
	if err != nil {
		return domain.DNSData{}, fmt.Errorf("reverse lookup %s: %w", addr, err)
	}
	if len(names) == 0 {
		return domain.DNSData{}, fmt.Errorf("reverse lookup %s: %w", addr, ErrNoHostnames)
	}

	data := domain.DNSData{
		IP:        addr.String(),
		Hostnames: make(map[string]string, len(names)),
	}

	for _, name := range names {
		host := strings.TrimSuffix(name, ".")
		addrs, err := h.resolver.LookupHost(ctx, host)
		if err != nil || len(addrs) == 0 {
			h.logger.Debug("Forward lookup skipped",
				"observed_ip", addr.String(),
				"hostname", host,
				"error_detail", fmt.Sprint(err),
			)
			continue
		}
		data.Hostnames[host] = addrs[0]
	}

	h.logger.Info("DNS data done",
		"observed_ip", addr.String(),
		"ptr_count", len(names),
		"resolved_count", len(data.Hostnames),
	)

	return data, nil
}
