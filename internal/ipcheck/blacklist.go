package ipcheck

import (
	"context"
	"log/slog"
	"sort"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/resolver"
)

// Probe checks an address against one DNS blacklist
type Probe struct {
	zone     Zone
	resolver resolver.Resolver
	logger   *slog.Logger
}

// NewProbe creates a probe for zone
func NewProbe(zone Zone, r resolver.Resolver, logger *slog.Logger) *Probe {
	initMetrics()
	return &Probe{
		zone:     zone,
		resolver: r,
		logger:   logger.With("module", "ipcheck.blacklist", "zone", zone.Name),
	}
}

// Zone returns the list this probe queries
func (p *Probe) Zone() Zone {
	return p.zone
}

// Run looks up addr in the zone. A missing record means the address is
// not listed; any other resolver error marks the probe failed.
func (p *Probe) Run(ctx context.Context, addr ipv4.Address) domain.ListResult {
	result := domain.ListResult{
		List: p.zone.Name,
		Zone: p.zone.Suffix,
	}

	lookup := ipv4.QueryName(addr, p.zone.Suffix)
	addrs, err := p.resolver.LookupHost(ctx, lookup)
	if err != nil {
		if resolver.IsNotFound(err) {
			// IP is clean on this list
			result.Status = domain.StatusNotListed
			result.Code = domain.CodeNotListed
			incProbe(p.zone.Name, string(result.Status))
			return result
		}
		p.logger.Warn("DNSBL query fail",
			"observed_ip", addr.String(),
			"query_name", lookup,
			"is_timeout", resolver.IsTimeout(err),
			"error_detail", err.Error(),
		)
		result.Status = domain.StatusFailed
		result.Code = domain.CodeUnknown
		result.Error = err.Error()
		incProbe(p.zone.Name, string(result.Status))
		return result
	}

	answers := sortedAnswers(addrs)
	result.Responses = answers
	result.Code = p.zone.Classify(answers)
	if result.Code > domain.CodeNotListed {
		result.Status = domain.StatusListed
		p.logger.Warn("IP listed (dirty)",
			"observed_ip", addr.String(),
			"blacklist_source", p.zone.Suffix,
			"responses", answers,
			"code", int(result.Code),
		)
	} else {
		result.Status = domain.StatusNotListed
	}
	incProbe(p.zone.Name, string(result.Status))

	return result
}

// sortedAnswers returns a copy of addrs in numeric address order.
// Answers that are not IPv4 addresses sort last, lexically.
func sortedAnswers(addrs []string) []string {
	out := make([]string, len(addrs))
	copy(out, addrs)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := ipv4.Parse(out[i])
		b, errB := ipv4.Parse(out[j])
		switch {
		case errA == nil && errB == nil:
			return ipv4.ToUint32(a) < ipv4.ToUint32(b)
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
