package ipcheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/resolver"
)

// Reputation runs every configured blacklist probe for an address and
// folds the outcomes into one record
type Reputation struct {
	probes []*Probe
	logger *slog.Logger
	now    func() time.Time
}

// NewReputation creates an aggregator over zones. The zones are not copied
// and must not be modified afterwards.
func NewReputation(r resolver.Resolver, zones []Zone, logger *slog.Logger) *Reputation {
	probes := make([]*Probe, len(zones))
	for i, z := range zones {
		probes[i] = NewProbe(z, r, logger)
	}
	return &Reputation{
		probes: probes,
		logger: logger.With("module", "ipcheck.reputation"),
		now:    time.Now,
	}
}

// Lists returns the names of the configured lists, in configuration order
func (r *Reputation) Lists() []string {
	names := make([]string, len(r.probes))
	for i, p := range r.probes {
		names[i] = p.zone.Name
	}
	return names
}

// CheckReputation validates raw and checks it. Invalid input is rejected
// before any lookup is made.
func (r *Reputation) CheckReputation(ctx context.Context, raw string) (domain.ReputationRecord, error) {
	addr, err := ipv4.Parse(raw)
	if err != nil {
		return domain.ReputationRecord{}, err
	}
	return r.Check(ctx, addr), nil
}

// Check probes every list concurrently and waits for all of them.
// A failed probe is recorded under its own list and never hides the
// result of another.
func (r *Reputation) Check(ctx context.Context, addr ipv4.Address) domain.ReputationRecord {
	start := time.Now()
	defer observeLookup("reputation", start)

	r.logger.Info("Blacklist check start",
		"observed_ip", addr.String(),
		"dnsbl_count", len(r.probes),
	)

	results := make([]domain.ListResult, len(r.probes))

	var g errgroup.Group
	for i, p := range r.probes {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("Panic recovered",
						"zone", p.zone.Name,
						"panic", rec,
					)
					results[i] = domain.ListResult{
						List:   p.zone.Name,
						Zone:   p.zone.Suffix,
						Status: domain.StatusFailed,
						Error:  fmt.Sprintf("probe panic: %v", rec),
					}
				}
			}()
			results[i] = p.Run(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()

	record := domain.ReputationRecord{
		IP:        addr.String(),
		Lists:     make(map[string]domain.ListResult, len(results)),
		CheckedAt: r.now(),
	}

	listed, failed := 0, 0
	for _, res := range results {
		record.Lists[res.List] = res
		switch res.Status {
		case domain.StatusListed:
			listed++
		case domain.StatusFailed:
			failed++
		}
	}

	if listed == 0 && failed == 0 {
		r.logger.Info("IP clean",
			"observed_ip", addr.String(),
			"blacklists_queried", len(results),
		)
	} else {
		r.logger.Info("Blacklist check done",
			"observed_ip", addr.String(),
			"blacklists_queried", len(results),
			"blacklists_listed", listed,
			"blacklists_failed", failed,
		)
	}

	return record
}
