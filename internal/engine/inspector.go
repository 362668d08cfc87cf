package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipcheck"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/scoring"
)

// Report section names, also used as keys of Report.Errors
const (
	SectionReputation = "reputation"
	SectionNetwork    = "network"
	SectionGeo        = "geo"
	SectionDNS        = "dns"
)

type ReputationChecker interface {
	Check(ctx context.Context, addr ipv4.Address) domain.ReputationRecord
}

type NetworkResolver interface {
	Resolve(ctx context.Context, addr ipv4.Address) (domain.NetworkData, error)
}

type HostnameResolver interface {
	Lookup(ctx context.Context, addr ipv4.Address) (domain.DNSData, error)
}

// Inspector builds a full report for one address. The reputation, network,
// geo and DNS sections do not depend on each other and run concurrently.
type Inspector struct {
	reputation ReputationChecker
	network    NetworkResolver
	geo        ipcheck.GeoLocator
	hostnames  HostnameResolver
	logger     *slog.Logger
	now        func() time.Time
}

// NewInspector creates an inspector. geo and hostnames may be nil to
// leave those sections out.
func NewInspector(rep ReputationChecker, network NetworkResolver, geo ipcheck.GeoLocator, hostnames HostnameResolver, logger *slog.Logger) *Inspector {
	return &Inspector{
		reputation: rep,
		network:    network,
		geo:        geo,
		hostnames:  hostnames,
		logger:     logger.With("module", "engine.inspector"),
		now:        time.Now,
	}
}

// Inspect validates raw and runs every section. Only invalid input is an
// error; section failures are recorded in the report.
func (i *Inspector) Inspect(ctx context.Context, raw string) (domain.Report, error) {
	addr, err := ipv4.Parse(raw)
	if err != nil {
		return domain.Report{}, err
	}

	report := domain.Report{
		IP:        addr.String(),
		StartedAt: i.now(),
		Class: &domain.ClassInfo{
			IP:      addr.String(),
			Class:   string(ipv4.ClassOf(addr)),
			Integer: ipv4.ToUint32(addr),
		},
	}

	i.logger.Info("Inspection start",
		"observed_ip", addr.String(),
	)

	var (
		mu     sync.Mutex
		errs   = make(map[string]string)
		record = func(section string, err error) {
			mu.Lock()
			errs[section] = err.Error()
			mu.Unlock()
		}
	)

	var g errgroup.Group

	g.Go(func() error {
		rec := i.reputation.Check(ctx, addr)
		score := scoring.ComputeScore(rec)
		report.Reputation = &rec
		report.Score = &score
		return nil
	})

	g.Go(func() error {
		data, err := i.network.Resolve(ctx, addr)
		if err != nil {
			record(SectionNetwork, err)
			return nil
		}
		report.Network = &data
		return nil
	})

	if i.geo != nil {
		g.Go(func() error {
			geo, err := i.geo.Locate(ctx, addr)
			if err != nil {
				record(SectionGeo, err)
				return nil
			}
			report.Geo = &geo
			return nil
		})
	}

	if i.hostnames != nil {
		g.Go(func() error {
			data, err := i.hostnames.Lookup(ctx, addr)
			if err != nil {
				record(SectionDNS, err)
				return nil
			}
			report.DNS = &data
			return nil
		})
	}

	_ = g.Wait()

	if len(errs) > 0 {
		report.Errors = errs
	}
	report.FinishedAt = i.now()

	i.logger.Info("Inspection complete",
		"observed_ip", addr.String(),
		"failed_sections", len(errs),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)

	return report, nil
}
