package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/reporter"
)

// Scheduler runs batch inspections with bounded parallelism
type Scheduler struct {
	maxParallel int
	inspector   *Inspector
	reporter    reporter.Reporter
	logger      *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(maxParallel int, inspector *Inspector, rep reporter.Reporter, logger *slog.Logger) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Scheduler{
		maxParallel: maxParallel,
		inspector:   inspector,
		reporter:    rep,
		logger:      logger.With("module", "engine.scheduler"),
	}
}

// RunAll inspects every address, at most maxParallel at a time.
// Reports come back in input order; an invalid address yields a report
// carrying only the input and its error.
func (s *Scheduler) RunAll(ctx context.Context, addresses []string) []domain.Report {
	reports := make([]domain.Report, len(addresses))
	s.run(ctx, addresses, func(idx int, report domain.Report) {
		reports[idx] = report
	})
	return reports
}

// Stream inspects every address like RunAll but hands each report to emit
// as soon as it is done. emit is never called concurrently.
func (s *Scheduler) Stream(ctx context.Context, addresses []string, emit func(idx int, report domain.Report)) {
	var mu sync.Mutex
	s.run(ctx, addresses, func(idx int, report domain.Report) {
		mu.Lock()
		defer mu.Unlock()
		emit(idx, report)
	})
}

func (s *Scheduler) run(ctx context.Context, addresses []string, done func(idx int, report domain.Report)) {
	s.logger.Info("Scheduler start",
		"address_count", len(addresses),
		"max_parallel", s.maxParallel,
	)

	sem := make(chan struct{}, s.maxParallel)
	var wg sync.WaitGroup

	for idx, raw := range addresses {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, raw string) {
			defer wg.Done()
			defer func() {
				<-sem
				if rec := recover(); rec != nil {
					s.logger.Error("Panic recovered",
						"input", raw,
						"panic", rec,
					)
					done(idx, domain.Report{IP: raw, Error: fmt.Sprintf("inspection panic: %v", rec)})
				}
			}()

			report, err := s.inspector.Inspect(ctx, raw)
			if err != nil {
				s.logger.Warn("Inspection rejected",
					"input", raw,
					"error_detail", err.Error(),
				)
				report = domain.Report{IP: raw, Error: err.Error()}
			}
			done(idx, report)
		}(idx, raw)
	}

	wg.Wait()

	s.logger.Info("All addresses done",
		"address_count", len(addresses),
	)
}

// RunBatch inspects addresses and wraps the reports as a batch result
func (s *Scheduler) RunBatch(ctx context.Context, batchID string, addresses []string) domain.BatchResult {
	reports := s.RunAll(ctx, addresses)
	return domain.BatchResult{
		BatchID: batchID,
		Reports: reports,
		Summary: ComputeSummary(batchID, reports, s.logger),
		DoneAt:  time.Now(),
	}
}

// RunAndDeliver runs a batch and posts the result to callbackURL.
// It is meant to run in its own goroutine after the request returned.
func (s *Scheduler) RunAndDeliver(ctx context.Context, batchID string, addresses []string, callbackURL string) {
	l := s.logger.With("batch_id", batchID)

	result := s.RunBatch(ctx, batchID, addresses)

	if err := s.reporter.ReportBatch(ctx, callbackURL, result); err != nil {
		l.Error("Batch delivery fail",
			"callback_url", callbackURL,
			"error_detail", err.Error(),
		)
		return
	}

	l.Info("Batch delivered",
		"callback_url", callbackURL,
		"report_count", len(result.Reports),
	)
}
