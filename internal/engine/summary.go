package engine

import (
	"log/slog"
	"math"
	"sort"

	"ipv4intel/internal/domain"
)

// ComputeSummary aggregates a batch of reports. Invalid inputs are counted
// but left out of the score and duration figures.
func ComputeSummary(batchID string, reports []domain.Report, logger *slog.Logger) domain.BatchSummary {
	summary := domain.BatchSummary{
		Total: len(reports),
	}

	var scores, durations []float64
	for _, r := range reports {
		if r.Error != "" {
			summary.Invalid++
			continue
		}

		for section := range r.Errors {
			if summary.SectionFailures == nil {
				summary.SectionFailures = make(map[string]int)
			}
			summary.SectionFailures[section]++
		}

		switch {
		case r.Score == nil || r.Score.Queried == 0:
			// no list answered, neither clean nor listed
			summary.Unknown++
		case r.Score.Listed > 0:
			summary.Listed++
		default:
			summary.Clean++
		}
		if r.Score != nil && r.Score.Queried > 0 {
			scores = append(scores, r.Score.Score)
			if r.Score.Partial {
				summary.Partial++
			}
		}

		if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
			durations = append(durations, float64(r.FinishedAt.Sub(r.StartedAt).Microseconds())/1000.0)
		}
	}

	if len(scores) == 0 {
		logger.Warn("No reports for summary",
			"batch_id", batchID,
			"invalid_count", summary.Invalid,
		)
		return summary
	}

	summary.ScoreAvg = round(mean(scores), 4)
	summary.ScoreP50 = round(percentile(scores, 50), 4)

	if len(durations) > 0 {
		summary.DurationAvgMS = round(mean(durations), 2)
		summary.DurationP50MS = round(percentile(durations, 50), 2)
		summary.DurationP95MS = round(percentile(durations, 95), 2)
		summary.DurationMaxMS = round(max(durations), 2)
	}

	logger.Info("Summary computed",
		"batch_id", batchID,
		"total", summary.Total,
		"listed_count", summary.Listed,
		"clean_count", summary.Clean,
		"unknown_count", summary.Unknown,
		"invalid_count", summary.Invalid,
		"score_avg", summary.ScoreAvg,
		"duration_p95_ms", summary.DurationP95MS,
	)

	return summary
}

// --- Math helpers ---

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func round(val float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(val*p) / p
}
