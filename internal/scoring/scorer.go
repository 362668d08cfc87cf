package scoring

import (
	"log/slog"
	"math"
	"sort"

	"ipv4intel/internal/domain"
)

// ComputeScore condenses a reputation record into one score.
// Each answered list contributes 1 - (code-1)/4, so not listed is 1 and
// the most severe listing is 0; failed lists are left out of the mean.
func ComputeScore(record domain.ReputationRecord) domain.ReputationScore {
	var score domain.ReputationScore

	names := make([]string, 0, len(record.Lists))
	for name := range record.Lists {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	for _, name := range names {
		res := record.Lists[name]
		if res.Failed() || !res.Code.Valid() {
			score.Partial = true
			continue
		}
		score.Queried++
		if res.Status == domain.StatusListed {
			score.Listed++
		}
		sum += clamp(1.0-float64(res.Code-domain.CodeNotListed)/4.0, 0, 1)
	}

	if score.Queried == 0 {
		// no list answered; the score is a placeholder, not a verdict
		score.Score = 1.0
		score.Partial = true
		score.Grade = GradeUnknown
	} else {
		score.Score = round(sum/float64(score.Queried), 4)
		score.Grade = ComputeGrade(score.Score)
	}

	slog.Debug("Score computed",
		"module", "scoring.scorer",
		"observed_ip", record.IP,
		"score_total", score.Score,
		"blacklists_queried", score.Queried,
		"blacklists_listed", score.Listed,
		"grade", score.Grade,
	)

	return score
}

// GradeUnknown is the grade of a record where no list answered
const GradeUnknown = "N/A"

// ComputeGrade returns the letter grade for a score
func ComputeGrade(score float64) string {
	switch {
	case score >= 0.90:
		return "A"
	case score >= 0.75:
		return "B"
	case score >= 0.60:
		return "C"
	case score >= 0.40:
		return "D"
	default:
		return "F"
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func round(val float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(val*p) / p
}
