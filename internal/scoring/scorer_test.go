package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ipv4intel/internal/domain"
)

func record(results ...domain.ListResult) domain.ReputationRecord {
	rec := domain.ReputationRecord{IP: "1.2.3.4", Lists: map[string]domain.ListResult{}}
	for _, r := range results {
		rec.Lists[r.List] = r
	}
	return rec
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name    string
		record  domain.ReputationRecord
		score   float64
		grade   string
		listed  int
		queried int
		partial bool
	}{
		{
			name: "Clean",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusNotListed, Code: domain.CodeNotListed},
				domain.ListResult{List: "cbl", Status: domain.StatusNotListed, Code: domain.CodeNotListed},
			),
			score: 1, grade: "A", queried: 2,
		},
		{
			name: "OneSevere",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusListed, Code: domain.CodeListedSevere},
				domain.ListResult{List: "cbl", Status: domain.StatusNotListed, Code: domain.CodeNotListed},
			),
			score: 0.5, grade: "D", listed: 1, queried: 2,
		},
		{
			name: "LowAndLow",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusListed, Code: domain.CodeListedLow},
				domain.ListResult{List: "cbl", Status: domain.StatusListed, Code: domain.CodeListedLow},
			),
			score: 0.75, grade: "B", listed: 2, queried: 2,
		},
		{
			name: "OneFailed",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusListed, Code: domain.CodeListedHigh},
				domain.ListResult{List: "cbl", Status: domain.StatusFailed, Error: "timeout"},
			),
			score: 0.25, grade: "F", listed: 1, queried: 1, partial: true,
		},
		{
			name: "AllFailed",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusFailed},
			),
			score: 1, grade: GradeUnknown, partial: true,
		},
		{
			name: "EveryListFailed",
			record: record(
				domain.ListResult{List: "spamhaus", Status: domain.StatusFailed, Error: "timeout"},
				domain.ListResult{List: "cbl", Status: domain.StatusFailed, Error: "SERVFAIL"},
			),
			score: 1, grade: GradeUnknown, partial: true,
		},
		{
			name:   "NoLists",
			record: record(),
			score: 1, grade: GradeUnknown, partial: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeScore(tt.record)
			assert.InDelta(t, tt.score, s.Score, 0.0001)
			assert.Equal(t, tt.grade, s.Grade)
			assert.Equal(t, tt.listed, s.Listed)
			assert.Equal(t, tt.queried, s.Queried)
			assert.Equal(t, tt.partial, s.Partial)
		})
	}
}

func TestComputeGrade(t *testing.T) {
	assert.Equal(t, "A", ComputeGrade(0.95))
	assert.Equal(t, "B", ComputeGrade(0.75))
	assert.Equal(t, "C", ComputeGrade(0.6))
	assert.Equal(t, "D", ComputeGrade(0.4))
	assert.Equal(t, "F", ComputeGrade(0.39))
}
