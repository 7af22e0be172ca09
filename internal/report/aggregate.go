package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
)

// ProducerStats summarises one producer across a batch
type ProducerStats struct {
	ProducerID   string  `json:"producer_id" yaml:"producer_id"`
	Documents    int     `json:"documents" yaml:"documents"`
	Wins         int     `json:"wins" yaml:"wins"`
	Failures     int     `json:"failures" yaml:"failures"`
	AverageScore float64 `json:"average_score" yaml:"average_score"`
	AverageRank  float64 `json:"average_rank" yaml:"average_rank"`
}

// BatchSummary aggregates the reports of a batch run
type BatchSummary struct {
	Documents         int             `json:"documents" yaml:"documents"`
	AllFailed         int             `json:"all_failed" yaml:"all_failed"`
	DegradedEnsembles int             `json:"degraded_ensembles" yaml:"degraded_ensembles"`
	Producers         []ProducerStats `json:"producers" yaml:"producers"`
	GeneratedAt       time.Time       `json:"generated_at" yaml:"generated_at"`
}

// Aggregate builds batch statistics. Producers are ordered by wins, then
// by average score.
func Aggregate(reports []*compare.Report) *BatchSummary {
	summary := &BatchSummary{
		Documents:   len(reports),
		GeneratedAt: time.Now(),
	}

	type totals struct {
		stats      ProducerStats
		scoreTotal float64
		rankTotal  int
	}
	byProducer := map[string]*totals{}

	for _, r := range reports {
		if r.AllFailed() {
			summary.AllFailed++
		}
		if r.EnsembleResult != nil && r.EnsembleResult.Degraded {
			summary.DegradedEnsembles++
		}
		winner, _ := r.Winner()

		for _, rk := range r.Rankings {
			t, ok := byProducer[rk.ProducerID]
			if !ok {
				t = &totals{stats: ProducerStats{ProducerID: rk.ProducerID}}
				byProducer[rk.ProducerID] = t
			}
			t.stats.Documents++
			t.scoreTotal += rk.Score
			t.rankTotal += rk.Rank
			if rk.Failed() {
				t.stats.Failures++
			}
			if rk.ProducerID == winner {
				t.stats.Wins++
			}
		}
	}

	for _, t := range byProducer {
		s := t.stats
		s.AverageScore = t.scoreTotal / float64(s.Documents)
		s.AverageRank = float64(t.rankTotal) / float64(s.Documents)
		summary.Producers = append(summary.Producers, s)
	}
	sort.Slice(summary.Producers, func(i, j int) bool {
		a, b := summary.Producers[i], summary.Producers[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		return a.ProducerID < b.ProducerID
	})

	return summary
}

// PrintBatchSummary prints a human-readable summary of a batch
func PrintBatchSummary(w io.Writer, s *BatchSummary) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "BATCH COMPARISON SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Documents: %d\n", s.Documents)
	fmt.Fprintf(w, "All producers failed: %d\n", s.AllFailed)
	fmt.Fprintf(w, "Degraded ensembles: %d\n", s.DegradedEnsembles)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PRODUCERS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-24s %6s %6s %8s %10s %9s\n", "PRODUCER", "DOCS", "WINS", "FAILED", "AVG SCORE", "AVG RANK")
	for _, p := range s.Producers {
		fmt.Fprintf(w, "%-24s %6d %6d %8d %10.3f %9.2f\n",
			truncate(p.ProducerID, 24), p.Documents, p.Wins, p.Failures, p.AverageScore, p.AverageRank)
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}
