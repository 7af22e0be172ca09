package compare

import (
	"time"

	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/metrics"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// Ranking is one producer's row in a report
type Ranking struct {
	ProducerID     string            `json:"producer_id" yaml:"producer_id"`
	Status         record.Status     `json:"status" yaml:"status"`
	Metrics        metrics.MetricSet `json:"metrics" yaml:"metrics"`
	Score          float64           `json:"score" yaml:"score"`
	ScoreBreakdown scoring.Breakdown `json:"score_breakdown" yaml:"score_breakdown"`
	Rank           int               `json:"rank" yaml:"rank"`
	ErrorMessages  []string          `json:"error_messages" yaml:"error_messages"`
}

// Failed reports whether the producer was excluded from the ensemble
func (r Ranking) Failed() bool {
	return r.Status == record.StatusFailed
}

// Report is the result of comparing every producer of one document.
// It is built once by Compare and not modified afterwards.
type Report struct {
	ReportID         string           `json:"report_id" yaml:"report_id"`
	DocumentID       string           `json:"document_id" yaml:"document_id"`
	GeneratedAt      time.Time        `json:"generated_at" yaml:"generated_at"`
	Rankings         []Ranking        `json:"rankings" yaml:"rankings"`
	WinnerProducerID *string          `json:"winner_producer_id" yaml:"winner_producer_id"`
	EnsembleResult   *ensemble.Result `json:"ensemble_result" yaml:"ensemble_result"`
	Recommendations  []string         `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Winner returns the winning producer id, if any
func (r *Report) Winner() (string, bool) {
	if r.WinnerProducerID == nil {
		return "", false
	}
	return *r.WinnerProducerID, true
}

// AllFailed reports whether no producer yielded usable output
func (r *Report) AllFailed() bool {
	return r.WinnerProducerID == nil
}

// Ranking returns the row of a producer
func (r *Report) Ranking(producerID string) (Ranking, bool) {
	for _, row := range r.Rankings {
		if row.ProducerID == producerID {
			return row, true
		}
	}
	return Ranking{}, false
}
