package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// MetricSet holds the raw quality signals derived from one extraction record.
// It lives only for the duration of a comparison run.
type MetricSet struct {
	Status            record.Status `json:"status" yaml:"status"`
	TextLength        int           `json:"text_length" yaml:"text_length"`
	WordCount         int           `json:"word_count" yaml:"word_count"`
	CompletenessRatio float64       `json:"completeness_ratio" yaml:"completeness_ratio"`
	TableCount        int           `json:"table_count" yaml:"table_count"`
	ErrorCount        int           `json:"error_count" yaml:"error_count"`
	ProcessingTimeMs  int64         `json:"processing_time_ms" yaml:"processing_time_ms"`
	StructureDensity  float64       `json:"structure_density" yaml:"structure_density"`
}

// Failed reports whether the source record failed
func (m MetricSet) Failed() bool {
	return m.Status == record.StatusFailed
}

// Extract computes the metric set for a record. It never fails: a failed
// record yields zeros except for its error count and processing time.
func Extract(rec record.ExtractionRecord) MetricSet {
	m := MetricSet{
		Status:           rec.Status,
		ErrorCount:       len(rec.ErrorMessages),
		ProcessingTimeMs: rec.ProcessingTimeMs,
	}
	if rec.IsFailed() {
		return m
	}

	m.TextLength = utf8.RuneCountInString(rec.Text)
	m.WordCount = len(strings.Fields(rec.Text))
	m.CompletenessRatio = completeness(rec.PageCountObserved, rec.PageCountExpected)
	m.TableCount = rec.Tables()
	if m.TextLength > 0 {
		m.StructureDensity = float64(len(rec.StructuralElements)) / float64(m.TextLength)
	}

	return m
}

// ExtractAll computes metric sets for every record, preserving order
func ExtractAll(records []record.ExtractionRecord) []MetricSet {
	out := make([]MetricSet, len(records))
	for i, rec := range records {
		out[i] = Extract(rec)
	}
	return out
}

// completeness is observed/expected clamped to [0,1]. An unknown expected
// page count must not penalize the record.
func completeness(observed, expected int) float64 {
	if expected <= 0 {
		return 1.0
	}
	ratio := float64(observed) / float64(expected)
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
