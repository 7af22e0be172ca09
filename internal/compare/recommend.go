package compare

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// recommendations summarises the comparison in plain sentences for display
func recommendations(r *Report, records []record.ExtractionRecord) []string {
	var out []string

	if id, ok := r.Winner(); ok {
		row, _ := r.Ranking(id)
		out = append(out, fmt.Sprintf("'%s' ranked first with a score of %.3f", id, row.Score))
	} else if len(r.Rankings) > 0 {
		out = append(out, "Every producer failed; no winner could be chosen")
	}

	most, mostLen := "", 0
	var withErrors, withTables, withMetadata, failed []string
	for _, row := range r.Rankings {
		if row.Metrics.TextLength > mostLen {
			most, mostLen = row.ProducerID, row.Metrics.TextLength
		}
		switch {
		case row.Failed():
			failed = append(failed, row.ProducerID)
		case row.Metrics.ErrorCount > 0:
			withErrors = append(withErrors, row.ProducerID)
		}
		if row.Metrics.TableCount > 0 {
			withTables = append(withTables, row.ProducerID)
		}
	}
	for _, rec := range records {
		if len(rec.Metadata) > 0 && !rec.IsFailed() {
			withMetadata = append(withMetadata, rec.ProducerID)
		}
	}

	if most != "" {
		out = append(out, fmt.Sprintf("'%s' extracted the most text (%d characters)", most, mostLen))
	}
	if len(withErrors) > 0 {
		out = append(out, "Warning: the following producers reported errors: "+strings.Join(withErrors, ", "))
	}
	if len(failed) > 0 {
		out = append(out, "Excluded from the ensemble after failing: "+strings.Join(failed, ", "))
	}
	if len(withTables) > 0 {
		out = append(out, "For documents with tables, consider using: "+strings.Join(withTables, ", "))
	}
	if len(withMetadata) > 0 {
		out = append(out, "For document metadata extraction, consider using: "+strings.Join(withMetadata, ", "))
	}
	if res := r.EnsembleResult; res != nil && res.Degraded {
		out = append(out, fmt.Sprintf("Ensemble fell back to %s; not enough producers succeeded for %s", res.Strategy, res.RequestedStrategy))
	}

	return out
}
