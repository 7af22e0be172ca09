// Package compare scores, ranks and optionally fuses the extraction records
// of one document into a Report.
package compare

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/metrics"
	"github.com/lehigh-university-libraries/extractcompare/internal/ranking"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// ErrDuplicateProducer is returned when two records of a document share a producer id
var ErrDuplicateProducer = errors.New("duplicate producer id")

// now is swapped in tests
var now = time.Now

// Compare builds the report for one document. The configuration is checked
// before anything is scored. Producer failures are reported as data; an
// error is returned only for an invalid configuration or duplicate producers.
func Compare(documentID string, records []record.ExtractionRecord, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine, err := scoring.NewEngine(cfg.Weights)
	if err != nil {
		return nil, err
	}

	records, err = prepare(records)
	if err != nil {
		return nil, err
	}
	if documentID == "" && len(records) > 0 {
		documentID = records[0].DocumentID
	}

	sets := metrics.ExtractAll(records)
	population := make([]metrics.MetricSet, 0, len(sets))
	for _, m := range sets {
		if !m.Failed() {
			population = append(population, m)
		}
	}

	rows := make(map[string]Ranking, len(records))
	entries := make([]ranking.Entry, len(records))
	for i, rec := range records {
		m := sets[i]
		score := engine.Score(m, population)
		rows[rec.ProducerID] = Ranking{
			ProducerID:     rec.ProducerID,
			Status:         rec.Status,
			Metrics:        m,
			Score:          score,
			ScoreBreakdown: engine.Breakdown(m, population),
			ErrorMessages:  rec.ErrorMessages,
		}
		entries[i] = ranking.Entry{
			ProducerID:       rec.ProducerID,
			Score:            score,
			ErrorCount:       m.ErrorCount,
			ProcessingTimeMs: m.ProcessingTimeMs,
			Failed:           m.Failed(),
		}
	}

	ranked := ranking.Policy{}.RankAll(entries)
	report := &Report{
		ReportID:    uuid.NewString(),
		DocumentID:  documentID,
		GeneratedAt: now().UTC(),
		Rankings:    make([]Ranking, 0, len(ranked)),
	}
	for _, r := range ranked {
		row := rows[r.ProducerID]
		row.Rank = r.Rank
		report.Rankings = append(report.Rankings, row)
	}

	if w, ok := ranking.Winner(ranked); ok {
		id := w.ProducerID
		report.WinnerProducerID = &id
	}

	if cfg.Ensemble {
		res, err := ensemble.Merge(records, ranked, cfg.MergeOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to merge records for %s: %w", documentID, err)
		}
		if res != nil && res.DocumentID == "" {
			res.DocumentID = documentID
		}
		report.EnsembleResult = res
	}

	report.Recommendations = recommendations(report, records)

	slog.Debug("Compared document",
		"document", documentID,
		"producers", len(records),
		"winner", derefOr(report.WinnerProducerID, "none"),
		"ensemble", report.EnsembleResult != nil)

	return report, nil
}

// prepare copies the records, rejects duplicate producers and turns records
// that break the status invariants into failed ones so they still appear in
// the report
func prepare(records []record.ExtractionRecord) ([]record.ExtractionRecord, error) {
	seen := make(map[string]bool, len(records))
	out := make([]record.ExtractionRecord, 0, len(records))
	for _, rec := range records {
		if seen[rec.ProducerID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProducer, rec.ProducerID)
		}
		seen[rec.ProducerID] = true

		rec = rec.Clone()
		if err := rec.Validate(); err != nil {
			slog.Warn("Treating invalid record as failed", "producer", rec.ProducerID, "err", err)
			failed := record.Failed(rec.ProducerID, append(rec.ErrorMessages, err.Error())...)
			failed.DocumentID = rec.DocumentID
			failed.ProcessingTimeMs = max(rec.ProcessingTimeMs, 0)
			rec = failed
		}
		out = append(out, rec)
	}
	return out, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
