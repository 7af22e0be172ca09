package compare

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// exampleRecords is the three producer document: A complete and clean, B
// longer but partial with errors, C failed
func exampleRecords() []record.ExtractionRecord {
	return []record.ExtractionRecord{
		{
			DocumentID:        "doc-42",
			ProducerID:        "B",
			Status:            record.StatusPartial,
			Text:              words(800),
			PageCountObserved: 2,
			PageCountExpected: 5,
			ErrorMessages:     []string{"page 3 unreadable", "page 4 unreadable"},
			ProcessingTimeMs:  1000,
		},
		{
			DocumentID:        "doc-42",
			ProducerID:        "A",
			Status:            record.StatusOK,
			Text:              words(500),
			PageCountObserved: 5,
			PageCountExpected: 5,
			ProcessingTimeMs:  1000,
		},
		record.Failed("C", "timed out after 30s"),
	}
}

func TestCompare_Example(t *testing.T) {
	report, err := Compare("doc-42", exampleRecords(), DefaultConfig())
	require.NoError(t, err)

	require.Len(t, report.Rankings, 3)
	assert.Equal(t, "A", report.Rankings[0].ProducerID)
	assert.Equal(t, 1, report.Rankings[0].Rank)
	assert.Equal(t, "B", report.Rankings[1].ProducerID)
	assert.Equal(t, 2, report.Rankings[1].Rank)
	assert.Equal(t, "C", report.Rankings[2].ProducerID)
	assert.Equal(t, 3, report.Rankings[2].Rank)
	assert.Equal(t, 0.0, report.Rankings[2].Score)
	assert.Equal(t, []string{"timed out after 30s"}, report.Rankings[2].ErrorMessages)

	assert.InDelta(t, 0.75, report.Rankings[0].Score, 1e-9)
	assert.InDelta(t, 0.5, report.Rankings[1].Score, 1e-9)

	winner, ok := report.Winner()
	require.True(t, ok)
	assert.Equal(t, "A", winner)
	assert.False(t, report.AllFailed())

	assert.Equal(t, "doc-42", report.DocumentID)
	assert.NotEmpty(t, report.ReportID)
	assert.False(t, report.GeneratedAt.IsZero())

	require.NotNil(t, report.EnsembleResult)
	assert.Equal(t, ensemble.ProducerID, report.EnsembleResult.ProducerID)
	assert.Equal(t, words(500), report.EnsembleResult.Text)
}

func TestCompare_AllFailed(t *testing.T) {
	records := []record.ExtractionRecord{
		record.Failed("ocr", "tesseract crashed"),
		record.Failed("model", "connection refused"),
	}

	report, err := Compare("doc-1", records, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, report.AllFailed())
	assert.Nil(t, report.WinnerProducerID)
	assert.Nil(t, report.EnsembleResult)
	require.Len(t, report.Rankings, 2)
	for _, row := range report.Rankings {
		assert.Equal(t, 0.0, row.Score)
		assert.NotEmpty(t, row.ErrorMessages)
	}
	assert.Contains(t, report.Recommendations, "Every producer failed; no winner could be chosen")

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "winner_producer_id")
	assert.Nil(t, decoded["winner_producer_id"])
	assert.Contains(t, decoded, "ensemble_result")
	assert.Nil(t, decoded["ensemble_result"])
	assert.Contains(t, decoded, "rankings")
	assert.Equal(t, "doc-1", decoded["document_id"])
}

func TestCompare_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() Config
	}{
		{
			name: "weights do not sum to one",
			cfg: func() Config {
				c := DefaultConfig()
				c.Weights.Completeness = 0.9
				return c
			},
		},
		{
			name: "unknown strategy",
			cfg: func() Config {
				c := DefaultConfig()
				c.Strategy = "majority"
				return c
			},
		},
		{
			name: "zero top-k",
			cfg: func() Config {
				c := DefaultConfig()
				c.TopK = 0
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Compare("doc", exampleRecords(), tt.cfg())
			assert.ErrorIs(t, err, scoring.ErrConfiguration)
			assert.Nil(t, report)
		})
	}
}

func TestCompare_DuplicateProducer(t *testing.T) {
	records := exampleRecords()
	records = append(records, records[0])

	_, err := Compare("doc-42", records, DefaultConfig())
	assert.ErrorIs(t, err, ErrDuplicateProducer)
}

func TestCompare_InvalidRecordBecomesFailed(t *testing.T) {
	records := []record.ExtractionRecord{
		{ProducerID: "good", Status: record.StatusOK, Text: "some text"},
		{ProducerID: "broken", Status: record.StatusFailed, Text: "should not be here"},
	}

	report, err := Compare("doc", records, DefaultConfig())
	require.NoError(t, err)

	row, ok := report.Ranking("broken")
	require.True(t, ok)
	assert.Equal(t, record.StatusFailed, row.Status)
	assert.Equal(t, 2, row.Rank)
	require.NotEmpty(t, row.ErrorMessages)
	assert.Contains(t, row.ErrorMessages[0], "failed record must have empty text")

	// the caller's slice is untouched
	assert.Equal(t, "should not be here", records[1].Text)
}

func TestCompare_EnsembleDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ensemble = false

	report, err := Compare("doc-42", exampleRecords(), cfg)
	require.NoError(t, err)
	assert.Nil(t, report.EnsembleResult)
	assert.NotNil(t, report.WinnerProducerID)
}

func TestCompare_DegradedEnsemble(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = ensemble.Consensus
	records := []record.ExtractionRecord{
		{ProducerID: "only", Status: record.StatusOK, Text: "lonely survivor"},
		record.Failed("gone", "crashed"),
	}

	report, err := Compare("doc", records, cfg)
	require.NoError(t, err)
	require.NotNil(t, report.EnsembleResult)
	assert.True(t, report.EnsembleResult.Degraded)
	assert.Equal(t, "doc", report.EnsembleResult.DocumentID)
	assert.Contains(t, report.EnsembleResult.ErrorMessages[0], "degraded merge")
	assert.Contains(t, strings.Join(report.Recommendations, "\n"), "Ensemble fell back to best_of")
}

func TestCompare_Recommendations(t *testing.T) {
	records := exampleRecords()
	records[1].Metadata = map[string]string{"title": "Annual report"}
	records[0].StructuralElements = []record.StructuralElement{
		{Kind: record.ElementTable, Span: &record.Span{Start: 0, End: 4}},
	}

	report, err := Compare("doc-42", records, DefaultConfig())
	require.NoError(t, err)

	all := strings.Join(report.Recommendations, "\n")
	assert.Contains(t, all, "'B' extracted the most text")
	assert.Contains(t, all, "reported errors: B")
	assert.Contains(t, all, "after failing: C")
	assert.Contains(t, all, "tables, consider using: B")
	assert.Contains(t, all, "metadata extraction, consider using: A")
}

func TestCompare_DocumentIDFallsBackToRecords(t *testing.T) {
	report, err := Compare("", exampleRecords(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "doc-42", report.DocumentID)
}

func TestCompare_Concurrent(t *testing.T) {
	want, err := Compare("doc-42", exampleRecords(), DefaultConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Report, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Compare("doc-42", exampleRecords(), DefaultConfig())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.Rankings, got.Rankings)
		assert.Equal(t, want.EnsembleResult, got.EnsembleResult)
	}
}
