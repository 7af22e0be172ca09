package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

func sampleReports(t *testing.T) []*compare.Report {
	t.Helper()

	cfg := compare.DefaultConfig()
	cfg.Strategy = ensemble.Consensus

	first, err := compare.Compare("doc-1", []record.ExtractionRecord{
		{ProducerID: "ocr", Status: record.StatusOK, Text: "Title page\n\nShared body text", PageCountObserved: 2, PageCountExpected: 2, ProcessingTimeMs: 50},
		{ProducerID: "model", Status: record.StatusPartial, Text: "title page", ErrorMessages: []string{"page 2 missing"}, PageCountObserved: 1, PageCountExpected: 2, ProcessingTimeMs: 900},
		record.Failed("pdfminer", "encrypted PDF"),
	}, cfg)
	require.NoError(t, err)

	second, err := compare.Compare("doc-2", []record.ExtractionRecord{
		record.Failed("ocr", "blank image"),
		record.Failed("model", "timed out after 5m0s"),
	}, cfg)
	require.NoError(t, err)

	return []*compare.Report{first, second}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleReports(t))
	require.Len(t, rows, 5)

	assert.Equal(t, "doc-1", rows[0].DocumentID)
	assert.Equal(t, "ocr", rows[0].ProducerID)
	assert.True(t, rows[0].Winner)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, "pdfminer", rows[2].ProducerID)
	assert.Equal(t, []string{"encrypted PDF"}, rows[2].ErrorMessages)

	for _, row := range rows[3:] {
		assert.False(t, row.Winner)
		assert.Equal(t, 0.0, row.Score)
	}
}

func TestWriteJSON(t *testing.T) {
	reports := sampleReports(t)

	var single bytes.Buffer
	require.NoError(t, WriteJSON(&single, reports[:1]))
	var obj map[string]any
	require.NoError(t, json.Unmarshal(single.Bytes(), &obj))
	assert.Equal(t, "doc-1", obj["document_id"])
	assert.Equal(t, "ocr", obj["winner_producer_id"])
	assert.NotNil(t, obj["ensemble_result"])

	var many bytes.Buffer
	require.NoError(t, WriteJSON(&many, reports))
	var arr []map[string]any
	require.NoError(t, json.Unmarshal(many.Bytes(), &arr))
	require.Len(t, arr, 2)
	assert.Nil(t, arr[1]["winner_producer_id"])
	assert.Nil(t, arr[1]["ensemble_result"])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleReports(t)[:1]))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "doc-1", decoded["document_id"])

	res, ok := decoded["ensemble_result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ensemble", res["producer_id"])
	assert.Equal(t, "consensus", res["strategy"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReports(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"doc-1", "ocr", "1", "ok"}, rows[1][:4])
	assert.Equal(t, "page 2 missing", rows[2][len(csvHeader)-1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReports(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetRankings, sheetEnsemble, sheetProvenance}, f.GetSheetList())

	rankings, err := f.GetRows(sheetRankings)
	require.NoError(t, err)
	assert.Len(t, rankings, 6)
	assert.Equal(t, "producer_id", rankings[0][1])

	ensembleRows, err := f.GetRows(sheetEnsemble)
	require.NoError(t, err)
	require.Len(t, ensembleRows, 2)
	assert.Equal(t, "consensus", ensembleRows[1][1])

	spans, err := f.GetRows(sheetProvenance)
	require.NoError(t, err)
	assert.Greater(t, len(spans), 1)
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, sampleReports(t)))

	data := buf.Bytes()
	rows, err := parquet.Read[RankingRow](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "ocr", rows[0].ProducerID)
	assert.Equal(t, "doc-2", rows[4].DocumentID)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	reports := sampleReports(t)

	for _, name := range []string{"out.json", "out.yaml", "out.csv", "out.xlsx", "nested/out.parquet"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, reports), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	assert.Error(t, Save(filepath.Join(dir, "out.txt"), reports))
}

func TestAggregate(t *testing.T) {
	summary := Aggregate(sampleReports(t))

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 1, summary.AllFailed)
	assert.Equal(t, 0, summary.DegradedEnsembles)
	require.Len(t, summary.Producers, 3)

	top := summary.Producers[0]
	assert.Equal(t, "ocr", top.ProducerID)
	assert.Equal(t, 1, top.Wins)
	assert.Equal(t, 2, top.Documents)
	assert.Equal(t, 1, top.Failures)

	for _, p := range summary.Producers[1:] {
		assert.Equal(t, 0, p.Wins)
	}
}

func TestPrintSummary(t *testing.T) {
	reports := sampleReports(t)

	var buf bytes.Buffer
	PrintSummary(&buf, reports[0])
	out := buf.String()
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Winner: ocr")
	assert.Contains(t, out, "Strategy: consensus")
	assert.Contains(t, out, "! encrypted PDF")

	buf.Reset()
	PrintSummary(&buf, reports[1])
	assert.Contains(t, buf.String(), "Winner: none")

	buf.Reset()
	PrintBatchSummary(&buf, Aggregate(reports))
	assert.True(t, strings.Contains(buf.String(), "BATCH COMPARISON SUMMARY"))
}
