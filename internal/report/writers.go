// Package report writes comparison reports in the formats the CLI and the
// server offer, and summarises batches of them.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
)

// WriteJSON writes a single report as an object and several as an array
func WriteJSON(w io.Writer, reports []*compare.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode reports to JSON: %w", err)
	}
	return nil
}

// WriteYAML writes a single report as a mapping and several as a sequence
func WriteYAML(w io.Writer, reports []*compare.Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode reports to YAML: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"document_id", "producer_id", "rank", "status", "score", "winner",
	"text_length", "word_count", "completeness_ratio", "table_count",
	"error_count", "processing_time_ms", "error_messages",
}

// WriteCSV writes one row per ranking
func WriteCSV(w io.Writer, reports []*compare.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range Rows(reports) {
		record := []string{
			row.DocumentID,
			row.ProducerID,
			strconv.Itoa(int(row.Rank)),
			row.Status,
			strconv.FormatFloat(row.Score, 'f', 4, 64),
			strconv.FormatBool(row.Winner),
			strconv.FormatInt(row.TextLength, 10),
			strconv.FormatInt(row.WordCount, 10),
			strconv.FormatFloat(row.CompletenessRatio, 'f', 3, 64),
			strconv.Itoa(int(row.TableCount)),
			strconv.Itoa(int(row.ErrorCount)),
			strconv.FormatInt(row.ProcessingTimeMs, 10),
			joinMessages(row.ErrorMessages),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes the flattened rankings as a parquet file
func WriteParquet(w io.Writer, reports []*compare.Report) error {
	writer := parquet.NewGenericWriter[RankingRow](w)
	if _, err := writer.Write(Rows(reports)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

const (
	sheetRankings   = "Rankings"
	sheetEnsemble   = "Ensemble"
	sheetProvenance = "Provenance"
)

// WriteXLSX writes a workbook with rankings, ensemble results and provenance spans
func WriteXLSX(w io.Writer, reports []*compare.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRankings); err != nil {
		return fmt.Errorf("failed to name rankings sheet: %w", err)
	}
	for _, sheet := range []string{sheetEnsemble, sheetProvenance} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	write := func(sheet string, row int, values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	header := make([]any, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	write(sheetRankings, 1, header...)
	for i, row := range Rows(reports) {
		write(sheetRankings, i+2,
			row.DocumentID, row.ProducerID, row.Rank, row.Status, row.Score, row.Winner,
			row.TextLength, row.WordCount, row.CompletenessRatio, row.TableCount,
			row.ErrorCount, row.ProcessingTimeMs, joinMessages(row.ErrorMessages))
	}

	write(sheetEnsemble, 1, "document_id", "strategy", "requested_strategy", "degraded",
		"status", "contributors", "text_length", "error_messages", "text")
	write(sheetProvenance, 1, "document_id", "start", "end", "producer_id", "contributors", "similarity", "text")
	ensembleRow, spanRow := 2, 2
	for _, r := range reports {
		res := r.EnsembleResult
		if res == nil {
			continue
		}
		write(sheetEnsemble, ensembleRow,
			r.DocumentID, string(res.Strategy), string(res.RequestedStrategy), res.Degraded,
			string(res.Status), strings.Join(res.Contributors, ", "), len(res.Text),
			joinMessages(res.ErrorMessages), res.Text)
		ensembleRow++

		for _, span := range res.Provenance {
			write(sheetProvenance, spanRow,
				r.DocumentID, span.Start, span.End, span.ProducerID,
				strings.Join(span.Contributors, ", "), span.Similarity, res.SpanText(span))
			spanRow++
		}
	}

	_ = f.SetColWidth(sheetRankings, "A", "B", 24)
	_ = f.SetColWidth(sheetRankings, "M", "M", 60)
	_ = f.SetColWidth(sheetEnsemble, "I", "I", 80)
	_ = f.SetColWidth(sheetProvenance, "G", "G", 80)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// Writer returns the writer for a file extension
func Writer(ext string) (func(io.Writer, []*compare.Report) error, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return WriteJSON, nil
	case ".yaml", ".yml":
		return WriteYAML, nil
	case ".csv":
		return WriteCSV, nil
	case ".xlsx":
		return WriteXLSX, nil
	case ".parquet":
		return WriteParquet, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (expected .json, .yaml, .csv, .xlsx or .parquet)", ext)
	}
}

// Save writes reports to path in the format implied by its extension
func Save(path string, reports []*compare.Report) error {
	write, err := Writer(filepath.Ext(path))
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := write(file, reports); err != nil {
		return err
	}
	return file.Close()
}
