package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Row is the flat parquet layout of an ExtractionRecord
type Row struct {
	DocumentID        string       `parquet:"document_id"`
	ProducerID        string       `parquet:"producer_id"`
	Status            string       `parquet:"status"`
	Text              string       `parquet:"text"`
	Elements          []ElementRow `parquet:"structural_elements,list"`
	PageCountObserved int64        `parquet:"page_count_observed"`
	PageCountExpected int64        `parquet:"page_count_expected"`
	ErrorMessages     []string     `parquet:"error_messages,list"`
	ProcessingTimeMs  int64        `parquet:"processing_time_ms"`
	ByteSize          int64        `parquet:"byte_size"`
}

// ElementRow is the flat parquet layout of a StructuralElement
type ElementRow struct {
	Kind      string `parquet:"kind"`
	HasSpan   bool   `parquet:"has_span"`
	SpanStart int64  `parquet:"span_start"`
	SpanEnd   int64  `parquet:"span_end"`
	Ref       string `parquet:"ref"`
	Content   string `parquet:"content"`
}

// ToRecord converts a parquet row into a record
func (row Row) ToRecord() ExtractionRecord {
	rec := ExtractionRecord{
		DocumentID:        row.DocumentID,
		ProducerID:        row.ProducerID,
		Status:            Status(row.Status),
		Text:              row.Text,
		PageCountObserved: int(row.PageCountObserved),
		PageCountExpected: int(row.PageCountExpected),
		ErrorMessages:     append([]string(nil), row.ErrorMessages...),
		ProcessingTimeMs:  row.ProcessingTimeMs,
		ByteSize:          row.ByteSize,
	}
	for _, el := range row.Elements {
		se := StructuralElement{Kind: ElementKind(el.Kind), Ref: el.Ref, Content: el.Content}
		if el.HasSpan {
			se.Span = &Span{Start: int(el.SpanStart), End: int(el.SpanEnd)}
		}
		rec.StructuralElements = append(rec.StructuralElements, se)
	}
	return rec
}

// RowFromRecord converts a record into its parquet row
func RowFromRecord(rec ExtractionRecord) Row {
	row := Row{
		DocumentID:        rec.DocumentID,
		ProducerID:        rec.ProducerID,
		Status:            string(rec.Status),
		Text:              rec.Text,
		PageCountObserved: int64(rec.PageCountObserved),
		PageCountExpected: int64(rec.PageCountExpected),
		ErrorMessages:     rec.ErrorMessages,
		ProcessingTimeMs:  rec.ProcessingTimeMs,
		ByteSize:          rec.ByteSize,
	}
	for _, el := range rec.StructuralElements {
		er := ElementRow{Kind: string(el.Kind), Ref: el.Ref, Content: el.Content}
		if el.Span != nil {
			er.HasSpan = true
			er.SpanStart = int64(el.Span.Start)
			er.SpanEnd = int64(el.Span.End)
		}
		row.Elements = append(row.Elements, er)
	}
	return row
}

// Load reads records from a JSON, JSONL, YAML or Parquet file
func Load(path string) ([]ExtractionRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		return loadJSON(path)
	case ".jsonl":
		return loadJSONL(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .jsonl, .yaml, .parquet)", ext)
	}
}

// LoadDocuments reads a file and groups its records by document id
func LoadDocuments(path string) ([]Document, error) {
	records, err := Load(path)
	if err != nil {
		return nil, err
	}
	return GroupByDocument(records), nil
}

// loadJSON accepts either a Document object or a bare array of records
func loadJSON(path string) ([]ExtractionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []ExtractionRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse records array: %w", err)
		}
		return records, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc.stamped(), nil
}

func loadYAML(path string) ([]ExtractionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML document: %w", err)
	}
	return doc.stamped(), nil
}

// stamped copies the document id onto records that do not carry one
func (d Document) stamped() []ExtractionRecord {
	out := make([]ExtractionRecord, len(d.Records))
	for i, rec := range d.Records {
		if rec.DocumentID == "" {
			rec.DocumentID = d.DocumentID
		}
		out[i] = rec
	}
	return out
}

func loadJSONL(path string) ([]ExtractionRecord, error) {
	slog.Debug("Opening JSONL file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer file.Close()

	var records []ExtractionRecord
	scanner := bufio.NewScanner(file)

	// extraction text can be large
	const maxCapacity = 10 * 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec ExtractionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading records: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "records", len(records), "lines", lineNum)
	return records, nil
}

func loadParquet(path string) ([]ExtractionRecord, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var records []ExtractionRecord
	rows := make([]Row, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			records = append(records, row.ToRecord())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "records", len(records))
	return records, nil
}

// SaveParquet writes records as flat parquet rows
func SaveParquet(path string, records []ExtractionRecord) error {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = RowFromRecord(rec)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

// SaveJSON writes the records of one document as an indented Document object
func SaveJSON(path string, doc Document) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode records to JSON: %w", err)
	}
	return nil
}
