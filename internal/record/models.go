package record

import (
	"errors"
	"fmt"
)

// Status describes how far a producer got with a document
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ParseStatus converts a status name into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOK, StatusPartial, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q (expected ok, partial or failed)", s)
	}
}

// ElementKind is the type of a structural element
type ElementKind string

const (
	ElementTable        ElementKind = "table"
	ElementImageCaption ElementKind = "image-caption"
	ElementHeading      ElementKind = "heading"
	ElementListItem     ElementKind = "list-item"
)

// Span is a half-open byte range [Start, End) into a record's text
type Span struct {
	Start int `json:"start" yaml:"start" parquet:"start"`
	End   int `json:"end" yaml:"end" parquet:"end"`
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// StructuralElement is a typed element found by a producer. It either points
// into the record text through Span or refers to something outside it (Ref).
type StructuralElement struct {
	Kind    ElementKind `json:"kind" yaml:"kind"`
	Span    *Span       `json:"span,omitempty" yaml:"span,omitempty"`
	Ref     string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Content string      `json:"content,omitempty" yaml:"content,omitempty"`
}

// ExtractionRecord is one producer's result for one document
type ExtractionRecord struct {
	DocumentID         string              `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	ProducerID         string              `json:"producer_id" yaml:"producer_id"`
	Status             Status              `json:"status" yaml:"status"`
	Text               string              `json:"text" yaml:"text"`
	StructuralElements []StructuralElement `json:"structural_elements" yaml:"structural_elements"`
	PageCountObserved  int                 `json:"page_count_observed" yaml:"page_count_observed"`
	PageCountExpected  int                 `json:"page_count_expected" yaml:"page_count_expected"`
	ErrorMessages      []string            `json:"error_messages" yaml:"error_messages"`
	ProcessingTimeMs   int64               `json:"processing_time_ms" yaml:"processing_time_ms"`
	ByteSize           int64               `json:"byte_size" yaml:"byte_size"`
	Metadata           map[string]string   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Document is the serialized form of all records for one source document
type Document struct {
	DocumentID string             `json:"document_id" yaml:"document_id"`
	Records    []ExtractionRecord `json:"records" yaml:"records"`
}

// ErrInvalidRecord is wrapped by every Validate failure
var ErrInvalidRecord = errors.New("invalid extraction record")

// Failed builds a failed record for a producer that raised or timed out
func Failed(producerID string, msgs ...string) ExtractionRecord {
	if len(msgs) == 0 {
		msgs = []string{"producer failed without a message"}
	}
	return ExtractionRecord{
		ProducerID:    producerID,
		Status:        StatusFailed,
		ErrorMessages: append([]string(nil), msgs...),
	}
}

// IsFailed reports whether the record carries no usable output
func (r ExtractionRecord) IsFailed() bool {
	return r.Status == StatusFailed
}

// Tables counts the table elements of the record
func (r ExtractionRecord) Tables() int {
	n := 0
	for _, el := range r.StructuralElements {
		if el.Kind == ElementTable {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can derive values without touching the original
func (r ExtractionRecord) Clone() ExtractionRecord {
	out := r
	if r.StructuralElements != nil {
		out.StructuralElements = make([]StructuralElement, len(r.StructuralElements))
		for i, el := range r.StructuralElements {
			if el.Span != nil {
				sp := *el.Span
				el.Span = &sp
			}
			out.StructuralElements[i] = el
		}
	}
	if r.ErrorMessages != nil {
		out.ErrorMessages = append([]string(nil), r.ErrorMessages...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Validate checks the status invariants and element spans
func (r ExtractionRecord) Validate() error {
	if r.ProducerID == "" {
		return fmt.Errorf("%w: producer_id is required", ErrInvalidRecord)
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return fmt.Errorf("%w: producer %s: %v", ErrInvalidRecord, r.ProducerID, err)
	}

	switch r.Status {
	case StatusFailed:
		if r.Text != "" {
			return fmt.Errorf("%w: producer %s: failed record must have empty text", ErrInvalidRecord, r.ProducerID)
		}
		if len(r.ErrorMessages) == 0 {
			return fmt.Errorf("%w: producer %s: failed record must carry error messages", ErrInvalidRecord, r.ProducerID)
		}
	case StatusPartial:
		if r.Text == "" {
			return fmt.Errorf("%w: producer %s: partial record must have text", ErrInvalidRecord, r.ProducerID)
		}
		if len(r.ErrorMessages) == 0 {
			return fmt.Errorf("%w: producer %s: partial record must carry error messages", ErrInvalidRecord, r.ProducerID)
		}
	case StatusOK:
		if len(r.ErrorMessages) != 0 {
			return fmt.Errorf("%w: producer %s: ok record must not carry error messages", ErrInvalidRecord, r.ProducerID)
		}
	}

	if r.PageCountObserved < 0 || r.PageCountExpected < 0 {
		return fmt.Errorf("%w: producer %s: page counts must be non-negative", ErrInvalidRecord, r.ProducerID)
	}
	if r.ProcessingTimeMs < 0 {
		return fmt.Errorf("%w: producer %s: processing_time_ms must be non-negative", ErrInvalidRecord, r.ProducerID)
	}
	if r.ByteSize < 0 {
		return fmt.Errorf("%w: producer %s: byte_size must be non-negative", ErrInvalidRecord, r.ProducerID)
	}

	for i, el := range r.StructuralElements {
		if el.Span == nil {
			continue
		}
		if el.Span.Start < 0 || el.Span.Start > el.Span.End || el.Span.End > len(r.Text) {
			return fmt.Errorf("%w: producer %s: element %d span [%d,%d) outside text of %d bytes",
				ErrInvalidRecord, r.ProducerID, i, el.Span.Start, el.Span.End, len(r.Text))
		}
	}

	return nil
}

// GroupByDocument splits records into per-document sets, keeping the order in
// which document ids were first seen
func GroupByDocument(records []ExtractionRecord) []Document {
	index := make(map[string]int)
	var docs []Document
	for _, rec := range records {
		i, ok := index[rec.DocumentID]
		if !ok {
			i = len(docs)
			index[rec.DocumentID] = i
			docs = append(docs, Document{DocumentID: rec.DocumentID})
		}
		docs[i].Records = append(docs[i].Records, rec)
	}
	return docs
}
