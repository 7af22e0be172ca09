package ensemble

import (
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// ProducerID is stamped on every fused record
const ProducerID = "ensemble"

// Span maps a byte range of the ensemble text back to the producers it came from
type Span struct {
	Start        int      `json:"start" yaml:"start"`
	End          int      `json:"end" yaml:"end"`
	ProducerID   string   `json:"producer_id" yaml:"producer_id"`
	Contributors []string `json:"contributors" yaml:"contributors"`
	Similarity   float64  `json:"similarity" yaml:"similarity"`
}

// Result is an ExtractionRecord-shaped fused output with provenance
type Result struct {
	record.ExtractionRecord `yaml:",inline"`

	Strategy          Strategy `json:"strategy" yaml:"strategy"`
	RequestedStrategy Strategy `json:"requested_strategy" yaml:"requested_strategy"`
	Degraded          bool     `json:"degraded" yaml:"degraded"`
	Contributors      []string `json:"contributors" yaml:"contributors"`
	Provenance        []Span   `json:"provenance" yaml:"provenance"`
}

// SpanText returns the ensemble text covered by a provenance span
func (r *Result) SpanText(s Span) string {
	if s.Start < 0 || s.End > len(r.Text) || s.Start > s.End {
		return ""
	}
	return r.Text[s.Start:s.End]
}

// settleStatus derives the status from the collected error messages
func (r *Result) settleStatus() {
	if len(r.ErrorMessages) == 0 {
		r.Status = record.StatusOK
		return
	}
	r.Status = record.StatusPartial
}
