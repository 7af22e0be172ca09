package ensemble

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/ranking"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// SectionDelimiter separates producer sections in weighted_concat output
const SectionDelimiter = "\n\n---\n\n"

// candidate is a non-failed record together with its rank
type candidate struct {
	rank int
	rec  record.ExtractionRecord
}

func (c candidate) id() string {
	return c.rec.ProducerID
}

// Merge fuses the non-failed records in rank order using opts.Strategy.
// It returns nil when no non-failed record exists. When the strategy needs
// more records than are available it falls back to best_of and says so in
// the result's error messages.
func Merge(records []record.ExtractionRecord, ranked []ranking.Ranked, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cands, err := candidates(records, ranked)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}

	if need := opts.required(); len(cands) < need {
		res := bestOf(cands[0])
		res.RequestedStrategy = opts.Strategy
		res.Degraded = true
		res.ErrorMessages = append(res.ErrorMessages, fmt.Sprintf(
			"degraded merge: %s requires %d non-failed records, %d available; fell back to %s",
			opts.Strategy, need, len(cands), BestOf))
		res.settleStatus()
		slog.Warn("Ensemble merge degraded to best_of",
			"requested", opts.Strategy, "required", need, "available", len(cands))
		return res, nil
	}

	var res *Result
	switch opts.Strategy {
	case WeightedConcat:
		res = weightedConcat(cands[:opts.TopK])
	case Consensus:
		res = consensus(cands, opts.Threshold)
	default:
		res = bestOf(cands[0])
	}
	res.RequestedStrategy = opts.Strategy
	res.settleStatus()
	return res, nil
}

// candidates resolves ranked producers to their records, skipping failures
func candidates(records []record.ExtractionRecord, ranked []ranking.Ranked) ([]candidate, error) {
	byID := make(map[string]record.ExtractionRecord, len(records))
	for _, rec := range records {
		byID[rec.ProducerID] = rec
	}

	var out []candidate
	for _, r := range ranked {
		if r.Failed {
			continue
		}
		rec, ok := byID[r.ProducerID]
		if !ok {
			return nil, fmt.Errorf("ranked producer %q has no record", r.ProducerID)
		}
		if rec.IsFailed() {
			continue
		}
		out = append(out, candidate{rank: r.Rank, rec: rec})
	}
	return out, nil
}

// bestOf returns the rank-1 record verbatim under the ensemble producer id
func bestOf(c candidate) *Result {
	rec := c.rec.Clone()
	rec.ProducerID = ProducerID

	res := &Result{
		ExtractionRecord: rec,
		Strategy:         BestOf,
		Contributors:     []string{c.id()},
	}
	if rec.Text != "" {
		res.Provenance = []Span{{
			Start:        0,
			End:          len(rec.Text),
			ProducerID:   c.id(),
			Contributors: []string{c.id()},
			Similarity:   1,
		}}
	}
	return res
}

// weightedConcat joins the given records in rank order, one tagged section each
func weightedConcat(cands []candidate) *Result {
	if len(cands) == 1 {
		res := bestOf(cands[0])
		res.Strategy = WeightedConcat
		return res
	}

	top := cands[0].rec
	res := &Result{
		ExtractionRecord: record.ExtractionRecord{
			DocumentID:        top.DocumentID,
			ProducerID:        ProducerID,
			PageCountExpected: top.PageCountExpected,
		},
		Strategy: WeightedConcat,
	}

	var b strings.Builder
	for _, c := range cands {
		res.Contributors = append(res.Contributors, c.id())
		res.ProcessingTimeMs += c.rec.ProcessingTimeMs
		res.ByteSize += c.rec.ByteSize
		res.PageCountObserved = max(res.PageCountObserved, c.rec.PageCountObserved)
		res.ErrorMessages = append(res.ErrorMessages, attributed(c.id(), c.rec.ErrorMessages)...)

		offset := b.Len()
		if c.rec.Text != "" {
			if b.Len() > 0 {
				b.WriteString(SectionDelimiter)
				offset = b.Len()
			}
			b.WriteString(c.rec.Text)
			res.Provenance = append(res.Provenance, Span{
				Start:        offset,
				End:          b.Len(),
				ProducerID:   c.id(),
				Contributors: []string{c.id()},
				Similarity:   1,
			})
		}
		res.StructuralElements = append(res.StructuralElements, shifted(c.rec.StructuralElements, 0, len(c.rec.Text), offset)...)
		res.StructuralElements = append(res.StructuralElements, unanchored(c.rec.StructuralElements)...)
	}
	res.Text = b.String()
	res.Metadata = mergedMetadata(cands)

	return res
}

// shifted copies the elements whose span lies in [from, to) of the source
// text, moving them to start at offset
func shifted(elements []record.StructuralElement, from, to, offset int) []record.StructuralElement {
	var out []record.StructuralElement
	for _, el := range elements {
		if el.Span == nil || el.Span.Start < from || el.Span.End > to {
			continue
		}
		out = append(out, record.StructuralElement{
			Kind:    el.Kind,
			Ref:     el.Ref,
			Content: el.Content,
			Span: &record.Span{
				Start: el.Span.Start - from + offset,
				End:   el.Span.End - from + offset,
			},
		})
	}
	return out
}

// unanchored returns the elements that carry no span
func unanchored(elements []record.StructuralElement) []record.StructuralElement {
	var out []record.StructuralElement
	for _, el := range elements {
		if el.Span == nil {
			out = append(out, el)
		}
	}
	return out
}

// attributed prefixes each message with the producer that raised it
func attributed(producerID string, msgs []string) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fmt.Sprintf("[%s] %s", producerID, m))
	}
	return out
}

// mergedMetadata combines producer metadata; higher-ranked producers win on conflicts
func mergedMetadata(cands []candidate) map[string]string {
	var out map[string]string
	for i := len(cands) - 1; i >= 0; i-- {
		for k, v := range cands[i].rec.Metadata {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}
