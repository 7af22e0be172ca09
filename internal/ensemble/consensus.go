package ensemble

import (
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

const segmentSeparator = "\n\n"

type member struct {
	producerID string
	similarity float64
}

// group is a set of similar segments, at most one per producer. The
// representative comes from the highest-ranked member.
type group struct {
	rep     segment
	owner   candidate
	members []member
}

func (g *group) has(producerID string) bool {
	for _, m := range g.members {
		if m.producerID == producerID {
			return true
		}
	}
	return false
}

func (g *group) similarity() float64 {
	lowest := 1.0
	for _, m := range g.members {
		lowest = min(lowest, m.similarity)
	}
	return lowest
}

// consensus fuses paragraph segments across every candidate. Candidates
// arrive in rank order so the first producer to open a group owns its text.
func consensus(cands []candidate, threshold float64) *Result {
	var groups []*group
	for _, c := range cands {
		groups = place(groups, c, threshold)
	}

	top := cands[0].rec
	res := &Result{
		ExtractionRecord: record.ExtractionRecord{
			DocumentID:        top.DocumentID,
			ProducerID:        ProducerID,
			PageCountExpected: top.PageCountExpected,
		},
		Strategy: Consensus,
	}

	for _, c := range cands {
		res.Contributors = append(res.Contributors, c.id())
		res.ProcessingTimeMs += c.rec.ProcessingTimeMs
		res.PageCountObserved = max(res.PageCountObserved, c.rec.PageCountObserved)
		res.ErrorMessages = append(res.ErrorMessages, attributed(c.id(), c.rec.ErrorMessages)...)
	}

	var b strings.Builder
	for _, g := range groups {
		if b.Len() > 0 {
			b.WriteString(segmentSeparator)
		}
		offset := b.Len()
		b.WriteString(g.rep.text)

		contributors := make([]string, len(g.members))
		for i, m := range g.members {
			contributors[i] = m.producerID
		}
		res.Provenance = append(res.Provenance, Span{
			Start:        offset,
			End:          b.Len(),
			ProducerID:   g.owner.id(),
			Contributors: contributors,
			Similarity:   g.similarity(),
		})
		res.StructuralElements = append(res.StructuralElements,
			shifted(g.owner.rec.StructuralElements, g.rep.start, g.rep.end, offset)...)
	}
	res.StructuralElements = append(res.StructuralElements, unanchored(top.StructuralElements)...)

	res.Text = b.String()
	res.ByteSize = int64(len(res.Text))
	res.Metadata = mergedMetadata(cands)

	return res
}

// place matches c's segments against the existing groups and inserts the
// unmatched ones next to their nearest matched neighbour
func place(groups []*group, c candidate, threshold float64) []*group {
	segs := splitSegments(c.rec.Text)
	matched := make([]*group, len(segs))
	anyMatch := false

	for i, s := range segs {
		var best *group
		bestSim := 0.0
		for _, g := range groups {
			if g.has(c.id()) {
				continue
			}
			sim := jaccard(g.rep.words, s.words)
			if sim >= threshold && sim > bestSim {
				best, bestSim = g, sim
			}
		}
		if best != nil {
			best.members = append(best.members, member{producerID: c.id(), similarity: bestSim})
			matched[i] = best
			anyMatch = true
		}
	}

	// last is the index of the group the previous segment landed in
	last := -1
	for i, s := range segs {
		if matched[i] != nil {
			last = slices.Index(groups, matched[i])
			continue
		}

		g := &group{rep: s, owner: c, members: []member{{producerID: c.id(), similarity: 1}}}
		at := len(groups)
		switch {
		case last >= 0:
			at = last + 1
		case anyMatch:
			at = slices.Index(groups, firstMatch(matched))
		}
		groups = slices.Insert(groups, at, g)
		last = at
	}
	return groups
}

func firstMatch(matched []*group) *group {
	for _, g := range matched {
		if g != nil {
			return g
		}
	}
	return nil
}
