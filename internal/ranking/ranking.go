package ranking

import (
	"math"
	"sort"
)

// scoreEpsilon is the distance under which two scores count as equal
const scoreEpsilon = 1e-9

// Entry is one scored producer awaiting a rank
type Entry struct {
	ProducerID       string  `json:"producer_id" yaml:"producer_id"`
	Score            float64 `json:"score" yaml:"score"`
	ErrorCount       int     `json:"error_count" yaml:"error_count"`
	ProcessingTimeMs int64   `json:"processing_time_ms" yaml:"processing_time_ms"`
	Failed           bool    `json:"failed" yaml:"failed"`
}

// Ranked is an entry with its competition rank (1 = best)
type Ranked struct {
	Entry
	Rank int `json:"rank" yaml:"rank"`
}

// Policy orders scored producers. The zero value is ready to use.
type Policy struct{}

// Rank orders the non-failed entries best first and assigns competition
// ranks. Failed entries are left out, so an all-failed document yields an
// empty slice.
func (Policy) Rank(entries []Entry) []Ranked {
	eligible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Failed {
			eligible = append(eligible, e)
		}
	}
	return rank(eligible, 0)
}

// RankAll ranks eligible entries first and then the failed ones, numbered
// after them, so every producer is listed.
func (p Policy) RankAll(entries []Entry) []Ranked {
	var failed []Entry
	for _, e := range entries {
		if e.Failed {
			failed = append(failed, e)
		}
	}

	ranked := p.Rank(entries)
	return append(ranked, rank(failed, len(ranked))...)
}

// Winner returns the best eligible entry, if any
func Winner(ranked []Ranked) (Ranked, bool) {
	for _, r := range ranked {
		if !r.Failed {
			return r, true
		}
	}
	return Ranked{}, false
}

// rank sorts entries and numbers them starting after offset
func rank(entries []Entry, offset int) []Ranked {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	out := make([]Ranked, len(sorted))
	for i, e := range sorted {
		r := offset + i + 1
		if i > 0 && tied(sorted[i-1], e) {
			r = out[i-1].Rank
		}
		out[i] = Ranked{Entry: e, Rank: r}
	}
	return out
}

// less is the total order: score desc, then fewer errors, then faster, then
// producer id
func less(a, b Entry) bool {
	if !scoresEqual(a.Score, b.Score) {
		return a.Score > b.Score
	}
	if a.ErrorCount != b.ErrorCount {
		return a.ErrorCount < b.ErrorCount
	}
	if a.ProcessingTimeMs != b.ProcessingTimeMs {
		return a.ProcessingTimeMs < b.ProcessingTimeMs
	}
	return a.ProducerID < b.ProducerID
}

// tied entries share a rank; the producer id only decides display order
func tied(a, b Entry) bool {
	return scoresEqual(a.Score, b.Score) &&
		a.ErrorCount == b.ErrorCount &&
		a.ProcessingTimeMs == b.ProcessingTimeMs
}

func scoresEqual(a, b float64) bool {
	return math.Abs(a-b) <= scoreEpsilon
}
