package scoring

import (
	"fmt"

	"github.com/lehigh-university-libraries/extractcompare/internal/metrics"
)

// Breakdown holds the normalized value of each dimension for one record
type Breakdown struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Text         float64 `json:"text" yaml:"text"`
	Table        float64 `json:"table" yaml:"table"`
	Structure    float64 `json:"structure" yaml:"structure"`
	Error        float64 `json:"error" yaml:"error"`
	Time         float64 `json:"time" yaml:"time"`
}

// Engine scores metric sets relative to the other producers of the same document
type Engine struct {
	weights Weights
}

// NewEngine validates the weights up front so no score is ever computed with
// an invalid configuration
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// Weights returns the weights the engine was built with
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score returns a value in [0,1] for m, normalized over all. A failed
// record always scores 0.
func (e *Engine) Score(m metrics.MetricSet, all []metrics.MetricSet) float64 {
	if m.Failed() {
		return 0
	}
	return e.weighted(e.Breakdown(m, all))
}

// ScoreAll scores every metric set of a document. Normalization ranges are
// taken from the non-failed sets only; failed sets are pinned to 0.
func (e *Engine) ScoreAll(all []metrics.MetricSet) []float64 {
	population := make([]metrics.MetricSet, 0, len(all))
	for _, m := range all {
		if !m.Failed() {
			population = append(population, m)
		}
	}

	scores := make([]float64, len(all))
	for i, m := range all {
		scores[i] = e.Score(m, population)
	}
	return scores
}

// Breakdown returns the normalized per-dimension values of m
func (e *Engine) Breakdown(m metrics.MetricSet, all []metrics.MetricSet) Breakdown {
	if m.Failed() {
		return Breakdown{}
	}

	r := rangesOf(all)
	return Breakdown{
		Completeness: r.completeness.normalize(m.CompletenessRatio),
		Text: (r.textLength.normalize(float64(m.TextLength)) +
			r.wordCount.normalize(float64(m.WordCount))) / 2,
		Table:     r.tableCount.normalize(float64(m.TableCount)),
		Structure: r.structure.normalize(m.StructureDensity),
		Error:     r.errorCount.inverse(float64(m.ErrorCount)),
		Time:      r.processingTime.inverse(float64(m.ProcessingTimeMs)),
	}
}

func (e *Engine) weighted(b Breakdown) float64 {
	w := e.weights
	score := w.Completeness*b.Completeness +
		w.Text*b.Text +
		w.Table*b.Table +
		w.Structure*b.Structure +
		w.Error*b.Error +
		w.Time*b.Time
	return clamp01(score)
}

// bounds is the observed min/max of one dimension
type bounds struct {
	min, max float64
	seen     bool
}

func (b *bounds) add(v float64) {
	if !b.seen {
		b.min, b.max, b.seen = v, v, true
		return
	}
	if v < b.min {
		b.min = v
	}
	if v > b.max {
		b.max = v
	}
}

// normalize maps v into [0,1]. With no spread there is no discriminating
// signal, so every value normalizes to 1.
func (b bounds) normalize(v float64) float64 {
	if !b.seen || b.max == b.min {
		return 1.0
	}
	return clamp01((v - b.min) / (b.max - b.min))
}

// inverse is normalize for dimensions where lower is better
func (b bounds) inverse(v float64) float64 {
	if !b.seen || b.max == b.min {
		return 1.0
	}
	return 1 - b.normalize(v)
}

type ranges struct {
	completeness   bounds
	textLength     bounds
	wordCount      bounds
	tableCount     bounds
	structure      bounds
	errorCount     bounds
	processingTime bounds
}

func rangesOf(all []metrics.MetricSet) ranges {
	var r ranges
	for _, m := range all {
		r.completeness.add(m.CompletenessRatio)
		r.textLength.add(float64(m.TextLength))
		r.wordCount.add(float64(m.WordCount))
		r.tableCount.add(float64(m.TableCount))
		r.structure.add(m.StructureDensity)
		r.errorCount.add(float64(m.ErrorCount))
		r.processingTime.add(float64(m.ProcessingTimeMs))
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// String is used in debug logs
func (b Breakdown) String() string {
	return fmt.Sprintf("completeness=%.3f text=%.3f table=%.3f structure=%.3f error=%.3f time=%.3f",
		b.Completeness, b.Text, b.Table, b.Structure, b.Error, b.Time)
}
