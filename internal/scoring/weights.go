package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// weightTolerance is how far the weight sum may drift from 1.0
const weightTolerance = 1e-6

// Weights sets the importance of each metric dimension in the final score
type Weights struct {
	Completeness float64 `json:"completeness" yaml:"completeness" mapstructure:"completeness"`
	Text         float64 `json:"text" yaml:"text" mapstructure:"text"`
	Table        float64 `json:"table" yaml:"table" mapstructure:"table"`
	Structure    float64 `json:"structure" yaml:"structure" mapstructure:"structure"`
	Error        float64 `json:"error" yaml:"error" mapstructure:"error"`
	Time         float64 `json:"time" yaml:"time" mapstructure:"time"`
}

// DefaultWeights favour completeness, then text volume and clean runs
func DefaultWeights() Weights {
	return Weights{
		Completeness: 0.35,
		Text:         0.25,
		Table:        0.10,
		Structure:    0.10,
		Error:        0.15,
		Time:         0.05,
	}
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Completeness + w.Text + w.Table + w.Structure + w.Error + w.Time
}

// Validate fails when any weight is negative or not finite, or when the
// weights do not sum to 1.0
func (w Weights) Validate() error {
	for _, f := range w.fields() {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return NewConfigurationError("weights."+f.name, "must be a finite number")
		}
		if f.value < 0 {
			return NewConfigurationError("weights."+f.name, "must not be negative (got %g)", f.value)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return NewConfigurationError("weights", "must sum to 1.0 (got %.6f)", sum)
	}

	return nil
}

type weightField struct {
	name  string
	value float64
}

func (w Weights) fields() []weightField {
	return []weightField{
		{"completeness", w.Completeness},
		{"text", w.Text},
		{"table", w.Table},
		{"structure", w.Structure},
		{"error", w.Error},
		{"time", w.Time},
	}
}

// ParseWeights overrides the given weights from a "name=value,name=value" list
func ParseWeights(base Weights, spec string) (Weights, error) {
	w := base
	if strings.TrimSpace(spec) == "" {
		return w, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		name, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return w, NewConfigurationError("weights", "expected name=value, got %q", pair)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return w, NewConfigurationError("weights."+name, "invalid number %q", raw)
		}

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "completeness":
			w.Completeness = value
		case "text":
			w.Text = value
		case "table":
			w.Table = value
		case "structure":
			w.Structure = value
		case "error":
			w.Error = value
		case "time":
			w.Time = value
		default:
			return w, NewConfigurationError("weights", "unknown dimension %q", name)
		}
	}

	return w, nil
}

// String renders the weights in the same form ParseWeights accepts
func (w Weights) String() string {
	parts := make([]string, 0, 6)
	for _, f := range w.fields() {
		parts = append(parts, fmt.Sprintf("%s=%g", f.name, f.value))
	}
	return strings.Join(parts, ",")
}
