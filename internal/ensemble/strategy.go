package ensemble

import (
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// Strategy selects how the ranked records are fused
type Strategy string

const (
	BestOf         Strategy = "best_of"
	WeightedConcat Strategy = "weighted_concat"
	Consensus      Strategy = "consensus"
)

const (
	DefaultTopK      = 2
	DefaultThreshold = 0.6
)

// Strategies lists every supported strategy
func Strategies() []Strategy {
	return []Strategy{BestOf, WeightedConcat, Consensus}
}

// ParseStrategy resolves a strategy name. Unknown names are a configuration error.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case BestOf, WeightedConcat, Consensus:
		return s, nil
	case "":
		return BestOf, nil
	default:
		return "", scoring.NewConfigurationError("strategy", "unknown strategy %q (expected best_of, weighted_concat or consensus)", name)
	}
}

// Options configure a merge
type Options struct {
	Strategy  Strategy `json:"strategy" yaml:"strategy"`
	TopK      int      `json:"top_k" yaml:"top_k"`
	Threshold float64  `json:"consensus_threshold" yaml:"consensus_threshold"`
}

// DefaultOptions returns best_of with the default top-K and threshold
func DefaultOptions() Options {
	return Options{Strategy: BestOf, TopK: DefaultTopK, Threshold: DefaultThreshold}
}

// Validate rejects unknown strategies, a top-K below 1 and thresholds
// outside (0,1]
func (o Options) Validate() error {
	if _, err := ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if o.TopK < 1 {
		return scoring.NewConfigurationError("top_k", "must be at least 1 (got %d)", o.TopK)
	}
	if !(o.Threshold > 0 && o.Threshold <= 1) {
		return scoring.NewConfigurationError("consensus_threshold", "must be in (0,1] (got %g)", o.Threshold)
	}
	return nil
}

// required is the number of non-failed records a strategy needs
func (o Options) required() int {
	switch o.Strategy {
	case WeightedConcat:
		return o.TopK
	case Consensus:
		return 2
	default:
		return 1
	}
}
