package compare

import (
	"errors"

	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// Config is the immutable configuration of one comparison run
type Config struct {
	Weights            scoring.Weights   `json:"weights" yaml:"weights"`
	Strategy           ensemble.Strategy `json:"strategy" yaml:"strategy"`
	TopK               int               `json:"top_k" yaml:"top_k"`
	ConsensusThreshold float64           `json:"consensus_threshold" yaml:"consensus_threshold"`
	Ensemble           bool              `json:"ensemble" yaml:"ensemble"`
}

// DefaultConfig scores with the default weights and fuses with best_of
func DefaultConfig() Config {
	opts := ensemble.DefaultOptions()
	return Config{
		Weights:            scoring.DefaultWeights(),
		Strategy:           opts.Strategy,
		TopK:               opts.TopK,
		ConsensusThreshold: opts.Threshold,
		Ensemble:           true,
	}
}

// Validate returns every configuration problem at once
func (c Config) Validate() error {
	return errors.Join(c.Weights.Validate(), c.MergeOptions().Validate())
}

// MergeOptions returns the ensemble options carried by the config
func (c Config) MergeOptions() ensemble.Options {
	return ensemble.Options{
		Strategy:  c.Strategy,
		TopK:      c.TopK,
		Threshold: c.ConsensusThreshold,
	}
}
