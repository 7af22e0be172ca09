package comparecmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/config"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// compareFlags are the comparison overrides shared by compare, batch and extract
type compareFlags struct {
	strategy   string
	topK       int
	threshold  float64
	weights    string
	noEnsemble bool
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Ensemble strategy (best_of, weighted_concat or consensus)")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "Number of top ranked records weighted_concat joins")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Similarity threshold for consensus grouping, in (0,1]")
	cmd.Flags().StringVar(&f.weights, "weights", "", "Weight overrides, e.g. completeness=0.5,text=0.2,time=0.05")
	cmd.Flags().BoolVar(&f.noEnsemble, "no-ensemble", false, "Rank producers without building an ensemble result")
}

// apply layers the flags the user set on top of the loaded configuration
func (f *compareFlags) apply(cmd *cobra.Command, cfg *config.Config) (compare.Config, error) {
	c := cfg.Comparison
	flags := cmd.Flags()

	if flags.Changed("strategy") {
		c.Strategy = f.strategy
	}
	if flags.Changed("top-k") {
		c.TopK = f.topK
	}
	if flags.Changed("threshold") {
		c.ConsensusThreshold = f.threshold
	}
	if flags.Changed("weights") {
		w, err := scoring.ParseWeights(c.Weights, f.weights)
		if err != nil {
			return compare.Config{}, err
		}
		c.Weights = w
	}
	if f.noEnsemble {
		c.Ensemble = false
	}

	merged := *cfg
	merged.Comparison = c
	return merged.CompareConfig()
}
