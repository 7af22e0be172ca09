package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// EnvPrefix is prepended to every environment variable the config reads
const EnvPrefix = "EXTRACTCOMPARE"

// Config holds all application configuration.
type Config struct {
	Comparison ComparisonConfig
	Runner     RunnerConfig
	Server     ServerConfig
	Log        LogConfig
	Producers  []ProducerConfig
}

// ComparisonConfig holds scoring and ensemble settings.
type ComparisonConfig struct {
	Weights            scoring.Weights `mapstructure:"weights"`
	Strategy           string          `mapstructure:"strategy"`
	TopK               int             `mapstructure:"top_k"`
	ConsensusThreshold float64         `mapstructure:"consensus_threshold"`
	Ensemble           bool            `mapstructure:"ensemble"`
}

// RunnerConfig holds producer fan-out settings.
type RunnerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProducerConfig describes one model-backed producer.
type ProducerConfig struct {
	ID          string        `mapstructure:"id"`
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CompareConfig converts the comparison settings into a validated compare.Config
func (c *Config) CompareConfig() (compare.Config, error) {
	strategy, err := ensemble.ParseStrategy(c.Comparison.Strategy)
	if err != nil {
		return compare.Config{}, err
	}
	cfg := compare.Config{
		Weights:            c.Comparison.Weights,
		Strategy:           strategy,
		TopK:               c.Comparison.TopK,
		ConsensusThreshold: c.Comparison.ConsensusThreshold,
		Ensemble:           c.Comparison.Ensemble,
	}
	if err := cfg.Validate(); err != nil {
		return compare.Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	w := scoring.DefaultWeights()
	v.SetDefault("comparison.weights.completeness", w.Completeness)
	v.SetDefault("comparison.weights.text", w.Text)
	v.SetDefault("comparison.weights.table", w.Table)
	v.SetDefault("comparison.weights.structure", w.Structure)
	v.SetDefault("comparison.weights.error", w.Error)
	v.SetDefault("comparison.weights.time", w.Time)
	v.SetDefault("comparison.strategy", string(ensemble.BestOf))
	v.SetDefault("comparison.top_k", ensemble.DefaultTopK)
	v.SetDefault("comparison.consensus_threshold", ensemble.DefaultThreshold)
	v.SetDefault("comparison.ensemble", true)

	v.SetDefault("runner.concurrency", 4)
	v.SetDefault("runner.timeout", "5m")

	v.SetDefault("server.port", "8888")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from an optional YAML file and from environment
// variables with the EXTRACTCOMPARE_ prefix. Environment wins over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	_ = v.BindEnv("producers", EnvPrefix+"_PRODUCERS")

	cfg := &Config{}
	cfg.Comparison = ComparisonConfig{
		Weights: scoring.Weights{
			Completeness: v.GetFloat64("comparison.weights.completeness"),
			Text:         v.GetFloat64("comparison.weights.text"),
			Table:        v.GetFloat64("comparison.weights.table"),
			Structure:    v.GetFloat64("comparison.weights.structure"),
			Error:        v.GetFloat64("comparison.weights.error"),
			Time:         v.GetFloat64("comparison.weights.time"),
		},
		Strategy:           v.GetString("comparison.strategy"),
		TopK:               v.GetInt("comparison.top_k"),
		ConsensusThreshold: v.GetFloat64("comparison.consensus_threshold"),
		Ensemble:           v.GetBool("comparison.ensemble"),
	}
	cfg.Runner = RunnerConfig{
		Concurrency: v.GetInt("runner.concurrency"),
		Timeout:     v.GetDuration("runner.timeout"),
	}
	cfg.Server = ServerConfig{
		Port:            v.GetString("server.port"),
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	producers, err := loadProducers(v)
	if err != nil {
		return nil, err
	}
	cfg.Producers = producers

	return cfg, nil
}

// loadProducers accepts either a YAML list or a comma-separated
// id=provider:model string from the environment
func loadProducers(v *viper.Viper) ([]ProducerConfig, error) {
	if raw, ok := v.Get("producers").(string); ok {
		var out []ProducerConfig
		for _, spec := range strings.Split(raw, ",") {
			if strings.TrimSpace(spec) == "" {
				continue
			}
			p, err := ParseProducer(spec)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	var out []ProducerConfig
	if err := v.UnmarshalKey("producers", &out); err != nil {
		return nil, fmt.Errorf("failed to decode producers: %w", err)
	}
	for i, p := range out {
		if p.ID == "" || p.Provider == "" {
			return nil, fmt.Errorf("producer %d: id and provider are required", i)
		}
	}
	return out, nil
}

// ParseProducer parses "id=provider[:model]". The id defaults to the provider name.
func ParseProducer(spec string) (ProducerConfig, error) {
	spec = strings.TrimSpace(spec)
	id, rest, hasID := strings.Cut(spec, "=")
	if !hasID {
		rest, id = id, ""
	}
	provider, model, _ := strings.Cut(rest, ":")
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return ProducerConfig{}, fmt.Errorf("invalid producer %q: expected id=provider[:model]", spec)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = provider
	}
	return ProducerConfig{ID: id, Provider: provider, Model: strings.TrimSpace(model)}, nil
}
