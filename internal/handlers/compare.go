package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/ensemble"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
)

// ConfigOverride replaces individual settings of the server configuration.
// Unset fields keep the server's value.
type ConfigOverride struct {
	Weights            *scoring.Weights `json:"weights,omitempty"`
	Strategy           string           `json:"strategy,omitempty"`
	TopK               *int             `json:"top_k,omitempty"`
	ConsensusThreshold *float64         `json:"consensus_threshold,omitempty"`
	Ensemble           *bool            `json:"ensemble,omitempty"`
}

// CompareRequest is the body of POST /api/compare
type CompareRequest struct {
	DocumentID string                    `json:"document_id"`
	Records    []record.ExtractionRecord `json:"records"`
	Config     *ConfigOverride           `json:"config,omitempty"`
}

func (o *ConfigOverride) apply(cfg compare.Config) (compare.Config, error) {
	if o == nil {
		return cfg, nil
	}
	if o.Weights != nil {
		cfg.Weights = *o.Weights
	}
	if o.Strategy != "" {
		s, err := ensemble.ParseStrategy(o.Strategy)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = s
	}
	if o.TopK != nil {
		cfg.TopK = *o.TopK
	}
	if o.ConsensusThreshold != nil {
		cfg.ConsensusThreshold = *o.ConsensusThreshold
	}
	if o.Ensemble != nil {
		cfg.Ensemble = *o.Ensemble
	}
	return cfg, nil
}

// HandleCompare compares the posted records and stores the report
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request CompareRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(request.Records) == 0 {
		h.writeError(w, "records are required", http.StatusBadRequest)
		return
	}

	cfg, err := request.Config.apply(h.config)
	if err != nil {
		h.compareError(w, err)
		return
	}

	report, err := compare.Compare(request.DocumentID, request.Records, cfg)
	if err != nil {
		h.compareError(w, err)
		return
	}
	h.reportStore.Set(report)

	winner, _ := report.Winner()
	slog.Info("Comparison complete",
		"report_id", report.ReportID,
		"document_id", report.DocumentID,
		"producers", len(report.Rankings),
		"winner", winner)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, report)
}
