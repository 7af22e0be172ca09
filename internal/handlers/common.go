package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/scoring"
	"github.com/lehigh-university-libraries/extractcompare/internal/storage"
)

// maxBodyBytes caps request bodies and uploads
const maxBodyBytes = 32 << 20

type Handler struct {
	reportStore *storage.ReportStore
	config      compare.Config
}

// New creates a handler that compares with cfg unless a request overrides it
func New(store *storage.ReportStore, cfg compare.Config) *Handler {
	if store == nil {
		store = storage.New()
	}
	return &Handler{
		reportStore: store,
		config:      cfg,
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/compare", h.HandleCompare)
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/reports", h.HandleReports)
	mux.HandleFunc("/api/reports/", h.HandleReportDetail)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// compareError maps comparison failures onto status codes
func (h *Handler) compareError(w http.ResponseWriter, err error) {
	if errors.Is(err, scoring.ErrConfiguration) || errors.Is(err, compare.ErrDuplicateProducer) {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeError(w, "Comparison failed: "+err.Error(), http.StatusInternalServerError)
}

// Report helpers
func (h *Handler) getReportOrError(w http.ResponseWriter, reportID string) (*compare.Report, bool) {
	report, exists := h.reportStore.Get(reportID)
	if !exists {
		h.writeError(w, "Report not found", http.StatusNotFound)
		return nil, false
	}
	return report, true
}
