package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/report"
)

// ReportSummary is the list view of a stored report
type ReportSummary struct {
	ReportID         string    `json:"report_id"`
	DocumentID       string    `json:"document_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	WinnerProducerID *string   `json:"winner_producer_id"`
	Producers        int       `json:"producers"`
	Strategy         string    `json:"strategy,omitempty"`
}

var contentTypes = map[string]string{
	".json":    "application/json",
	".yaml":    "application/yaml",
	".csv":     "text/csv",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".parquet": "application/vnd.apache.parquet",
}

func (h *Handler) HandleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reports := h.reportStore.List()
	summaries := make([]ReportSummary, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, summarize(rep))
	}
	h.writeJSON(w, summaries)
}

func (h *Handler) HandleReportDetail(w http.ResponseWriter, r *http.Request) {
	reportID := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if reportID == "" {
		h.writeError(w, "Report ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rep, ok := h.getReportOrError(w, reportID)
		if !ok {
			return
		}
		format := r.URL.Query().Get("format")
		if format == "" || format == "json" {
			h.writeJSON(w, rep)
			return
		}
		h.writeExport(w, rep, format)
	case http.MethodDelete:
		if !h.reportStore.Delete(reportID) {
			h.writeError(w, "Report not found", http.StatusNotFound)
			return
		}
		slog.Info("Report deleted", "report_id", reportID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeExport renders a report with one of the file writers
func (h *Handler) writeExport(w http.ResponseWriter, rep *compare.Report, format string) {
	ext := "." + strings.ToLower(format)
	write, err := report.Writer(ext)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, []*compare.Report{rep}); err != nil {
		h.writeError(w, "Failed to export report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+rep.ReportID+ext+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write report export", "report_id", rep.ReportID, "err", err)
	}
}

func summarize(rep *compare.Report) ReportSummary {
	s := ReportSummary{
		ReportID:         rep.ReportID,
		DocumentID:       rep.DocumentID,
		GeneratedAt:      rep.GeneratedAt,
		WinnerProducerID: rep.WinnerProducerID,
		Producers:        len(rep.Rankings),
	}
	if rep.EnsembleResult != nil {
		s.Strategy = string(rep.EnsembleResult.Strategy)
	}
	return s
}
