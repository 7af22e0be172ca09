package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// UploadResponse lists the reports created from an uploaded records file
type UploadResponse struct {
	Message   string          `json:"message"`
	Documents int             `json:"documents"`
	Reports   []ReportSummary `json:"reports"`
}

// HandleUpload accepts a records file (json, jsonl, yaml or parquet) and
// compares every document in it with the server configuration
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	docs, err := loadUpload(file, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(docs) == 0 {
		h.writeError(w, "File contains no records", http.StatusBadRequest)
		return
	}

	// the whole upload is rejected if any document fails
	reports := make([]*compare.Report, 0, len(docs))
	for _, doc := range docs {
		rep, err := compare.Compare(doc.DocumentID, doc.Records, h.config)
		if err != nil {
			h.compareError(w, fmt.Errorf("document %s: %w", doc.DocumentID, err))
			return
		}
		reports = append(reports, rep)
	}

	response := UploadResponse{
		Message:   "Successfully compared " + header.Filename,
		Documents: len(reports),
	}
	for _, rep := range reports {
		h.reportStore.Set(rep)
		response.Reports = append(response.Reports, summarize(rep))
	}
	slog.Info("Upload compared", "filename", header.Filename, "documents", len(reports))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, response)
}

// loadUpload spools the upload to a temp file so the record loaders can
// pick the format from its extension
func loadUpload(src io.Reader, filename string) ([]record.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp("", "records-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	docs, err := record.LoadDocuments(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return docs, nil
}
