package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/storage"
)

const compareBody = `{
  "document_id": "doc-1",
  "records": [
    {"producer_id": "ocr", "status": "ok", "text": "Chapter one\n\nThe quick brown fox", "page_count_observed": 2, "page_count_expected": 2, "processing_time_ms": 40},
    {"producer_id": "model", "status": "partial", "text": "Chapter one", "error_messages": ["page 2 missing"], "page_count_observed": 1, "page_count_expected": 2, "processing_time_ms": 900},
    {"producer_id": "pdf", "status": "failed", "error_messages": ["encrypted PDF"]}
  ]
}`

func newTestServer(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()
	h := New(storage.New(), compare.DefaultConfig())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return h, srv
}

func postCompare(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/compare", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleCompare(t *testing.T) {
	h, srv := newTestServer(t)

	resp := postCompare(t, srv, compareBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var report compare.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "doc-1", report.DocumentID)
	require.Len(t, report.Rankings, 3)
	assert.Equal(t, "pdf", report.Rankings[2].ProducerID)
	assert.Equal(t, 3, report.Rankings[2].Rank)
	require.NotNil(t, report.WinnerProducerID)
	assert.Equal(t, "ocr", *report.WinnerProducerID)

	stored, ok := h.reportStore.Get(report.ReportID)
	require.True(t, ok)
	assert.Equal(t, "doc-1", stored.DocumentID)
}

func TestHandleCompare_ConfigOverride(t *testing.T) {
	_, srv := newTestServer(t)

	body := strings.Replace(compareBody, `"document_id": "doc-1",`,
		`"document_id": "doc-1", "config": {"strategy": "weighted_concat", "top_k": 2},`, 1)
	resp := postCompare(t, srv, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var report compare.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.NotNil(t, report.EnsembleResult)
	assert.Equal(t, "weighted_concat", string(report.EnsembleResult.Strategy))
	assert.Equal(t, []string{"ocr", "model"}, report.EnsembleResult.Contributors)
}

func TestHandleCompare_BadRequests(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"records": [`},
		{"no records", `{"document_id": "doc-1", "records": []}`},
		{"unknown strategy", `{"records": [{"producer_id": "a", "status": "ok", "text": "x"}], "config": {"strategy": "vote"}}`},
		{"top k below one", `{"records": [{"producer_id": "a", "status": "ok", "text": "x"}], "config": {"top_k": 0}}`},
		{"threshold out of range", `{"records": [{"producer_id": "a", "status": "ok", "text": "x"}], "config": {"consensus_threshold": 1.5}}`},
		{"weights do not sum to one", `{"records": [{"producer_id": "a", "status": "ok", "text": "x"}], "config": {"weights": {"completeness": 1, "text": 1}}}`},
		{"duplicate producer", `{"records": [{"producer_id": "a", "status": "ok", "text": "x"}, {"producer_id": "a", "status": "ok", "text": "y"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCompare(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleCompare_MethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/compare")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleReports(t *testing.T) {
	_, srv := newTestServer(t)

	postCompare(t, srv, compareBody)
	postCompare(t, srv, strings.Replace(compareBody, "doc-1", "doc-2", 1))

	resp, err := http.Get(srv.URL + "/api/reports")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []ReportSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, 3, s.Producers)
		require.NotNil(t, s.WinnerProducerID)
		assert.Equal(t, "best_of", s.Strategy)
	}
}

func TestHandleReportDetail(t *testing.T) {
	_, srv := newTestServer(t)

	var created compare.Report
	require.NoError(t, json.NewDecoder(postCompare(t, srv, compareBody).Body).Decode(&created))
	url := srv.URL + "/api/reports/" + created.ReportID

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got compare.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.ReportID, got.ReportID)

	csvResp, err := http.Get(url + "?format=csv")
	require.NoError(t, err)
	defer csvResp.Body.Close()
	require.Equal(t, http.StatusOK, csvResp.StatusCode)
	assert.Equal(t, "text/csv", csvResp.Header.Get("Content-Type"))
	rows, err := csv.NewReader(csvResp.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	badFormat, err := http.Get(url + "?format=txt")
	require.NoError(t, err)
	defer badFormat.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badFormat.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	missing, err := http.Get(url)
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func uploadFile(t *testing.T, srv *httptest.Server, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleUpload(t *testing.T) {
	h, srv := newTestServer(t)

	content := `[
  {"document_id": "d1", "producer_id": "a", "status": "ok", "text": "one two three"},
  {"document_id": "d1", "producer_id": "b", "status": "ok", "text": "one two"},
  {"document_id": "d2", "producer_id": "a", "status": "failed", "error_messages": ["timeout"]}
]`
	resp := uploadFile(t, srv, "records.json", content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Documents)
	require.Len(t, out.Reports, 2)
	assert.Equal(t, "d1", out.Reports[0].DocumentID)
	assert.Nil(t, out.Reports[1].WinnerProducerID)
	assert.Equal(t, 2, h.reportStore.Len())
}

func TestHandleUpload_Rejects(t *testing.T) {
	_, srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, uploadFile(t, srv, "records.txt", "hello").StatusCode)
	assert.Equal(t, http.StatusBadRequest, uploadFile(t, srv, "records.json", "not json").StatusCode)
}

func TestHealthcheck(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
