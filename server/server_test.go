package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlaction/jobstore"
)

func salesWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Full Name", "Region", "Amount", "Phone"},
		{"  Jane Doe ", "North", 10, "(123) 456-7890"},
		{"  Jane Doe ", "North", 10, "(123) 456-7890"},
		{"John Smith", "South", 5, "0801 234 5678"},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

type testEnv struct {
	srv   *Server
	store jobstore.Store
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }
	store, err := jobstore.NewDirStore(t.TempDir(), jobstore.WithClock(clock))
	require.NoError(t, err)
	env.store = store
	env.srv = New(store, WithClock(clock), WithMaxUploadBytes(1<<20))
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *testEnv) upload(t *testing.T) string {
	t.Helper()
	rec, body := e.do(t, uploadRequest(t, "sales.xlsx", salesWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["fileId"].(string)
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["status"])
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, uploadRequest(t, "sales.xlsx", salesWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "sales.xlsx", body["filename"])
	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, []any{"Sheet1"}, metadata["sheets"])
	assert.Equal(t, float64(1), metadata["sheetCount"])
	assert.Equal(t, "2024-05-02T09:00:00Z", body["expiresAt"])
}

func TestUpload_RejectsExtension(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, uploadRequest(t, "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "Invalid file type")
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, uploadRequest(t, "big.xlsx", bytes.Repeat([]byte("x"), 1<<20+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "File too large")
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)

	rec, body := env.do(t, formRequest("/api/preview", url.Values{"file_id": {id}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := body["preview"].(map[string]any)
	assert.Equal(t, []any{"Full Name", "Region", "Amount", "Phone"}, preview["headers"])
	assert.Equal(t, float64(3), preview["totalRows"])
	assert.Len(t, preview["rows"], 3)
	assert.Equal(t, []any{}, preview["issues"])
}

func TestPreview_UnknownFile(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, formRequest("/api/preview", url.Values{"file_id": {"0b6c5b8e-1111-4c1e-9d55-6f2f0f6c0a11"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParse(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, formRequest("/api/parse", url.Values{
		"request_text": {"Remove duplicates and clean the data"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Will perform 2 action(s)", body["summary"])

	plan := body["plan"].([]any)
	require.Len(t, plan, 2)
	assert.Equal(t, "remove_duplicates", plan[0].(map[string]any)["type"])
	assert.Equal(t, "trim_clean", plan[1].(map[string]any)["type"])
}

func TestParse_ValidatesAgainstFile(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)
	rec, body := env.do(t, formRequest("/api/parse", url.Values{
		"request_text": {"convert dates"},
		"file_id":      {id},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	issues := body["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "ERROR", issues[0].(map[string]any)["severity"])
}

func TestProcess_EmptyPlan(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)
	rec, body := env.do(t, formRequest("/api/process", url.Values{
		"file_id":      {id},
		"request_text": {"make it pretty"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Could not understand your request. Please be more specific.", body["detail"])
}

func TestProcess_AndDownload(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)

	rec, body := env.do(t, formRequest("/api/process", url.Values{
		"file_id":      {id},
		"request_text": {"Remove duplicates, clean data, and split the name"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", body["status"])

	results := body["results"].(map[string]any)
	assert.Equal(t, true, results["success"])
	assert.Equal(t, float64(3), results["actions_completed"])
	diff := body["diffSummary"].(map[string]any)
	assert.Equal(t, float64(3), diff["total_changes"])

	jobID := body["jobId"].(string)
	req := httptest.NewRequest(http.MethodGet, "/api/download/"+jobID, nil)
	dl := httptest.NewRecorder()
	env.srv.ServeHTTP(dl, req)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, xlsxContentType, dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), jobID+"_output.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(dl.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3, "duplicate removed")
	assert.Equal(t, []string{"Full Name", "Region", "Amount", "Phone", "First Name", "Last Name"}, rows[0])
	assert.Equal(t, "Jane Doe", rows[1][0])
	assert.Equal(t, "Jane", rows[1][4])
	assert.Equal(t, "Doe", rows[1][5])
}

func TestProcess_FailedStepReportsFailed(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)
	plan := `[{"type":"convert_dates","params":{"date_col":"Date"}},{"type":"remove_duplicates"}]`
	rec, body := env.do(t, formRequest("/api/process", url.Values{
		"file_id": {id},
		"plan":    {plan},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "failed", body["status"])
	results := body["results"].(map[string]any)
	assert.Equal(t, float64(1), results["actions_completed"])
	assert.Equal(t, []any{"Error in convert_dates: Column 'Date' not found"}, results["errors"])
}

func TestProcess_BadPlanJSON(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)
	rec, _ := env.do(t, formRequest("/api/process", url.Values{
		"file_id": {id},
		"plan":    {`[{"type":"split_column","params":{"colour":"red"}}]`},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/download/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Result file not found", body["detail"])
}

func TestCleanup(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t)

	env.now = env.now.Add(25 * time.Hour)
	rec, body := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["deletedFiles"])

	_, err := env.store.Stat(context.Background(), jobstore.KindUpload, id)
	assert.ErrorIs(t, err, jobstore.ErrNotFound)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
