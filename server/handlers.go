package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/javajack/xlaction"
	"github.com/javajack/xlaction/jobstore"
)

// AllowedExtensions are the upload file types accepted.
var AllowedExtensions = []string{".xlsx", ".xlsm", ".xls"}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errUnderstood is returned when a request yields an empty plan.
const errUnderstood = "Could not understand your request. Please be more specific."

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"detail": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"detail": msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	s.opts.logger.Error(prefix, zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "xlaction",
		"status":  "running",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"upload":   "/api/upload",
			"preview":  "/api/preview",
			"parse":    "/api/parse",
			"process":  "/api/process",
			"download": "/api/download/{job_id}",
			"cleanup":  "/api/cleanup",
		},
	})
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.maxUpload
	tooLarge := fmt.Sprintf("File too large. Maximum size is %dMB.", limit>>20)

	// Leave headroom for the multipart envelope; the file itself is
	// checked against the exact limit below.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, tooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "A spreadsheet file is required in the \"file\" field.")
		return
	}
	defer file.Close()

	if !allowedExtension(header.Filename) {
		writeError(w, http.StatusBadRequest, "Invalid file type. Only .xlsx, .xlsm, and .xls files are allowed.")
		return
	}
	if header.Size > limit {
		writeError(w, http.StatusBadRequest, tooLarge)
		return
	}

	obj, err := s.store.Put(r.Context(), jobstore.KindUpload, header.Filename, file)
	if err != nil {
		s.internalError(w, r, "Upload failed", err)
		return
	}

	// Workbook metadata is best effort: legacy .xls files are stored but
	// cannot be opened here.
	metadata := map[string]any{}
	if wb, err := s.openUpload(r, obj.ID); err == nil {
		names := wb.SheetNames()
		metadata["sheets"] = names
		metadata["sheetCount"] = len(names)
		wb.Close()
	}

	s.opts.logger.Info("File uploaded",
		zap.String("file_id", obj.ID),
		zap.String("filename", obj.Filename),
		zap.Int64("size", obj.Size))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"fileId":     obj.ID,
		"filename":   obj.Filename,
		"fileSize":   obj.Size,
		"metadata":   metadata,
		"uploadedAt": obj.CreatedAt.Format(time.RFC3339),
		"expiresAt":  obj.ExpiresAt.Format(time.RFC3339),
	})
}

// openUpload loads an uploaded workbook into memory.
func (s *Server) openUpload(r *http.Request, id string) (*xlaction.Workbook, error) {
	rc, _, err := s.store.Open(r.Context(), jobstore.KindUpload, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return xlaction.OpenReader(rc)
}

// uploadFromForm loads the workbook named by the file_id form field and
// writes the error response itself when that fails.
func (s *Server) uploadFromForm(w http.ResponseWriter, r *http.Request) (*xlaction.Workbook, bool) {
	id := r.FormValue("file_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return nil, false
	}
	wb, err := s.openUpload(r, id)
	if errors.Is(err, jobstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, "Could not open workbook", err)
		return nil, false
	}
	return wb, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	wb, ok := s.uploadFromForm(w, r)
	if !ok {
		return
	}
	defer wb.Close()

	preview, err := xlaction.PreviewSheet(wb, r.FormValue("sheet"), xlaction.DefaultPreviewRows)
	if errors.Is(err, xlaction.ErrSheetNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, "Preview failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"preview": preview,
	})
}

// planFromForm reads the plan field as JSON, or interprets request_text.
func (s *Server) planFromForm(r *http.Request) (xlaction.Plan, error) {
	if raw := r.FormValue("plan"); raw != "" {
		return xlaction.ParsePlanJSON([]byte(raw))
	}
	return s.opts.interpreter.Interpret(r.FormValue("request_text")), nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := map[string]any{
		"success": true,
		"plan":    plan,
		"summary": fmt.Sprintf("Will perform %d action(s)", len(plan)),
	}

	// With a file the plan is also checked against its headers.
	if r.FormValue("file_id") != "" {
		wb, ok := s.uploadFromForm(w, r)
		if !ok {
			return
		}
		issues := xlaction.ValidatePlan(wb, plan)
		wb.Close()
		if issues == nil {
			issues = []xlaction.ValidationIssue{}
		}
		resp["issues"] = issues
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(plan) == 0 {
		writeError(w, http.StatusBadRequest, errUnderstood)
		return
	}

	wb, ok := s.uploadFromForm(w, r)
	if !ok {
		return
	}
	defer wb.Close()

	start := time.Now()
	result, diff := xlaction.Execute(wb, plan, xlaction.WithLogger(s.opts.logger))

	var out bytes.Buffer
	if err := wb.Write(&out); err != nil {
		s.internalError(w, r, "Processing failed", err)
		return
	}
	obj, err := s.store.Put(r.Context(), jobstore.KindOutput, "output.xlsx", &out)
	if err != nil {
		s.internalError(w, r, "Processing failed", err)
		return
	}
	elapsed := time.Since(start)

	status := "completed"
	if !result.Success {
		status = "failed"
	}
	s.opts.logger.Info("Plan executed",
		zap.String("job_id", obj.ID),
		zap.Int("steps", len(plan)),
		zap.Int("completed", result.ActionsCompleted),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", elapsed))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"jobId":           obj.ID,
		"status":          status,
		"plan":            plan,
		"results":         result,
		"diffSummary":     diff,
		"executionTimeMs": elapsed.Milliseconds(),
		"completedAt":     s.opts.now().Format(time.RFC3339),
		"expiresAt":       obj.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rc, obj, err := s.store.Open(r.Context(), jobstore.KindOutput, jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Result file not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "Download failed", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_output.xlsx"`, obj.ID))
	w.Header().Set("Content-Length", fmt.Sprint(obj.Size))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.opts.logger.Warn("Download interrupted", zap.String("job_id", obj.ID), zap.Error(err))
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := s.Sweep(r.Context())
	if err != nil {
		s.internalError(w, r, "Cleanup failed", err)
		return
	}
	s.opts.logger.Info("Expired files removed", zap.Int("deleted", n))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedFiles": n,
		"timestamp":    s.opts.now().Format(time.RFC3339),
	})
}
