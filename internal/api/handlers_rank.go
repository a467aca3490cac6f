package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgallion1/docrank/internal/pipeline"
)

const formOverhead = 1024 * 1024

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+formOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	raw, err := descriptorField(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	desc, err := pipeline.ParseDescriptor(raw, "descriptor")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	src := pipeline.MemorySource{}
	for _, fh := range r.MultipartForm.File["files"] {
		name := sanitizeFilename(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open "+name, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			jsonError(w, "failed to read "+name, http.StatusBadRequest)
			return
		}
		src[name] = data
	}

	run := pipeline.NewRun()
	s.runs.Put(run)
	rec, err := s.runner.Run(r.Context(), run, desc, src)
	if err != nil {
		s.log.Error("rank failed", zap.String("run_id", run.ID), zap.Error(err))
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	snap := run.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"excluded": snap.Progress.Excluded,
		"dropped":  snap.Progress.Dropped,
		"result":   rec,
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.runs.Get(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(run.Snapshot())
}

// descriptorField reads the descriptor from a form value or an uploaded part.
func descriptorField(r *http.Request) ([]byte, error) {
	if v := r.FormValue("descriptor"); v != "" {
		return []byte(v), nil
	}
	f, _, err := r.FormFile("descriptor")
	if err != nil {
		return nil, errors.New("descriptor is required")
	}
	defer f.Close()
	return io.ReadAll(f)
}

func statusFor(err error) int {
	var (
		inErr  *pipeline.InputError
		budget *pipeline.BudgetExceeded
		capErr *pipeline.CapabilityError
	)
	switch {
	case errors.As(err, &inErr):
		return http.StatusBadRequest
	case errors.As(err, &budget):
		return http.StatusGatewayTimeout
	case errors.As(err, &capErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sanitizeFilename keys an upload by its base name, the form descriptor
// filenames must take.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		name = "unnamed"
	}
	return name
}
