// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/pipeline"
	"github.com/pdiddy/paper-reader/pkg/types"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultRunLimit = 20
)

type statusResponse struct {
	pipeline.Status
	LastRun *types.RunRecord `json:"last_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.guard.Status()}
	if h, err := s.history(); err == nil {
		rec, err := h.LastRun(r.Context())
		switch {
		case err == nil:
			resp.LastRun = &rec
		case !isNotFound(err):
			s.log.WithError(err).Warn("reading last run")
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// readOverrides accepts a JSON body or form fields. An empty body means
// no overrides.
func readOverrides(r *http.Request) (Overrides, error) {
	var o Overrides
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&o)
		if err != nil && !errors.Is(err, io.EOF) {
			return o, fmt.Errorf("decoding overrides: %w", err)
		}
	} else {
		// FormValue parses url-encoded and multipart bodies alike.
		o.OpenAIAPIKey = r.FormValue("openai_api_key")
		o.OpenAIBaseURL = r.FormValue("openai_base_url")
		o.ElsevierAPIKey = r.FormValue("elsevier_api_key")
	}
	o.OpenAIAPIKey = strings.TrimSpace(o.OpenAIAPIKey)
	o.OpenAIBaseURL = strings.TrimSpace(o.OpenAIBaseURL)
	o.ElsevierAPIKey = strings.TrimSpace(o.ElsevierAPIKey)
	return o, nil
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	o, err := readOverrides(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.guard.Start(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.cfg.Run(s.ctx, o, s.guard.SetRunID)
		if err != nil {
			s.log.WithError(err).Error("pipeline run failed")
		} else {
			s.log.WithFields(logrus.Fields{
				"run_id": res.RunID,
				"rows":   len(res.Rows),
				"export": res.ExportPath,
			}).Info("pipeline run finished")
		}
		s.guard.Finish(res.RunID, res.ExportPath, err)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	h, err := s.history()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []types.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runDetail struct {
	types.RunRecord
	Outcomes []types.Outcome `json:"outcomes"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	h, err := s.history()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := h.Run(r.Context(), id)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	outcomes, err := h.Outcomes(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []types.Outcome{}
	}
	writeJSON(w, http.StatusOK, runDetail{RunRecord: rec, Outcomes: outcomes})
}

func (s *Server) handleLatestExport(w http.ResponseWriter, r *http.Request) {
	path, err := pipeline.LatestExport(s.cfg.Paths.Exports)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "no export available")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleUploadIdentifiers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeError(w, http.StatusBadRequest, "identifier list must be an .xlsx file")
		return
	}
	if err := saveUpload(file, s.cfg.Paths.Identifiers); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.WithField("path", s.cfg.Paths.Identifiers).Info("identifier list uploaded")
	writeJSON(w, http.StatusOK, map[string]string{"path": s.cfg.Paths.Identifiers})
}

func (s *Server) handleUploadPDFs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart upload")
		return
	}

	var saved []string
	for _, fh := range r.MultipartForm.File["files"] {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") || name == "." || name == string(filepath.Separator) {
			continue
		}
		if err := saveFileHeader(fh, filepath.Join(s.cfg.Paths.Library, name)); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		saved = append(saved, name)
	}
	if len(saved) == 0 {
		writeError(w, http.StatusBadRequest, "no pdf files in upload")
		return
	}
	s.log.WithField("count", len(saved)).Info("pdfs uploaded")
	writeJSON(w, http.StatusOK, map[string][]string{"saved": saved})
}

func saveFileHeader(fh *multipart.FileHeader, dest string) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return saveUpload(f, dest)
}

func saveUpload(src io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return out.Close()
}
