// Package server exposes the stamping pipeline over HTTP.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	docstamp "github.com/VantageDataChat/GoDocStamp"
)

// Server serves the document endpoints.
type Server struct {
	cfg      *docstamp.Config
	pipeline *docstamp.Pipeline
	logger   *slog.Logger
}

// New creates a Server. The pipeline carries the converter and stamp
// styling; cfg supplies paths, limits and default stamp inputs.
func New(cfg *docstamp.Config, pipeline *docstamp.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, pipeline: pipeline, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Post("/documents", s.handleDocuments)
	r.Post("/generate-documents/", s.handleGenerate)
	r.Get("/documents/{session}/{filename}", s.handleDownload)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	encodeWriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": docstamp.Version,
	})
}

func (s *Server) uploadLimit() int64 {
	return s.cfg.Server.UploadLimitMB << 20
}

// handleDocuments renders uploaded templates. One template answers with
// the PDF itself, several with a manifest.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())
	if err := r.ParseMultipartForm(s.uploadLimit()); err != nil {
		status := http.StatusBadRequest
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			status = http.StatusRequestEntityTooLarge
		}
		writeSimpleErrorJSON(w, status, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["templates"]
	if len(files) == 0 {
		writeSimpleErrorJSON(w, http.StatusBadRequest, "no templates uploaded")
		return
	}

	repl, err := s.formReplacements(r)
	if err != nil {
		writeSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := docstamp.NewSession(s.cfg.Server.OutputRoot, s.logger)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.Close()

	uploads, err := sess.ScratchDir("uploads")
	if err != nil {
		writeError(w, err)
		return
	}

	var templates []string
	for i, fh := range files {
		path, err := saveUpload(fh, filepath.Join(uploads, strconv.Itoa(i)))
		if err != nil {
			writeError(w, err)
			return
		}
		templates = append(templates, path)
	}

	in := s.cfg.StampInputs()
	if fhs := r.MultipartForm.File["qr"]; len(fhs) > 0 {
		if in.QRPath, err = saveUpload(fhs[0], filepath.Join(uploads, "qr")); err != nil {
			writeError(w, err)
			return
		}
	}
	if fhs := r.MultipartForm.File["logo"]; len(fhs) > 0 {
		if in.LogoPath, err = saveUpload(fhs[0], filepath.Join(uploads, "logo")); err != nil {
			writeError(w, err)
			return
		}
	}
	if v := r.FormValue("caption1"); v != "" {
		in.Caption[0] = v
	}
	if v := r.FormValue("caption2"); v != "" {
		in.Caption[1] = v
	}

	res, err := s.pipeline.RunBatch(r.Context(), templates, repl, in, sess.Dir)
	if err != nil {
		sess.Remove()
		writeError(w, err)
		return
	}

	if len(templates) == 1 {
		if len(res.Errors) > 0 {
			sess.Remove()
			writeError(w, res.Errors[0].Err)
			return
		}
		w.Header().Set("X-Docstamp-Session", sess.ID)
		if err := writePDFFile(w, res.Documents[0]); err != nil {
			writeError(w, err)
		}
		return
	}

	encodeWriteJSON(w, http.StatusOK, s.manifest(sess.ID, res))
}

// generateRequest is the body of POST /generate-documents/.
type generateRequest struct {
	JSONData map[string]any `json:"json_data"`
}

// handleGenerate renders every template of the configured templates
// directory with the posted replacements.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.uploadLimit()))
	dec.UseNumber()
	var req generateRequest
	if err := dec.Decode(&req); err != nil {
		writeSimpleErrorJSON(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	repl, err := docstamp.ReplacementsFromMap(req.JSONData)
	if err != nil {
		writeSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	templates, err := listTemplates(s.cfg.Server.TemplatesDir)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(templates) == 0 {
		writeSimpleErrorJSON(w, http.StatusBadRequest, "no .docx templates found")
		return
	}

	sess, err := docstamp.NewSession(s.cfg.Server.OutputRoot, s.logger)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.Close()

	res, err := s.pipeline.RunBatch(r.Context(), templates, repl, s.cfg.StampInputs(), sess.Dir)
	if err != nil {
		sess.Remove()
		writeError(w, err)
		return
	}
	encodeWriteJSON(w, http.StatusOK, s.manifest(sess.ID, res))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, err := url.PathUnescape(chi.URLParam(r, "session"))
	if err != nil {
		writeSimpleErrorJSON(w, http.StatusBadRequest, "malformed session id")
		return
	}
	filename, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		writeSimpleErrorJSON(w, http.StatusBadRequest, "malformed file name")
		return
	}

	path, err := docstamp.ResolveSessionFile(s.cfg.Server.OutputRoot, session, filename)
	if err != nil {
		writeError(w, err)
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeSimpleErrorJSON(w, http.StatusNotFound, "document not found")
		return
	}
	if err := writePDFFile(w, path); err != nil {
		writeError(w, err)
	}
}

// formReplacements reads the replacement map from the "data" field or the
// "data_file" upload. Neither yields an empty map.
func (s *Server) formReplacements(r *http.Request) (docstamp.Replacements, error) {
	if v := r.FormValue("data"); v != "" {
		return docstamp.DecodeReplacements(strings.NewReader(v))
	}
	if fhs := r.MultipartForm.File["data_file"]; len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			return nil, fmt.Errorf("opening data file: %w", err)
		}
		defer f.Close()
		return docstamp.DecodeReplacements(f)
	}
	return docstamp.Replacements{}, nil
}

func (s *Server) manifest(sessionID string, res *docstamp.BatchResult) Manifest {
	m := Manifest{
		SessionID:    sessionID,
		Documents:    []DocumentEntry{},
		Errors:       []ErrorEntry{},
		LogoFallback: res.LogoFallback,
	}
	for _, doc := range res.Documents {
		name := filepath.Base(doc)
		m.Documents = append(m.Documents, DocumentEntry{
			Filename: name,
			URL:      "/documents/" + url.PathEscape(sessionID) + "/" + url.PathEscape(name),
		})
	}
	for _, e := range res.Errors {
		m.Errors = append(m.Errors, ErrorEntry{
			Template: filepath.Base(e.Template),
			Status:   statusFor(e.Err),
			Error:    e.Err.Error(),
		})
	}
	return m
}

// saveUpload stores an uploaded file in dir under its base name.
func saveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(fh.Filename, `\`, "/")))
	if name == "/" || name == "." {
		name = "upload"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("saving upload: %w", err)
	}
	return path, dst.Close()
}

// listTemplates returns the .docx files of dir in name order.
func listTemplates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".docx") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
