package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	docstamp "github.com/VantageDataChat/GoDocStamp"
)

// Message is the error payload.
type Message struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// Manifest describes the outcome of a multi-document request.
type Manifest struct {
	SessionID    string          `json:"session_id"`
	Documents    []DocumentEntry `json:"documents"`
	Errors       []ErrorEntry    `json:"errors"`
	LogoFallback bool            `json:"logo_fallback"`
}

// DocumentEntry is one rendered document.
type DocumentEntry struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ErrorEntry is one failed template.
type ErrorEntry struct {
	Template string `json:"template"`
	Status   int    `json:"status"`
	Error    string `json:"error"`
}

// encodeWriteJSON writes payload as JSON with the given status.
func encodeWriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status) // headers are frozen from here on
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}

func writeSimpleErrorJSON(w http.ResponseWriter, status int, msg string) {
	encodeWriteJSON(w, status, Message{Type: "error", Message: msg})
}

// writeError maps err to its status code and writes it.
func writeError(w http.ResponseWriter, err error) {
	writeSimpleErrorJSON(w, statusFor(err), err.Error())
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, docstamp.ErrMissingAsset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, docstamp.ErrInvalidTemplate):
		return http.StatusBadRequest
	case errors.Is(err, docstamp.ErrPathTraversal):
		return http.StatusBadRequest
	case errors.Is(err, docstamp.ErrConversionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, docstamp.ErrConversion):
		return http.StatusBadGateway
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writePDFFile streams a PDF inline.
func writePDFFile(w http.ResponseWriter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	w.WriteHeader(http.StatusOK) // headers are frozen from here on
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("writing PDF response", "path", path, "error", err)
	}
	return nil
}
