package docstamp

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// scratch tracks intermediate files and removes them on release.
// Removal errors are logged and otherwise ignored.
type scratch struct {
	mu     sync.Mutex
	paths  []string
	logger *slog.Logger
}

func (s *scratch) track(path string) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
}

func (s *scratch) release() {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	for i := len(paths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(paths[i]); err != nil {
			s.logger.Debug("cleanup failed", "path", paths[i], "error", err)
		}
	}
}

// Session is a per-request workspace: a fresh directory under a shared
// output root. Uploaded inputs are tracked as scratch and removed by
// Close; rendered documents stay until the caller removes the session.
type Session struct {
	ID  string
	Dir string

	scratch scratch
}

// NewSession creates a session directory under root.
func NewSession(root string, logger *slog.Logger) (*Session, error) {
	const errCtx = "creating session"

	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	s := &Session{ID: id, Dir: dir}
	s.scratch.logger = logger
	return s, nil
}

// ScratchDir creates a directory inside the session for intermediate
// files. It is removed by Close.
func (s *Session) ScratchDir(name string) (string, error) {
	dir := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	s.scratch.track(dir)
	return dir, nil
}

// Track registers path for removal by Close.
func (s *Session) Track(path string) {
	s.scratch.track(path)
}

// Close removes every tracked file. It never fails.
func (s *Session) Close() error {
	s.scratch.release()
	return nil
}

// Remove deletes the whole session directory.
func (s *Session) Remove() error {
	s.scratch.release()
	return os.RemoveAll(s.Dir)
}

// ResolveSessionFile maps a session id and a file name to a path under
// root. Identifiers that are empty or could escape root are rejected with
// *PathTraversalError.
func ResolveSessionFile(root, sessionID, filename string) (string, error) {
	for _, id := range []string{sessionID, filename} {
		if !safeIdentifier(id) {
			return "", &PathTraversalError{Identifier: id}
		}
	}
	return filepath.Join(root, sessionID, filename), nil
}

func safeIdentifier(id string) bool {
	if id == "" || id == "." {
		return false
	}
	return !strings.Contains(id, "..") && !strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}
