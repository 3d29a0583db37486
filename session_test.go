package docstamp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSessionFile(t *testing.T) {
	t.Parallel()
	root := filepath.Join("srv", "output")

	path, err := ResolveSessionFile(root, "abc-123", "letter.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "abc-123", "letter.pdf"), path)

	for _, tc := range []struct{ session, file string }{
		{"..", "letter.pdf"},
		{"abc", ".."},
		{"abc", "../../etc/passwd"},
		{"abc", `..\secret.pdf`},
		{"abc", "sub/letter.pdf"},
		{"", "letter.pdf"},
		{"abc", ""},
		{"abc", "."},
		{"abc", "a\x00b.pdf"},
	} {
		_, err := ResolveSessionFile(root, tc.session, tc.file)
		require.Error(t, err, "%q/%q", tc.session, tc.file)
		assert.True(t, errors.Is(err, ErrPathTraversal))

		var pte *PathTraversalError
		require.True(t, errors.As(err, &pte))
	}
}

func TestSession_Close_keeps_outputs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	s, err := NewSession(root, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, s.ID), s.Dir)

	scratch, err := s.ScratchDir("uploads")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "in.docx"), []byte("x"), 0o644))
	tracked := filepath.Join(s.Dir, "tmp.bin")
	require.NoError(t, os.WriteFile(tracked, []byte("x"), 0o644))
	s.Track(tracked)
	out := filepath.Join(s.Dir, "letter.pdf")
	require.NoError(t, os.WriteFile(out, []byte("%PDF"), 0o644))

	require.NoError(t, s.Close())

	assert.NoDirExists(t, scratch)
	assert.NoFileExists(t, tracked)
	assert.FileExists(t, out)

	path, err := ResolveSessionFile(root, s.ID, "letter.pdf")
	require.NoError(t, err)
	assert.Equal(t, out, path)
}

func TestSession_Remove(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	s, err := NewSession(root, nil)
	require.NoError(t, err)
	_, err = s.ScratchDir("uploads")
	require.NoError(t, err)

	require.NoError(t, s.Remove())
	assert.NoDirExists(t, s.Dir)
	assert.DirExists(t, root)
}

func TestNewSession_unique_ids(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	a, err := NewSession(root, nil)
	require.NoError(t, err)
	b, err := NewSession(root, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
