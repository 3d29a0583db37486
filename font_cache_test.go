package docstamp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func TestFontCache_LoadFont_errors(t *testing.T) {
	t.Parallel()
	fc := NewIsolatedFontCache()
	dir := t.TempDir()

	require.Error(t, fc.LoadFont("house", filepath.Join(dir, "missing.ttf")))

	garbage := filepath.Join(dir, "garbage.ttf")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not sfnt"), 0o644))
	require.Error(t, fc.LoadFont("house", garbage))
	assert.Nil(t, fc.GetFace("house", 12))
}

func TestFontCache_Face_falls_back_to_basicfont(t *testing.T) {
	t.Parallel()
	face, family := NewIsolatedFontCache().Face([]string{"calibri", "arial"}, 40)
	require.NotNil(t, face)
	assert.Equal(t, basicfont.Face7x13, face)
	assert.Equal(t, "basicfont", family)
}
