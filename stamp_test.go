package docstamp

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"

	"github.com/VantageDataChat/GoDocStamp/internal/docxtest"
)

// testComposer uses the built-in bitmap face so layouts do not depend on
// the fonts installed on the host.
func testComposer() *Composer {
	return NewComposer(nil, NewIsolatedFontCache(), nil)
}

var testCaption = [2]string{"Signed digitally.", "Verify with QR"}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestCompose_fixed_canvas(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)

	for i, caption := range [][2]string{
		{"", ""},
		testCaption,
		{strings.Repeat("very long caption ", 30), strings.Repeat("x", 500)},
	} {
		out := filepath.Join(dir, "stamp"+string(rune('a'+i))+".png")
		st, err := testComposer().Compose(StampInputs{QRPath: qr, Caption: caption}, out)
		require.NoError(t, err)

		assert.Equal(t, image.Pt(960, 225), st.Pixels)
		assert.Equal(t, Inch(3.2), st.Width)
		assert.Equal(t, Inch(0.75), st.Height)
		assert.Equal(t, image.Rect(0, 0, 960, 225), decodePNG(t, out).Bounds())
	}
}

func TestCompose_layout_geometry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)

	st, err := testComposer().Compose(StampInputs{QRPath: qr, Caption: testCaption}, filepath.Join(dir, "s.png"))
	require.NoError(t, err)

	l := st.Layout
	assert.Equal(t, "basicfont", l.Font)
	assert.Equal(t, image.Rect(6, 6, 954, 219), l.Border)
	assert.Equal(t, image.Rect(24, 24, 201, 201), l.QR, "QR is a square at the left of the padded border")
	assert.Equal(t, l.QR.Max.X+18, l.TextArea.Min.X)
	assert.Equal(t, testCaption[0], l.Lines[0].Text)
	assert.Equal(t, testCaption[1], l.Lines[1].Text)
	assert.Less(t, l.Lines[0].Origin.Y, l.Lines[1].Origin.Y)
	assert.Equal(t, l.TextArea.Min.X+l.Lines[1].Width+12, l.InlineX)

	img := decodePNG(t, st.Path)
	assert.Equal(t, uint32(0), alpha(img.At(0, 0)), "margin stays transparent")
	r, g, b, a := img.At(24, 24).RGBA()
	assert.Equal(t, [4]uint32{0, 0, 0, 0xffff}, [4]uint32{r, g, b, a}, "QR module pixels are opaque")
}

func alpha(c color.Color) uint32 {
	_, _, _, a := c.RGBA()
	return a
}

func TestCompose_logo_and_fallback_share_inline_position(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)
	logo := docxtest.WritePNG(t, dir, "logo.png", 40, 20)

	withLogo, err := testComposer().Compose(StampInputs{QRPath: qr, LogoPath: logo, Caption: testCaption}, filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	withoutLogo, err := testComposer().Compose(StampInputs{QRPath: qr, Caption: testCaption}, filepath.Join(dir, "b.png"))
	require.NoError(t, err)

	assert.False(t, withLogo.LogoFallback)
	assert.Nil(t, withLogo.Layout.Fallback)
	assert.True(t, withoutLogo.LogoFallback)
	require.NotNil(t, withoutLogo.Layout.Fallback)
	assert.Equal(t, "DocX", withoutLogo.Layout.Fallback.Text)

	assert.Equal(t, withLogo.Layout.InlineX, withoutLogo.Layout.InlineX)
	assert.Equal(t, withLogo.Layout.InlineX, withLogo.Layout.Logo.Min.X)
	assert.Equal(t, withoutLogo.Layout.InlineX, withoutLogo.Layout.Fallback.Origin.X)

	// The logo is scaled to the caption line height, keeping its aspect.
	assert.Equal(t, withLogo.Layout.LineHeight, withLogo.Layout.Logo.Dy())
	assert.Equal(t, 2*withLogo.Layout.LineHeight, withLogo.Layout.Logo.Dx())
	assert.True(t, withLogo.Layout.Logo.In(withLogo.Layout.TextArea))
}

func TestCompose_empty_second_line_puts_inline_at_text_start(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)

	st, err := testComposer().Compose(StampInputs{QRPath: qr, Caption: [2]string{"only one line", ""}}, filepath.Join(dir, "s.png"))
	require.NoError(t, err)
	assert.Equal(t, st.Layout.TextArea.Min.X, st.Layout.InlineX)
}

func TestCompose_long_caption_is_truncated(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)

	caption := [2]string{strings.Repeat("a", 300), strings.Repeat("b", 300)}
	st, err := testComposer().Compose(StampInputs{QRPath: qr, Caption: caption}, filepath.Join(dir, "s.png"))
	require.NoError(t, err)

	l := st.Layout
	for _, line := range l.Lines {
		assert.True(t, strings.HasSuffix(line.Text, "..."), line.Text)
		assert.LessOrEqual(t, line.Width, l.TextArea.Dx())
	}
	require.NotNil(t, l.Fallback)
	assert.LessOrEqual(t, l.Fallback.Origin.X+l.Fallback.Width, l.TextArea.Max.X)
}

func TestCompose_missing_qr_is_fatal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := testComposer().Compose(StampInputs{QRPath: filepath.Join(dir, "nope.png")}, filepath.Join(dir, "s.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAsset))

	var missing *MissingAssetError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "qr", missing.Asset)

	_, statErr := os.Stat(filepath.Join(dir, "s.png"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written")
}

func TestCompose_non_image_qr_is_rejected(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := filepath.Join(dir, "qr.png")
	require.NoError(t, os.WriteFile(qr, []byte("plain text, not a picture"), 0o644))

	_, err := testComposer().Compose(StampInputs{QRPath: qr}, filepath.Join(dir, "s.png"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingAsset))
}

func TestCompose_unusable_logo_degrades_to_fallback(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qr := docxtest.WritePNG(t, dir, "qr.png", 21, 21)
	notImage := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0o644))

	for _, logo := range []string{filepath.Join(dir, "missing.png"), notImage} {
		st, err := testComposer().Compose(StampInputs{QRPath: qr, LogoPath: logo, Caption: testCaption}, filepath.Join(dir, "s.png"))
		require.NoError(t, err, logo)
		assert.True(t, st.LogoFallback, logo)
	}
}

func TestTruncateToWidth(t *testing.T) {
	t.Parallel()
	face := basicfont.Face7x13 // 7 px per glyph

	assert.Equal(t, "abcdefghij", truncateToWidth(face, "abcdefghij", 70))
	assert.Equal(t, "ab...", truncateToWidth(face, "abcdefghij", 35))
	assert.Equal(t, "ab...", truncateToWidth(face, "ab   cdefgh", 35), "trailing spaces are trimmed before the ellipsis")
	assert.Equal(t, "", truncateToWidth(face, "abcdefghij", 10))
	assert.Equal(t, "", truncateToWidth(face, "", 0))
}
