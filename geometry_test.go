package docstamp

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashSpans_cover_path_without_overrun(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		total, dash, gap float64
		want             int
	}{
		{total: 100, dash: 16, gap: 9, want: 4},
		{total: 25, dash: 16, gap: 9, want: 1},
		{total: 26, dash: 16, gap: 9, want: 2},
		{total: 3, dash: 16, gap: 9, want: 1},
	} {
		spans := dashSpans(tc.total, tc.dash, tc.gap)
		require.Len(t, spans, tc.want, "total %v", tc.total)
		assert.Equal(t, 0.0, spans[0].start)
		for i, s := range spans {
			assert.Greater(t, s.end, s.start, "span %d has no length", i)
			assert.LessOrEqual(t, s.end, tc.total)
			assert.LessOrEqual(t, s.end-s.start, tc.dash)
			if i > 0 {
				assert.InDelta(t, tc.gap, s.start-spans[i-1].start-tc.dash, 1e-9)
			}
		}
	}
}

func TestDashSpans_degenerate_patterns(t *testing.T) {
	t.Parallel()

	assert.Nil(t, dashSpans(100, 0, 9), "no dash draws nothing")
	assert.Nil(t, dashSpans(0, 16, 9), "empty path draws nothing")
	assert.Equal(t, []span{{0, 100}}, dashSpans(100, 16, 0), "no gap is solid")
	assert.Equal(t, []span{{0, 100}}, dashSpans(100, 16, -1))
}

func TestArcDashes_sample_within_arc(t *testing.T) {
	t.Parallel()

	dashes := arcDashes(270, 360, 20, 10, 2)
	require.Len(t, dashes, 3)
	for _, angles := range dashes {
		require.GreaterOrEqual(t, len(angles), 2)
		for _, a := range angles {
			assert.GreaterOrEqual(t, a, 270.0)
			assert.LessOrEqual(t, a, 360.0)
		}
	}
	assert.Equal(t, 270.0, dashes[0][0])
	assert.Equal(t, 300.0, dashes[1][0])
	assert.Len(t, dashes[0], 11)
}

func TestArcDashes_end_at_dash_end(t *testing.T) {
	t.Parallel()

	dashes := arcDashes(0, 90, 5, 3, 2)
	require.NotEmpty(t, dashes)
	assert.Equal(t, []float64{0, 2, 4, 5}, dashes[0])
	assert.Equal(t, []float64{8, 10, 12, 13}, dashes[1])
	for _, angles := range dashes {
		assert.LessOrEqual(t, angles[len(angles)-1], 90.0)
	}
}

func TestArcDashes_drop_single_sample_dashes(t *testing.T) {
	t.Parallel()

	assert.Empty(t, arcDashes(0, 90, 1, 10, 2))
	assert.Nil(t, arcDashes(90, 90, 10, 10, 2))
	assert.Nil(t, arcDashes(0, 90, 10, 10, 0))
}

func TestCanvas_starts_transparent(t *testing.T) {
	t.Parallel()

	c := NewCanvas(40, 20)
	assert.Equal(t, image.Rect(0, 0, 40, 20), c.Bounds())
	assert.Equal(t, color.RGBA{}, c.Image().RGBAAt(10, 10))
}

func TestCanvas_RoundedRectFill_leaves_corners_clear(t *testing.T) {
	t.Parallel()

	c := NewCanvas(100, 60)
	c.RoundedRectFill(image.Rect(0, 0, 100, 60), 20, color.White)

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, c.Image().RGBAAt(50, 30))
	assert.Equal(t, uint8(0), c.Image().RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), c.Image().RGBAAt(99, 59).A)
}

func TestCanvas_DashedLine_alternates(t *testing.T) {
	t.Parallel()

	c := NewCanvas(100, 10)
	c.DashedLine(Point{0, 5}, Point{100, 5}, 10, 10, color.Black, 4)

	img := c.Image()
	assert.Greater(t, img.RGBAAt(5, 5).A, uint8(250), "inside first dash")
	assert.Equal(t, uint8(0), img.RGBAAt(15, 5).A, "inside first gap")
	assert.Greater(t, img.RGBAAt(25, 5).A, uint8(250), "inside second dash")
}

func TestCanvas_DashedRoundedRect_stays_inside_rect(t *testing.T) {
	t.Parallel()

	c := NewCanvas(120, 60)
	r := image.Rect(10, 10, 110, 50)
	c.DashedRoundedRect(r, 12, 16, 9, color.Black, 3)

	img := c.Image()
	var inked int
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			inked++
			assert.True(t, image.Pt(x, y).In(r), "ink outside rect at %d,%d", x, y)
		}
	}
	assert.Positive(t, inked)
	assert.Equal(t, uint8(0), img.RGBAAt(60, 30).A, "interior untouched")
}
