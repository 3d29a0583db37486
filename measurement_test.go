package docstamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMUConversions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(914400), Inch(1))
	assert.Equal(t, int64(12700), Points(1))
	assert.Equal(t, int64(360000), Centimeter(1))
	assert.InDelta(t, 2.0, EMUToInch(Inch(2)), 1e-9)
	assert.InDelta(t, 3.5, EMUToCentimeter(Centimeter(3.5)), 1e-9)
	assert.Equal(t, int64(maxEMU), Inch(1e30))
	assert.Equal(t, int64(-maxEMU), Inch(-1e30))
}

func TestTwips(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Twips(1134), TwipsFromCentimeter(2))
	assert.Equal(t, Twips(850), TwipsFromCentimeter(1.5))
	assert.Equal(t, Twips(240), TwipsFromPoint(12))
	assert.InDelta(t, 2.54, Twips(1440).Centimeters(), 1e-9)
}

func TestPixelsAt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 960, PixelsAt(3.2, 300))
	assert.Equal(t, 225, PixelsAt(0.75, 300))
}
