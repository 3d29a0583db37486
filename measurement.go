package docstamp

import "math"

// EMU (English Metric Units) and twip conversion helpers.
// 1 inch = 914400 EMU, 1 point = 12700 EMU, 1 cm = 360000 EMU.
// WordprocessingML page geometry uses twips: 1 inch = 1440 twips.

const (
	emuPerInch       = 914400
	emuPerPoint      = 12700
	emuPerCentimeter = 360000
	twipsPerInch     = 1440
	twipsPerPoint    = 20
	cmPerInch        = 2.54
	// maxEMU is the maximum safe EMU value to prevent overflow.
	maxEMU = math.MaxInt64 / 2
)

// Inch converts inches to EMU. Clamps to safe range.
func Inch(n float64) int64 {
	return clampEMU(n * emuPerInch)
}

// Points converts points to EMU.
func Points(n float64) int64 {
	return clampEMU(n * emuPerPoint)
}

// Centimeter converts centimeters to EMU.
func Centimeter(n float64) int64 {
	return clampEMU(n * emuPerCentimeter)
}

// EMUToInch converts EMU to inches.
func EMUToInch(emu int64) float64 {
	return float64(emu) / emuPerInch
}

// EMUToCentimeter converts EMU to centimeters.
func EMUToCentimeter(emu int64) float64 {
	return float64(emu) / emuPerCentimeter
}

// Twips is a length in twentieths of a point, the unit of w:pgMar and
// w:spacing attributes.
type Twips int64

// TwipsFromCentimeter converts centimeters to twips, rounding to the
// nearest twip.
func TwipsFromCentimeter(cm float64) Twips {
	return Twips(math.Round(cm / cmPerInch * twipsPerInch))
}

// TwipsFromPoint converts points to twips.
func TwipsFromPoint(pt float64) Twips {
	return Twips(math.Round(pt * twipsPerPoint))
}

// Centimeters returns the length in centimeters.
func (t Twips) Centimeters() float64 {
	return float64(t) / twipsPerInch * cmPerInch
}

// PixelsAt converts a physical length in inches to a pixel count at the
// given resolution.
func PixelsAt(inches, dpi float64) int {
	return int(math.Round(inches * dpi))
}

// clampEMU converts a float64 to int64, clamping to prevent overflow.
func clampEMU(v float64) int64 {
	if v > float64(maxEMU) {
		return maxEMU
	}
	if v < -float64(maxEMU) {
		return -maxEMU
	}
	return int64(math.Round(v))
}
