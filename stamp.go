package docstamp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// StampOptions configures the footer stamp image. Lengths without a unit
// are pixels at DPI.
type StampOptions struct {
	// WidthInches and HeightInches are the physical stamp size.
	// Default: 3.2 x 0.75.
	WidthInches  float64
	HeightInches float64
	// DPI is the raster resolution. Default: 300.
	DPI float64
	// Margin is the transparent band between the canvas edge and the border.
	Margin int
	// Padding separates the border from the QR code and the caption.
	Padding      int
	CornerRadius float64
	BorderColor  Color
	BorderWidth  float64
	// Dash and Gap are the border dash pattern, measured along the edges.
	Dash float64
	Gap  float64
	// FontFamilies are tried in order before the built-in fallbacks.
	FontFamilies []string
	FontSizePt   float64
	TextColor    Color
	// LineSpacing is the vertical gap between the two caption lines.
	LineSpacing int
	// LogoScale is the logo height relative to the caption line height.
	LogoScale float64
	// InlineGap separates caption line 2 from the logo or fallback text.
	InlineGap int
	// LogoFallbackText replaces the logo when none is available.
	LogoFallbackText string
}

// DefaultStampOptions returns the default stamp geometry.
func DefaultStampOptions() *StampOptions {
	return &StampOptions{
		WidthInches:      3.2,
		HeightInches:     0.75,
		DPI:              300,
		Margin:           6,
		Padding:          18,
		CornerRadius:     28,
		BorderColor:      ColorDarkGray,
		BorderWidth:      3,
		Dash:             16,
		Gap:              9,
		FontFamilies:     []string{"calibri", "arial"},
		FontSizePt:       7.5,
		TextColor:        ColorBlack,
		LineSpacing:      10,
		LogoScale:        1.0,
		InlineGap:        12,
		LogoFallbackText: "DocX",
	}
}

// PixelSize returns the canvas size in pixels.
func (o *StampOptions) PixelSize() image.Point {
	return image.Pt(PixelsAt(o.WidthInches, o.DPI), PixelsAt(o.HeightInches, o.DPI))
}

// StampInputs are the externally supplied stamp assets.
type StampInputs struct {
	QRPath   string
	LogoPath string // optional
	Caption  [2]string
}

// Stamp is a rendered stamp image on disk.
type Stamp struct {
	Path string
	// Width and Height are the physical size in EMU.
	Width  int64
	Height int64
	Pixels image.Point
	Layout StampLayout
	// LogoFallback is set when the logo was missing or unreadable and the
	// fallback text was rendered instead.
	LogoFallback bool
}

// TextPlacement is one laid out piece of text. Origin is the start of the
// baseline.
type TextPlacement struct {
	Text   string
	Origin image.Point
	Width  int
}

// StampLayout records where every stamp element is placed.
type StampLayout struct {
	Size       image.Point
	Border     image.Rectangle
	QR         image.Rectangle
	TextArea   image.Rectangle
	Font       string
	LineHeight int
	Lines      [2]TextPlacement
	// InlineX is where the logo or the fallback text starts, right after
	// the measured width of caption line 2.
	InlineX  int
	Logo     image.Rectangle
	Fallback *TextPlacement
}

// Composer renders stamp images.
type Composer struct {
	opts   *StampOptions
	fonts  *FontCache
	logger *slog.Logger
}

// NewComposer creates a Composer. Nil options select the defaults and a
// nil font cache searches the OS font directories.
func NewComposer(opts *StampOptions, fonts *FontCache, logger *slog.Logger) *Composer {
	if opts == nil {
		opts = DefaultStampOptions()
	}
	if fonts == nil {
		fonts = NewFontCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{opts: opts, fonts: fonts, logger: logger}
}

// Compose renders the stamp for in and writes it as PNG to outPath.
// A missing QR image is fatal; a missing logo degrades to the fallback
// text and sets Stamp.LogoFallback.
func (c *Composer) Compose(in StampInputs, outPath string) (*Stamp, error) {
	const errCtx = "composing stamp"

	qr, err := loadAsset("qr", in.QRPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var logo image.Image
	if in.LogoPath != "" {
		logo, err = loadAsset("logo", in.LogoPath)
		if err != nil {
			c.logger.Warn("logo unavailable, using fallback text", "path", in.LogoPath, "error", err)
			logo = nil
		}
	}

	o := c.opts
	face, family := c.fonts.Face(o.FontFamilies, o.FontSizePt*o.DPI/72)

	var logoSize image.Point
	if logo != nil {
		logoSize = logo.Bounds().Size()
	}
	layout := c.layout(face, in.Caption, logoSize)
	layout.Font = family

	canvas := NewCanvas(layout.Size.X, layout.Size.Y)
	canvas.RoundedRectFill(layout.Border, o.CornerRadius, color.White)
	c.drawBorder(canvas, layout.Border)
	canvas.DrawImage(scaleInto(flattenOnWhite(qr), layout.QR, xdraw.NearestNeighbor), layout.QR.Min)

	textDst := canvas.Image().SubImage(layout.TextArea).(*image.RGBA)
	ink := image.NewUniform(o.TextColor.RGBA())
	for _, line := range layout.Lines {
		drawText(textDst, face, ink, line)
	}
	if layout.Fallback != nil {
		drawText(textDst, face, ink, *layout.Fallback)
	} else {
		draw.Draw(textDst, layout.Logo, scaleInto(logo, layout.Logo, xdraw.CatmullRom), layout.Logo.Min, draw.Over)
	}

	if err := savePNG(canvas.Image(), outPath); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	c.logger.Debug("stamp composed",
		"path", outPath,
		"font", family,
		"logo_fallback", layout.Fallback != nil,
	)

	return &Stamp{
		Path:         outPath,
		Width:        Inch(o.WidthInches),
		Height:       Inch(o.HeightInches),
		Pixels:       layout.Size,
		Layout:       layout,
		LogoFallback: layout.Fallback != nil,
	}, nil
}

// layout places every stamp element. A zero logoSize selects the
// fallback text.
func (c *Composer) layout(face font.Face, caption [2]string, logoSize image.Point) StampLayout {
	o := c.opts
	size := o.PixelSize()
	l := StampLayout{Size: size}

	l.Border = image.Rect(o.Margin, o.Margin, size.X-o.Margin, size.Y-o.Margin)
	inner := l.Border.Inset(o.Padding)
	side := inner.Dy()
	l.QR = image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+side, inner.Min.Y+side)
	l.TextArea = image.Rect(l.QR.Max.X+o.Padding, inner.Min.Y, inner.Max.X, inner.Max.Y)
	if l.TextArea.Dx() < 0 {
		l.TextArea.Max.X = l.TextArea.Min.X
	}

	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	l.LineHeight = m.Height.Ceil()
	if l.LineHeight <= 0 {
		l.LineHeight = ascent + m.Descent.Ceil()
	}
	total := 2*l.LineHeight + o.LineSpacing
	top := l.TextArea.Min.Y + (l.TextArea.Dy()-total)/2
	x := l.TextArea.Min.X
	textW := l.TextArea.Dx()

	first := truncateToWidth(face, caption[0], textW)
	l.Lines[0] = TextPlacement{Text: first, Origin: image.Pt(x, top+ascent), Width: measure(face, first)}

	// The inline element's width is reserved before caption line 2 is
	// truncated, so both branches share the same positioning rule.
	var inlineW int
	var logoRect image.Rectangle
	if logoSize.X > 0 && logoSize.Y > 0 {
		h := int(math.Round(float64(l.LineHeight) * o.LogoScale))
		w := int(math.Round(float64(logoSize.X) * float64(h) / float64(logoSize.Y)))
		if w > textW/2 {
			w = textW / 2
			h = int(math.Round(float64(logoSize.Y) * float64(w) / float64(logoSize.X)))
		}
		logoRect = image.Rect(0, 0, w, h)
		inlineW = w
	} else {
		inlineW = measure(face, o.LogoFallbackText)
	}

	budget := max(textW-o.InlineGap-inlineW, 0)
	second := truncateToWidth(face, caption[1], budget)
	baseline2 := top + l.LineHeight + o.LineSpacing + ascent
	l.Lines[1] = TextPlacement{Text: second, Origin: image.Pt(x, baseline2), Width: measure(face, second)}
	l.InlineX = x + l.Lines[1].Width + o.InlineGap
	if second == "" {
		l.InlineX = x
	}

	if !logoRect.Empty() {
		boxTop := baseline2 - ascent
		y := boxTop + (l.LineHeight-logoRect.Dy())/2
		y = max(l.TextArea.Min.Y, min(y, l.TextArea.Max.Y-logoRect.Dy()))
		l.Logo = logoRect.Add(image.Pt(l.InlineX, y))
		return l
	}

	fb := truncateToWidth(face, o.LogoFallbackText, l.TextArea.Max.X-l.InlineX)
	l.Fallback = &TextPlacement{Text: fb, Origin: image.Pt(l.InlineX, baseline2), Width: measure(face, fb)}
	return l
}

func (c *Composer) drawBorder(canvas *Canvas, r image.Rectangle) {
	o := c.opts
	canvas.DashedRoundedRect(r, o.CornerRadius, o.Dash, o.Gap, o.BorderColor.RGBA(), o.BorderWidth)
}

// loadAsset opens and decodes an image asset. A missing file is reported
// as *MissingAssetError.
func loadAsset(kind, path string) (image.Image, error) {
	if path == "" {
		return nil, &MissingAssetError{Asset: kind, Path: path, Err: fs.ErrNotExist}
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingAssetError{Asset: kind, Path: path, Err: err}
		}
		return nil, fmt.Errorf("reading %s image %s: %w", kind, path, err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%s asset %s is not an image (%s)", kind, path, mt.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s image: %w", kind, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s image %s: %w", kind, path, err)
	}
	return img, nil
}

// flattenOnWhite composites src over an opaque white background.
func flattenOnWhite(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// scaleInto resamples src to the size of box. The result is positioned at
// box.Min so it can be drawn with box as destination.
func scaleInto(src image.Image, box image.Rectangle, scaler xdraw.Scaler) *image.RGBA {
	dst := image.NewRGBA(box)
	scaler.Scale(dst, box, src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func drawText(dst draw.Image, face font.Face, ink image.Image, t TextPlacement) {
	if t.Text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  ink,
		Face: face,
		Dot:  fixed.P(t.Origin.X, t.Origin.Y),
	}
	d.DrawString(t.Text)
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// ellipsis marks truncated caption text. Plain dots render with every
// face, including the built-in bitmap fallback.
const ellipsis = "..."

// truncateToWidth shortens s rune by rune until it fits maxWidth pixels,
// appending an ellipsis when anything was cut.
func truncateToWidth(face font.Face, s string, maxWidth int) string {
	if measure(face, s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n >= 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if measure(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

func savePNG(img image.Image, path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
