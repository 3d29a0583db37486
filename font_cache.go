package docstamp

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// fontKey uniquely identifies a font face by family name and pixel size.
type fontKey struct {
	name string
	size float64
}

// FontCache manages TrueType font loading and face caching.
// It searches system font directories and user-specified directories
// for .ttf, .otf and .ttc files, then caches parsed fonts and faces.
// A FontCache is safe for concurrent use and is meant to be shared by
// every composition of a process.
type FontCache struct {
	mu      sync.RWMutex
	dirs    []string                  // directories to search for fonts
	fonts   map[string]*opentype.Font // lowercase font name -> parsed font
	faces   map[fontKey]font.Face
	scanned bool
}

// NewFontCache creates a FontCache that searches the given directories
// plus the OS default font directories.
func NewFontCache(extraDirs ...string) *FontCache {
	return NewIsolatedFontCache(append(systemFontDirs(), extraDirs...)...)
}

// NewIsolatedFontCache creates a FontCache that searches only dirs,
// skipping the OS font directories.
func NewIsolatedFontCache(dirs ...string) *FontCache {
	return &FontCache{
		dirs:  dirs,
		fonts: make(map[string]*opentype.Font),
		faces: make(map[fontKey]font.Face),
	}
}

// fallbackFamilies are tried after the caller's preferred families.
var fallbackFamilies = []string{"arial", "helvetica", "dejavu sans", "liberation sans", "noto sans"}

// Face resolves the first available family among preferred, then the
// common fallbacks, and returns a face of sizePx pixels together with the
// resolved family name. When no font file is usable at all it returns
// basicfont.Face7x13 and the name "basicfont"; font lookup never fails.
func (fc *FontCache) Face(preferred []string, sizePx float64) (font.Face, string) {
	for _, name := range preferred {
		if face := fc.GetFace(name, sizePx); face != nil {
			return face, strings.ToLower(name)
		}
	}
	for _, name := range fallbackFamilies {
		if face := fc.GetFace(name, sizePx); face != nil {
			return face, name
		}
	}
	return basicfont.Face7x13, "basicfont"
}

// GetFace returns a font.Face for the given family at sizePx pixels.
// It returns nil if the family is not available.
func (fc *FontCache) GetFace(name string, sizePx float64) font.Face {
	fc.ensureScanned()

	key := fontKey{name: strings.ToLower(name), size: sizePx}

	fc.mu.RLock()
	if face, ok := fc.faces[key]; ok {
		fc.mu.RUnlock()
		return face
	}
	fc.mu.RUnlock()

	f := fc.findFont(name)
	if f == nil {
		return nil
	}

	// DPI 72 makes Size a pixel size.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}

	fc.mu.Lock()
	fc.faces[key] = face
	fc.mu.Unlock()
	return face
}

// findFont looks up a parsed font by name, then through the metric
// compatible alias table.
func (fc *FontCache) findFont(name string) *opentype.Font {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	lower := strings.ToLower(name)
	if f, ok := fc.fonts[lower]; ok {
		return f
	}
	for _, alias := range fontAliases[lower] {
		if f, ok := fc.fonts[alias]; ok {
			return f
		}
	}
	return nil
}

// fontAliases maps Office font families to metric-compatible families
// that are commonly installed on servers without Office.
var fontAliases = map[string][]string{
	"calibri":         {"carlito"},
	"cambria":         {"caladea"},
	"arial":           {"liberation sans", "arimo"},
	"helvetica":       {"liberation sans", "arimo"},
	"times new roman": {"liberation serif", "tinos"},
	"courier new":     {"liberation mono", "cousine"},
}

// LoadFont manually loads a TrueType/OpenType font file and registers it
// under the given name. Returns an error if the file exceeds
// maxFontFileSize.
func (fc *FontCache) LoadFont(name string, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxFontFileSize {
		return fmt.Errorf("font file too large: %d bytes (max %d)", info.Size(), maxFontFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	fc.mu.Lock()
	fc.fonts[strings.ToLower(name)] = f
	fc.registerByFamilyName(f)
	fc.mu.Unlock()
	return nil
}

func (fc *FontCache) ensureScanned() {
	fc.mu.RLock()
	scanned := fc.scanned
	fc.mu.RUnlock()
	if scanned {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.scanned {
		return
	}
	fc.scanned = true

	for _, dir := range fc.dirs {
		fc.scanDirDepth(dir, 0)
	}
}

// maxFontScanDepth limits recursive directory traversal when scanning for fonts.
const maxFontScanDepth = 3

// maxFontFileSize limits the size of individual font files loaded into memory.
const maxFontFileSize = 20 << 20 // 20 MB

func (fc *FontCache) scanDirDepth(dir string, depth int) {
	if depth > maxFontScanDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			fc.scanDirDepth(filepath.Join(dir, entry.Name()), depth+1)
			continue
		}
		lower := strings.ToLower(entry.Name())
		isTTC := strings.HasSuffix(lower, ".ttc") || strings.HasSuffix(lower, ".otc")
		isSingle := strings.HasSuffix(lower, ".ttf") || strings.HasSuffix(lower, ".otf")
		if !isTTC && !isSingle {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.Size() > maxFontFileSize {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		baseName := strings.TrimSuffix(lower, filepath.Ext(lower))
		if isTTC {
			fc.loadCollection(data, baseName)
		} else {
			fc.loadSingleFont(data, baseName)
		}
	}
}

// loadSingleFont parses a single TTF/OTF font and registers it by both
// filename and internal family name.
func (fc *FontCache) loadSingleFont(data []byte, baseName string) {
	f, err := opentype.Parse(data)
	if err != nil {
		return
	}
	fc.fonts[baseName] = f
	fc.registerByFamilyName(f)
}

// loadCollection parses a TTC/OTC font collection and registers each font
// by its internal family name.
func (fc *FontCache) loadCollection(data []byte, baseName string) {
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return
	}
	for i := 0; i < coll.NumFonts(); i++ {
		f, err := coll.Font(i)
		if err != nil {
			continue
		}
		if i == 0 {
			fc.fonts[baseName] = f
		}
		fc.registerByFamilyName(f)
	}
}

// registerByFamilyName registers the font under its family name unless a
// regular face already claimed it, so "DejaVu Sans" resolves to the
// upright face rather than whichever style was scanned last.
func (fc *FontCache) registerByFamilyName(f *opentype.Font) {
	familyName, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil || familyName == "" {
		return
	}
	key := strings.ToLower(familyName)
	sub, _ := f.Name(nil, sfnt.NameIDSubfamily)
	if _, taken := fc.fonts[key]; !taken || strings.EqualFold(sub, "regular") {
		fc.fonts[key] = f
	}
}

// systemFontDirs returns OS-specific font directories.
func systemFontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	case "darwin":
		home, _ := os.UserHomeDir()
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	default: // linux, freebsd, etc.
		home, _ := os.UserHomeDir()
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"))
			dirs = append(dirs, filepath.Join(home, ".fonts"))
		}
		return dirs
	}
}
