// Package docxtest builds small WordprocessingML packages and image assets
// for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relFooter  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	ctFooter   = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	ctDocument = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type footer struct {
	relID string
	name  string
	body  string
}

// Builder assembles a .docx package. Body content is appended in call
// order; the final section properties are written last.
type Builder struct {
	body    strings.Builder
	footers []footer
	final   []string
	extra   map[string][]byte
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{extra: make(map[string][]byte)}
}

// Runs returns one w:r per text.
func Runs(texts ...string) string {
	var sb strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&sb, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, html.EscapeString(t))
	}
	return sb.String()
}

// Paragraph appends a paragraph with one run per text.
func (b *Builder) Paragraph(texts ...string) *Builder {
	b.body.WriteString("<w:p>" + Runs(texts...) + "</w:p>")
	return b
}

// Raw appends body XML verbatim.
func (b *Builder) Raw(xml string) *Builder {
	b.body.WriteString(xml)
	return b
}

// Table appends a table with one row per entry, one cell per text.
func (b *Builder) Table(rows ...[]string) *Builder {
	b.body.WriteString("<w:tbl>")
	for _, row := range rows {
		b.body.WriteString("<w:tr>")
		for _, cell := range row {
			b.body.WriteString("<w:tc><w:p>" + Runs(cell) + "</w:p></w:tc>")
		}
		b.body.WriteString("</w:tr>")
	}
	b.body.WriteString("</w:tbl>")
	return b
}

// Footer adds a footer part whose single paragraph holds text and returns
// its relationship id.
func (b *Builder) Footer(text string) string {
	return b.FooterXML("<w:p>" + Runs(text) + "</w:p>")
}

// FooterXML adds a footer part with the given content and returns its
// relationship id.
func (b *Builder) FooterXML(content string) string {
	n := len(b.footers) + 1
	f := footer{
		relID: fmt.Sprintf("rIdFooter%d", n),
		name:  fmt.Sprintf("footer%d.xml", n),
		body:  content,
	}
	b.footers = append(b.footers, f)
	return f.relID
}

// SectionBreak ends a section with a paragraph-level w:sectPr referencing
// the given footers as default footer.
func (b *Builder) SectionBreak(footerRelIDs ...string) *Builder {
	b.body.WriteString("<w:p><w:pPr>" + SectPr(footerRelIDs...) + "</w:pPr></w:p>")
	return b
}

// FinalSection sets the footers referenced by the body-level w:sectPr.
func (b *Builder) FinalSection(footerRelIDs ...string) *Builder {
	b.final = footerRelIDs
	return b
}

// File adds an arbitrary package entry.
func (b *Builder) File(name string, data []byte) *Builder {
	b.extra[name] = data
	return b
}

// SectPr returns a w:sectPr referencing each id as default footer, with
// Word's default page margins.
func SectPr(footerRelIDs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:sectPr>")
	for _, id := range footerRelIDs {
		fmt.Fprintf(&sb, `<w:footerReference w:type="default" r:id="%s"/>`, id)
	}
	sb.WriteString(`<w:pgSz w:w="11906" w:h="16838"/>`)
	sb.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>`)
	sb.WriteString("</w:sectPr>")
	return sb.String()
}

// Bytes returns the package as a zip archive.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()

	var types strings.Builder
	types.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	types.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	types.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	types.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	fmt.Fprintf(&types, `<Override PartName="/word/document.xml" ContentType="%s"/>`, ctDocument)
	for _, f := range b.footers {
		fmt.Fprintf(&types, `<Override PartName="/word/%s" ContentType="%s"/>`, f.name, ctFooter)
	}
	types.WriteString(`</Types>`)

	rootRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	var docRels strings.Builder
	docRels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	docRels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, f := range b.footers {
		fmt.Fprintf(&docRels, `<Relationship Id="%s" Type="%s" Target="%s"/>`, f.relID, relFooter, f.name)
	}
	docRels.WriteString(`</Relationships>`)

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document xmlns:w="%s" xmlns:r="%s"><w:body>%s%s</w:body></w:document>`,
		nsW, nsR, b.body.String(), SectPr(b.final...))

	entries := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(types.String())},
		{"_rels/.rels", []byte(rootRels)},
		{"word/document.xml", []byte(document)},
		{"word/_rels/document.xml.rels", []byte(docRels.String())},
	}
	for _, f := range b.footers {
		xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<w:ftr xmlns:w="%s" xmlns:r="%s">%s</w:ftr>`, nsW, nsR, f.body)
		entries = append(entries, struct {
			name string
			data []byte
		}{"word/" + f.name, []byte(xml)})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for _, e := range entries {
		write(e.name, e.data)
	}
	for name, data := range b.extra {
		write(name, data)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteFile stores the package as dir/name and returns the path.
func (b *Builder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Bytes(t), 0o644))
	return path
}

// PNG returns a w x h checkerboard PNG.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// WritePNG stores a w x h PNG as dir/name and returns the path.
func WritePNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, PNG(t, w, h), 0o644))
	return path
}
