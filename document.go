package docstamp

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
)

// Document is an opened .docx package. Parts the model never touches are
// written back byte for byte.
type Document struct {
	name    string
	order   []string
	entries map[string][]byte
	types   *contentTypes
	main    *part
	body    *etree.Element
	footers map[string]*Footer

	drawingID int
}

// Name returns the file name the document was opened from.
func (d *Document) Name() string {
	return d.name
}

// Paragraphs returns the body-level paragraphs in document order.
func (d *Document) Paragraphs() []*Paragraph {
	return paragraphsOf(d.body, d.main)
}

// Tables returns the body-level tables in document order.
func (d *Document) Tables() []*Table {
	return tablesOf(d.body, d.main)
}

// Sections returns the document sections in order: every paragraph-level
// section break followed by the final body-level section. A document
// without a body-level section gets one, so the result is never empty.
func (d *Document) Sections() []*Section {
	return d.sections(true)
}

// sections lists the sections. Without create, a body lacking its final
// w:sectPr yields only the paragraph-level sections.
func (d *Document) sections(create bool) []*Section {
	var out []*Section
	var prev *Section
	for _, p := range blockChildren(d.body, "p") {
		pPr := p.SelectElement("w:pPr")
		if pPr == nil {
			continue
		}
		if el := pPr.SelectElement("w:sectPr"); el != nil {
			s := &Section{doc: d, el: el, prev: prev}
			out = append(out, s)
			prev = s
		}
	}

	el := d.body.SelectElement("w:sectPr")
	if el == nil {
		if !create {
			return out
		}
		el = d.body.CreateElement("w:sectPr")
	}
	return append(out, &Section{doc: d, el: el, prev: prev})
}

// Image is a media part embedded in the package.
type Image struct {
	name        string
	contentType string
}

// Path returns the package path of the image part.
func (i *Image) Path() string {
	return i.name
}

// AddImage stores data as a new media part. The format is sniffed from
// the content; only image formats are accepted.
func (d *Document) AddImage(data []byte) (*Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("unsupported image content type %s", mt.String())
	}
	ext := mt.Extension()
	name := d.reservePart("word/media/docstamp", ext)
	d.entries[name] = data
	d.types.ensureDefault(strings.TrimPrefix(ext, "."), mt.String())
	return &Image{name: name, contentType: mt.String()}, nil
}

// reservePart picks the first unused name prefixN+ext and registers it.
func (d *Document) reservePart(prefix, ext string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s%d%s", prefix, n, ext)
		if _, taken := d.entries[name]; !taken {
			d.entries[name] = nil
			d.order = append(d.order, name)
			return name
		}
	}
}

func (d *Document) removePart(name string) {
	delete(d.entries, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// footer returns the footer part behind a relationship of the main part.
func (d *Document) footer(relID string) (*Footer, error) {
	rel, ok := d.main.rels.get(relID)
	if !ok || rel.Type != relTypeFooter {
		return nil, fmt.Errorf("footer relationship %s not found", relID)
	}
	name := resolveTarget(d.main.dir(), rel.Target)
	if f, ok := d.footers[name]; ok {
		return f, nil
	}
	p, err := d.loadPart(name)
	if err != nil {
		return nil, fmt.Errorf("loading footer: %w", err)
	}
	f := &Footer{p: p, relID: relID}
	d.footers[name] = f
	return f, nil
}

// newFooter creates a footer part whose content and relationships are
// copies of src, or an empty footer when src is nil.
func (d *Document) newFooter(src *Footer) *Footer {
	name := d.reservePart("word/footer", ".xml")
	p := &part{doc: d, name: name}
	if src != nil {
		p.xml = src.p.xml.Copy()
		p.rels = &relationships{name: relsPath(name), xml: src.p.rels.xml.Copy()}
	} else {
		p.xml = newFooterXML()
		p.rels = newRelationships(relsPath(name))
	}

	d.types.addOverride(name, ctFooter)
	id := d.main.rels.add(relTypeFooter, relativeTarget(d.main.dir(), name))
	f := &Footer{p: p, relID: id}
	d.footers[name] = f
	return f
}

func newFooterXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	ftr := doc.CreateElement("w:ftr")
	ftr.CreateAttr("xmlns:w", nsW)
	ftr.CreateAttr("xmlns:r", nsR)
	return doc
}

func (d *Document) nextDrawingID() int {
	if d.drawingID == 0 {
		d.drawingID = 1000
	}
	d.drawingID++
	return d.drawingID
}

// Close releases the package contents.
func (d *Document) Close() error {
	d.entries = nil
	d.order = nil
	d.footers = nil
	d.main = nil
	d.body = nil
	return nil
}
