package docstamp

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var rPrOrder = []string{"rStyle", "rFonts"}

// Paragraph wraps one w:p element.
type Paragraph struct {
	el   *etree.Element
	part *part
}

func paragraphsOf(el *etree.Element, p *part) []*Paragraph {
	var out []*Paragraph
	for _, c := range blockChildren(el, "p") {
		out = append(out, &Paragraph{el: c, part: p})
	}
	return out
}

// Runs returns the direct w:r children in order. Runs nested in
// hyperlinks, fields or inline content controls are not included.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, c := range p.el.SelectElements("w:r") {
		out = append(out, &Run{el: c, part: p.part})
	}
	return out
}

// Text returns the concatenated text of Runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

func (p *Paragraph) pPr() *etree.Element {
	if el := p.el.SelectElement("w:pPr"); el != nil {
		return el
	}
	el := etree.NewElement("w:pPr")
	p.el.InsertChildAt(0, el)
	return el
}

// Alignment returns the explicit paragraph alignment, or AlignmentNone
// when the paragraph inherits it.
func (p *Paragraph) Alignment() Alignment {
	pPr := p.el.SelectElement("w:pPr")
	if pPr == nil {
		return AlignmentNone
	}
	jc := pPr.SelectElement("w:jc")
	if jc == nil {
		return AlignmentNone
	}
	return normalizeAlignment(jc.SelectAttrValue("w:val", ""))
}

// SetAlignment sets an explicit alignment. AlignmentNone removes it.
func (p *Paragraph) SetAlignment(a Alignment) {
	pPr := p.pPr()
	if a == AlignmentNone {
		if jc := pPr.SelectElement("w:jc"); jc != nil {
			pPr.RemoveChild(jc)
		}
		return
	}
	wChild(pPr, "jc", pPrOrder).CreateAttr("w:val", string(a))
}

// SetSpacing sets the space before and after the paragraph.
func (p *Paragraph) SetSpacing(before, after Twips) {
	sp := wChild(p.pPr(), "spacing", pPrOrder)
	twipsAttr(sp, "w:before", before)
	twipsAttr(sp, "w:after", after)
}

// SetBorder sets one edge of the paragraph border.
func (p *Paragraph) SetBorder(side BorderSide, b Border) {
	pBdr := wChild(p.pPr(), "pBdr", pPrOrder)
	edge := wChild(pBdr, string(side), pBdrOrder)
	edge.CreateAttr("w:val", string(b.Style))
	edge.CreateAttr("w:sz", strconv.Itoa(b.Size))
	edge.CreateAttr("w:space", strconv.Itoa(b.Space))
	edge.CreateAttr("w:color", b.Color.RGBHex())
}

// AddRun appends an empty run.
func (p *Paragraph) AddRun() *Run {
	return &Run{el: p.el.CreateElement("w:r"), part: p.part}
}

// ReplaceRuns removes every direct run and inserts text at the position of
// the first one: one run per line, a break ending every line but the last,
// tabs as tab elements. Each new run gets the font fontName.
func (p *Paragraph) ReplaceRuns(text, fontName string) {
	runs := p.el.SelectElements("w:r")
	at := len(p.el.Child)
	if len(runs) > 0 {
		at = runs[0].Index()
	}
	for _, r := range runs {
		p.el.RemoveChild(r)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		r := &Run{el: etree.NewElement("w:r"), part: p.part}
		r.SetFontName(fontName)
		r.AddText(line)
		if i < len(lines)-1 {
			r.AddBreak()
		}
		p.el.InsertChildAt(at+i, r.el)
	}
}

// Run wraps one w:r element.
type Run struct {
	el   *etree.Element
	part *part
}

// Text returns the run text. Tabs read as "\t", breaks as "\n" and
// non-breaking hyphens as "-".
func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.el.ChildElements() {
		if c.Space != "w" {
			continue
		}
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// FontName returns the ASCII font of the run, if set directly.
func (r *Run) FontName() string {
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		return ""
	}
	rFonts := rPr.SelectElement("w:rFonts")
	if rFonts == nil {
		return ""
	}
	return rFonts.SelectAttrValue("w:ascii", "")
}

// SetFontName sets the run font for every script slot.
func (r *Run) SetFontName(name string) {
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		rPr = etree.NewElement("w:rPr")
		r.el.InsertChildAt(0, rPr)
	}
	rFonts := wChild(rPr, "rFonts", rPrOrder)
	for _, slot := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
		rFonts.CreateAttr(slot, name)
	}
}

// AddText appends s, splitting it at tabs.
func (r *Run) AddText(s string) {
	for i, chunk := range strings.Split(s, "\t") {
		if i > 0 {
			r.AddTab()
		}
		if chunk == "" {
			continue
		}
		t := r.el.CreateElement("w:t")
		if strings.TrimSpace(chunk) != chunk {
			t.CreateAttr("xml:space", "preserve")
		}
		t.SetText(chunk)
	}
}

// AddTab appends a tab.
func (r *Run) AddTab() {
	r.el.CreateElement("w:tab")
}

// AddBreak appends a line break.
func (r *Run) AddBreak() {
	r.el.CreateElement("w:br")
}

// Picture describes an inline picture in a run.
type Picture struct {
	RelID  string
	Target string // package path of the image part
	Width  int64  // EMU
	Height int64  // EMU
}

// AddPicture appends an inline picture of cx x cy EMU showing img.
func (r *Run) AddPicture(img *Image, cx, cy int64) {
	p := r.part
	target := relativeTarget(p.dir(), img.name)
	relID, ok := p.rels.find(relTypeImage, target)
	if !ok {
		relID = p.rels.add(relTypeImage, target)
	}
	ensureNamespace(p.root(), "wp", nsWP)
	ensureNamespace(p.root(), "r", nsR)

	cxs, cys := strconv.FormatInt(cx, 10), strconv.FormatInt(cy, 10)
	id := strconv.Itoa(p.doc.nextDrawingID())
	name := "DocStamp " + id

	inline := r.el.CreateElement("w:drawing").CreateElement("wp:inline")
	for _, k := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(k, "0")
	}
	ext := inline.CreateElement("wp:extent")
	ext.CreateAttr("cx", cxs)
	ext.CreateAttr("cy", cys)
	eff := inline.CreateElement("wp:effectExtent")
	for _, k := range []string{"l", "t", "r", "b"} {
		eff.CreateAttr(k, "0")
	}
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", id)
	docPr.CreateAttr("name", name)
	locks := inline.CreateElement("wp:cNvGraphicFramePr").CreateElement("a:graphicFrameLocks")
	locks.CreateAttr("xmlns:a", nsA)
	locks.CreateAttr("noChangeAspect", "1")

	graphic := inline.CreateElement("a:graphic")
	graphic.CreateAttr("xmlns:a", nsA)
	data := graphic.CreateElement("a:graphicData")
	data.CreateAttr("uri", nsPic)
	pic := data.CreateElement("pic:pic")
	pic.CreateAttr("xmlns:pic", nsPic)

	nv := pic.CreateElement("pic:nvPicPr")
	cNvPr := nv.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", "0")
	cNvPr.CreateAttr("name", name)
	nv.CreateElement("pic:cNvPicPr")

	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", relID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	aext := xfrm.CreateElement("a:ext")
	aext.CreateAttr("cx", cxs)
	aext.CreateAttr("cy", cys)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}

// Pictures returns the inline pictures of the run.
func (r *Run) Pictures() []Picture {
	var out []Picture
	for _, inline := range r.el.FindElements("./w:drawing/wp:inline") {
		var pic Picture
		if ext := inline.SelectElement("wp:extent"); ext != nil {
			pic.Width, _ = strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
			pic.Height, _ = strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
		}
		if blip := inline.FindElement(".//a:blip"); blip != nil {
			pic.RelID = blip.SelectAttrValue("r:embed", "")
			if rel, ok := r.part.rels.get(pic.RelID); ok {
				pic.Target = resolveTarget(r.part.dir(), rel.Target)
			}
		}
		out = append(out, pic)
	}
	return out
}
