package docstamp

import "github.com/beevik/etree"

// footerKinds are the footer slots a section can reference. An unlinked
// footer is referenced from all of them so first and even pages carry it
// too.
var footerKinds = []string{"default", "first", "even"}

// defaultFooterDistance is Word's footer distance when a section has no
// page margins.
const defaultFooterDistance Twips = 708

// Word's defaults for a page margin element created from scratch.
var defaultPageMargins = []struct {
	key string
	val Twips
}{
	{"w:top", 1440}, {"w:right", 1440}, {"w:bottom", 1440}, {"w:left", 1440},
	{"w:header", 708}, {"w:footer", defaultFooterDistance}, {"w:gutter", 0},
}

// Section wraps one w:sectPr element.
type Section struct {
	doc  *Document
	el   *etree.Element
	prev *Section
}

// footerRelID returns the relationship id of the section's own footer of
// the given kind.
func (s *Section) footerRelID(kind string) string {
	for _, ref := range s.el.SelectElements("w:footerReference") {
		if ref.SelectAttrValue("w:type", "default") == kind {
			return ref.SelectAttrValue("r:id", "")
		}
	}
	return ""
}

// Footer returns the default footer in effect for the section. A section
// without its own reference inherits the previous section's footer. It
// returns nil when no footer applies.
func (s *Section) Footer() (*Footer, error) {
	if id := s.footerRelID("default"); id != "" {
		return s.doc.footer(id)
	}
	if s.prev != nil {
		return s.prev.Footer()
	}
	return nil, nil
}

// UnlinkFooter gives the section a footer part of its own, initialised
// from the footer currently in effect, and returns it. Footers of other
// sections are not affected by later edits.
func (s *Section) UnlinkFooter() (*Footer, error) {
	src, err := s.Footer()
	if err != nil {
		return nil, err
	}
	f := s.doc.newFooter(src)

	for _, ref := range s.el.SelectElements("w:footerReference") {
		s.el.RemoveChild(ref)
	}
	at := insertIndex(s.el, "footerReference", sectPrOrder)
	for i, kind := range footerKinds {
		ref := etree.NewElement("w:footerReference")
		ref.CreateAttr("w:type", kind)
		ref.CreateAttr("r:id", f.relID)
		s.el.InsertChildAt(at+i, ref)
	}
	return f, nil
}

func (s *Section) pgMar() *etree.Element {
	if el := s.el.SelectElement("w:pgMar"); el != nil {
		return el
	}
	el := wChild(s.el, "pgMar", sectPrOrder)
	for _, m := range defaultPageMargins {
		twipsAttr(el, m.key, m.val)
	}
	return el
}

// FooterDistance returns the distance between the page bottom edge and the
// footer.
func (s *Section) FooterDistance() Twips {
	el := s.el.SelectElement("w:pgMar")
	if el == nil {
		return defaultFooterDistance
	}
	return parseTwips(el.SelectAttrValue("w:footer", "0"))
}

// SetFooterDistance sets the distance between the page bottom edge and the
// footer.
func (s *Section) SetFooterDistance(t Twips) {
	twipsAttr(s.pgMar(), "w:footer", t)
}

// HorizontalMargins returns the left and right page margins.
func (s *Section) HorizontalMargins() (left, right Twips) {
	el := s.el.SelectElement("w:pgMar")
	if el == nil {
		return 1440, 1440
	}
	return parseTwips(el.SelectAttrValue("w:left", "0")), parseTwips(el.SelectAttrValue("w:right", "0"))
}

// SetHorizontalMargins sets the left and right page margins.
func (s *Section) SetHorizontalMargins(left, right Twips) {
	el := s.pgMar()
	twipsAttr(el, "w:left", left)
	twipsAttr(el, "w:right", right)
}
