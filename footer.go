package docstamp

import (
	"strings"
)

// Footer is one footer part.
type Footer struct {
	p     *part
	relID string
}

// Path returns the package path of the footer part.
func (f *Footer) Path() string {
	return f.p.name
}

// HasContent reports whether the footer shows anything: visible text, a
// field such as a page number, or a drawing.
func (f *Footer) HasContent() bool {
	root := f.p.root()
	for _, t := range root.FindElements(".//w:t") {
		if strings.TrimSpace(t.Text()) != "" {
			return true
		}
	}
	for _, path := range []string{".//w:drawing", ".//w:pict", ".//w:object", ".//w:fldSimple", ".//w:instrText"} {
		if root.FindElement(path) != nil {
			return true
		}
	}
	return false
}

// Paragraphs returns the footer paragraphs in order.
func (f *Footer) Paragraphs() []*Paragraph {
	return paragraphsOf(f.p.root(), f.p)
}

// Tables returns the footer tables in order.
func (f *Footer) Tables() []*Table {
	return tablesOf(f.p.root(), f.p)
}

// Clear removes all content and relationships of the footer.
func (f *Footer) Clear() {
	root := f.p.root()
	for len(root.Child) > 0 {
		root.RemoveChildAt(len(root.Child) - 1)
	}
	f.p.rels = newRelationships(f.p.rels.name)
}

// AddParagraph appends an empty paragraph.
func (f *Footer) AddParagraph() *Paragraph {
	return &Paragraph{el: f.p.root().CreateElement("w:p"), part: f.p}
}
