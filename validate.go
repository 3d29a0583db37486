package docstamp

import (
	"fmt"
	"strings"
)

// Validate checks the document for structural issues and returns an error
// describing all problems found, or nil if the document is valid.
// Every section must resolve its footer references, and every picture in
// a section footer must point at an existing image part with a positive
// extent. Validate does not modify the document.
func (d *Document) Validate() error {
	var errs []string

	if d.main == nil || d.body == nil {
		return fmt.Errorf("validation failed:\n  document has no body")
	}

	for i, s := range d.sections(false) {
		prefix := fmt.Sprintf("section %d", i+1)
		for _, ref := range s.el.SelectElements("w:footerReference") {
			id := ref.SelectAttrValue("r:id", "")
			rel, ok := d.main.rels.get(id)
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: footer reference %q has no relationship", prefix, id))
				continue
			}
			name := resolveTarget(d.main.dir(), rel.Target)
			if _, ok := d.entries[name]; !ok {
				errs = append(errs, fmt.Sprintf("%s: footer part %s is missing", prefix, name))
			}
		}

		f, err := s.Footer()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
			continue
		}
		if f == nil {
			continue
		}
		for _, e := range validateFooter(f) {
			errs = append(errs, prefix+": "+e)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func validateFooter(f *Footer) []string {
	var errs []string
	for i, p := range f.Paragraphs() {
		for j, r := range p.Runs() {
			for _, pic := range r.Pictures() {
				prefix := fmt.Sprintf("%s paragraph %d run %d", f.Path(), i+1, j+1)
				if pic.Target == "" {
					errs = append(errs, fmt.Sprintf("%s: picture relationship %q not found", prefix, pic.RelID))
				} else if _, ok := f.p.doc.entries[pic.Target]; !ok {
					errs = append(errs, fmt.Sprintf("%s: image part %s is missing", prefix, pic.Target))
				}
				if pic.Width <= 0 || pic.Height <= 0 {
					errs = append(errs, prefix+": picture extent must be positive")
				}
			}
		}
	}
	return errs
}
