package docstamp

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/beevik/etree"
)

// Save writes the document to a file.
func (d *Document) Save(name string) error {
	dir := filepath.Dir(name)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writeErr := d.Write(f)
	closeErr := f.Close()

	if writeErr != nil {
		// Attempt cleanup on write failure
		os.Remove(name)
		return writeErr
	}
	return closeErr
}

// Write writes the document as a .docx package. Footer parts no section
// references any more are dropped.
func (d *Document) Write(w io.Writer) error {
	if d.main == nil {
		return fmt.Errorf("document is closed")
	}
	d.pruneFooters()
	d.types.ensureDefault("rels", ctRels)

	trees := d.xmlParts()
	names := append([]string(nil), d.order...)
	var extra []string
	for name := range trees {
		if _, ok := d.entries[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	zw := zip.NewWriter(w)
	for _, name := range names {
		data := d.entries[name]
		if x, ok := trees[name]; ok {
			b, err := x.WriteToBytes()
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", name, err)
			}
			data = b
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("failed to create %s in zip: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return zw.Close()
}

// xmlParts returns the parsed trees that replace the raw entries on write.
// A relationships part is only written when it existed or is non-empty.
func (d *Document) xmlParts() map[string]*etree.Document {
	trees := map[string]*etree.Document{contentTypesPath: d.types.xml}
	add := func(p *part) {
		trees[p.name] = p.xml
		if p.rels == nil {
			return
		}
		if _, existed := d.entries[p.rels.name]; existed || len(p.rels.all()) > 0 {
			trees[p.rels.name] = p.rels.xml
		}
	}
	add(d.main)
	for _, f := range d.footers {
		add(f.p)
	}
	return trees
}

// pruneFooters drops footer relationships no footerReference uses, and the
// footer parts no remaining relationship points at.
func (d *Document) pruneFooters() {
	referenced := make(map[string]bool)
	for _, ref := range d.body.FindElements(".//w:footerReference") {
		referenced[ref.SelectAttrValue("r:id", "")] = true
	}

	for _, rel := range d.main.rels.byType(relTypeFooter) {
		if !referenced[rel.ID] {
			d.main.rels.remove(rel.ID)
		}
	}

	live := make(map[string]bool)
	for _, rel := range d.main.rels.byType(relTypeFooter) {
		live[resolveTarget(d.main.dir(), rel.Target)] = true
	}
	for _, name := range append([]string(nil), d.order...) {
		if path.Dir(name) != d.main.dir() || d.types.contentType(name) != ctFooter || live[name] {
			continue
		}
		d.removePart(name)
		d.removePart(relsPath(name))
		d.types.removeOverride(name)
		delete(d.footers, name)
	}
}
