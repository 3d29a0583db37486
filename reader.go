package docstamp

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// maxZipEntrySize is the maximum allowed size for a single file extracted from a ZIP.
// This prevents zip bomb attacks. 50 MB is generous for any legitimate DOCX part.
const maxZipEntrySize = 50 << 20 // 50 MB

// maxZipTotalSize is the cumulative limit for all extracted content from a single ZIP.
const maxZipTotalSize = 200 << 20 // 200 MB

// maxZipEntries is the maximum number of files allowed in a ZIP archive.
const maxZipEntries = 10000

// Open reads a .docx file from disk.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	doc, err := ReadFrom(f, info.Size())
	if err != nil {
		return nil, err
	}
	doc.name = filepath.Base(path)
	return doc, nil
}

// ReadFrom reads a .docx package from an io.ReaderAt. Every entry is loaded
// into memory; only the parts the document model touches are parsed.
func ReadFrom(r io.ReaderAt, size int64) (*Document, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid reader size: %d", size)
	}
	if size > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", size, maxZipTotalSize)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	if len(zr.File) > maxZipEntries {
		return nil, fmt.Errorf("zip archive contains too many entries (%d > %d)", len(zr.File), maxZipEntries)
	}

	doc := &Document{
		entries: make(map[string][]byte, len(zr.File)),
		footers: make(map[string]*Footer),
	}

	var total int64
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, err
		}
		total += int64(len(data))
		if total > maxZipTotalSize {
			return nil, fmt.Errorf("zip content exceeds maximum allowed total size (%d bytes)", maxZipTotalSize)
		}
		doc.order = append(doc.order, f.Name)
		doc.entries[f.Name] = data
	}

	if err := doc.load(); err != nil {
		return nil, err
	}
	return doc, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, fmt.Errorf("file %s exceeds maximum allowed size (%d bytes)", f.Name, maxZipEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxZipEntrySize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from zip: %w", f.Name, err)
	}
	if int64(len(data)) > int64(maxZipEntrySize) {
		return nil, fmt.Errorf("file %s actual size exceeds maximum allowed size", f.Name)
	}
	return data, nil
}

// load parses the parts every document needs: content types, the main
// document part and its relationships.
func (d *Document) load() error {
	ctXML, err := d.parseEntry(contentTypesPath)
	if err != nil {
		return err
	}
	d.types = &contentTypes{xml: ctXML}

	mainPath := defaultMainPath
	if rootRels, err := d.parseEntry(rootRelsPath); err == nil {
		rels := &relationships{name: rootRelsPath, xml: rootRels}
		if offDoc := rels.byType(relTypeOfficeDoc); len(offDoc) > 0 {
			mainPath = resolveTarget("", offDoc[0].Target)
		}
	}

	main, err := d.loadPart(mainPath)
	if err != nil {
		return err
	}
	d.main = main

	body := main.root().SelectElement("w:body")
	if body == nil {
		return fmt.Errorf("%s has no w:body element", mainPath)
	}
	d.body = body
	return nil
}

// loadPart parses an XML part and its relationships. A missing
// relationships part yields an empty one.
func (d *Document) loadPart(name string) (*part, error) {
	x, err := d.parseEntry(name)
	if err != nil {
		return nil, err
	}
	p := &part{doc: d, name: name, xml: x}

	rp := relsPath(name)
	if _, ok := d.entries[rp]; ok {
		rx, err := d.parseEntry(rp)
		if err != nil {
			return nil, err
		}
		p.rels = &relationships{name: rp, xml: rx}
	} else {
		p.rels = newRelationships(rp)
	}
	return p, nil
}

func (d *Document) parseEntry(name string) (*etree.Document, error) {
	data, ok := d.entries[name]
	if !ok {
		return nil, fmt.Errorf("file not found in zip: %s", name)
	}
	x := etree.NewDocument()
	if err := x.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if x.Root() == nil {
		return nil, fmt.Errorf("%s has no root element", name)
	}
	return x, nil
}
