package docstamp

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// XML namespace constants
const (
	nsW             = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR             = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP            = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA             = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic           = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeOfficeDoc = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeFooter    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	relTypeImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	ctFooter = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	ctRels   = "application/vnd.openxmlformats-package.relationships+xml"

	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

const (
	contentTypesPath = "[Content_Types].xml"
	rootRelsPath     = "_rels/.rels"
	defaultMainPath  = "word/document.xml"
)

// part is one XML part of the package together with its relationships.
type part struct {
	doc  *Document
	name string
	xml  *etree.Document
	rels *relationships
}

func (p *part) root() *etree.Element {
	return p.xml.Root()
}

// dir returns the package directory holding the part.
func (p *part) dir() string {
	return path.Dir(p.name)
}

// relsPath returns the location of the relationships part of name.
func relsPath(name string) string {
	return path.Join(path.Dir(name), "_rels", path.Base(name)+".rels")
}

// resolveTarget turns a relationship target into a package path.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}

// relativeTarget returns the relationship target of to as seen from a part
// in baseDir. Only descendants of baseDir get a relative target.
func relativeTarget(baseDir, to string) string {
	prefix := baseDir + "/"
	if baseDir != "." && strings.HasPrefix(to, prefix) {
		return strings.TrimPrefix(to, prefix)
	}
	return "/" + to
}

// relationships is a parsed .rels part.
type relationships struct {
	name string
	xml  *etree.Document
}

func newRelationships(name string) *relationships {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRelationships)
	return &relationships{name: name, xml: doc}
}

// relationship is one Relationship entry.
type relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

func (r *relationships) all() []relationship {
	var out []relationship
	for _, el := range r.xml.Root().SelectElements("Relationship") {
		out = append(out, relationship{
			ID:         el.SelectAttrValue("Id", ""),
			Type:       el.SelectAttrValue("Type", ""),
			Target:     el.SelectAttrValue("Target", ""),
			TargetMode: el.SelectAttrValue("TargetMode", ""),
		})
	}
	return out
}

func (r *relationships) get(id string) (relationship, bool) {
	for _, rel := range r.all() {
		if rel.ID == id {
			return rel, true
		}
	}
	return relationship{}, false
}

func (r *relationships) byType(typ string) []relationship {
	var out []relationship
	for _, rel := range r.all() {
		if rel.Type == typ {
			out = append(out, rel)
		}
	}
	return out
}

// add appends a relationship with the next free rIdN identifier.
func (r *relationships) add(typ, target string) string {
	used := make(map[string]bool)
	maxN := 0
	for _, rel := range r.all() {
		used[rel.ID] = true
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > maxN {
			maxN = n
		}
	}
	id := fmt.Sprintf("rId%d", maxN+1)
	for used[id] {
		maxN++
		id = fmt.Sprintf("rId%d", maxN+1)
	}
	el := r.xml.Root().CreateElement("Relationship")
	el.CreateAttr("Id", id)
	el.CreateAttr("Type", typ)
	el.CreateAttr("Target", target)
	return id
}

// find returns the id of an existing relationship of typ pointing at target.
func (r *relationships) find(typ, target string) (string, bool) {
	for _, rel := range r.byType(typ) {
		if rel.Target == target {
			return rel.ID, true
		}
	}
	return "", false
}

func (r *relationships) remove(id string) {
	root := r.xml.Root()
	for _, el := range root.SelectElements("Relationship") {
		if el.SelectAttrValue("Id", "") == id {
			root.RemoveChild(el)
		}
	}
}

// contentTypes is the parsed [Content_Types].xml part.
type contentTypes struct {
	xml *etree.Document
}

func (c *contentTypes) addOverride(partName, contentType string) {
	name := "/" + strings.TrimPrefix(partName, "/")
	root := c.xml.Root()
	for _, el := range root.SelectElements("Override") {
		if strings.EqualFold(el.SelectAttrValue("PartName", ""), name) {
			el.CreateAttr("ContentType", contentType)
			return
		}
	}
	el := root.CreateElement("Override")
	el.CreateAttr("PartName", name)
	el.CreateAttr("ContentType", contentType)
}

func (c *contentTypes) removeOverride(partName string) {
	name := "/" + strings.TrimPrefix(partName, "/")
	root := c.xml.Root()
	for _, el := range root.SelectElements("Override") {
		if strings.EqualFold(el.SelectAttrValue("PartName", ""), name) {
			root.RemoveChild(el)
		}
	}
}

// ensureDefault registers contentType for an extension unless one is
// already present.
func (c *contentTypes) ensureDefault(ext, contentType string) {
	root := c.xml.Root()
	for _, el := range root.SelectElements("Default") {
		if strings.EqualFold(el.SelectAttrValue("Extension", ""), ext) {
			return
		}
	}
	el := etree.NewElement("Default")
	el.CreateAttr("Extension", ext)
	el.CreateAttr("ContentType", contentType)
	// Defaults precede overrides.
	root.InsertChildAt(0, el)
}

// contentType returns the content type of partName, or "" when unknown.
func (c *contentTypes) contentType(partName string) string {
	name := "/" + strings.TrimPrefix(partName, "/")
	root := c.xml.Root()
	for _, el := range root.SelectElements("Override") {
		if strings.EqualFold(el.SelectAttrValue("PartName", ""), name) {
			return el.SelectAttrValue("ContentType", "")
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, el := range root.SelectElements("Default") {
		if strings.EqualFold(el.SelectAttrValue("Extension", ""), ext) {
			return el.SelectAttrValue("ContentType", "")
		}
	}
	return ""
}

// --- element helpers ---

// Schema order of the child elements the package writes. Unknown children
// keep their relative position.
var (
	pPrOrder = []string{
		"pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr",
		"widowControl", "numPr", "suppressLineNumbers", "pBdr", "shd", "tabs",
		"suppressAutoHyphens", "kinsoku", "wordWrap", "overflowPunct",
		"topLinePunct", "autoSpaceDE", "autoSpaceDN", "bidi", "adjustRightInd",
		"snapToGrid", "spacing", "ind", "contextualSpacing", "mirrorIndents",
		"suppressOverlap", "jc", "textDirection", "textAlignment",
		"textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr",
		"pPrChange",
	}
	sectPrOrder = []string{
		"headerReference", "footerReference", "footnotePr", "endnotePr", "type",
		"pgSz", "pgMar", "paperSrc", "pgBorders", "lnNumType", "pgNumType",
		"cols", "formProt", "vAlign", "noEndnote", "titlePg", "textDirection",
		"bidi", "rtlGutter", "docGrid", "printerSettings", "sectPrChange",
	}
	pBdrOrder = []string{"top", "left", "bottom", "right", "between", "bar"}
)

// wChild returns the w:<local> child of parent, creating it at its schema
// position when missing.
func wChild(parent *etree.Element, local string, order []string) *etree.Element {
	if el := parent.SelectElement("w:" + local); el != nil {
		return el
	}
	el := etree.NewElement("w:" + local)
	parent.InsertChildAt(insertIndex(parent, local, order), el)
	return el
}

// insertIndex finds the Child index before the first w: element that sorts
// after local in order.
func insertIndex(parent *etree.Element, local string, order []string) int {
	rank := indexOf(order, local)
	for i, tok := range parent.Child {
		el, ok := tok.(*etree.Element)
		if !ok || el.Space != "w" {
			continue
		}
		if r := indexOf(order, el.Tag); r > rank {
			return i
		}
	}
	return len(parent.Child)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return len(list)
}

// blockChildren returns the w:<local> block-level children of el in order,
// looking through block-level content controls.
func blockChildren(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Space != "w" {
			continue
		}
		switch c.Tag {
		case local:
			out = append(out, c)
		case "sdt":
			if content := c.SelectElement("w:sdtContent"); content != nil {
				out = append(out, blockChildren(content, local)...)
			}
		}
	}
	return out
}

// ensureNamespace declares prefix on el unless it already is.
func ensureNamespace(el *etree.Element, prefix, uri string) {
	if el.SelectAttr("xmlns:"+prefix) == nil {
		el.CreateAttr("xmlns:"+prefix, uri)
	}
}

func twipsAttr(el *etree.Element, key string, v Twips) {
	el.CreateAttr(key, strconv.FormatInt(int64(v), 10))
}

func parseTwips(s string) Twips {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return Twips(n)
}
