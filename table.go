package docstamp

import "github.com/beevik/etree"

// Table wraps one w:tbl element.
type Table struct {
	el   *etree.Element
	part *part
}

func tablesOf(el *etree.Element, p *part) []*Table {
	var out []*Table
	for _, c := range blockChildren(el, "tbl") {
		out = append(out, &Table{el: c, part: p})
	}
	return out
}

// Rows returns the table rows in order.
func (t *Table) Rows() []*Row {
	var out []*Row
	for _, c := range blockChildren(t.el, "tr") {
		out = append(out, &Row{el: c, part: t.part})
	}
	return out
}

// Row wraps one w:tr element.
type Row struct {
	el   *etree.Element
	part *part
}

// Cells returns the row cells in order.
func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, c := range blockChildren(r.el, "tc") {
		out = append(out, &Cell{el: c, part: r.part})
	}
	return out
}

// Cell wraps one w:tc element.
type Cell struct {
	el   *etree.Element
	part *part
}

// Paragraphs returns the cell paragraphs in order.
func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphsOf(c.el, c.part)
}

// Tables returns the tables nested in the cell.
func (c *Cell) Tables() []*Table {
	return tablesOf(c.el, c.part)
}
