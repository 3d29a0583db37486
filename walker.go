package docstamp

import (
	"fmt"
	"log/slog"
	"os"
)

// SectionLayout is the page geometry applied to every stamped section.
type SectionLayout struct {
	FooterDistance Twips
	LeftMargin     Twips
	RightMargin    Twips
}

// DefaultSectionLayout pulls the footer to the page edge and leaves
// 1.5 cm and 2 cm side margins.
func DefaultSectionLayout() *SectionLayout {
	return &SectionLayout{
		FooterDistance: 0,
		LeftMargin:     TwipsFromCentimeter(1.5),
		RightMargin:    TwipsFromCentimeter(2),
	}
}

// WalkReport summarises one walk over a document.
type WalkReport struct {
	Paragraphs int // paragraphs visited, table cells included
	Rewritten  int // paragraphs whose text changed
	Sections   int
	// FootersWithContent counts sections whose footer showed something
	// before it was replaced by the stamp.
	FootersWithContent int
}

// Walker substitutes tokens in a document body and stamps every section
// footer.
type Walker struct {
	// Layout, when set, is applied to every section.
	Layout *SectionLayout
	// FooterRule, when set, draws a rule above the stamp paragraph.
	FooterRule *Border
	Logger     *slog.Logger
}

// StampAndSubstitute walks doc with a default Walker.
func StampAndSubstitute(doc *Document, repl Replacements, stamp *Stamp) (*WalkReport, error) {
	return (&Walker{}).Walk(doc, repl, stamp)
}

// Walk rewrites the body paragraphs, then the body tables, and finally
// replaces the footer of every section with a single right-aligned
// paragraph holding the stamp picture. Footers are never substituted.
func (w *Walker) Walk(doc *Document, repl Replacements, stamp *Stamp) (*WalkReport, error) {
	const errCtx = "walking document"

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(stamp.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: reading stamp: %w", errCtx, err)
	}

	report := &WalkReport{}
	rw := NewRewriter(repl)
	w.rewriteParagraphs(doc.Paragraphs(), rw, report)
	for _, t := range doc.Tables() {
		w.rewriteTable(t, rw, report)
	}

	img, err := doc.AddImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	for i, s := range doc.Sections() {
		current, err := s.Footer()
		if err != nil {
			return nil, fmt.Errorf("%s: section %d: %w", errCtx, i+1, err)
		}
		hadContent := current != nil && current.HasContent()
		if hadContent {
			report.FootersWithContent++
		}

		f, err := s.UnlinkFooter()
		if err != nil {
			return nil, fmt.Errorf("%s: section %d: %w", errCtx, i+1, err)
		}
		f.Clear()

		p := f.AddParagraph()
		p.SetAlignment(AlignmentRight)
		p.SetSpacing(0, 0)
		if w.FooterRule != nil {
			p.SetBorder(BorderTop, *w.FooterRule)
		}
		p.AddRun().AddPicture(img, stamp.Width, stamp.Height)

		if w.Layout != nil {
			s.SetFooterDistance(w.Layout.FooterDistance)
			s.SetHorizontalMargins(w.Layout.LeftMargin, w.Layout.RightMargin)
		}

		report.Sections++
		logger.Debug("section stamped",
			"document", doc.Name(),
			"section", i+1,
			"footer", f.Path(),
			"had_footer_content", hadContent,
		)
	}

	return report, nil
}

func (w *Walker) rewriteParagraphs(paras []*Paragraph, rw *Rewriter, report *WalkReport) {
	for _, p := range paras {
		report.Paragraphs++
		if rw.Rewrite(p) {
			report.Rewritten++
		}
	}
}

func (w *Walker) rewriteTable(t *Table, rw *Rewriter, report *WalkReport) {
	for _, row := range t.Rows() {
		for _, cell := range row.Cells() {
			w.rewriteParagraphs(cell.Paragraphs(), rw, report)
			for _, nested := range cell.Tables() {
				w.rewriteTable(nested, rw, report)
			}
		}
	}
}
