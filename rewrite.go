package docstamp

import (
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
	"golang.org/x/text/unicode/norm"
)

// DefaultRunFont is the font of runs produced by a rewrite.
const DefaultRunFont = "Calibri"

// Token delimiters. A token is "[" + key + "]".
const (
	tokenStart = "["
	tokenEnd   = "]"
)

// Rewriter substitutes [key] tokens in paragraph text.
type Rewriter struct {
	values map[string]string
	font   string
}

// NewRewriter prepares repl for repeated rewrites. Keys are compared in
// Unicode NFC form.
func NewRewriter(repl Replacements) *Rewriter {
	values := make(map[string]string, len(repl))
	for k, v := range repl {
		values[norm.NFC.String(k)] = v
	}
	return &Rewriter{values: values, font: DefaultRunFont}
}

// Rewrite substitutes tokens in p with a one-off Rewriter.
func Rewrite(p *Paragraph, repl Replacements) bool {
	return NewRewriter(repl).Rewrite(p)
}

// Rewrite substitutes every known token in the paragraph text. When
// nothing was substituted the paragraph is left untouched and Rewrite
// returns false. Otherwise the paragraph runs are replaced by runs holding
// the new text in the rewriter font.
func (rw *Rewriter) Rewrite(p *Paragraph) bool {
	text, changed := rw.Substitute(p.Text())
	if !changed {
		return false
	}
	p.ReplaceRuns(text, rw.font)
	return true
}

// Substitute replaces every [key] token of text in a single left-to-right
// pass. Replacement values are never scanned for further tokens, so the
// result does not depend on key order. Unknown tokens are kept verbatim.
// Keys are matched in NFC form; text outside replaced tokens is kept
// byte for byte. The boolean reports whether any token was replaced.
func (rw *Rewriter) Substitute(text string) (string, bool) {
	if len(rw.values) == 0 || !strings.Contains(text, tokenStart) {
		return text, false
	}

	var replaced bool
	out, err := fasttemplate.ExecuteFuncStringWithErr(text, tokenStart, tokenEnd,
		func(w io.Writer, tag string) (int, error) {
			// "[[key]" yields the tag "[key"; only the innermost bracket
			// opens the token, the text before it is literal.
			literal, key := "", tag
			if i := strings.LastIndex(tag, tokenStart); i >= 0 {
				literal, key = tokenStart+tag[:i], tag[i+1:]
			}
			if v, ok := rw.values[norm.NFC.String(key)]; ok {
				replaced = true
				return io.WriteString(w, literal+v)
			}
			return io.WriteString(w, tokenStart+tag+tokenEnd)
		})
	if err != nil || !replaced {
		return text, false
	}
	return out, true
}
