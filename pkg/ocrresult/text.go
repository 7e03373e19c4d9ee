package ocrresult

import "strings"

// Text assembly policy: a word concatenates its symbols, a line joins words
// with a space, a paragraph joins lines with a newline unless its UserText is
// set, a block joins paragraphs with a newline.

// AssembledText returns the word's text, falling back to concatenating its
// symbols when the text field is empty.
func (w Word) AssembledText() string {
	if w.Text != "" {
		return w.Text
	}
	var sb strings.Builder
	for _, s := range w.Symbols {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Text joins the line's words with single spaces.
func (l Line) Text() string {
	parts := make([]string, 0, len(l.Words))
	for _, w := range l.Words {
		parts = append(parts, w.AssembledText())
	}
	return strings.Join(parts, " ")
}

// Text returns UserText verbatim when set, otherwise the lines joined with
// newlines.
func (p Paragraph) Text() string {
	if p.UserText != "" {
		return p.UserText
	}
	parts := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		parts = append(parts, l.Text())
	}
	return strings.Join(parts, "\n")
}

// Text joins the block's paragraphs with newlines.
func (b Block) Text() string {
	parts := make([]string, 0, len(b.Paragraphs))
	for _, p := range b.Paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// HasText reports whether the assembled block text contains anything beyond
// whitespace.
func (b *Block) HasText() bool {
	if b == nil {
		return false
	}
	return strings.TrimSpace(b.Text()) != ""
}

// BoundingHull returns the union of the given boxes; the zero box when the
// slice is empty.
func BoundingHull(boxes ...BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	hull := boxes[0]
	for _, b := range boxes[1:] {
		hull = hull.Union(b)
	}
	return hull
}
