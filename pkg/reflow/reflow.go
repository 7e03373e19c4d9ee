package reflow

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
)

// Options control the merge gates.
type Options struct {
	// Blacklist holds successor words that must never be merged onto a
	// hyphenated predecessor.
	Blacklist map[string]struct{}
}

// Unhyphenate joins the lines of text into a single flow. Adjacent lines are
// joined with a space, except when a line ends with "-": then the hyphenated
// word and the first word of the next line are joined directly, and the
// hyphen itself is dropped when the dictionary knows the merged form.
//
// Merging never happens when the successor starts with an uppercase letter
// (hyphenated proper nouns stay hyphenated) or is blacklisted; in those cases
// the hyphen is preserved and the words still join without a space.
func Unhyphenate(text string, dict Dictionary, opts Options) string {
	lines := strings.Split(text, "\n")
	var out strings.Builder
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString(" ")
		}
		// Consume following lines while this flow ends hyphenated.
		for strings.HasSuffix(line, "-") && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" {
				break
			}
			i++
			nextWords := strings.Fields(next)
			joined := joinHyphenated(lastWord(line), nextWords[0], dict, opts)
			line = strings.TrimSuffix(line, lastWord(line)) + joined
			if len(nextWords) > 1 {
				line += " " + strings.Join(nextWords[1:], " ")
			}
		}
		out.WriteString(line)
	}
	return out.String()
}

// joinHyphenated joins a "-"-terminated word with its successor. The hyphen
// is removed only when the merged form passes the dictionary and the gates.
func joinHyphenated(w, s string, dict Dictionary, opts Options) string {
	merged := strings.TrimSuffix(w, "-") + s
	if shouldMerge(s, merged, dict, opts) {
		return merged
	}
	return w + s
}

func shouldMerge(successor, merged string, dict Dictionary, opts Options) bool {
	if startsUpper(successor) {
		return false
	}
	if opts.Blacklist != nil {
		if _, ok := opts.Blacklist[strings.ToLower(stripNonAlnum(successor))]; ok {
			return false
		}
	}
	return dict != nil && dict.Check(merged)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// BoxRecord is the flattened export form of a box, produced by a page's
// export data and consumed by the exporters and by MergeBoxes.
type BoxRecord struct {
	ID            string
	Order         int
	X, Y, W, H    int
	Type          boxtype.Type
	Confidence    float64
	UserData      map[string]string
	OCRResults    *ocrresult.Block
	UserText      string
	FlowsIntoNext bool
}

// Text returns the record's user text when set, otherwise the assembled
// recognition text.
func (r BoxRecord) Text() string {
	if r.UserText != "" {
		return r.UserText
	}
	if r.OCRResults != nil {
		return r.OCRResults.Text()
	}
	return ""
}

// MergeBoxes joins flow-linked TEXT records. A record with FlowsIntoNext set
// absorbs the following record when that one is also TEXT-family: the texts
// are unhyphenated and concatenated (hyphen dropped when the dictionary
// approves the joined word, space-joined otherwise), the rectangles union,
// and the confidence takes the minimum. Non-flowing records break the chain;
// non-text records pass through unchanged.
//
// The result is a pure function of the input and the dictionary state.
func MergeBoxes(records []BoxRecord, dict Dictionary, opts Options) []BoxRecord {
	var out []BoxRecord
	for i := 0; i < len(records); i++ {
		r := records[i]
		if !r.Type.IsText() {
			out = append(out, r)
			continue
		}
		merged := r
		merged.UserText = Unhyphenate(r.Text(), dict, opts)
		for merged.FlowsIntoNext && i+1 < len(records) && records[i+1].Type.IsText() {
			next := records[i+1]
			i++
			merged.UserText = joinFlows(merged.UserText, Unhyphenate(next.Text(), dict, opts), dict, opts)
			merged.FlowsIntoNext = next.FlowsIntoNext
			merged.Confidence = minFloat(merged.Confidence, next.Confidence)
			x1 := min(merged.X, next.X)
			y1 := min(merged.Y, next.Y)
			x2 := max(merged.X+merged.W, next.X+next.W)
			y2 := max(merged.Y+merged.H, next.Y+next.H)
			merged.X, merged.Y, merged.W, merged.H = x1, y1, x2-x1, y2-y1
		}
		merged.FlowsIntoNext = false
		out = append(out, merged)
	}
	return out
}

// joinFlows concatenates two already-unhyphenated flows across a box
// boundary, applying the hyphen merge at the seam.
func joinFlows(a, b string, dict Dictionary, opts Options) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	if strings.HasSuffix(a, "-") {
		w := lastWord(a)
		bWords := strings.Fields(b)
		joined := joinHyphenated(w, bWords[0], dict, opts)
		rest := ""
		if len(bWords) > 1 {
			rest = " " + strings.Join(bWords[1:], " ")
		}
		return strings.TrimSuffix(a, w) + joined + rest
	}
	return a + " " + b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
