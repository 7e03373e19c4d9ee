package ocrresult

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ParseHOCR converts raw hOCR data, as emitted by Tesseract, into result
// blocks. Content areas map to blocks, ocr_par to paragraphs, ocr_line (and
// the specialised line classes) to lines, ocrx_word to words, and ocrx_cinfo
// spans, when present, to symbols.
func ParseHOCR(data []byte) ([]Block, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, err
	}

	var blocks []Block
	var findAreas func(*html.Node)
	findAreas = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := getAttrVal(n, "class")
			if strings.Contains(class, "ocr_carea") {
				blocks = append(blocks, processArea(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findAreas(c)
		}
	}
	findAreas(doc)

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no ocr_carea elements found in hOCR data")
	}
	return blocks, nil
}

// decodeCharset sniffs the charset declaration and re-decodes Latin-1 input
// to UTF-8 when needed.
func decodeCharset(data []byte) ([]byte, error) {
	content := string(data)
	encoding := "utf-8"
	if idx := strings.Index(content, "charset="); idx >= 0 {
		start := idx + len("charset=")
		if len(content) > start+10 {
			snippet := content[start : start+20]
			enc := strings.ToLower(strings.FieldsFunc(snippet, func(r rune) bool {
				return r == '"' || r == ';' || r == '\'' || r == '>'
			})[0])
			if enc != "" {
				encoding = enc
			}
		}
	}
	if encoding == "utf-8" {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", encoding, err)
	}
	return decoded, nil
}

// parseTitle breaks an hOCR title attribute into its properties.
// Example input: "bbox 100 200 300 400; x_wconf 95"
func parseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// bboxFromTitle extracts a bounding box from a title string; hOCR carries
// corner coordinates, the tree stores position and size.
func bboxFromTitle(props map[string][]string) (BBox, bool) {
	vals, ok := props["bbox"]
	if !ok || len(vals) < 4 {
		return BBox{}, false
	}
	x1, _ := strconv.Atoi(vals[0])
	y1, _ := strconv.Atoi(vals[1])
	x2, _ := strconv.Atoi(vals[2])
	y2, _ := strconv.Atoi(vals[3])
	return BBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

func processArea(n *html.Node) Block {
	block := Block{Language: getAttrVal(n, "lang")}
	props := parseTitle(getAttrVal(n, "title"))
	if bbox, ok := bboxFromTitle(props); ok {
		block.BBox = bbox
	}

	var paragraphNodes, lineNodes []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode {
			class := getAttrVal(node, "class")
			switch {
			case strings.Contains(class, "ocr_par"):
				paragraphNodes = append(paragraphNodes, node)
				return
			case isLineClass(class):
				lineNodes = append(lineNodes, node)
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c)
	}

	for _, pn := range paragraphNodes {
		block.Paragraphs = append(block.Paragraphs, processParagraph(pn))
	}
	// Lines with no paragraph parent get a synthetic one so the hierarchy
	// stays uniform.
	if len(lineNodes) > 0 {
		para := Paragraph{}
		for _, ln := range lineNodes {
			para.Lines = append(para.Lines, processLine(ln))
		}
		for _, l := range para.Lines {
			para.BBox = para.BBox.Union(l.BBox)
		}
		block.Paragraphs = append(block.Paragraphs, para)
	}

	block.Confidence = averageConfidence(block.Paragraphs)
	if block.Language == "" {
		block.Language = firstWordLanguage(block.Paragraphs)
	}
	return block
}

func processParagraph(n *html.Node) Paragraph {
	para := Paragraph{}
	props := parseTitle(getAttrVal(n, "title"))
	if bbox, ok := bboxFromTitle(props); ok {
		para.BBox = bbox
	}

	var lineNodes []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && isLineClass(getAttrVal(node, "class")) {
			lineNodes = append(lineNodes, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c)
	}

	var confSum float64
	for _, ln := range lineNodes {
		line := processLine(ln)
		para.Lines = append(para.Lines, line)
		confSum += line.Confidence
	}
	if len(para.Lines) > 0 {
		para.Confidence = confSum / float64(len(para.Lines))
	}
	return para
}

func processLine(n *html.Node) Line {
	line := Line{}
	props := parseTitle(getAttrVal(n, "title"))
	bbox, hasBBox := bboxFromTitle(props)
	if hasBBox {
		line.BBox = bbox
	}

	// hOCR baselines are "slope intercept" relative to the line box bottom;
	// the tree stores the two endpoints.
	if base, ok := props["baseline"]; ok && len(base) >= 2 && hasBBox {
		slope, _ := strconv.ParseFloat(base[0], 64)
		intercept, _ := strconv.ParseFloat(base[1], 64)
		y0 := bbox.Bottom() + int(intercept)
		y1 := bbox.Bottom() + int(intercept+slope*float64(bbox.W))
		line.Baseline = [2]Point{{X: bbox.X, Y: y0}, {X: bbox.Right(), Y: y1}}
	}

	var extractWords func(*html.Node)
	extractWords = func(node *html.Node) {
		if node.Type == html.ElementNode && strings.Contains(getAttrVal(node, "class"), "ocrx_word") {
			line.Words = append(line.Words, processWord(node))
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			extractWords(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractWords(c)
	}

	var confSum float64
	for _, w := range line.Words {
		confSum += w.Confidence
	}
	if len(line.Words) > 0 {
		line.Confidence = confSum / float64(len(line.Words))
	}
	return line
}

func processWord(n *html.Node) Word {
	word := Word{RecognitionLanguage: getAttrVal(n, "lang")}
	props := parseTitle(getAttrVal(n, "title"))
	if bbox, ok := bboxFromTitle(props); ok {
		word.BBox = bbox
	}
	if conf, ok := props["x_wconf"]; ok && len(conf) > 0 {
		word.Confidence, _ = strconv.ParseFloat(conf[0], 64)
	}
	if size, ok := props["x_fsize"]; ok && len(size) > 0 {
		word.FontAttributes.Pointsize, _ = strconv.Atoi(size[0])
	}
	if lang, ok := props["lang"]; ok && len(lang) > 0 {
		word.RecognitionLanguage = lang[0]
	}

	// Tesseract marks emphasis with nested strong/em elements.
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "strong", "b":
				word.FontAttributes.Bold = true
			case "em", "i":
				word.FontAttributes.Italic = true
			}
		}
	}

	for _, sn := range collectByClass(n, "ocrx_cinfo") {
		sym := Symbol{Text: extractTextContent(sn)}
		sprops := parseTitle(getAttrVal(sn, "title"))
		if bbox, ok := bboxFromTitle(sprops); ok {
			sym.BBox = bbox
		}
		if conf, ok := sprops["x_conf"]; ok && len(conf) > 0 {
			sym.Confidence, _ = strconv.ParseFloat(conf[0], 64)
		}
		word.Symbols = append(word.Symbols, sym)
	}

	word.Text = extractTextContent(n)
	if word.Text == "" {
		word.Text = Word{Symbols: word.Symbols}.AssembledText()
	}
	return word
}

// isLineClass matches ocr_line plus the specialised line classes Tesseract
// emits for headers, captions, and floats.
func isLineClass(class string) bool {
	for _, c := range []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"} {
		if strings.Contains(class, c) {
			return true
		}
	}
	return false
}

func collectByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && strings.Contains(getAttrVal(node, "class"), class) {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func extractTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text += extractTextContent(c)
	}
	return strings.TrimSpace(text)
}

func getAttrVal(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func averageConfidence(paragraphs []Paragraph) float64 {
	var sum float64
	var n int
	for _, p := range paragraphs {
		for _, l := range p.Lines {
			for _, w := range l.Words {
				sum += w.Confidence
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func firstWordLanguage(paragraphs []Paragraph) string {
	for _, p := range paragraphs {
		for _, l := range p.Lines {
			for _, w := range l.Words {
				if w.RecognitionLanguage != "" {
					return w.RecognitionLanguage
				}
			}
		}
	}
	return ""
}
