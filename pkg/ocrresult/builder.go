package ocrresult

// Builder assembles a result tree from a depth-first traversal of element
// start markers. Each started element attaches to the innermost started
// ancestor; starting an element implicitly closes any open element of the
// same or deeper level. Recognition backends that iterate their results
// (Tesseract page iterators, Document AI protos) feed this directly.
type Builder struct {
	blocks []Block
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// StartBlock opens a new block.
func (b *Builder) StartBlock(bbox BBox, confidence float64, language string) {
	b.blocks = append(b.blocks, Block{BBox: bbox, Confidence: confidence, Language: language})
}

// StartParagraph opens a paragraph under the current block.
func (b *Builder) StartParagraph(bbox BBox, confidence float64) {
	blk := b.currentBlock()
	if blk == nil {
		return
	}
	blk.Paragraphs = append(blk.Paragraphs, Paragraph{BBox: bbox, Confidence: confidence})
}

// StartLine opens a line under the current paragraph.
func (b *Builder) StartLine(bbox BBox, confidence float64, baseline [2]Point) {
	p := b.currentParagraph()
	if p == nil {
		return
	}
	p.Lines = append(p.Lines, Line{BBox: bbox, Confidence: confidence, Baseline: baseline})
}

// StartWord opens a word under the current line.
func (b *Builder) StartWord(text string, bbox BBox, confidence float64, attrs FontAttributes, lang string) {
	l := b.currentLine()
	if l == nil {
		return
	}
	l.Words = append(l.Words, Word{
		Text:                text,
		BBox:                bbox,
		Confidence:          confidence,
		FontAttributes:      attrs,
		RecognitionLanguage: lang,
	})
}

// AddSymbol appends a symbol to the current word. A word started without
// text assembles its text from the symbols as they arrive.
func (b *Builder) AddSymbol(text string, bbox BBox, confidence float64) {
	w := b.currentWord()
	if w == nil {
		return
	}
	assembled := Word{Symbols: w.Symbols}.AssembledText()
	fromSymbols := w.Text == "" || w.Text == assembled
	w.Symbols = append(w.Symbols, Symbol{Text: text, BBox: bbox, Confidence: confidence})
	if fromSymbols {
		w.Text = assembled + text
	}
}

// Blocks finalizes the tree: every parent box is widened to enclose its
// children, and the built blocks are returned.
func (b *Builder) Blocks() []Block {
	for i := range b.blocks {
		normalizeBlock(&b.blocks[i])
	}
	return b.blocks
}

func normalizeBlock(blk *Block) {
	for i := range blk.Paragraphs {
		p := &blk.Paragraphs[i]
		for j := range p.Lines {
			l := &p.Lines[j]
			for _, w := range l.Words {
				l.BBox = l.BBox.Union(w.BBox)
			}
			p.BBox = p.BBox.Union(l.BBox)
		}
		blk.BBox = blk.BBox.Union(p.BBox)
	}
}

func (b *Builder) currentBlock() *Block {
	if len(b.blocks) == 0 {
		return nil
	}
	return &b.blocks[len(b.blocks)-1]
}

func (b *Builder) currentParagraph() *Paragraph {
	blk := b.currentBlock()
	if blk == nil || len(blk.Paragraphs) == 0 {
		return nil
	}
	return &blk.Paragraphs[len(blk.Paragraphs)-1]
}

func (b *Builder) currentLine() *Line {
	p := b.currentParagraph()
	if p == nil || len(p.Lines) == 0 {
		return nil
	}
	return &p.Lines[len(p.Lines)-1]
}

func (b *Builder) currentWord() *Word {
	l := b.currentLine()
	if l == nil || len(l.Words) == 0 {
		return nil
	}
	return &l.Words[len(l.Words)-1]
}
