package ocrresult

import (
	"encoding/json"
	"fmt"
)

// Wire shapes of the sidecar format. Each node carries a "type" discriminator
// so the files remain self-describing.

type blockJSON struct {
	Type       string      `json:"type"`
	BBox       BBox        `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Language   string      `json:"language"`
}

type paragraphJSON struct {
	Type            string  `json:"type"`
	BBox            BBox    `json:"bbox"`
	Confidence      float64 `json:"confidence"`
	Lines           []Line  `json:"lines"`
	UserText        string  `json:"user_text"`
	Justification   string  `json:"justification,omitempty"`
	IsListItem      bool    `json:"is_list_item,omitempty"`
	IsCrown         bool    `json:"is_crown,omitempty"`
	FirstLineIndent int     `json:"first_line_indent,omitempty"`
}

type lineJSON struct {
	Type       string   `json:"type"`
	BBox       BBox     `json:"bbox"`
	Confidence float64  `json:"confidence"`
	Baseline   [2]Point `json:"baseline"`
	Words      []Word   `json:"words"`
}

type wordJSON struct {
	Type                string         `json:"type"`
	Text                string         `json:"text"`
	BBox                BBox           `json:"bbox"`
	Confidence          float64        `json:"confidence"`
	FontAttributes      FontAttributes `json:"word_font_attributes"`
	RecognitionLanguage string         `json:"word_recognition_language"`
	Symbols             []Symbol       `json:"symbols"`
}

type symbolJSON struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockJSON{
		Type:       "block",
		BBox:       b.BBox,
		Confidence: b.Confidence,
		Paragraphs: b.Paragraphs,
		Language:   b.Language,
	})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != "" && w.Type != "block" {
		return fmt.Errorf("expected node type %q, got %q", "block", w.Type)
	}
	b.BBox = w.BBox
	b.Confidence = w.Confidence
	b.Paragraphs = w.Paragraphs
	b.Language = w.Language
	return nil
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(paragraphJSON{
		Type:            "paragraph",
		BBox:            p.BBox,
		Confidence:      p.Confidence,
		Lines:           p.Lines,
		UserText:        p.UserText,
		Justification:   p.Justification,
		IsListItem:      p.IsListItem,
		IsCrown:         p.IsCrown,
		FirstLineIndent: p.FirstLineIndent,
	})
}

func (p *Paragraph) UnmarshalJSON(data []byte) error {
	var w paragraphJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != "" && w.Type != "paragraph" {
		return fmt.Errorf("expected node type %q, got %q", "paragraph", w.Type)
	}
	p.BBox = w.BBox
	p.Confidence = w.Confidence
	p.Lines = w.Lines
	p.UserText = w.UserText
	p.Justification = w.Justification
	p.IsListItem = w.IsListItem
	p.IsCrown = w.IsCrown
	p.FirstLineIndent = w.FirstLineIndent
	return nil
}

func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineJSON{
		Type:       "line",
		BBox:       l.BBox,
		Confidence: l.Confidence,
		Baseline:   l.Baseline,
		Words:      l.Words,
	})
}

func (l *Line) UnmarshalJSON(data []byte) error {
	var w lineJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != "" && w.Type != "line" {
		return fmt.Errorf("expected node type %q, got %q", "line", w.Type)
	}
	l.BBox = w.BBox
	l.Confidence = w.Confidence
	l.Baseline = w.Baseline
	l.Words = w.Words
	return nil
}

func (wd Word) MarshalJSON() ([]byte, error) {
	return json.Marshal(wordJSON{
		Type:                "word",
		Text:                wd.Text,
		BBox:                wd.BBox,
		Confidence:          wd.Confidence,
		FontAttributes:      wd.FontAttributes,
		RecognitionLanguage: wd.RecognitionLanguage,
		Symbols:             wd.Symbols,
	})
}

func (wd *Word) UnmarshalJSON(data []byte) error {
	var w wordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != "" && w.Type != "word" {
		return fmt.Errorf("expected node type %q, got %q", "word", w.Type)
	}
	wd.Text = w.Text
	wd.BBox = w.BBox
	wd.Confidence = w.Confidence
	wd.FontAttributes = w.FontAttributes
	wd.RecognitionLanguage = w.RecognitionLanguage
	wd.Symbols = w.Symbols
	return nil
}

func (s Symbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(symbolJSON{
		Type:       "symbol",
		Text:       s.Text,
		BBox:       s.BBox,
		Confidence: s.Confidence,
	})
}

func (s *Symbol) UnmarshalJSON(data []byte) error {
	var w symbolJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != "" && w.Type != "symbol" {
		return fmt.Errorf("expected node type %q, got %q", "symbol", w.Type)
	}
	s.Text = w.Text
	s.BBox = w.BBox
	s.Confidence = w.Confidence
	return nil
}
