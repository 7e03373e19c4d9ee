package ocrengine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/disintegration/imaging"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrresult"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// DocAIConfig identifies a Document AI processor.
type DocAIConfig struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
	// DebugDir, when set, receives the raw JSON-encoded responses for
	// inspection.
	DebugDir string `yaml:"debug_dir,omitempty"`
}

// DocAI recognizes boxes through Google Document AI. Each box crop is sent
// as a separate request; results are converted into the same tree shape the
// local engine produces.
type DocAI struct {
	cfg    DocAIConfig
	langs  []string
	log    logger.Logger
	client *documentai.DocumentProcessorClient
}

// NewDocAI creates the remote engine. Credentials come from the environment
// (GOOGLE_APPLICATION_CREDENTIALS).
func NewDocAI(ctx context.Context, cfg DocAIConfig, langs []string, log logger.Logger) (*DocAI, error) {
	if log == nil {
		log = logger.Nop{}
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	client, err := documentai.NewDocumentProcessorClient(
		ctx,
		option.WithEndpoint(endpoint),
		option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocAI{cfg: cfg, langs: langs, log: log, client: client}, nil
}

// Close releases the API client.
func (e *DocAI) Close() error {
	return e.client.Close()
}

// AvailableLanguages returns the configured language tags; the remote
// processor handles language detection itself.
func (e *DocAI) AvailableLanguages() ([]string, error) {
	return append([]string(nil), e.langs...), nil
}

// RecognizeBoxes sends each text box crop to the processor in sequence and
// attaches the converted result tree. Failures on individual boxes are
// logged and skipped.
func (e *DocAI) RecognizeBoxes(ctx context.Context, imagePath string, boxes []*layout.Box, progress Progress) error {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", imagePath), err)
	}
	var work []*layout.Box
	for _, b := range boxes {
		if b.Type.IsText() {
			work = append(work, b)
		}
	}
	total := len(work)
	for i, box := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, err := e.recognizeCrop(ctx, img, box)
		if err != nil {
			e.log.Warn("recognition failed", "box", box.ID, "error", err)
		} else if block != nil {
			offsetBlock(block, box.X, box.Y)
			box.SetOCRResults(block, layout.SourceBackend)
			box.SetConfidence(block.Confidence, layout.SourceBackend)
		}
		if progress != nil {
			progress(i+1, total, fmt.Sprintf("recognized box %s", box.ID))
		}
	}
	return nil
}

// RecognizeBoxText recognizes a single box and returns its text without
// mutating the box.
func (e *DocAI) RecognizeBoxText(ctx context.Context, imagePath string, box *layout.Box) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", xerror.Wrap(xerror.KindInputMissing, fmt.Sprintf("failed to open image %q", imagePath), err)
	}
	block, err := e.recognizeCrop(ctx, img, box)
	if err != nil {
		return "", err
	}
	if block == nil {
		return "", nil
	}
	return block.Text(), nil
}

func (e *DocAI) recognizeCrop(ctx context.Context, img image.Image, box *layout.Box) (*ocrresult.Block, error) {
	crop, err := cropBox(img, box)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, xerror.Wrap(xerror.KindIO, "failed to encode crop", err)
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.cfg.ProjectID, e.cfg.Location, e.cfg.ProcessorID)
	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  buf.Bytes(),
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
	}
	resp, err := e.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, xerror.Wrap(xerror.KindBackendFailure, fmt.Sprintf("processing failed for box %s", box.ID), err)
	}
	doc := resp.Document
	if e.cfg.DebugDir != "" {
		e.dumpResponse(doc, box.ID)
	}
	return blockFromDocAI(doc), nil
}

// dumpResponse writes the raw proto response as JSON next to the other
// debug dumps. Failures only log.
func (e *DocAI) dumpResponse(doc *documentaipb.Document, boxID string) {
	data, err := protojson.MarshalOptions{Indent: "  "}.Marshal(doc)
	if err != nil {
		e.log.Warn("failed to encode debug dump", "box", boxID, "error", err)
		return
	}
	path := filepath.Join(e.cfg.DebugDir, boxID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		e.log.Warn("failed to write debug dump", "path", path, "error", err)
	}
}

// blockFromDocAI converts the first page of a Document AI response into a
// result block. The proto carries flat block/paragraph/line/token slices
// that reference ranges of the full text; containment of those ranges
// recovers the depth-first marker order the tree builder consumes.
func blockFromDocAI(doc *documentaipb.Document) *ocrresult.Block {
	if doc == nil || len(doc.Pages) == 0 {
		return nil
	}
	page := doc.Pages[0]
	dim := page.Dimension

	b := ocrresult.NewBuilder()
	b.StartBlock(bboxFromLayout(page.Layout, dim), 0, dominantLanguage(doc))

	var confSum float64
	var confCount int
	for _, par := range page.Paragraphs {
		inParagraph := false
		for _, line := range page.Lines {
			if !anchorWithin(line.Layout, par.Layout) {
				continue
			}
			var words []ocrresult.Word
			for _, token := range page.Tokens {
				if !anchorWithin(token.Layout, line.Layout) {
					continue
				}
				w := ocrresult.Word{
					Text:       tokenText(token, doc.Text),
					BBox:       bboxFromLayout(token.Layout, dim),
					Confidence: float64(token.Layout.GetConfidence()) * 100,
				}
				if len(token.DetectedLanguages) > 0 {
					w.RecognitionLanguage = token.DetectedLanguages[0].LanguageCode
				}
				words = append(words, w)
			}
			if len(words) == 0 {
				continue
			}
			if !inParagraph {
				b.StartParagraph(bboxFromLayout(par.Layout, dim), float64(par.Layout.GetConfidence())*100)
				inParagraph = true
			}
			lb := bboxFromLayout(line.Layout, dim)
			baseline := [2]ocrresult.Point{
				{X: lb.X, Y: lb.Bottom()},
				{X: lb.Right(), Y: lb.Bottom()},
			}
			b.StartLine(lb, float64(line.Layout.GetConfidence())*100, baseline)
			for _, w := range words {
				confSum += w.Confidence
				confCount++
				b.StartWord(w.Text, w.BBox, w.Confidence, w.FontAttributes, w.RecognitionLanguage)
			}
		}
	}

	blocks := b.Blocks()
	if len(blocks) == 0 || len(blocks[0].Paragraphs) == 0 {
		return nil
	}
	out := &blocks[0]
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	return out
}

// textFromAnchor extracts the text a layout's anchor segments reference.
func textFromAnchor(l *documentaipb.Document_Page_Layout, fullText string) string {
	if l == nil || l.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	var out []rune
	for _, seg := range l.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(runes) || start >= end {
			continue
		}
		out = append(out, runes[start:end]...)
	}
	return string(out)
}

// tokenText returns a token's text with the detected break trimmed.
func tokenText(token *documentaipb.Document_Page_Token, fullText string) string {
	txt := textFromAnchor(token.Layout, fullText)
	if token.DetectedBreak == nil ||
		token.DetectedBreak.Type == documentaipb.Document_Page_Token_DetectedBreak_TYPE_UNSPECIFIED {
		return txt
	}
	runes := []rune(txt)
	if len(runes) == 0 {
		return txt
	}
	switch runes[len(runes)-1] {
	case ' ', '\n', '\r', '\t':
		return string(runes[:len(runes)-1])
	}
	return txt
}

// anchorWithin reports whether child's first text segment lies inside
// parent's.
func anchorWithin(child, parent *documentaipb.Document_Page_Layout) bool {
	if child == nil || parent == nil ||
		child.TextAnchor == nil || parent.TextAnchor == nil ||
		len(child.TextAnchor.TextSegments) == 0 || len(parent.TextAnchor.TextSegments) == 0 {
		return false
	}
	cs := child.TextAnchor.TextSegments[0]
	ps := parent.TextAnchor.TextSegments[0]
	return cs.StartIndex >= ps.StartIndex && cs.EndIndex <= ps.EndIndex
}

// bboxFromLayout scales normalized vertices (0..1) to pixel coordinates.
func bboxFromLayout(l *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) ocrresult.BBox {
	if l == nil || l.BoundingPoly == nil || dim == nil || len(l.BoundingPoly.NormalizedVertices) < 4 {
		return ocrresult.BBox{}
	}
	v := l.BoundingPoly.NormalizedVertices
	minX := int(v[0].X*dim.Width + 0.5)
	minY := int(v[0].Y*dim.Height + 0.5)
	maxX := int(v[2].X*dim.Width + 0.5)
	maxY := int(v[2].Y*dim.Height + 0.5)
	return ocrresult.BBox{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// dominantLanguage returns the most frequent detected language code.
func dominantLanguage(doc *documentaipb.Document) string {
	counts := make(map[string]int)
	for _, page := range doc.Pages {
		for _, lang := range page.DetectedLanguages {
			counts[lang.LanguageCode]++
		}
		for _, token := range page.Tokens {
			for _, lang := range token.DetectedLanguages {
				counts[lang.LanguageCode]++
			}
		}
	}
	var best string
	var bestCount int
	for lang, count := range counts {
		if count > bestCount {
			best = lang
			bestCount = count
		}
	}
	return best
}
