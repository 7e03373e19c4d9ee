// Package project binds page images, layouts and settings into a project
// that can be analyzed, recognized, persisted and exported.
package project

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ocrdesk/ocrdesk/pkg/analyzer"
	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrengine"
	"github.com/ocrdesk/ocrdesk/pkg/reflow"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Page binds an image to its layout. Settings are a read-only view onto the
// owning project's layered settings.
type Page struct {
	ID        string
	ImagePath string
	Order     int
	Layout    *layout.PageLayout

	settings *settings.Settings
	log      logger.Logger
}

// NewPage creates a page for an image of the given pixel extent.
func NewPage(imagePath string, width, height int, s *settings.Settings, log logger.Logger) *Page {
	if log == nil {
		log = logger.Nop{}
	}
	return &Page{
		ID:        uuid.NewString(),
		ImagePath: imagePath,
		Layout:    layout.NewPageLayout(layout.Rect{W: width, H: height}),
		settings:  s,
		log:       log,
	}
}

// Settings returns the page's settings view.
func (p *Page) Settings() *settings.Settings { return p.settings }

// SetHeader moves the top of the content band.
func (p *Page) SetHeader(y int) { p.Layout.HeaderY = y }

// SetFooter moves the bottom of the content band.
func (p *Page) SetFooter(y int) { p.Layout.FooterY = y }

// AnalyzePage runs the layout analyzer over region (default: the active
// band) and installs the resulting boxes. With keepExisting, new boxes
// extend the existing order numbering; otherwise prior boxes are discarded.
// Analyzer failures are recoverable: they log and leave the layout as is.
func (p *Page) AnalyzePage(ctx context.Context, a analyzer.Analyzer, region *layout.Rect, keepExisting bool) error {
	if p.ImagePath == "" {
		p.log.Warn("page has no image path", "page", p.Order)
		return nil
	}
	if region == nil {
		r := p.Layout.ActiveRegion()
		region = &r
	}
	if region.W <= 0 || region.H <= 0 {
		p.log.Warn("refusing to analyze empty region", "page", p.Order)
		return nil
	}

	boxes, err := a.AnalyzeLayout(ctx, p.ImagePath, region)
	if err != nil {
		if xerror.Recoverable(err) {
			p.log.Warn("layout analysis failed", "page", p.Order, "error", err)
			return nil
		}
		return err
	}

	if !keepExisting {
		for p.Layout.Len() > 0 {
			if err := p.Layout.RemoveBox(0); err != nil {
				return err
			}
		}
	}
	next := p.Layout.MaxOrder() + 1
	for _, b := range boxes {
		b.Order = next
		next++
		p.Layout.AddBox(b)
	}
	p.Layout.SortBoxesByOrder()
	return nil
}

// AnalyzeBox re-analyzes the rectangle of box i. A single returned candidate
// replaces the original in place, adopting its identity (id, order, user
// data, observers, text override and flow flag). Any other count removes the
// original and adds all candidates.
func (p *Page) AnalyzeBox(ctx context.Context, a analyzer.Analyzer, i int) error {
	box, err := p.Layout.Box(i)
	if err != nil {
		p.log.Warn("box index out of range", "page", p.Order, "index", i)
		return nil
	}
	region := layout.Rect{X: box.X, Y: box.Y, W: box.W, H: box.H}
	candidates, err := a.AnalyzeLayout(ctx, p.ImagePath, &region)
	if err != nil {
		if xerror.Recoverable(err) {
			p.log.Warn("box analysis failed", "page", p.Order, "box", box.ID, "error", err)
			return nil
		}
		return err
	}

	if len(candidates) == 1 {
		c := candidates[0]
		c.AdoptIdentity(box)
		return p.Layout.ReplaceBox(i, c)
	}
	if err := p.Layout.RemoveBox(i); err != nil {
		return err
	}
	next := p.Layout.MaxOrder() + 1
	for _, c := range candidates {
		c.Order = next
		next++
		p.Layout.AddBox(c)
	}
	p.Layout.SortBoxesByOrder()
	return nil
}

// AlignBox re-analyzes box i's rectangle and snaps its geometry to the
// candidate most similar to the original. With no candidates the box is
// removed.
func (p *Page) AlignBox(ctx context.Context, a analyzer.Analyzer, i int) error {
	box, err := p.Layout.Box(i)
	if err != nil {
		p.log.Warn("box index out of range", "page", p.Order, "index", i)
		return nil
	}
	region := layout.Rect{X: box.X, Y: box.Y, W: box.W, H: box.H}
	candidates, err := a.AnalyzeLayout(ctx, p.ImagePath, &region)
	if err != nil {
		if xerror.Recoverable(err) {
			p.log.Warn("box alignment failed", "page", p.Order, "box", box.ID, "error", err)
			return nil
		}
		return err
	}
	if len(candidates) == 0 {
		return p.Layout.RemoveBox(i)
	}

	best := candidates[0]
	bestScore := box.Similarity(best)
	for _, c := range candidates[1:] {
		if score := box.Similarity(c); score > bestScore {
			best, bestScore = c, score
		}
	}
	box.UpdatePosition(best.X, best.Y, layout.SourceBackend)
	return box.UpdateSize(best.W, best.H, layout.SourceBackend)
}

// RecognizeBoxes sends either box index (when >= 0) or all boxes to the
// engine. After a full run, text boxes that still carry no text are
// converted to images when convertEmpty is set.
func (p *Page) RecognizeBoxes(ctx context.Context, e ocrengine.Engine, index int, convertEmpty bool, progress ocrengine.Progress) error {
	if p.ImagePath == "" {
		p.log.Warn("page has no image path", "page", p.Order)
		return nil
	}

	var boxes []*layout.Box
	if index >= 0 {
		box, err := p.Layout.Box(index)
		if err != nil {
			p.log.Warn("box index out of range", "page", p.Order, "index", index)
			return nil
		}
		boxes = []*layout.Box{box}
	} else {
		boxes = p.Layout.Boxes()
	}

	if err := e.RecognizeBoxes(ctx, p.ImagePath, boxes, progress); err != nil {
		if xerror.Recoverable(err) {
			p.log.Warn("recognition failed", "page", p.Order, "error", err)
			return nil
		}
		return err
	}

	if index < 0 && convertEmpty {
		for i := 0; i < p.Layout.Len(); i++ {
			b, err := p.Layout.Box(i)
			if err != nil {
				return err
			}
			if b.Type.IsText() && !b.HasText() {
				p.log.Debug("converting empty text box to image", "page", p.Order, "box", b.ID)
				if err := p.ConvertBox(i, boxtype.FlowingImage); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ConvertBox converts box i to type t in place.
func (p *Page) ConvertBox(i int, t boxtype.Type) error {
	box, err := p.Layout.Box(i)
	if err != nil {
		return err
	}
	return p.Layout.ReplaceBox(i, box.ConvertTo(t))
}

// ExportData flattens the layout into the records the exporters consume.
func (p *Page) ExportData() []reflow.BoxRecord {
	boxes := p.Layout.Boxes()
	records := make([]reflow.BoxRecord, 0, len(boxes))
	for _, b := range boxes {
		rec := reflow.BoxRecord{
			ID:         b.ID,
			Order:      b.Order,
			X:          b.X,
			Y:          b.Y,
			W:          b.W,
			H:          b.H,
			Type:       b.Type,
			Confidence: b.Confidence,
			UserData:   b.UserData,
			OCRResults: b.OCRResults,
		}
		if b.Type.IsText() {
			rec.UserText = b.UserText
			rec.FlowsIntoNext = b.FlowsIntoNext
		}
		records = append(records, rec)
	}
	return records
}

// pageJSON is the serialized page shape.
type pageJSON struct {
	ID        string             `json:"id"`
	ImagePath string             `json:"image_path"`
	Order     int                `json:"order"`
	Layout    *layout.PageLayout `json:"layout"`
}

func (p *Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(pageJSON{
		ID:        p.ID,
		ImagePath: p.ImagePath,
		Order:     p.Order,
		Layout:    p.Layout,
	})
}

func (p *Page) UnmarshalJSON(data []byte) error {
	var raw pageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.ImagePath = raw.ImagePath
	p.Order = raw.Order
	p.Layout = raw.Layout
	if p.Layout == nil {
		p.Layout = layout.NewPageLayout(layout.Rect{})
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.log == nil {
		p.log = logger.Nop{}
	}
	return nil
}
