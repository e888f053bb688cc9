// Package pdfexport renders printable practice sheets for a character
// template: a numbered model of the strokes and a grid of faint copies to
// trace over.
package pdfexport

import (
	"fmt"
	"io"
	"math"

	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/contentstream/draw"
	"github.com/unidoc/unipdf/v3/creator"

	"github.com/okian/umwero/internal/domain/stroke"
)

// Layout in PDF points.
const (
	margin      = 40.0
	headerSpace = 70.0
	modelSize   = 180.0
	cellPadding = 0.12 // fraction of the cell kept empty on each side
	gapAfter    = 24.0
	markerSize  = 5.0
	modelWidth  = 2.5
	traceWidth  = 1.5
	borderWidth = 0.5
)

type rgb struct{ r, g, b float64 }

var (
	ink    = rgb{0, 0, 0}
	faint  = rgb{0.8, 0.8, 0.8}
	border = rgb{0.6, 0.7, 0.85}
	accent = rgb{0.85, 0.2, 0.2}
)

type sheet struct {
	rows    int
	columns int
	title   string
	learner string
}

// cell is a square region in top-left page coordinates.
type cell struct {
	x, y, size float64
}

// WriteSheet renders an A4 practice sheet for tpl to w.
func WriteSheet(w io.Writer, tpl stroke.CharacterTemplate, opts ...Option) error {
	s := &sheet{
		rows:    4,
		columns: 4,
		title:   heading(tpl),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := creator.New()
	c.SetPageSize(creator.PageSizeA4)
	page := c.NewPage()

	title := c.NewParagraph(s.title)
	title.SetFontSize(20)
	title.SetPos(margin, margin)
	if err := c.Draw(title); err != nil {
		return fmt.Errorf("%w: title: %w", ErrRender, err)
	}
	if s.learner != "" {
		sub := c.NewParagraph("Learner: " + s.learner)
		sub.SetFontSize(10)
		sub.SetPos(margin, margin+28)
		if err := c.Draw(sub); err != nil {
			return fmt.Errorf("%w: learner: %w", ErrRender, err)
		}
	}

	cc := contentstream.NewContentCreator()
	pageHeight := c.Height()

	model := cell{x: margin, y: margin + headerSpace, size: modelSize}
	drawBorder(cc, model, pageHeight)
	for i, pts := range tpl.Strokes {
		mapped := fit(pts, tpl.Bounds, model)
		drawStroke(cc, mapped, pageHeight, ink, modelWidth)
		start := mapped[0]
		drawMarker(cc, start, pageHeight)

		label := c.NewParagraph(fmt.Sprintf("%d", i+1))
		label.SetFontSize(9)
		label.SetColor(creator.ColorRGBFromArithmetic(accent.r, accent.g, accent.b))
		label.SetPos(start.X+markerSize, start.Y-3*markerSize)
		if err := c.Draw(label); err != nil {
			return fmt.Errorf("%w: stroke label: %w", ErrRender, err)
		}
	}

	gridTop := model.y + model.size + gapAfter
	usableWidth := c.Width() - 2*margin
	usableHeight := pageHeight - gridTop - margin
	size := math.Min(usableWidth/float64(s.columns), usableHeight/float64(s.rows))
	for r := 0; r < s.rows; r++ {
		for col := 0; col < s.columns; col++ {
			box := cell{x: margin + float64(col)*size, y: gridTop + float64(r)*size, size: size}
			drawBorder(cc, box, pageHeight)
			for _, pts := range tpl.Strokes {
				drawStroke(cc, fit(pts, tpl.Bounds, box), pageHeight, faint, traceWidth)
			}
		}
	}

	if err := page.AppendContentStream(string(cc.Operations().Bytes())); err != nil {
		return fmt.Errorf("%w: strokes: %w", ErrRender, err)
	}
	if err := c.Write(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func heading(tpl stroke.CharacterTemplate) string {
	if tpl.Name == "" {
		return fmt.Sprintf("Character %s", tpl.Character)
	}
	return fmt.Sprintf("Character %s (%s)", tpl.Character, tpl.Name)
}

// fit maps template points into box, keeping the aspect ratio and
// centering the glyph. Returned points are in top-left page coordinates.
func fit(pts []stroke.Point, b stroke.Bounds, box cell) []stroke.Point {
	inner := box.size * (1 - 2*cellPadding)
	extent := math.Max(b.Width(), b.Height())
	scale := 1.0
	if extent > 0 {
		scale = inner / extent
	}
	offX := box.x + (box.size-b.Width()*scale)/2
	offY := box.y + (box.size-b.Height()*scale)/2

	out := make([]stroke.Point, len(pts))
	for i, p := range pts {
		out[i] = stroke.Point{
			X: offX + (p.X-b.MinX)*scale,
			Y: offY + (p.Y-b.MinY)*scale,
		}
	}
	return out
}

func drawStroke(cc *contentstream.ContentCreator, pts []stroke.Point, pageHeight float64, col rgb, width float64) {
	if len(pts) < 2 {
		return
	}
	path := draw.NewPath()
	for _, p := range pts {
		path = path.AppendPoint(draw.NewPoint(p.X, pageHeight-p.Y))
	}
	cc.Add_q()
	cc.Add_w(width)
	cc.Add_J("1")
	cc.Add_j("1")
	cc.Add_RG(col.r, col.g, col.b)
	draw.DrawPathWithCreator(path, cc)
	cc.Add_S()
	cc.Add_Q()
}

func drawMarker(cc *contentstream.ContentCreator, p stroke.Point, pageHeight float64) {
	cc.Add_q()
	cc.Add_rg(accent.r, accent.g, accent.b)
	cc.Add_re(p.X-markerSize/2, pageHeight-p.Y-markerSize/2, markerSize, markerSize)
	cc.Add_f()
	cc.Add_Q()
}

func drawBorder(cc *contentstream.ContentCreator, box cell, pageHeight float64) {
	cc.Add_q()
	cc.Add_w(borderWidth)
	cc.Add_RG(border.r, border.g, border.b)
	cc.Add_re(box.x, pageHeight-box.y-box.size, box.size, box.size)
	cc.Add_S()
	cc.Add_Q()
}
