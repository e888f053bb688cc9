// Package stroke holds the geometric model shared by the scorer and the
// template catalog: points, strokes, templates and normalized paths.
package stroke

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Point is a 2-D coordinate in input device space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen-down to pen-up motion.
// Points are kept in the order they were captured.
type Stroke struct {
	Points    []Point   `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// Bounds is the axis-aligned bounding box of a point cloud.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent of the box.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent of the box.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// CharacterTemplate is the authoritative reference for one glyph.
type CharacterTemplate struct {
	ID        string    `json:"id"`
	Character string    `json:"character"`
	Name      string    `json:"name,omitempty"`
	Strokes   [][]Point `json:"strokes"`
	Bounds    Bounds    `json:"bounds"`
}

// NewTemplate validates the reference strokes and computes their bounds.
// A template needs an id, at least one stroke and no empty stroke.
func NewTemplate(id, character, name string, strokes [][]Point) (CharacterTemplate, error) {
	if strings.TrimSpace(id) == "" {
		return CharacterTemplate{}, fmt.Errorf("missing id: %w", ErrInvalidTemplate)
	}
	if len(strokes) == 0 {
		return CharacterTemplate{}, fmt.Errorf("template %q has no strokes: %w", id, ErrInvalidTemplate)
	}
	for i, s := range strokes {
		if len(s) == 0 {
			return CharacterTemplate{}, fmt.Errorf("template %q stroke %d is empty: %w", id, i, ErrInvalidTemplate)
		}
	}
	return CharacterTemplate{
		ID:        id,
		Character: character,
		Name:      name,
		Strokes:   strokes,
		Bounds:    BoundsOf(strokes...),
	}, nil
}

// StrokeCount returns the number of reference strokes.
func (t CharacterTemplate) StrokeCount() int { return len(t.Strokes) }

// BoundsOf returns the bounding box of every point in the given sequences.
// The zero Bounds is returned when there are no points.
func BoundsOf(seqs ...[]Point) Bounds {
	b := Bounds{
		MinX: math.Inf(1),
		MaxX: math.Inf(-1),
		MinY: math.Inf(1),
		MaxY: math.Inf(-1),
	}
	n := 0
	for _, seq := range seqs {
		for _, p := range seq {
			b.MinX = math.Min(b.MinX, p.X)
			b.MaxX = math.Max(b.MaxX, p.X)
			b.MinY = math.Min(b.MinY, p.Y)
			b.MaxY = math.Max(b.MaxY, p.Y)
			n++
		}
	}
	if n == 0 {
		return Bounds{}
	}
	return b
}
