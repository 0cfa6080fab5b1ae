package pdfgrid

import (
	"math"
	"slices"
)

// Rect represents a bounding box in PDF coordinates.
type Rect struct {
	X0 float64 // Left
	Y0 float64 // Top (after conversion from PDF coordinates)
	X1 float64 // Right
	Y1 float64 // Bottom (after conversion from PDF coordinates)
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// EnrichedChar represents a single character with the metadata needed to build tokens.
type EnrichedChar struct {
	Text     rune
	Box      Rect
	FontSize float64
	FontName string
}

// Point is a position in page space.
type Point struct {
	X float64
	Y float64
}

// Size is the width and height of a page or rendered surface.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Bounds is an axis-aligned rectangle anchored at its top-left corner.
type Bounds struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// BoundsFromPoints builds the rectangle spanned by two corners in any order.
func BoundsFromPoints(a, b Point) Bounds {
	return Bounds{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Right returns the right edge X coordinate.
func (b Bounds) Right() float64 {
	return b.X + b.Width
}

// Bottom returns the bottom edge Y coordinate.
func (b Bounds) Bottom() float64 {
	return b.Y + b.Height
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() &&
		p.Y >= b.Y && p.Y <= b.Bottom()
}

// ContainsToken reports whether the token's whole box lies inside b.
// Tokens that only partially overlap b are not contained.
func (b Bounds) ContainsToken(t TextToken) bool {
	return t.X >= b.X && t.X+t.Width <= b.Right() &&
		t.Y >= b.Y && t.Y+t.Height <= b.Bottom()
}

// TextToken is a positioned run of text on one page. Coordinates are in
// document units (PDF points at scale 1) with the origin at the top-left of
// the page and Y growing downward.
type TextToken struct {
	Text     string  `json:"text" yaml:"text"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	FontName string  `json:"font_name,omitempty" yaml:"font_name,omitempty"`
	FontSize float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}

// Mode is the current interaction behaviour of a Session.
type Mode string

const (
	ModeView        Mode = "view"
	ModeCreateTable Mode = "create-table"
	ModeAddRow      Mode = "add-row"
	ModeAddColumn   Mode = "add-column"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeView, ModeCreateTable, ModeAddRow, ModeAddColumn:
		return true
	}
	return false
}

// TableRegion is a user-drawn table area on one page together with its split
// lines and the tokens captured when it was created.
type TableRegion struct {
	ID           string      `json:"id"`
	Page         int         `json:"page"`
	Bounds       Bounds      `json:"bounds"`
	RowSplits    []float64   `json:"row_splits"`
	ColumnSplits []float64   `json:"column_splits"`
	Tokens       []TextToken `json:"tokens"`

	seq int
}

// clone returns a deep copy so callers cannot mutate store-owned slices.
func (r *TableRegion) clone() TableRegion {
	c := *r
	c.RowSplits = slices.Clone(r.RowSplits)
	c.ColumnSplits = slices.Clone(r.ColumnSplits)
	c.Tokens = slices.Clone(r.Tokens)
	return c
}
