package board

import (
	"image"
	"strings"
)

// Point is a position on the drawing surface, in board coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BrushStyle tags the visual style a stroke should be painted with. The
// core treats it as opaque; rendering interprets it.
type BrushStyle string

const (
	BrushBasic       BrushStyle = "brush"
	BrushCalligraphy BrushStyle = "calligraphy-brush"
	BrushCalligPen   BrushStyle = "calligraphy-pen"
	BrushAirbrush    BrushStyle = "airbrush"
	BrushOil         BrushStyle = "oil-brush"
	BrushCrayon      BrushStyle = "crayon"
	BrushMarker      BrushStyle = "marker"
	BrushPencil      BrushStyle = "natural-pencil"
	BrushWatercolor  BrushStyle = "watercolor-brush"
)

// ShapeKind discriminates the geometric primitives.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeTriangle  ShapeKind = "triangle"
)

// Stroke is a freehand path. Points are append-only while the stroke is
// being drawn; once announced, the stroke keeps its identity and later
// growth is sent as a full replacement keyed by ID.
type Stroke struct {
	ID          string     `json:"id"`
	Points      []Point    `json:"points"`
	Color       string     `json:"color"`
	StrokeWidth float64    `json:"strokeWidth"`
	BrushStyle  BrushStyle `json:"brushStyle,omitempty"`
}

// Style returns the brush style, defaulting to the base brush.
func (s *Stroke) Style() BrushStyle {
	if s.BrushStyle == "" {
		return BrushBasic
	}
	return s.BrushStyle
}

// Shape is a geometric primitive. Width and height may be transiently
// negative while the user drags; Normalize folds them positive.
type Shape struct {
	ID          string    `json:"id"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Color       string    `json:"color"`
	StrokeWidth float64   `json:"strokeWidth"`
	Kind        ShapeKind `json:"type"`
}

// Normalize rewrites the bounding geometry so width and height are
// non-negative. Required before hit-testing.
func (s *Shape) Normalize() {
	if s.Width < 0 {
		s.X += s.Width
		s.Width = -s.Width
	}
	if s.Height < 0 {
		s.Y += s.Height
		s.Height = -s.Height
	}
}

// Image is a pasted picture. Src carries the full pixel payload as a data
// URI on the wire; Pixels holds the decoded resource locally and never
// travels.
type Image struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Src    string  `json:"src"`

	Pixels image.Image `json:"-"`
}

// TextElement is an editable, possibly multi-line text block. Width and
// height are derived from the content and recomputed on change.
type TextElement struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Measure recomputes the derived width/height from the current content.
// Rendering is out of scope, so this uses a deterministic character-advance
// estimate rather than real font metrics.
func (t *TextElement) Measure() {
	lines := strings.Split(t.Text, "\n")
	longest := 0
	for _, line := range lines {
		if n := len([]rune(line)); n > longest {
			longest = n
		}
	}
	t.Width = float64(longest) * t.FontSize * 0.6
	t.Height = float64(len(lines)) * t.FontSize * 1.2
}
