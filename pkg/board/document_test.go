package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertPreservesInsertionOrder(t *testing.T) {
	doc := NewDocument()
	doc.UpsertShape(Shape{ID: "a:1", Kind: ShapeRectangle})
	doc.UpsertShape(Shape{ID: "a:2", Kind: ShapeCircle})
	doc.UpsertShape(Shape{ID: "a:3", Kind: ShapeTriangle})

	// Updating the first entity must not move it in z-order.
	doc.UpsertShape(Shape{ID: "a:1", Kind: ShapeRectangle, X: 42})

	require.Len(t, doc.Shapes, 3)
	require.Equal(t, "a:1", doc.Shapes[0].ID)
	require.Equal(t, 42.0, doc.Shapes[0].X)
	require.Equal(t, "a:2", doc.Shapes[1].ID)
	require.Equal(t, "a:3", doc.Shapes[2].ID)
}

func TestUpsertOfAbsentIDInserts(t *testing.T) {
	doc := NewDocument()
	doc.UpsertText(TextElement{ID: "b:7", Text: "hi"})

	text, ok := doc.TextByID("b:7")
	require.True(t, ok)
	require.Equal(t, "hi", text.Text)
}

func TestRemoveIsIdempotent(t *testing.T) {
	doc := NewDocument()
	doc.UpsertStroke(Stroke{ID: "a:1"})

	require.True(t, doc.RemoveStroke("a:1"))
	require.False(t, doc.RemoveStroke("a:1"))
	require.False(t, doc.RemoveStroke("never-existed"))
	require.Empty(t, doc.Strokes)
}

func TestClearResetsViewState(t *testing.T) {
	doc := NewDocument()
	doc.UpsertStroke(Stroke{ID: "a:1"})
	doc.UpsertShape(Shape{ID: "a:2"})
	doc.UpsertImage(Image{ID: "a:3"})
	doc.UpsertText(TextElement{ID: "a:4"})
	doc.Pan = Point{X: 100, Y: -30}
	doc.Zoom = 2.5

	doc.Clear()

	require.Zero(t, doc.Len())
	require.Equal(t, Point{}, doc.Pan)
	require.Equal(t, 1.0, doc.Zoom)
}

func TestShapeNormalize(t *testing.T) {
	s := Shape{X: 10, Y: 20, Width: -4, Height: -6}
	s.Normalize()
	require.Equal(t, Shape{X: 6, Y: 14, Width: 4, Height: 6}, s)

	// Already-positive dimensions stay put.
	s.Normalize()
	require.Equal(t, Shape{X: 6, Y: 14, Width: 4, Height: 6}, s)
}

func TestTextMeasure(t *testing.T) {
	text := TextElement{Text: "hello\nhi", FontSize: 20}
	text.Measure()
	require.Equal(t, 5*20*0.6, text.Width)
	require.Equal(t, 2*20*1.2, text.Height)

	text.Text = ""
	text.Measure()
	require.Zero(t, text.Width)
}

func TestStrokeStyleDefaults(t *testing.T) {
	s := Stroke{}
	require.Equal(t, BrushBasic, s.Style())
	s.BrushStyle = BrushMarker
	require.Equal(t, BrushMarker, s.Style())
}

func TestIDSourceNeverCollides(t *testing.T) {
	a := NewIDSourceWithSite("aaaa")
	b := NewIDSourceWithSite("bbbb")

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		for _, id := range []string{a.Next(), b.Next()} {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
}
