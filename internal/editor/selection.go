package editor

import (
	"math"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

const handleSize = 8

// Rect is an axis-aligned box whose width/height may be negative while a
// rubber-band drag is in progress.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether p lies inside the rect.
func (r Rect) Contains(p board.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// normalized returns the rect with non-negative dimensions.
func (r Rect) normalized() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// handleAt returns which corner handle of bounds the point touches, or "".
func handleAt(p board.Point, bounds Rect) string {
	corners := map[string]board.Point{
		"tl": {X: bounds.X, Y: bounds.Y},
		"tr": {X: bounds.X + bounds.Width, Y: bounds.Y},
		"bl": {X: bounds.X, Y: bounds.Y + bounds.Height},
		"br": {X: bounds.X + bounds.Width, Y: bounds.Y + bounds.Height},
	}
	for name, c := range corners {
		if math.Abs(p.X-c.X) <= handleSize/2 && math.Abs(p.Y-c.Y) <= handleSize/2 {
			return name
		}
	}
	return ""
}

// setSelection replaces the current selection and announces the new item
// states to the room.
func (e *Editor) setSelection(refs []selectedRef) {
	e.selection = refs
	e.emitSelection()
}

// selectionBounds is the union box of every selected entity's geometry.
func (e *Editor) selectionBounds() Rect {
	first := true
	var minX, minY, maxX, maxY float64
	e.eachSelected(func(x, y, w, h *float64, _ selectedRef) {
		if first {
			minX, minY, maxX, maxY = *x, *y, *x+*w, *y+*h
			first = false
			return
		}
		minX = math.Min(minX, *x)
		minY = math.Min(minY, *y)
		maxX = math.Max(maxX, *x+*w)
		maxY = math.Max(maxY, *y+*h)
	})
	if first {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// itemsInBox collects the shapes, images and text elements overlapping the
// rubber-band box.
func (e *Editor) itemsInBox(box Rect) []selectedRef {
	box = box.normalized()
	var refs []selectedRef

	overlaps := func(x, y, w, h float64) bool {
		return x < box.X+box.Width && x+w > box.X && y < box.Y+box.Height && y+h > box.Y
	}
	for i := range e.doc.Shapes {
		s := e.doc.Shapes[i]
		if overlaps(s.X, s.Y, s.Width, s.Height) {
			refs = append(refs, selectedRef{kind: wire.KindShape, id: s.ID})
		}
	}
	for i := range e.doc.Images {
		img := e.doc.Images[i]
		if overlaps(img.X, img.Y, img.Width, img.Height) {
			refs = append(refs, selectedRef{kind: wire.KindImage, id: img.ID})
		}
	}
	for i := range e.doc.Texts {
		t := e.doc.Texts[i]
		if overlaps(t.X, t.Y, t.Width, t.Height) {
			refs = append(refs, selectedRef{kind: wire.KindText, id: t.ID})
		}
	}
	return refs
}

// eachSelected visits the geometry of every selected entity, by pointer so
// callers can mutate in place. Entities deleted since selection are
// silently skipped.
func (e *Editor) eachSelected(fn func(x, y, w, h *float64, ref selectedRef)) {
	for _, ref := range e.selection {
		switch ref.kind {
		case wire.KindShape:
			if s, ok := e.doc.ShapeByID(ref.id); ok {
				fn(&s.X, &s.Y, &s.Width, &s.Height, ref)
			}
		case wire.KindImage:
			if img, ok := e.doc.ImageByID(ref.id); ok {
				fn(&img.X, &img.Y, &img.Width, &img.Height, ref)
			}
		case wire.KindText:
			if t, ok := e.doc.TextByID(ref.id); ok {
				fn(&t.X, &t.Y, &t.Width, &t.Height, ref)
			}
		}
	}
}

// moveSelection translates every selected entity and broadcasts the batch.
func (e *Editor) moveSelection(dx, dy float64) {
	e.eachSelected(func(x, y, _, _ *float64, _ selectedRef) {
		*x += dx
		*y += dy
	})
	e.emitSelection()
}

// resizeSelection drags the active corner handle to p, scaling every
// selected entity by its relative position inside the selection bounds.
func (e *Editor) resizeSelection(p board.Point) {
	bounds := e.selectionBounds()
	if bounds.Width == 0 {
		bounds.Width = 1
	}
	if bounds.Height == 0 {
		bounds.Height = 1
	}

	newBounds := bounds
	switch e.resizeHandle {
	case "tl":
		newBounds.Width += newBounds.X - p.X
		newBounds.Height += newBounds.Y - p.Y
		newBounds.X = p.X
		newBounds.Y = p.Y
	case "tr":
		newBounds.Width = p.X - newBounds.X
		newBounds.Height += newBounds.Y - p.Y
		newBounds.Y = p.Y
	case "bl":
		newBounds.Width += newBounds.X - p.X
		newBounds.Height = p.Y - newBounds.Y
		newBounds.X = p.X
	case "br":
		newBounds.Width = p.X - newBounds.X
		newBounds.Height = p.Y - newBounds.Y
	}

	e.eachSelected(func(x, y, w, h *float64, _ selectedRef) {
		relX := (*x - bounds.X) / bounds.Width
		relY := (*y - bounds.Y) / bounds.Height
		relW := *w / bounds.Width
		relH := *h / bounds.Height

		*x = newBounds.X + relX*newBounds.Width
		*y = newBounds.Y + relY*newBounds.Height
		*w = relW * newBounds.Width
		*h = relH * newBounds.Height
	})
	e.emitSelection()
}

// emitSelection broadcasts full snapshots of every selected entity as one
// updatedSelection batch.
func (e *Editor) emitSelection() {
	items := make([]wire.SelectionItem, 0, len(e.selection))
	for _, ref := range e.selection {
		switch ref.kind {
		case wire.KindShape:
			if s, ok := e.doc.ShapeByID(ref.id); ok {
				items = append(items, shapeItem(s))
			}
		case wire.KindImage:
			if img, ok := e.doc.ImageByID(ref.id); ok {
				items = append(items, imageItem(img))
			}
		case wire.KindText:
			if t, ok := e.doc.TextByID(ref.id); ok {
				items = append(items, textItem(t))
			}
		}
	}
	e.emit.EmitSelection(items)
}

func shapeItem(s *board.Shape) wire.SelectionItem {
	kind := s.Kind
	return wire.SelectionItem{
		Kind:        wire.KindShape,
		ID:          s.ID,
		X:           f(s.X),
		Y:           f(s.Y),
		Width:       f(s.Width),
		Height:      f(s.Height),
		Color:       str(s.Color),
		StrokeWidth: f(s.StrokeWidth),
		ShapeKind:   &kind,
	}
}

func imageItem(img *board.Image) wire.SelectionItem {
	return wire.SelectionItem{
		Kind:   wire.KindImage,
		ID:     img.ID,
		X:      f(img.X),
		Y:      f(img.Y),
		Width:  f(img.Width),
		Height: f(img.Height),
		Src:    str(img.Src),
	}
}

func textItem(t *board.TextElement) wire.SelectionItem {
	return wire.SelectionItem{
		Kind:       wire.KindText,
		ID:         t.ID,
		X:          f(t.X),
		Y:          f(t.Y),
		Width:      f(t.Width),
		Height:     f(t.Height),
		Color:      str(t.Color),
		Text:       str(t.Text),
		FontSize:   f(t.FontSize),
		FontFamily: str(t.FontFamily),
	}
}

func f(v float64) *float64 { return &v }
func str(v string) *string { return &v }
