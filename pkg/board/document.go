package board

// Document is one client's copy of the shared board. Every client owns a
// full, independent copy; there is no server-side source of truth.
//
// Slice order is insertion order and doubles as z-order for rendering, so
// upserts replace in place and never reorder. Lookup is a linear scan,
// which is fine at expected board sizes.
//
// A Document is not safe for concurrent use. Each client mutates it from a
// single goroutine (see internal/session).
type Document struct {
	Strokes []Stroke
	Shapes  []Shape
	Images  []Image
	Texts   []TextElement

	// View state. Clear resets it together with the containers.
	Pan  Point
	Zoom float64
}

func NewDocument() *Document {
	return &Document{Zoom: 1}
}

// UpsertStroke replaces the stroke with the same ID, or appends it.
func (d *Document) UpsertStroke(s Stroke) {
	for i := range d.Strokes {
		if d.Strokes[i].ID == s.ID {
			d.Strokes[i] = s
			return
		}
	}
	d.Strokes = append(d.Strokes, s)
}

// UpsertShape replaces the shape with the same ID, or appends it.
func (d *Document) UpsertShape(s Shape) {
	for i := range d.Shapes {
		if d.Shapes[i].ID == s.ID {
			d.Shapes[i] = s
			return
		}
	}
	d.Shapes = append(d.Shapes, s)
}

// UpsertImage replaces the image with the same ID, or appends it.
func (d *Document) UpsertImage(img Image) {
	for i := range d.Images {
		if d.Images[i].ID == img.ID {
			d.Images[i] = img
			return
		}
	}
	d.Images = append(d.Images, img)
}

// UpsertText replaces the text element with the same ID, or appends it.
func (d *Document) UpsertText(t TextElement) {
	for i := range d.Texts {
		if d.Texts[i].ID == t.ID {
			d.Texts[i] = t
			return
		}
	}
	d.Texts = append(d.Texts, t)
}

func (d *Document) StrokeByID(id string) (*Stroke, bool) {
	for i := range d.Strokes {
		if d.Strokes[i].ID == id {
			return &d.Strokes[i], true
		}
	}
	return nil, false
}

func (d *Document) ShapeByID(id string) (*Shape, bool) {
	for i := range d.Shapes {
		if d.Shapes[i].ID == id {
			return &d.Shapes[i], true
		}
	}
	return nil, false
}

func (d *Document) ImageByID(id string) (*Image, bool) {
	for i := range d.Images {
		if d.Images[i].ID == id {
			return &d.Images[i], true
		}
	}
	return nil, false
}

func (d *Document) TextByID(id string) (*TextElement, bool) {
	for i := range d.Texts {
		if d.Texts[i].ID == id {
			return &d.Texts[i], true
		}
	}
	return nil, false
}

// RemoveStroke deletes by ID. Removing an absent ID is a no-op.
func (d *Document) RemoveStroke(id string) bool {
	for i := range d.Strokes {
		if d.Strokes[i].ID == id {
			d.Strokes = append(d.Strokes[:i], d.Strokes[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveShape deletes by ID. Removing an absent ID is a no-op.
func (d *Document) RemoveShape(id string) bool {
	for i := range d.Shapes {
		if d.Shapes[i].ID == id {
			d.Shapes = append(d.Shapes[:i], d.Shapes[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveImage deletes by ID. Removing an absent ID is a no-op.
func (d *Document) RemoveImage(id string) bool {
	for i := range d.Images {
		if d.Images[i].ID == id {
			d.Images = append(d.Images[:i], d.Images[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveText deletes by ID. Removing an absent ID is a no-op.
func (d *Document) RemoveText(id string) bool {
	for i := range d.Texts {
		if d.Texts[i].ID == id {
			d.Texts = append(d.Texts[:i], d.Texts[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties every container and resets pan/zoom to identity.
func (d *Document) Clear() {
	d.Strokes = nil
	d.Shapes = nil
	d.Images = nil
	d.Texts = nil
	d.Pan = Point{}
	d.Zoom = 1
}

// Len reports the total number of entities on the board.
func (d *Document) Len() int {
	return len(d.Strokes) + len(d.Shapes) + len(d.Images) + len(d.Texts)
}
