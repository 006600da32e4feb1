// Package editor turns raw pointer and keyboard input into document
// mutations and classifies each one into a change event for broadcast.
// Rendering is a consumer of the document and lives elsewhere.
package editor

import (
	"log/slog"
	"math"
	"strings"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

// Tool is the active drawing tool.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
	ToolShape  Tool = "shape"
	ToolText   Tool = "text"
	ToolSelect Tool = "select"
)

const defaultEraserRadius = 12

// Emitter receives the classified change events the editor produces. The
// session implements it; tests capture events with a fake.
type Emitter interface {
	EmitStroke(s board.Stroke)
	EmitShape(s board.Shape)
	EmitImage(img board.Image)
	EmitText(t board.TextElement)
	EmitDeletedStroke(id string)
	EmitDeletedShape(id string)
	EmitDeletedText(id string)
	EmitSelection(items []wire.SelectionItem)
	EmitClear()
}

// Editor is the per-client tool state machine. It owns no connection; the
// emitter it was handed decides where events go, so several independent
// editors can live in one process.
type Editor struct {
	logger *slog.Logger
	doc    *board.Document
	ids    *board.IDSource
	emit   Emitter

	tool        Tool
	color       string
	strokeWidth float64
	shapeKind   board.ShapeKind
	brushStyle  board.BrushStyle

	eraserRadius float64

	drawing       bool
	start         board.Point
	activeStroke  string
	activeShape   string
	editingTextID string

	selection    []selectedRef
	selectionBox *Rect
	moving       bool
	resizeHandle string
}

// selectedRef names one selected entity; the entity itself stays in the
// document.
type selectedRef struct {
	kind wire.SelectionKind
	id   string
}

func New(logger *slog.Logger, doc *board.Document, ids *board.IDSource, emit Emitter) *Editor {
	return &Editor{
		logger:       logger.With(slog.String("component", "editor")),
		doc:          doc,
		ids:          ids,
		emit:         emit,
		tool:         ToolPen,
		color:        "#000000",
		strokeWidth:  2,
		shapeKind:    board.ShapeRectangle,
		brushStyle:   board.BrushBasic,
		eraserRadius: defaultEraserRadius,
	}
}

func (e *Editor) SetTool(t Tool)                   { e.tool = t }
func (e *Editor) SetColor(c string)                { e.color = c }
func (e *Editor) SetStrokeWidth(w float64)         { e.strokeWidth = w }
func (e *Editor) SetShapeKind(k board.ShapeKind)   { e.shapeKind = k }
func (e *Editor) SetBrushStyle(b board.BrushStyle) { e.brushStyle = b }

// Document exposes the underlying document for the rendering layer.
func (e *Editor) Document() *board.Document {
	return e.doc
}

// PointerDown starts an entity or a selection gesture at p (board
// coordinates; callers already divided out pan and zoom).
func (e *Editor) PointerDown(p board.Point) {
	e.drawing = true
	e.start = p

	switch e.tool {
	case ToolPen, ToolBrush:
		stroke := board.Stroke{
			ID:          e.ids.Next(),
			Points:      []board.Point{p},
			Color:       e.color,
			StrokeWidth: e.strokeWidth,
			BrushStyle:  e.activeBrush(),
		}
		e.activeStroke = stroke.ID
		e.doc.UpsertStroke(stroke)
		e.emit.EmitStroke(stroke)

	case ToolEraser:
		e.eraseAt(p)

	case ToolShape:
		shape := board.Shape{
			ID:          e.ids.Next(),
			X:           p.X,
			Y:           p.Y,
			Color:       e.color,
			StrokeWidth: e.strokeWidth,
			Kind:        e.shapeKind,
		}
		e.activeShape = shape.ID
		e.doc.UpsertShape(shape)
		e.emit.EmitShape(shape)

	case ToolText:
		// Announced eagerly, before the user has typed anything: the same
		// ID is re-announced as the content grows.
		text := board.TextElement{
			ID:         e.ids.Next(),
			X:          p.X,
			Y:          p.Y,
			FontSize:   20,
			FontFamily: "Arial",
			Color:      e.color,
		}
		e.editingTextID = text.ID
		e.doc.UpsertText(text)
		e.emit.EmitText(text)

	case ToolSelect:
		if len(e.selection) > 0 {
			bounds := e.selectionBounds()
			if handle := handleAt(p, bounds); handle != "" {
				e.resizeHandle = handle
				return
			}
			if bounds.Contains(p) {
				e.moving = true
				return
			}
		}
		e.selectionBox = &Rect{X: p.X, Y: p.Y}
		e.setSelection(nil)
	}
}

// PointerMove extends the in-progress entity or drags/resizes the current
// selection.
func (e *Editor) PointerMove(p board.Point) {
	if !e.drawing {
		return
	}

	switch e.tool {
	case ToolPen, ToolBrush:
		stroke, ok := e.doc.StrokeByID(e.activeStroke)
		if !ok {
			return
		}
		stroke.Points = append(stroke.Points, p)
		// Point appends travel as full-stroke replacements keyed by ID.
		e.emit.EmitStroke(*stroke)

	case ToolEraser:
		e.eraseAt(p)

	case ToolShape:
		shape, ok := e.doc.ShapeByID(e.activeShape)
		if !ok {
			return
		}
		// Width/height may go negative mid-drag; normalized on pointer-up.
		shape.Width = p.X - e.start.X
		shape.Height = p.Y - e.start.Y
		e.emit.EmitShape(*shape)

	case ToolSelect:
		switch {
		case e.moving:
			e.moveSelection(p.X-e.start.X, p.Y-e.start.Y)
			e.start = p
		case e.resizeHandle != "":
			e.resizeSelection(p)
		case e.selectionBox != nil:
			e.selectionBox.Width = p.X - e.start.X
			e.selectionBox.Height = p.Y - e.start.Y
		}
	}
}

// PointerUp finalizes the gesture: dimensions are normalized, metrics
// measured, and the final change event emitted.
func (e *Editor) PointerUp(p board.Point) {
	if !e.drawing {
		return
	}
	e.drawing = false

	switch e.tool {
	case ToolShape:
		if shape, ok := e.doc.ShapeByID(e.activeShape); ok {
			shape.Normalize()
			e.emit.EmitShape(*shape)
		}
		e.activeShape = ""

	case ToolPen, ToolBrush:
		e.activeStroke = ""

	case ToolSelect:
		if e.selectionBox != nil {
			e.setSelection(e.itemsInBox(*e.selectionBox))
			e.selectionBox = nil
		}
		if e.moving || e.resizeHandle != "" {
			e.emitSelection()
		}
		e.moving = false
		e.resizeHandle = ""
	}
}

// PointerLeave implicitly cancels any dragging gesture.
func (e *Editor) PointerLeave() {
	e.PointerUp(e.start)
}

// TextInput replaces the content of the text element being edited and
// re-announces it. Creation was already broadcast on pointer-down, so
// receivers merge these by ID rather than duplicating.
func (e *Editor) TextInput(content string) {
	text, ok := e.doc.TextByID(e.editingTextID)
	if !ok {
		return
	}
	text.Text = content
	text.Measure()
	e.emit.EmitText(*text)
}

// BlurText finalizes the in-progress text edit. Empty trimmed text is an
// implicit delete.
func (e *Editor) BlurText() {
	id := e.editingTextID
	e.editingTextID = ""
	text, ok := e.doc.TextByID(id)
	if !ok {
		return
	}
	if strings.TrimSpace(text.Text) == "" {
		e.doc.RemoveText(id)
		e.emit.EmitDeletedText(id)
		return
	}
	text.Measure()
	e.emit.EmitText(*text)
}

// PasteImage inserts an already-decoded image at p and broadcasts it with
// its payload embedded.
func (e *Editor) PasteImage(p board.Point, img board.Image) board.Image {
	img.ID = e.ids.Next()
	img.X = p.X
	img.Y = p.Y
	e.doc.UpsertImage(img)
	e.emit.EmitImage(img)
	return img
}

// Pan translates the view. View state is local only, never broadcast.
func (e *Editor) Pan(dx, dy float64) {
	e.doc.Pan.X += dx
	e.doc.Pan.Y += dy
}

// SetZoom applies a zoom factor, clamped to a usable range.
func (e *Editor) SetZoom(z float64) {
	e.doc.Zoom = math.Max(0.1, math.Min(z, 5))
}

// ClearBoard empties the local document, resets the view and broadcasts
// the clear.
func (e *Editor) ClearBoard() {
	e.doc.Clear()
	e.setSelection(nil)
	e.emit.EmitClear()
}

// Selection returns the IDs currently selected, for the rendering layer.
func (e *Editor) Selection() []string {
	ids := make([]string, len(e.selection))
	for i, ref := range e.selection {
		ids[i] = ref.id
	}
	return ids
}

func (e *Editor) activeBrush() board.BrushStyle {
	if e.tool == ToolPen {
		return board.BrushBasic
	}
	return e.brushStyle
}

// eraseAt removes every stroke and shape intersecting the circular eraser
// footprint. The whole document is local, so deletion needs no round-trip;
// each removal is still broadcast as an explicit delete event.
func (e *Editor) eraseAt(center board.Point) {
	for _, id := range strokeHits(e.doc.Strokes, center, e.eraserRadius) {
		e.doc.RemoveStroke(id)
		e.emit.EmitDeletedStroke(id)
	}
	for _, id := range shapeHits(e.doc.Shapes, center, e.eraserRadius) {
		e.doc.RemoveShape(id)
		e.emit.EmitDeletedShape(id)
	}
}
