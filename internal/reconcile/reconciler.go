// Package reconcile merges change events received from the relay into the
// local document. The wire protocol sends full entity state keyed by ID,
// so merging is last-writer-wins in arrival order: no vector clocks, no
// operational transform. Concurrent edits to the same entity race and the
// later arrival's fields win, which is acceptable because the dominant
// interaction pattern is disjoint editing.
package reconcile

import (
	"log/slog"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

// PostFunc schedules a closure onto the owner's apply loop. Image decode
// completions go through it so the document is only ever mutated from one
// goroutine.
type PostFunc func(fn func())

type Reconciler struct {
	logger *slog.Logger
	doc    *board.Document
	post   PostFunc
	decode DecodeFunc

	// pending tracks images whose payloads are still decoding, keyed by
	// ID. Events arriving mid-decode update the pending entry, so the
	// completion materializes the newest state, never the first; on
	// decode failure the entry is cleared and the entity never
	// materializes.
	pending map[string]*pendingImage
}

// pendingImage is the newest announced state of an image whose payload is
// decoding. gen invalidates completions whose src has been superseded.
type pendingImage struct {
	latest board.Image
	gen    uint64
}

func New(logger *slog.Logger, doc *board.Document, post PostFunc) *Reconciler {
	return &Reconciler{
		logger:  logger.With(slog.String("component", "reconciler")),
		doc:     doc,
		post:    post,
		decode:  DecodeDataURI,
		pending: make(map[string]*pendingImage),
	}
}

// SetDecodeFunc swaps the image decoder; tests use it to avoid real pixels.
func (r *Reconciler) SetDecodeFunc(fn DecodeFunc) {
	r.decode = fn
}

// Document returns the reconciled document this reconciler owns.
func (r *Reconciler) Document() *board.Document {
	return r.doc
}

// PendingImages reports how many image payloads are still decoding; the
// rendering layer uses it as a transient loading indicator.
func (r *Reconciler) PendingImages() int {
	return len(r.pending)
}

// Apply merges one change event. Every optional field is checked
// independently: a payload carrying none of them is inert, never an error.
// Must be called from the owning goroutine.
func (r *Reconciler) Apply(ch *wire.Change) {
	if ch.NewPath != nil {
		stroke := *ch.NewPath
		stroke.BrushStyle = stroke.Style()
		r.doc.UpsertStroke(stroke)
	}
	if ch.NewShape != nil {
		r.doc.UpsertShape(*ch.NewShape)
	}
	if ch.NewImage != nil {
		r.applyImage(*ch.NewImage)
	}
	if ch.NewTextElement != nil {
		r.doc.UpsertText(*ch.NewTextElement)
	}

	if ch.DeletedPathID != "" {
		r.doc.RemoveStroke(ch.DeletedPathID)
	}
	if ch.DeletedShapeID != "" {
		r.doc.RemoveShape(ch.DeletedShapeID)
	}
	if ch.DeletedTextElementID != "" {
		r.doc.RemoveText(ch.DeletedTextElementID)
	}

	for i := range ch.UpdatedSelection {
		r.applySelectionItem(&ch.UpdatedSelection[i])
	}

	if ch.Snapshot != nil {
		r.applySnapshot(ch.Snapshot)
	}

	if ch.Clear {
		r.doc.Clear()
	}
}

// applyImage schedules an async decode of the embedded payload. The entity
// enters the document only once its pixels exist, through the same apply
// path as a network event, so decode never blocks the merge of interleaved
// events. Events for an image still decoding overwrite its pending state,
// keeping last-writer-wins intact.
func (r *Reconciler) applyImage(img board.Image) {
	if existing, ok := r.doc.ImageByID(img.ID); ok && existing.Src == img.Src {
		// Re-announcement of a known image: keep the decoded pixels, the
		// payload itself is unchanged.
		img.Pixels = existing.Pixels
		r.doc.UpsertImage(img)
		return
	}
	if p, ok := r.pending[img.ID]; ok {
		srcChanged := img.Src != p.latest.Src
		p.latest = img
		if srcChanged {
			p.gen++
			r.startDecode(img.ID, img.Src, p.gen)
		}
		return
	}
	p := &pendingImage{latest: img}
	r.pending[img.ID] = p
	r.startDecode(img.ID, img.Src, p.gen)
}

// startDecode decodes src off the apply loop and posts the completion
// back. A completion whose generation no longer matches has been
// superseded by a newer payload and is dropped.
func (r *Reconciler) startDecode(id, src string, gen uint64) {
	decode := r.decode
	go func() {
		pixels, err := decode(src)
		r.post(func() {
			p, ok := r.pending[id]
			if !ok || p.gen != gen {
				return
			}
			delete(r.pending, id)
			if err != nil {
				r.logger.Warn("Image payload decode failed", slog.String("id", id), slog.Any("error", err))
				return
			}
			img := p.latest
			img.Pixels = pixels
			r.doc.UpsertImage(img)
		})
	}()
}

// applySelectionItem merges one partial snapshot from an updatedSelection
// batch. The explicit kind tag routes it; absent entities are inserted,
// since replace-of-absent is defined as insert.
func (r *Reconciler) applySelectionItem(item *wire.SelectionItem) {
	if item.ID == "" {
		return
	}
	switch item.ResolveKind() {
	case wire.KindImage:
		r.mergeImageItem(item)
	case wire.KindText:
		r.mergeTextItem(item)
	default:
		r.mergeShapeItem(item)
	}
}

func (r *Reconciler) mergeShapeItem(item *wire.SelectionItem) {
	shape, ok := r.doc.ShapeByID(item.ID)
	if !ok {
		r.doc.UpsertShape(board.Shape{ID: item.ID, Kind: board.ShapeRectangle})
		shape, _ = r.doc.ShapeByID(item.ID)
	}
	if item.X != nil {
		shape.X = *item.X
	}
	if item.Y != nil {
		shape.Y = *item.Y
	}
	if item.Width != nil {
		shape.Width = *item.Width
	}
	if item.Height != nil {
		shape.Height = *item.Height
	}
	if item.Color != nil {
		shape.Color = *item.Color
	}
	if item.StrokeWidth != nil {
		shape.StrokeWidth = *item.StrokeWidth
	}
	if item.ShapeKind != nil {
		shape.Kind = *item.ShapeKind
	}
}

func (r *Reconciler) mergeImageItem(item *wire.SelectionItem) {
	if p, ok := r.pending[item.ID]; ok {
		// The entity has not materialized yet; merge into its pending state.
		applyGeometry(&p.latest.X, &p.latest.Y, &p.latest.Width, &p.latest.Height, item)
		if item.Src != nil && *item.Src != p.latest.Src {
			p.latest.Src = *item.Src
			p.latest.Pixels = nil
			p.gen++
			r.startDecode(item.ID, p.latest.Src, p.gen)
		}
		return
	}
	img, ok := r.doc.ImageByID(item.ID)
	if !ok {
		if item.Src != nil {
			// A never-seen image arriving via selection update: run it
			// through the normal decode path.
			merged := board.Image{ID: item.ID, Src: *item.Src}
			applyGeometry(&merged.X, &merged.Y, &merged.Width, &merged.Height, item)
			r.applyImage(merged)
			return
		}
		r.doc.UpsertImage(board.Image{ID: item.ID})
		img, _ = r.doc.ImageByID(item.ID)
	}
	applyGeometry(&img.X, &img.Y, &img.Width, &img.Height, item)
	if item.Src != nil && *item.Src != img.Src {
		updated := *img
		updated.Src = *item.Src
		updated.Pixels = nil
		r.applyImage(updated)
	}
}

func (r *Reconciler) mergeTextItem(item *wire.SelectionItem) {
	text, ok := r.doc.TextByID(item.ID)
	if !ok {
		r.doc.UpsertText(board.TextElement{ID: item.ID})
		text, _ = r.doc.TextByID(item.ID)
	}
	if item.X != nil {
		text.X = *item.X
	}
	if item.Y != nil {
		text.Y = *item.Y
	}
	if item.Width != nil {
		text.Width = *item.Width
	}
	if item.Height != nil {
		text.Height = *item.Height
	}
	if item.Color != nil {
		text.Color = *item.Color
	}
	remeasure := false
	if item.Text != nil {
		text.Text = *item.Text
		remeasure = true
	}
	if item.FontSize != nil {
		text.FontSize = *item.FontSize
		remeasure = true
	}
	if item.FontFamily != nil {
		text.FontFamily = *item.FontFamily
	}
	if remeasure {
		text.Measure()
	}
}

// applySnapshot merges a peer's full document through the same
// insert-or-merge path as individual events, so snapshots from several
// peers, or a snapshot overlapping already-received edits, stay harmless.
func (r *Reconciler) applySnapshot(sn *wire.Snapshot) {
	for _, s := range sn.Paths {
		s.BrushStyle = s.Style()
		r.doc.UpsertStroke(s)
	}
	for _, s := range sn.Shapes {
		r.doc.UpsertShape(s)
	}
	for _, img := range sn.Images {
		r.applyImage(img)
	}
	for _, t := range sn.TextElements {
		r.doc.UpsertText(t)
	}
}

func applyGeometry(x, y, w, h *float64, item *wire.SelectionItem) {
	if item.X != nil {
		*x = *item.X
	}
	if item.Y != nil {
		*y = *item.Y
	}
	if item.Width != nil {
		*w = *item.Width
	}
	if item.Height != nil {
		*h = *item.Height
	}
}
