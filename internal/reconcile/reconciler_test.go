package reconcile

import (
	"errors"
	"image"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// testReconciler runs posted closures through a channel so decode
// completions can be applied deterministically from the test goroutine.
func newTestReconciler(t *testing.T) (*Reconciler, chan func()) {
	t.Helper()
	posts := make(chan func(), 16)
	rec := New(newTestLogger(), board.NewDocument(), func(fn func()) { posts <- fn })
	rec.SetDecodeFunc(func(string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	return rec, posts
}

func drainOne(t *testing.T, posts chan func()) {
	t.Helper()
	select {
	case fn := <-posts:
		fn()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a posted apply")
	}
}

func f(v float64) *float64 { return &v }
func str(v string) *string { return &v }

// --- Merge Semantics ---

func TestMergeNotDuplicate(t *testing.T) {
	rec, _ := newTestReconciler(t)

	// A create followed by N re-creates with the same id yields exactly one
	// entity carrying the last event's fields.
	for i := 0; i < 5; i++ {
		rec.Apply(&wire.Change{NewTextElement: &board.TextElement{
			ID:   "a:7",
			Text: string(rune('a' + i)),
		}})
	}

	require.Len(t, rec.Document().Texts, 1)
	require.Equal(t, "e", rec.Document().Texts[0].Text)
}

func TestOrderPreservedAcrossUpdates(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "a:1"}})
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "a:2"}})
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "a:1", X: 99}})

	shapes := rec.Document().Shapes
	require.Len(t, shapes, 2)
	require.Equal(t, "a:1", shapes[0].ID)
	require.Equal(t, 99.0, shapes[0].X)
}

func TestDeleteIsIdempotent(t *testing.T) {
	rec, _ := newTestReconciler(t)

	rec.Apply(&wire.Change{DeletedTextElementID: "ghost"})
	require.Empty(t, rec.Document().Texts)

	rec.Apply(&wire.Change{NewTextElement: &board.TextElement{ID: "a:1", Text: "x"}})
	rec.Apply(&wire.Change{DeletedTextElementID: "a:1"})
	rec.Apply(&wire.Change{DeletedTextElementID: "a:1"})
	require.Empty(t, rec.Document().Texts)
}

func TestEmptyChangeIsInert(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "a:1"}})

	rec.Apply(&wire.Change{Room: "r1"})
	require.Len(t, rec.Document().Shapes, 1)
}

func TestClearResetsEverything(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "a:1"}})
	rec.Document().Pan = board.Point{X: 50, Y: 50}
	rec.Document().Zoom = 3

	rec.Apply(&wire.Change{Clear: true})

	require.Zero(t, rec.Document().Len())
	require.Equal(t, board.Point{}, rec.Document().Pan)
	require.Equal(t, 1.0, rec.Document().Zoom)
}

// --- Selection Routing ---

func TestSelectionUpdateMergesByKind(t *testing.T) {
	rec, posts := newTestReconciler(t)
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "s:1", Width: 10, Height: 10, Kind: board.ShapeRectangle}})
	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA"}})
	drainOne(t, posts)
	rec.Apply(&wire.Change{NewTextElement: &board.TextElement{ID: "t:1", Text: "hi", FontSize: 20}})

	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{Kind: wire.KindShape, ID: "s:1", X: f(5), Y: f(5)},
		{Kind: wire.KindImage, ID: "i:1", X: f(7)},
		{Kind: wire.KindText, ID: "t:1", Text: str("bye")},
	}})

	shape, ok := rec.Document().ShapeByID("s:1")
	require.True(t, ok)
	require.Equal(t, 5.0, shape.X)
	require.Equal(t, 10.0, shape.Width, "untouched fields must keep local values")

	img, ok := rec.Document().ImageByID("i:1")
	require.True(t, ok)
	require.Equal(t, 7.0, img.X)
	require.NotNil(t, img.Pixels, "decoded pixels survive a geometry merge")

	text, ok := rec.Document().TextByID("t:1")
	require.True(t, ok)
	require.Equal(t, "bye", text.Text)
}

func TestSelectionRoutingByFieldPresenceFallback(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{NewTextElement: &board.TextElement{ID: "t:1", Text: "old"}})

	// No kind tag: a text field routes the item to the text collection.
	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{ID: "t:1", Text: str("new")},
	}})

	text, ok := rec.Document().TextByID("t:1")
	require.True(t, ok)
	require.Equal(t, "new", text.Text)
	require.Empty(t, rec.Document().Shapes, "item must not be duplicated into shapes")
}

func TestSelectionUpdateOfAbsentIDInserts(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{Kind: wire.KindShape, ID: "s:9", X: f(1), Y: f(2), Width: f(3), Height: f(4)},
	}})

	shape, ok := rec.Document().ShapeByID("s:9")
	require.True(t, ok)
	require.Equal(t, 3.0, shape.Width)
}

// --- Gesture Scenarios ---

func TestScenarioShapeCreateThenMove(t *testing.T) {
	rec, _ := newTestReconciler(t)

	rec.Apply(&wire.Change{NewShape: &board.Shape{
		ID: "x:1", X: 0, Y: 0, Width: 10, Height: 10, Kind: board.ShapeRectangle,
	}})
	require.Len(t, rec.Document().Shapes, 1)

	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{ID: "x:1", X: f(5), Y: f(5), Width: f(10), Height: f(10)},
	}})

	require.Len(t, rec.Document().Shapes, 1)
	shape := rec.Document().Shapes[0]
	require.Equal(t, 5.0, shape.X)
	require.Equal(t, 5.0, shape.Y)
	require.Equal(t, board.ShapeRectangle, shape.Kind)
}

func TestScenarioTextTypedThenAbandoned(t *testing.T) {
	rec, _ := newTestReconciler(t)

	rec.Apply(&wire.Change{NewTextElement: &board.TextElement{ID: "x:7", Text: ""}})
	require.Len(t, rec.Document().Texts, 1)

	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{Kind: wire.KindText, ID: "x:7", Text: str("hi")},
	}})
	text, _ := rec.Document().TextByID("x:7")
	require.Equal(t, "hi", text.Text)

	rec.Apply(&wire.Change{DeletedTextElementID: "x:7"})
	require.Empty(t, rec.Document().Texts)
}

// --- Image Decoding ---

func TestImageMaterializesAfterDecode(t *testing.T) {
	rec, posts := newTestReconciler(t)

	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA", Width: 8, Height: 8}})

	// Not usable until the payload is decoded.
	require.Empty(t, rec.Document().Images)
	require.Equal(t, 1, rec.PendingImages())

	drainOne(t, posts)

	require.Zero(t, rec.PendingImages())
	img, ok := rec.Document().ImageByID("i:1")
	require.True(t, ok)
	require.NotNil(t, img.Pixels)
	require.Equal(t, 8.0, img.Width)
}

func TestImageDecodeFailureNeverMaterializes(t *testing.T) {
	rec, posts := newTestReconciler(t)
	rec.SetDecodeFunc(func(string) (image.Image, error) {
		return nil, errors.New("corrupt payload")
	})

	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,!!"}})
	drainOne(t, posts)

	require.Zero(t, rec.PendingImages(), "loading marker must be cleared")
	require.Empty(t, rec.Document().Images)

	// The failure must not poison later events.
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "s:1"}})
	require.Len(t, rec.Document().Shapes, 1)
}

func TestLaterImageEventWinsDuringDecode(t *testing.T) {
	rec, posts := newTestReconciler(t)

	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA", X: 0}})
	// A second announcement with a new payload arrives before the first
	// decode finishes.
	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,BB", X: 9}})

	drainOne(t, posts)
	drainOne(t, posts)

	require.Zero(t, rec.PendingImages())
	img, ok := rec.Document().ImageByID("i:1")
	require.True(t, ok)
	require.Equal(t, 9.0, img.X)
	require.Equal(t, "data:image/png;base64,BB", img.Src)
	require.Len(t, rec.Document().Images, 1)
}

func TestReannouncementDuringDecodeKeepsLatestGeometry(t *testing.T) {
	rec, posts := newTestReconciler(t)

	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA", X: 0}})
	// Same payload, newer geometry: no second decode is needed.
	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA", X: 5}})

	drainOne(t, posts)

	img, ok := rec.Document().ImageByID("i:1")
	require.True(t, ok)
	require.Equal(t, 5.0, img.X)
	require.NotNil(t, img.Pixels)
}

func TestSelectionMoveDuringDecodeIsNotLost(t *testing.T) {
	rec, posts := newTestReconciler(t)

	rec.Apply(&wire.Change{NewImage: &board.Image{ID: "i:1", Src: "data:image/png;base64,AA"}})
	rec.Apply(&wire.Change{UpdatedSelection: []wire.SelectionItem{
		{Kind: wire.KindImage, ID: "i:1", X: f(40)},
	}})

	drainOne(t, posts)

	img, ok := rec.Document().ImageByID("i:1")
	require.True(t, ok)
	require.Equal(t, 40.0, img.X)
	require.NotNil(t, img.Pixels)
}

// --- Snapshot Resync ---

func TestSnapshotMergeIsIdempotent(t *testing.T) {
	rec, _ := newTestReconciler(t)

	sn := &wire.Snapshot{
		Paths:        []board.Stroke{{ID: "p:1", Points: []board.Point{{X: 1, Y: 1}}}},
		Shapes:       []board.Shape{{ID: "s:1", Width: 5, Height: 5}},
		TextElements: []board.TextElement{{ID: "t:1", Text: "hello"}},
	}
	rec.Apply(&wire.Change{Snapshot: sn})
	rec.Apply(&wire.Change{Snapshot: sn})

	require.Len(t, rec.Document().Strokes, 1)
	require.Len(t, rec.Document().Shapes, 1)
	require.Len(t, rec.Document().Texts, 1)
}

func TestSnapshotDoesNotClobberNewerEdits(t *testing.T) {
	rec, _ := newTestReconciler(t)
	rec.Apply(&wire.Change{NewShape: &board.Shape{ID: "s:1", X: 50}})

	// A late snapshot overlapping a live entity wins by arrival order,
	// like any other event.
	rec.Apply(&wire.Change{Snapshot: &wire.Snapshot{
		Shapes: []board.Shape{{ID: "s:1", X: 10}},
	}})

	shape, _ := rec.Document().ShapeByID("s:1")
	require.Equal(t, 10.0, shape.X)
	require.Len(t, rec.Document().Shapes, 1)
}
