package session

import (
	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

// The editor hands the session every local mutation already classified;
// each method below wraps one change-event shape. Images are broadcast
// with their payload embedded, never the decoded pixels.

func (s *Session) EmitStroke(stroke board.Stroke) {
	s.send(&wire.Change{Room: s.room, NewPath: &stroke})
}

func (s *Session) EmitShape(shape board.Shape) {
	s.send(&wire.Change{Room: s.room, NewShape: &shape})
}

func (s *Session) EmitImage(img board.Image) {
	img.Pixels = nil
	s.send(&wire.Change{Room: s.room, NewImage: &img})
}

func (s *Session) EmitText(t board.TextElement) {
	s.send(&wire.Change{Room: s.room, NewTextElement: &t})
}

func (s *Session) EmitDeletedStroke(id string) {
	s.send(&wire.Change{Room: s.room, DeletedPathID: id})
}

func (s *Session) EmitDeletedShape(id string) {
	s.send(&wire.Change{Room: s.room, DeletedShapeID: id})
}

func (s *Session) EmitDeletedText(id string) {
	s.send(&wire.Change{Room: s.room, DeletedTextElementID: id})
}

func (s *Session) EmitSelection(items []wire.SelectionItem) {
	if len(items) == 0 {
		return
	}
	s.send(&wire.Change{Room: s.room, UpdatedSelection: items})
}

func (s *Session) EmitClear() {
	s.send(&wire.Change{Room: s.room, Clear: true})
}
