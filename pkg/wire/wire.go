// Package wire defines the event envelope and payload shapes exchanged
// between clients and the relay. The relay never inspects a change payload
// beyond its room field; everything else is client-to-client contract.
package wire

import (
	"encoding/json"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
)

// Envelope event names.
const (
	EventJoin   = "join"
	EventChange = "change"
)

// Envelope is the outermost frame of every message.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Join asks the relay to add this connection to a room's fan-out set.
type Join struct {
	Room string `json:"room"`
}

// Change carries one board mutation. Exactly one of the optional fields is
// populated in normal operation, but receivers must check each
// independently: a payload with no recognized field is simply inert.
type Change struct {
	Room string `json:"room"`

	NewPath        *board.Stroke      `json:"newPath,omitempty"`
	NewShape       *board.Shape       `json:"newShape,omitempty"`
	NewImage       *board.Image       `json:"newImage,omitempty"`
	NewTextElement *board.TextElement `json:"newTextElement,omitempty"`

	DeletedPathID        string `json:"deletedPathId,omitempty"`
	DeletedShapeID       string `json:"deletedShapeId,omitempty"`
	DeletedTextElementID string `json:"deletedTextElementId,omitempty"`

	UpdatedSelection []SelectionItem `json:"updatedSelection,omitempty"`

	Clear bool `json:"clear,omitempty"`

	// Resync handshake: a joiner sets SyncRequest, peers answer with a
	// Snapshot of their full document. The relay forwards both like any
	// other change.
	SyncRequest bool      `json:"syncRequest,omitempty"`
	Snapshot    *Snapshot `json:"snapshot,omitempty"`
}

// SelectionKind discriminates which collection a selection snapshot
// belongs to.
type SelectionKind string

const (
	KindShape SelectionKind = "shape"
	KindImage SelectionKind = "image"
	KindText  SelectionKind = "text"
)

// SelectionItem is a partial-or-full entity snapshot inside an
// updatedSelection batch. Nil fields were not touched by the sender and
// must keep their local value on merge. IDs are unique across the shape,
// image, and text collections, so one ID names at most one entity.
type SelectionItem struct {
	Kind SelectionKind `json:"kind,omitempty"`
	ID   string        `json:"id"`

	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Color       *string          `json:"color,omitempty"`
	StrokeWidth *float64         `json:"strokeWidth,omitempty"`
	ShapeKind   *board.ShapeKind `json:"type,omitempty"`

	Src *string `json:"src,omitempty"`

	Text       *string  `json:"text,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
}

// ResolveKind returns the explicit kind tag when present, falling back to
// field presence for peers that omit it: an src field routes to images, a
// text field to text elements, anything else to shapes.
func (it *SelectionItem) ResolveKind() SelectionKind {
	if it.Kind != "" {
		return it.Kind
	}
	if it.Src != nil {
		return KindImage
	}
	if it.Text != nil || it.FontSize != nil || it.FontFamily != nil {
		return KindText
	}
	return KindShape
}

// Snapshot is a peer's full document, sent in answer to a sync request.
// Receivers merge it through the same insert-or-merge path as individual
// events, so overlapping snapshots from several peers are harmless.
type Snapshot struct {
	Paths        []board.Stroke      `json:"paths"`
	Shapes       []board.Shape       `json:"shapes"`
	Images       []board.Image       `json:"images"`
	TextElements []board.TextElement `json:"textElements"`
}

// MarshalEnvelope wraps a payload struct in an Envelope frame.
func MarshalEnvelope(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
