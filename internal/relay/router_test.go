package relay_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/JPeixoto/my-whiteboard-app/internal/relay"
)

func newTestRouter(t *testing.T) (*relay.Router, *relay.RoomManager) {
	t.Helper()
	m := relay.NewRoomManager(newTestLogger())
	return relay.NewRouter(newTestLogger(), m), m
}

func TestRouterJoinThenChange(t *testing.T) {
	router, m := newTestRouter(t)
	x, _ := register(t, m, "1.1.1.1")
	y, yConn := register(t, m, "2.2.2.2")

	join := []byte(`{"event":"join","payload":{"room":"r1"}}`)
	router.HandleMessage(context.Background(), x, join)
	router.HandleMessage(context.Background(), y, join)

	change := []byte(`{"event":"change","payload":{"room":"r1","newShape":{"id":"s:1","x":0,"y":0,"width":10,"height":10,"type":"rectangle"}}}`)
	router.HandleMessage(context.Background(), x, change)

	if yConn.count() != 1 {
		t.Fatalf("Expected peer to receive 1 frame, got %d", yConn.count())
	}
	// The relay is content-agnostic: the frame arrives byte-for-byte.
	if string(yConn.frames[0]) != string(change) {
		t.Error("Forwarded frame differs from the sent frame")
	}
}

func TestRouterDropsMalformedFrame(t *testing.T) {
	router, m := newTestRouter(t)
	x, _ := register(t, m, "1.1.1.1")

	router.HandleMessage(context.Background(), x, []byte(`{not json`))
	router.HandleMessage(context.Background(), x, []byte(`{"event":"flood","payload":{}}`))
}

func TestRouterChangeWithoutRoomIsInert(t *testing.T) {
	router, m := newTestRouter(t)
	x, _ := register(t, m, "1.1.1.1")
	y, yConn := register(t, m, "2.2.2.2")
	join := []byte(`{"event":"join","payload":{"room":"r1"}}`)
	router.HandleMessage(context.Background(), x, join)
	router.HandleMessage(context.Background(), y, join)

	router.HandleMessage(context.Background(), x, []byte(`{"event":"change","payload":{"newShape":{"id":"s:1"}}}`))
	if yConn.count() != 0 {
		t.Error("Change without a room name was still forwarded")
	}
}

func TestRouterJoinWithoutRoomIsInert(t *testing.T) {
	router, m := newTestRouter(t)
	x, _ := register(t, m, "1.1.1.1")

	payload, _ := json.Marshal(map[string]any{"other": "field"})
	frame, _ := json.Marshal(map[string]any{"event": "join", "payload": json.RawMessage(payload)})
	router.HandleMessage(context.Background(), x, frame)

	if m.Member(x, "") {
		t.Error("Connection joined a room with an empty name")
	}
}

func TestRouterChangeToUnjoinedRoom(t *testing.T) {
	router, m := newTestRouter(t)
	x, _ := register(t, m, "1.1.1.1")
	// Sending to a room nobody joined addresses nobody and must not panic.
	router.HandleMessage(context.Background(), x, []byte(`{"event":"change","payload":{"room":"ghost","clear":true}}`))
}
