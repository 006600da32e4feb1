package relay_test

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JPeixoto/my-whiteboard-app/internal/relay"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	// Discard logger output during tests by setting a high level
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestManager() *relay.RoomManager {
	return relay.NewRoomManager(newTestLogger())
}

// fakeSender records everything sent through it.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeSender) Send(msg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, msg)
}

func (f *fakeSender) Close(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func register(t *testing.T, m *relay.RoomManager, ip string) (uuid.UUID, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	id := uuid.New()
	if _, err := m.Register(sender, id, ip, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return id, sender
}

// --- Connection Lifecycle Tests ---

func TestRegisterRejectsDuplicate(t *testing.T) {
	m := newTestManager()
	id, _ := register(t, m, "127.0.0.1")

	if _, err := m.Register(&fakeSender{}, id, "127.0.0.1", nil); err == nil {
		t.Error("Expected duplicate registration to fail, but it succeeded")
	}
}

func TestDeregisterRemovesMemberships(t *testing.T) {
	m := newTestManager()
	id, _ := register(t, m, "127.0.0.1")

	if err := m.Join(id, "r1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !m.Member(id, "r1") {
		t.Fatal("Expected connection to be a member of r1")
	}

	m.Deregister(id)
	if m.Member(id, "r1") {
		t.Error("Connection still a room member after deregister")
	}
	if _, found := m.FindRoom("r1"); found {
		t.Error("Expected empty room to be removed after last member left")
	}
}

func TestDeregisterUnknownIsNoop(t *testing.T) {
	m := newTestManager()
	m.Deregister(uuid.New())
}

// --- Room Membership Tests ---

func TestJoinCreatesRoomLazily(t *testing.T) {
	m := newTestManager()
	id, _ := register(t, m, "127.0.0.1")

	if _, found := m.FindRoom("r1"); found {
		t.Fatal("Room should not exist before first join")
	}
	if err := m.Join(id, "r1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	n, found := m.FindRoom("r1")
	if !found || n != 1 {
		t.Errorf("Expected room with 1 member, got found=%v n=%d", found, n)
	}
}

func TestJoinRequiresRegisteredConnection(t *testing.T) {
	m := newTestManager()
	if err := m.Join(uuid.New(), "r1"); err == nil {
		t.Error("Expected join of unregistered connection to fail")
	}
}

func TestSecondJoinAddsSecondMembership(t *testing.T) {
	m := newTestManager()
	id, _ := register(t, m, "127.0.0.1")

	m.Join(id, "r1")
	m.Join(id, "r2")
	if !m.Member(id, "r1") || !m.Member(id, "r2") {
		t.Error("Expected connection to hold both memberships")
	}
}

func TestLeaveRemovesEmptyRoom(t *testing.T) {
	m := newTestManager()
	id1, _ := register(t, m, "1.1.1.1")
	id2, _ := register(t, m, "2.2.2.2")
	m.Join(id1, "r1")
	m.Join(id2, "r1")

	m.Leave(id1, "r1")
	n, found := m.FindRoom("r1")
	if !found || n != 1 {
		t.Fatalf("Expected 1 member after leave, got found=%v n=%d", found, n)
	}

	m.Leave(id2, "r1")
	if _, found := m.FindRoom("r1"); found {
		t.Error("Expected room to be deleted after last member left, but it was found")
	}
}

// --- Fan-out Tests ---

func TestBroadcastExcludesSender(t *testing.T) {
	m := newTestManager()
	sender, senderConn := register(t, m, "1.1.1.1")
	peer1, peer1Conn := register(t, m, "2.2.2.2")
	peer2, peer2Conn := register(t, m, "3.3.3.3")
	m.Join(sender, "r1")
	m.Join(peer1, "r1")
	m.Join(peer2, "r1")

	msg := []byte(`{"event":"change"}`)
	n := m.Broadcast("r1", sender, msg)
	if n != 2 {
		t.Errorf("Expected 2 receivers, got %d", n)
	}
	if senderConn.count() != 0 {
		t.Error("Sender received its own broadcast")
	}
	if peer1Conn.count() != 1 || peer2Conn.count() != 1 {
		t.Errorf("Expected each peer to receive exactly 1 frame, got %d and %d", peer1Conn.count(), peer2Conn.count())
	}
	if string(peer1Conn.frames[0]) != string(msg) {
		t.Error("Broadcast frame was not forwarded verbatim")
	}
}

func TestBroadcastRoomIsolation(t *testing.T) {
	m := newTestManager()
	a, _ := register(t, m, "1.1.1.1")
	b, bConn := register(t, m, "2.2.2.2")
	m.Join(a, "roomA")
	m.Join(b, "roomB")

	m.Broadcast("roomA", a, []byte("x"))
	if bConn.count() != 0 {
		t.Error("Change sent to room A was delivered to a room-B-only connection")
	}
}

func TestBroadcastUnknownRoom(t *testing.T) {
	m := newTestManager()
	if n := m.Broadcast("nowhere", uuid.New(), []byte("x")); n != 0 {
		t.Errorf("Expected 0 receivers for unknown room, got %d", n)
	}
}

// --- Limiter Support Tests ---

func TestCountByIP(t *testing.T) {
	m := newTestManager()
	register(t, m, "1.1.1.1")
	register(t, m, "1.1.1.1")
	register(t, m, "2.2.2.2")

	if n := m.CountByIP("1.1.1.1"); n != 2 {
		t.Errorf("Expected 2 connections for 1.1.1.1, got %d", n)
	}
	if n := m.CountByIP("9.9.9.9"); n != 0 {
		t.Errorf("Expected 0 connections for unknown address, got %d", n)
	}
}
