package relay

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JPeixoto/my-whiteboard-app/internal/relay/middleware"
)

// RoomManager tracks connections and their room memberships. Rooms are
// pure fan-out groups: created lazily on first join, removed when the last
// member leaves, never persisted. A connection usually belongs to one room,
// but nothing enforces that; a second join simply adds a second membership.
type RoomManager struct {
	clients map[uuid.UUID]*Client
	rooms   map[string]map[uuid.UUID]*Client
	// joined tracks the reverse mapping for cleanup on disconnect.
	joined map[uuid.UUID]map[string]struct{}

	mu sync.RWMutex

	logger *slog.Logger
}

func NewRoomManager(logger *slog.Logger) *RoomManager {
	return &RoomManager{
		clients: make(map[uuid.UUID]*Client),
		rooms:   make(map[string]map[uuid.UUID]*Client),
		joined:  make(map[uuid.UUID]map[string]struct{}),
		logger:  logger.With(slog.String("component", "room_manager")),
	}
}

// Register adds a freshly accepted connection. It belongs to no room until
// it sends a join event.
func (m *RoomManager) Register(conn Sender, connID uuid.UUID, ipAddr string, identity *middleware.Identity) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[connID]; exists {
		return nil, errors.New("connection is already registered")
	}
	client := &Client{
		ID:        connID,
		IPAddress: ipAddr,
		Transport: conn,
		Identity:  identity,
		CreatedAt: time.Now(),
	}
	m.clients[connID] = client
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()))
	return client, nil
}

// Deregister removes a connection and every room membership it holds.
// Peers are not notified; they find out when the next edit never arrives.
func (m *RoomManager) Deregister(connID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[connID]; !ok {
		return
	}
	delete(m.clients, connID)

	for roomName := range m.joined[connID] {
		m.removeFromRoom(connID, roomName)
	}
	delete(m.joined, connID)
	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
}

// Join adds a connection to the named room, creating the room if absent.
func (m *RoomManager) Join(connID uuid.UUID, roomName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[connID]
	if !ok {
		return errors.New("cannot join room: connection not registered")
	}

	room, exists := m.rooms[roomName]
	if !exists {
		room = make(map[uuid.UUID]*Client)
		m.rooms[roomName] = room
	}
	room[connID] = client

	if m.joined[connID] == nil {
		m.joined[connID] = make(map[string]struct{})
	}
	m.joined[connID][roomName] = struct{}{}

	m.logger.Debug("Connection joined room", slog.String("connID", connID.String()), slog.String("room", roomName))
	return nil
}

// Leave removes a single membership. Unknown connections or rooms are a no-op.
func (m *RoomManager) Leave(connID uuid.UUID, roomName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeFromRoom(connID, roomName)
	if set, ok := m.joined[connID]; ok {
		delete(set, roomName)
	}
}

// removeFromRoom drops the membership link and garbage-collects empty
// rooms. Caller must hold the lock.
func (m *RoomManager) removeFromRoom(connID uuid.UUID, roomName string) {
	room, ok := m.rooms[roomName]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(m.rooms, roomName)
		m.logger.Debug("Removed empty room", slog.String("room", roomName))
	}
}

// Broadcast forwards msg to every member of roomName except the sender.
// Returns the number of members addressed. An unknown room addresses
// nobody; that is not an error, the sender may simply be alone.
func (m *RoomManager) Broadcast(roomName string, sender uuid.UUID, msg []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomName]
	if !ok {
		return 0
	}
	n := 0
	for id, client := range room {
		if id == sender {
			continue
		}
		client.Transport.Send(msg)
		n++
	}
	return n
}

// Member reports whether the connection currently belongs to the room.
func (m *RoomManager) Member(connID uuid.UUID, roomName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[roomName][connID]
	return ok
}

// FindRoom reports whether a room currently exists and its member count.
func (m *RoomManager) FindRoom(roomName string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomName]
	return len(room), ok
}

// CountByIP reports how many live connections an address holds. Feeds the
// connection limiter.
func (m *RoomManager) CountByIP(ip string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.clients {
		if c.IPAddress == ip {
			n++
		}
	}
	return n
}

// AllClients snapshots every live connection, for shutdown.
func (m *RoomManager) AllClients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	return clients
}
