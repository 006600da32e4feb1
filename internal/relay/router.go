package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

// Router dispatches inbound envelopes. Only join is interpreted; change
// payloads are forwarded verbatim to the sender's room without validation
// or storage. Malformed frames are logged and dropped; the
// protocol has no error replies.
type Router struct {
	logger *slog.Logger
	rooms  *RoomManager
}

func NewRouter(logger *slog.Logger, rooms *RoomManager) *Router {
	return &Router{
		logger: logger.With(slog.String("component", "router")),
		rooms:  rooms,
	}
}

// HandleMessage is installed as the transport's message callback.
func (r *Router) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		r.logger.Warn("Failed to unmarshal client message", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}

	switch env.Event {
	case wire.EventJoin:
		r.handleJoin(connID, env.Payload)
	case wire.EventChange:
		r.handleChange(connID, msg, env.Payload)
	default:
		r.logger.Warn("Received unknown event", slog.String("event", env.Event), slog.String("connID", connID.String()))
	}
}

func (r *Router) handleJoin(connID uuid.UUID, payload json.RawMessage) {
	roomName := gjson.GetBytes(payload, "room").String()
	if roomName == "" {
		r.logger.Warn("Join event without a room name", slog.String("connID", connID.String()))
		return
	}
	if err := r.rooms.Join(connID, roomName); err != nil {
		r.logger.Error("Join failed", slog.String("connID", connID.String()), slog.Any("error", err))
	}
}

// handleChange extracts only the room field and rebroadcasts the original
// frame untouched, so receivers see exactly what the sender produced.
func (r *Router) handleChange(connID uuid.UUID, frame []byte, payload json.RawMessage) {
	roomName := gjson.GetBytes(payload, "room").String()
	if roomName == "" {
		r.logger.Warn("Change event without a room name", slog.String("connID", connID.String()))
		return
	}
	n := r.rooms.Broadcast(roomName, connID, frame)
	r.logger.Debug("Change forwarded",
		slog.String("room", roomName),
		slog.String("connID", connID.String()),
		slog.Int("receivers", n),
	)
}
