package relay

import (
	"time"

	"github.com/google/uuid"

	"github.com/JPeixoto/my-whiteboard-app/internal/relay/middleware"
)

// Sender is the slice of the transport a room member needs: queue outbound
// bytes, or tear the link down. *transport.Connection satisfies it; tests
// substitute fakes.
type Sender interface {
	Send(message []byte)
	Close(err error)
}

// Client is the relay's view of one connected editor. The relay holds no
// document state for it; membership and addressing is everything.
type Client struct {
	ID        uuid.UUID
	IPAddress string
	Transport Sender
	Identity  *middleware.Identity // nil for anonymous connections
	CreatedAt time.Time
}
