// Package session binds one client to one room: it owns the relay
// connection, classifies local edits into change events, and feeds inbound
// events through the reconciler. The connection is an explicit field, not
// process-global state, so several independent sessions can coexist in one
// process.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/JPeixoto/my-whiteboard-app/internal/reconcile"
	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
	"github.com/JPeixoto/my-whiteboard-app/pkg/config"
	"github.com/JPeixoto/my-whiteboard-app/pkg/transport"
	"github.com/JPeixoto/my-whiteboard-app/pkg/wire"
)

type Session struct {
	logger *slog.Logger
	cfg    config.ClientConfig
	room   string

	doc *board.Document
	rec *reconcile.Reconciler

	// apply is the session's event loop: inbound frames, image decode
	// completions and local edits all run here, one at a time, so the
	// document never sees concurrent mutation.
	apply chan func()
	// stopped is closed when the apply loop exits; Post drops work after
	// that instead of blocking a decode goroutine at shutdown.
	stopped chan struct{}

	mu        sync.Mutex // guards conn
	conn      *transport.Connection
	connected atomic.Bool

	wg sync.WaitGroup
}

func New(logger *slog.Logger, cfg config.ClientConfig, room string, doc *board.Document) *Session {
	s := &Session{
		logger:  logger.With(slog.String("component", "session"), slog.String("room", room)),
		cfg:     cfg,
		room:    room,
		doc:     doc,
		apply:   make(chan func(), 256),
		stopped: make(chan struct{}),
	}
	s.rec = reconcile.New(logger, doc, s.Post)
	return s
}

// Document returns the session's reconciled document.
func (s *Session) Document() *board.Document { return s.doc }

// Reconciler exposes merge state such as the pending-image count.
func (s *Session) Reconciler() *reconcile.Reconciler { return s.rec }

// Connected reports whether the relay link is currently up. Local editing
// continues unsynchronized while it is down.
func (s *Session) Connected() bool { return s.connected.Load() }

// Post schedules fn onto the session's event loop. Safe from any
// goroutine; once the loop has stopped the work is dropped.
func (s *Session) Post(fn func()) {
	select {
	case s.apply <- fn:
	case <-s.stopped:
	}
}

// Run drives the session until ctx is cancelled: event loop, initial
// connect, and reconnect-with-backoff after transport drops. The relay
// holds no membership for us across connections, so each (re)connect
// re-issues the join and requests a snapshot from peers.
func (s *Session) Run(ctx context.Context) error {
	go s.applyLoop(ctx)

	bo := backoff.NewExponentialBackOff()
	if s.cfg.ReconnectInitial > 0 {
		bo.InitialInterval = s.cfg.ReconnectInitial
	}
	if s.cfg.ReconnectMaxBackoff > 0 {
		bo.MaxInterval = s.cfg.ReconnectMaxBackoff
	}
	bo.MaxElapsedTime = 0

	for {
		err := backoff.Retry(func() error {
			return s.connect(ctx)
		}, backoff.WithContext(bo, ctx))
		if err != nil {
			// Only context cancellation gets here; dial errors retry forever.
			return ctx.Err()
		}
		bo.Reset()

		conn := s.current()
		select {
		case <-conn.Done():
			s.logger.Warn("Relay connection lost, reconnecting")
		case <-ctx.Done():
			conn.Close(ctx.Err())
			return nil
		}
	}
}

func (s *Session) connect(ctx context.Context) error {
	conn, err := transport.Dial(ctx, &s.wg, s.cfg.RelayURL, transport.ConnectionConfig{}, s.logger)
	if err != nil {
		s.logger.Warn("Relay dial failed", slog.Any("error", err))
		return err
	}
	conn.SetOnMessageHandler(s.onMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		s.connected.Store(false)
	})

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.Run()
	s.connected.Store(true)
	s.logger.Info("Joined relay", slog.String("url", s.cfg.RelayURL))

	s.sendEnvelope(wire.EventJoin, wire.Join{Room: s.room})
	// Ask peers for the board drawn before we arrived.
	s.send(&wire.Change{Room: s.room, SyncRequest: true})
	return nil
}

func (s *Session) applyLoop(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.apply:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) current() *transport.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// onMessage runs on the transport read pump; the actual merge is posted to
// the event loop.
func (s *Session) onMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		s.logger.Warn("Dropping malformed frame", slog.Any("error", err))
		return
	}
	if env.Event != wire.EventChange {
		return
	}
	var ch wire.Change
	if err := json.Unmarshal(env.Payload, &ch); err != nil {
		s.logger.Warn("Dropping malformed change payload", slog.Any("error", err))
		return
	}
	s.Post(func() {
		if ch.SyncRequest {
			s.answerSyncRequest()
		}
		s.rec.Apply(&ch)
	})
}

// answerSyncRequest replies with a snapshot of the full local document. An
// empty board sends nothing; some other peer, or nobody, will answer.
func (s *Session) answerSyncRequest() {
	if s.doc.Len() == 0 {
		return
	}
	s.send(&wire.Change{
		Room: s.room,
		Snapshot: &wire.Snapshot{
			Paths:        s.doc.Strokes,
			Shapes:       s.doc.Shapes,
			Images:       s.doc.Images,
			TextElements: s.doc.Texts,
		},
	})
}

func (s *Session) send(ch *wire.Change) {
	s.sendEnvelope(wire.EventChange, ch)
}

func (s *Session) sendEnvelope(event string, payload any) {
	conn := s.current()
	if conn == nil || !s.connected.Load() {
		s.logger.Debug("Offline, edit kept local", slog.String("event", event))
		return
	}
	frame, err := wire.MarshalEnvelope(event, payload)
	if err != nil {
		s.logger.Error("Failed to marshal outbound event", slog.Any("error", err))
		return
	}
	conn.Send(frame)
}
