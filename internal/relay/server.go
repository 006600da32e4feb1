package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/JPeixoto/my-whiteboard-app/internal/relay/middleware"
	"github.com/JPeixoto/my-whiteboard-app/pkg/config"
	"github.com/JPeixoto/my-whiteboard-app/pkg/transport"
)

// App wires the HTTP server, the room manager and the router into the
// relay process. It holds no board state: clients own their documents and
// the relay only rebroadcasts.
type App struct {
	logger *slog.Logger
	rooms  *RoomManager
	router *Router
	wg     sync.WaitGroup
	http   *http.Server
	config *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	rooms := NewRoomManager(logger)
	router := NewRouter(logger, rooms)

	app := &App{
		logger: logger,
		rooms:  rooms,
		router: router,
		config: cfg,
		ctx:    rootCtx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewConnectionLimiter(logger, rooms.CountByIP, cfg.Server.ConnectionLimit),
			middleware.NewIdentityMiddleware(logger, cfg.Server.Auth.JWTSecret),
		),
	)

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

// Rooms exposes the membership manager, mainly for tests that run the app
// in-process.
func (a *App) Rooms() *RoomManager {
	return a.rooms
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Relay starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(slog.String("remoteAddr", reqMeta.IP))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: a.config.Server.AllowedOrigins,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		nil,
		nil,
		a.logger,
	)
	conn.SetOnMessageHandler(a.router.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		a.rooms.Deregister(id)
	})

	if _, err := a.rooms.Register(conn, conn.ID(), reqMeta.IP, reqMeta.Identity); err != nil {
		connLogger.Error("Failed to register connection state", slog.Any("error", err))
		wsConn.Close(websocket.StatusInternalError, "registration failed")
		return
	}

	connLogger.Info("Connection fully established", slog.String("connID", conn.ID().String()))
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down relay...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, client := range a.rooms.AllClients() {
		client.Transport.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Relay shut down gracefully.")
	return nil
}
