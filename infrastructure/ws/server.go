package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notifyhub/auth"
	"notifyhub/observability"
	"notifyhub/runtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server upgrades HTTP requests to websocket connections, binds each one
// to the user its token authenticates, and bridges frames to the hub.
type Server struct {
	log        *slog.Logger
	hub        *runtime.Hub
	tokens     *auth.TokenManager
	validate   *validator.Validate
	stats      *observability.Stats
	bufferSize int
}

func NewServer(log *slog.Logger, hub *runtime.Hub, tokens *auth.TokenManager,
	stats *observability.Stats, bufferSize int) *Server {
	return &Server{
		log:        log,
		hub:        hub,
		tokens:     tokens,
		validate:   validator.New(),
		stats:      stats,
		bufferSize: bufferSize,
	}
}

// ServeHTTP authenticates, upgrades, registers the connection and blocks
// in the read loop until the client goes away. The user id is taken from
// the validated token, never from any client-supplied field.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := s.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	sink := NewSink(s.bufferSize)
	if err := s.hub.Attach(connID, claims.UserID, sink); err != nil {
		s.log.Error("failed to attach connection", "conn_id", connID, "error", err)
		conn.Close()
		return
	}
	s.stats.ConnOpened()
	s.log.Info("client connected", "conn_id", connID, "user_id", claims.UserID)

	ctx, cancel := context.WithCancel(r.Context())
	client := &client{
		id:       connID,
		userID:   claims.UserID,
		conn:     conn,
		sink:     sink,
		hub:      s.hub,
		log:      s.log,
		validate: s.validate,
	}

	go client.writeLoop(ctx)
	client.readLoop(ctx)

	// The read loop returned: the client disconnected or the request
	// context ended. Unwind everything for this connection only.
	cancel()
	s.hub.Detach(connID)
	conn.Close()
	s.stats.ConnClosed()
	s.log.Info("client disconnected", "conn_id", connID, "user_id", claims.UserID)
}
