package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"phrasely-backend/application/commands"
	"phrasely-backend/application/commands/bus"
	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/valueobjects"
)

// maxSocketsPerSession bounds fan-out per session room
const maxSocketsPerSession = 10

// Server upgrades browser connections and subscribes them to their
// session's projection room.
type Server struct {
	hub        *Hub
	upgrader   websocket.Upgrader
	sessions   ports.SessionRepository
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin checking is delegated to the CORS layer in front.
			return true
		},
	}
}

// NewServer creates a new WebSocket server
func NewServer(
	hub *Hub,
	sessions ports.SessionRepository,
	commandBus *bus.CommandBus,
	config *ServerConfig,
	logger *zap.Logger,
) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		sessions:   sessions,
		commandBus: commandBus,
		logger:     logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests. The session is
// identified by the sessionId query parameter and must belong to the
// caller. A successful upgrade rebinds the session to the new socket,
// which invalidates the correlation id of any in-flight run.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get("X-User-ID")
	if ownerID == "" {
		ownerID = r.URL.Query().Get("userId")
	}
	if ownerID == "" {
		http.Error(w, "Missing user identity", http.StatusBadRequest)
		return
	}

	rawSessionID := r.URL.Query().Get("sessionId")
	sessionID, err := valueobjects.NewSessionIDFromString(rawSessionID)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	session, err := s.sessions.GetByID(r.Context(), sessionID)
	if err != nil || session.OwnerID() != ownerID {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if s.hub.RoomSize(rawSessionID) >= maxSocketsPerSession {
		s.logger.Warn("Socket limit exceeded for session",
			zap.String("sessionID", rawSessionID),
		)
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(rawSessionID, s.hub, conn, s.logger)
	client.Start()

	// Rebind the session to this socket. In-flight runs on the old
	// socket are abandoned because their correlation ids no longer
	// carry the live socket prefix.
	cmd := commands.ReconnectSocketCommand{
		SessionID: rawSessionID,
		SocketID:  client.SocketID(),
	}
	if err := s.commandBus.Send(r.Context(), cmd); err != nil {
		s.logger.Error("Failed to rebind session socket",
			zap.Error(err),
			zap.String("sessionID", rawSessionID),
		)
	}

	s.logger.Info("WebSocket connection established",
		zap.String("sessionID", rawSessionID),
		zap.String("socketID", client.SocketID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *Hub {
	return s.hub
}
