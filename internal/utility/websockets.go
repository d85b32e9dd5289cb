package utility

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Simple Hub to hold active connections: Map[UserID] -> Connection
var (
	Clients   = make(map[string]*websocket.Conn)
	ClientsMu sync.Mutex // Mutex to prevent race conditions
	Upgrader  = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Allow CORS for development
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

// Register a new client connection
func RegisterClient(userID string, conn *websocket.Conn) {
	ClientsMu.Lock()
	defer ClientsMu.Unlock()
	Clients[userID] = conn
	log.Info().Str("user_id", userID).Msg("WebSocket Client Connected")
}

// Unregister a client (when they close the app)
func UnregisterClient(userID string) {
	ClientsMu.Lock()
	defer ClientsMu.Unlock()
	if _, ok := Clients[userID]; ok {
		delete(Clients, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket Client Disconnected")
	}
}

// NotifyAnalysisReady tells a connected client that a fresh advisory is
// available so it can refetch.
func NotifyAnalysisReady(userID string) {
	ClientsMu.Lock()
	defer ClientsMu.Unlock()

	if conn, ok := Clients[userID]; ok {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("ANALYSIS_READY")); err != nil {
			log.Error().Err(err).Msg("Failed to send WS message, removing client")
			conn.Close()
			delete(Clients, userID)
		}
	}
}
