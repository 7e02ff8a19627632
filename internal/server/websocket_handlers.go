package server

import (
	"log"

	"partrack/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// flagRealtime gates the websocket event stream.
const flagRealtime = "realtime"

// WebsocketHandler handles WebSocket connections for the workflow event
// stream. Clients receive every committed workflow transition as JSON.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.hub == nil || !s.featureFlags.Enabled(flagRealtime, userID) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"realtime disabled"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// GetFeatureFlags handles GET /api/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{
		"raw": s.featureFlags.Raw(),
		"evaluated": fiber.Map{
			flagRealtime: s.featureFlags.Enabled(flagRealtime, userID),
		},
	})
}
