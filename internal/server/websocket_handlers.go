package server

import (
	"context"

	"ripple/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// upgradeRequired rejects plain HTTP requests to the websocket endpoint.
func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"message": "WebSocket upgrade required",
	})
}

// WebsocketHandler handles GET /api/ws. The connection is registered under
// the caller's stored device token, so pushes published for that token are
// delivered over this socket while it stays open. A user who logged in
// without a device token has nothing to subscribe to and is disconnected.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, ok := conn.Locals(middleware.LocalUserID).(uint)
		if !ok {
			return
		}

		user, err := s.userService.GetProfile(context.Background(), userID)
		if err != nil || user.NotificationToken == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"success":false,"message":"No registered device token"}`))
			return
		}

		token := user.NotificationToken
		if err := s.hub.Register(token, conn); err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"success":false,"message":"Connection limit reached"}`))
			return
		}
		defer s.hub.Unregister(token, conn)

		// Hold the connection open; inbound frames are ignored.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
