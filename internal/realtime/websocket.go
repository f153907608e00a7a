package realtime

import (
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/kazilink/backend/internal/utils"
)

// WebSocketHandler authenticates the connection from the token query
// parameter and streams notification events until the client goes away.
func WebSocketHandler(hub *Hub, jwtSecret string) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		claims, err := utils.ParseJWT(jwtSecret, strings.TrimSpace(conn.Query("token")))
		if err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return
		}

		client := &Client{
			ID:     uuid.NewString(),
			UserID: userID,
			Send:   make(chan []byte, 64),
		}
		hub.RegisterClient(client)
		defer hub.UnregisterClient(client)

		// Writer: drain the send channel onto the socket. Exits when the
		// hub closes Send on unregister.
		go func() {
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// Reader: we never expect client messages, but the read loop is what
		// detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
