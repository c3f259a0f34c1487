package websocket

import (
	"encoding/json"

	"marketplace-assistant-be/internal/dto"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one chat connection. It announces the session id first, then
// answers frames in order until the peer leaves or ends the session.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID, mode string, service ChatService) {
	client := NewClient(hub, c, sessionID, mode, service)
	client.Hub.register <- client

	hello, _ := json.Marshal(dto.WebsocketMessage{Type: "session", SessionId: sessionID})
	client.trySend(hello)

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
