package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/internal/dto"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// ChatService is what a chat connection needs from the chatbot service
type ChatService interface {
	Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error)
	EndSession(ctx context.Context, request *dto.EndSessionRequest) (*dto.EndSessionResponse, error)
}

// Client is one websocket connection bound to one session
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string
	Mode      string
	Service   ChatService

	// Buffered channel of outbound messages.
	Send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID, mode string, service ChatService) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Mode:      mode,
		Service:   service,
		Send:      make(chan []byte, 32),
		closed:    make(chan struct{}),
	}
}

func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// readPump handles one incoming frame at a time so turns never overlap
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WS", "Connection closed unexpectedly", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := c.handle(raw)
		data, _ := json.Marshal(reply)
		if !c.trySend(data) {
			return
		}
		if reply.Type == "ended" {
			return
		}
	}
}

func (c *Client) handle(raw []byte) dto.WebsocketMessage {
	var in dto.WebsocketMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return dto.WebsocketMessage{Type: "error", Message: "invalid message"}
	}

	ctx := context.Background()
	switch in.Type {
	case "query":
		if in.Question == "" {
			return dto.WebsocketMessage{Type: "error", Message: "question is required"}
		}
		res, err := c.Service.Query(ctx, &dto.QueryRequest{
			Question:  in.Question,
			Stage:     c.Mode,
			SessionId: c.SessionID,
		})
		if err != nil {
			return dto.WebsocketMessage{Type: "error", Message: constant.GenericFailureMessage}
		}
		return dto.WebsocketMessage{
			Type:       "reply",
			SessionId:  res.SessionId,
			Message:    res.Message,
			RagContent: res.RagContent,
			Stage:      res.Stage,
			Visited:    res.VisitedStages,
		}
	case "end":
		res, err := c.Service.EndSession(ctx, &dto.EndSessionRequest{SessionId: c.SessionID})
		if err != nil {
			return dto.WebsocketMessage{Type: "error", Message: constant.GenericFailureMessage}
		}
		return dto.WebsocketMessage{Type: "ended", SessionId: res.SessionId, Message: res.Message, Stage: res.Stage}
	default:
		return dto.WebsocketMessage{Type: "error", Message: "unknown message type"}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			for n := len(c.Send); n > 0; n-- {
				c.Conn.WriteMessage(websocket.TextMessage, <-c.Send)
			}
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
