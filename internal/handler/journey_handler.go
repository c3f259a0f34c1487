package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/logger"
	internalWS "marketplace-assistant-be/internal/websocket"
	"marketplace-assistant-be/pkg/events"
	"marketplace-assistant-be/pkg/metrics"
	pktNats "marketplace-assistant-be/pkg/nats"
	"marketplace-assistant-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// JourneyHandler serves the chat websocket and relays journey events from
// the bus to the sockets watching the session.
type JourneyHandler struct {
	chat       internalWS.ChatService
	subscriber *pktNats.Subscriber // nil when NATS is not configured
	hub        *internalWS.Hub
	metrics    *metrics.JourneyMetrics
	logger     logger.ILogger
}

func NewJourneyHandler(chat internalWS.ChatService, sub *pktNats.Subscriber, hub *internalWS.Hub, m *metrics.JourneyMetrics, log logger.ILogger) *JourneyHandler {
	return &JourneyHandler{
		chat:       chat,
		subscriber: sub,
		hub:        hub,
		metrics:    m,
		logger:     log,
	}
}

// Start subscribes to the journey events
func (h *JourneyHandler) Start(ctx context.Context) error {
	if h.subscriber == nil {
		h.logger.Warn("JourneyHandler", "NATS subscriber not configured, journey events will not be relayed", nil)
		return nil
	}

	subscriptions := map[string]string{
		events.TypeStageChanged: "journey-stage-changed",
		events.TypeSessionEnded: "journey-session-ended",
	}
	for eventType, durable := range subscriptions {
		if err := h.subscriber.Subscribe(ctx, pktNats.Subject(eventType), durable, h.HandleEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

// HandleEvent counts the event and pushes it to the session's sockets
func (h *JourneyHandler) HandleEvent(ctx context.Context, event events.Event) error {
	data := event.Payload()
	sessionID, _ := data["session_id"].(string)
	if sessionID == "" {
		h.logger.Warn("JourneyHandler", "Event without session_id, skipping", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	var stage string
	switch event.EventType() {
	case events.TypeStageChanged:
		stage, _ = data["to"].(string)
	case events.TypeSessionEnded:
		stage, _ = data["final_stage"].(string)
	}
	if h.metrics != nil {
		h.metrics.JourneyEvents.WithLabelValues(event.EventType(), stage).Inc()
	}

	h.logger.Info("JourneyHandler", "Journey event received", map[string]interface{}{
		"type":       event.EventType(),
		"session_id": sessionID,
		"stage":      stage,
	})

	msg, err := json.Marshal(dto.WebsocketMessage{
		Type:      "event",
		Event:     event.EventType(),
		SessionId: sessionID,
		Stage:     stage,
		Visited:   toStrings(data["visited_stages"]),
	})
	if err != nil {
		return err
	}
	h.hub.SendToSession(ctx, sessionID, msg)
	return nil
}

// ServeWs upgrades GET /chatbot/v1/ws?session_id=&stage= to a chat socket.
// Without a session_id a new session is started.
func (h *JourneyHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "session_id must be a uuid")
	}

	mode := c.Query("stage", store.ModeMain)
	if mode != store.ModeMain && mode != store.ModeSingle {
		return fiber.NewError(fiber.StatusBadRequest, "stage must be main or single")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("JourneyHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID, mode, h.chat)
			h.logger.Info("JourneyHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *JourneyHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chatbot/v1/ws", h.ServeWs)
}

func toStrings(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
