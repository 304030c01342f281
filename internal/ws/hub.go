package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// EventPublisher receives websocket lifecycle events for the audit pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

const wsEventsRoutingKey = "ws_events.channels"

// Hub maintains the active websocket room per channel. Every mutation
// handler pushes its resulting event through Broadcast so all subscribers
// of the channel converge on the same log.
type Hub struct {
	rooms     map[int]map[*websocket.Conn]bool
	connInfo  map[int]map[*websocket.Conn]ConnInfo
	userConns map[int]int
	mu        sync.RWMutex

	events EventPublisher
}

// NewHub creates an empty hub. The event publisher may be nil.
func NewHub(events EventPublisher) *Hub {
	return &Hub{
		rooms:     make(map[int]map[*websocket.Conn]bool),
		connInfo:  make(map[int]map[*websocket.Conn]ConnInfo),
		userConns: make(map[int]int),
		events:    events,
	}
}

// AddClient registers a websocket connection to a channel room.
func (h *Hub) AddClient(channelID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channelID][conn] = true
	if _, ok := h.connInfo[channelID]; !ok {
		h.connInfo[channelID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channelID][conn] = info
	h.userConns[info.UserID]++
}

// RemoveClient removes a websocket connection from a channel room.
func (h *Hub) RemoveClient(channelID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if infos, ok := h.connInfo[channelID]; ok {
		if info, exists := infos[conn]; exists {
			if h.userConns[info.UserID] > 1 {
				h.userConns[info.UserID]--
			} else {
				delete(h.userConns, info.UserID)
			}
		}
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channelID)
		}
	}
	if conns, ok := h.rooms[channelID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channelID)
		}
	}
}

// ActiveForUser reports how many subscriptions the user currently holds,
// across all channels. Presence uses it to tell a tab switch from a real
// disconnect.
func (h *Hub) ActiveForUser(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.userConns[userID]
}

// Broadcast pushes an event to every subscriber of its channel. Dead
// connections are closed and removed on the way.
func (h *Hub) Broadcast(event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[event.ChannelID]))
	for conn := range h.rooms[event.ChannelID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("marshal channel event")
		return
	}

	observability.IncBroadcast(event.Type)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn().Err(err).Int("channel_id", event.ChannelID).Msg("websocket write error")
			conn.Close()
			info, ok := h.infoFor(event.ChannelID, conn)
			h.RemoveClient(event.ChannelID, conn)
			if ok {
				h.publishWSEvent(context.Background(), info, event.ChannelID, "ws_error", err.Error())
			}
			observability.IncWSEvent("ws_error")
		}
	}
}

func (h *Hub) infoFor(channelID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channelID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func (h *Hub) publishWSEvent(ctx context.Context, info ConnInfo, channelID int, event, reason string) {
	if h.events == nil {
		return
	}
	payload := map[string]any{
		"ws": map[string]any{
			"channel_id":  channelID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]any{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	envelope := map[string]any{
		"event_type": "ws_events",
		"event_name": event,
		"request_id": info.RequestID,
		"trace_id":   info.TraceID,
		"payload":    payload,
	}
	_ = h.events.Publish(ctx, wsEventsRoutingKey, envelope)
}
