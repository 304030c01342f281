package ws

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/repositories"
	"messaging-service/internal/typing"
)

// ChannelWebSocketHandler handles channel websocket connections.
type ChannelWebSocketHandler struct {
	hub         *Hub
	channelRepo repositories.ChannelRepository
	userRepo    repositories.UserRepository
	presence    *presence.Tracker
	typing      *typing.Service
}

// NewChannelWebSocketHandler constructs a ChannelWebSocketHandler.
func NewChannelWebSocketHandler(hub *Hub, channelRepo repositories.ChannelRepository, userRepo repositories.UserRepository, tracker *presence.Tracker, typingSvc *typing.Service) *ChannelWebSocketHandler {
	return &ChannelWebSocketHandler{hub: hub, channelRepo: channelRepo, userRepo: userRepo, presence: tracker, typing: typingSvc}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client with the hub.
// A live subscription also counts as a presence heartbeat.
func (h *ChannelWebSocketHandler) Handle(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.channelRepo.IsMember(c.Request.Context(), channelID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    deviceIDFromRequest(c.Request),
		IP:          ipFromRequest(c.Request),
		RequestID:   requestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(channelID, conn, info)
	h.presence.Heartbeat(userID)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.hub.publishWSEvent(ctx, info, channelID, "ws_connect", "")

	// Keep the connection alive and clean up on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(channelID, conn)
			if h.hub.ActiveForUser(userID) == 0 {
				h.presence.Disconnect(userID)
				h.typing.ClearTyping(channelID, userID)
			}
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			h.hub.publishWSEvent(ctx, info, channelID, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					h.hub.publishWSEvent(ctx, info, channelID, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

func (h *ChannelWebSocketHandler) validateToken(ctx context.Context, header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.userRepo.ValidateSession(ctx, parts[1])
	}
	return 0, fmt.Errorf("invalid token")
}
