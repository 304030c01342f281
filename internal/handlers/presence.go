package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/repositories"
	"messaging-service/internal/typing"
	"messaging-service/internal/ws"
)

// PresenceHandler manages heartbeat, online-set and typing endpoints.
type PresenceHandler struct {
	tracker     *presence.Tracker
	typing      *typing.Service
	throttle    *typing.Throttle
	channelRepo repositories.ChannelRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker *presence.Tracker, typingSvc *typing.Service, throttle *typing.Throttle, channelRepo repositories.ChannelRepository, userRepo repositories.UserRepository, hub *ws.Hub) *PresenceHandler {
	return &PresenceHandler{
		tracker:     tracker,
		typing:      typingSvc,
		throttle:    throttle,
		channelRepo: channelRepo,
		userRepo:    userRepo,
		hub:         hub,
	}
}

// Heartbeat refreshes the caller's liveness timestamp.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	h.tracker.Heartbeat(c.GetInt("userID"))
	observability.SetPresenceOnline(len(h.tracker.OnlineSet()))
	c.Status(http.StatusNoContent)
}

// Online returns the ids of users with a live heartbeat.
func (h *PresenceHandler) Online(c *gin.Context) {
	online := h.tracker.OnlineSet()
	observability.SetPresenceOnline(len(online))
	c.JSON(http.StatusOK, gin.H{"online": online})
}

// SetTyping marks the caller as typing in a channel. Repeated calls within
// the throttle window are accepted but dropped before the marker store.
func (h *PresenceHandler) SetTyping(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	if !h.throttle.Allow(channelID, userID) {
		c.Status(http.StatusNoContent)
		return
	}

	h.typing.SetTyping(channelID, userID)
	// The actor is left out of the name list so their other tabs never
	// render themselves as typing; UserID still attributes the event.
	h.hub.Broadcast(models.ChannelEvent{
		Type:      models.EventTyping,
		ChannelID: channelID,
		UserID:    userID,
		Typers:    h.typerNames(c, channelID, userID),
	})
	c.Status(http.StatusNoContent)
}

// GetTypers returns display names of users currently typing in the channel,
// excluding the caller.
func (h *PresenceHandler) GetTypers(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"typers": h.typerNames(c, channelID, userID)})
}

func (h *PresenceHandler) typerNames(c *gin.Context, channelID, excludeUserID int) []string {
	ids := h.typing.ActiveTypers(channelID, excludeUserID)
	if len(ids) == 0 {
		return []string{}
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), ids)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName)
	}
	return names
}

func (h *PresenceHandler) requireMember(c *gin.Context, channelID, userID int) bool {
	member, err := h.channelRepo.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return false
	}
	return true
}
