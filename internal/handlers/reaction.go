package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

// ReactionHandler manages reaction and pin endpoints.
type ReactionHandler struct {
	reactionRepo repositories.ReactionRepository
	messageRepo  repositories.MessageRepository
	channelRepo  repositories.ChannelRepository
	hub          *ws.Hub
}

// NewReactionHandler builds a ReactionHandler.
func NewReactionHandler(reactionRepo repositories.ReactionRepository, messageRepo repositories.MessageRepository, channelRepo repositories.ChannelRepository, hub *ws.Hub) *ReactionHandler {
	return &ReactionHandler{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		channelRepo:  channelRepo,
		hub:          hub,
	}
}

// React toggles the caller's reaction on a message. Reacting with the emoji
// already set removes it; a different emoji replaces the old one. Reacting
// to a message that no longer exists is silently dropped.
func (h *ReactionHandler) React(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNoContent); !ok {
		return
	}

	removed, err := h.reactionRepo.React(c.Request.Context(), messageID, userID, req.Emoji)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	groups, err := h.reactionRepo.Reactions(c.Request.Context(), messageID)
	if err != nil {
		log.Warn().Err(err).Int64("message_id", messageID).Msg("reaction rollup failed")
	}

	h.hub.Broadcast(models.ChannelEvent{
		Type:      models.EventReaction,
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     req.Emoji,
		Reactions: groups,
	})
	c.JSON(http.StatusOK, gin.H{"removed": removed, "reactions": groups})
}

// TogglePin pins or unpins a message. A channel holds at most two pins;
// pinning a third evicts the one pinned longest ago.
func (h *ReactionHandler) TogglePin(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	if _, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNotFound); !ok {
		return
	}

	pinned, evicted, err := h.reactionRepo.TogglePin(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	for _, evictedID := range evicted {
		unpinned := false
		h.hub.Broadcast(models.ChannelEvent{Type: models.EventPin, ChannelID: channelID, MessageID: evictedID, Pinned: &unpinned})
	}
	h.hub.Broadcast(models.ChannelEvent{Type: models.EventPin, ChannelID: channelID, MessageID: messageID, UserID: userID, Pinned: &pinned})

	c.JSON(http.StatusOK, gin.H{"pinned": pinned, "evicted": evicted})
}

// ListPins returns the channel's currently pinned messages.
func (h *ReactionHandler) ListPins(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	pins, err := h.reactionRepo.PinnedMessages(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pins"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pins": pins})
}

func (h *ReactionHandler) requireMember(c *gin.Context, channelID, userID int) bool {
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
