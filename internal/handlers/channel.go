package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// ChannelHandler manages the channel list and direct-channel endpoints.
type ChannelHandler struct {
	channelRepo repositories.ChannelRepository
	readRepo    repositories.ReadRepository
	userRepo    repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(channelRepo repositories.ChannelRepository, readRepo repositories.ReadRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{
		channelRepo: channelRepo,
		readRepo:    readRepo,
		userRepo:    userRepo,
		audit:       audit,
	}
}

// ListChannels returns the channels visible to the authenticated user with
// unread counts and direct-peer display names.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	userID := c.GetInt("userID")

	channels, err := h.channelRepo.ListChannels(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}

	peerIDs := make([]int, 0, len(channels))
	peerByChannel := map[int]int{}
	for _, ch := range channels {
		if ch.Kind != models.KindDirect {
			continue
		}
		if peer, ok := directPeer(ch.PairKey, userID); ok {
			peerByChannel[ch.ID] = peer
			peerIDs = append(peerIDs, peer)
		}
	}

	nameByID := map[int]string{}
	if len(peerIDs) > 0 {
		users, err := h.userRepo.BulkUsers(c.Request.Context(), peerIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user info"})
			return
		}
		for _, u := range users {
			nameByID[u.ID] = u.DisplayName
		}
	}

	summaries := make([]models.ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		unread, err := h.readRepo.UnreadCount(c.Request.Context(), ch.ID, userID)
		if err != nil {
			log.Warn().Err(err).Int("channel_id", ch.ID).Msg("unread count failed")
		}
		summary := models.ChannelSummary{
			ChannelID:   ch.ID,
			Kind:        ch.Kind,
			Name:        ch.Name,
			UnreadCount: unread,
			CreatedAt:   ch.CreatedAt,
		}
		if peer, ok := peerByChannel[ch.ID]; ok {
			summary.PeerID = peer
			summary.PeerName = nameByID[peer]
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"channels": summaries})
}

// StartDirect creates or returns the direct channel with a peer.
func (h *ChannelHandler) StartDirect(c *gin.Context) {
	var req struct {
		PeerID int `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.PeerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open a channel with yourself"})
		return
	}

	if _, err := h.userRepo.ResolveUser(c.Request.Context(), req.PeerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}

	channel, err := h.channelRepo.CreateOrGetDirect(c.Request.Context(), userID, req.PeerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create channel"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("direct channel %d opened with user %d", channel.ID, req.PeerID),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{"channel_id": channel.ID})
}

// directPeer extracts the other participant from a direct pair key.
func directPeer(pairKey string, userID int) (int, bool) {
	var a, b int
	if _, err := fmt.Sscanf(pairKey, "d:%d:%d", &a, &b); err != nil {
		return 0, false
	}
	if a == userID {
		return b, true
	}
	if b == userID {
		return a, true
	}
	return 0, false
}
