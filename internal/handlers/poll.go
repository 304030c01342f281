package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/apperr"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

const (
	minPollOptions = 2
	maxPollOptions = 10
)

// PollHandler manages poll creation and voting.
type PollHandler struct {
	pollRepo    repositories.PollRepository
	messageRepo repositories.MessageRepository
	channelRepo repositories.ChannelRepository
	hub         *ws.Hub
}

// NewPollHandler builds a PollHandler.
func NewPollHandler(pollRepo repositories.PollRepository, messageRepo repositories.MessageRepository, channelRepo repositories.ChannelRepository, hub *ws.Hub) *PollHandler {
	return &PollHandler{pollRepo: pollRepo, messageRepo: messageRepo, channelRepo: channelRepo, hub: hub}
}

// CreatePoll appends a poll message to the channel.
func (h *PollHandler) CreatePoll(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	var req struct {
		Question      string   `json:"question" binding:"required"`
		Options       []string `json:"options" binding:"required"`
		AllowMultiple bool     `json:"allow_multiple"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	options, err := validatePoll(req.Question, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.pollRepo.CreatePoll(c.Request.Context(), channelID, userID, req.Question, options, req.AllowMultiple)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create poll"})
		return
	}

	h.hub.Broadcast(models.ChannelEvent{Type: models.EventMessage, ChannelID: channelID, Message: &msg})
	c.JSON(http.StatusCreated, msg)
}

// Vote toggles the caller's vote on a poll option. Single-choice polls clear
// the caller's other votes in the same transaction.
func (h *PollHandler) Vote(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	var req struct {
		OptionID int `json:"option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNotFound); !ok {
		return
	}

	poll, err := h.pollRepo.Vote(c.Request.Context(), messageID, userID, req.OptionID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "poll not found"})
		return
	}
	if errors.Is(err, repositories.ErrOptionNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option does not belong to poll"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(models.ChannelEvent{
		Type:      models.EventPollVote,
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
		OptionID:  req.OptionID,
		Poll:      &poll,
	})
	c.JSON(http.StatusOK, gin.H{"poll": poll})
}

func (h *PollHandler) requireMember(c *gin.Context, channelID, userID int) bool {
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

// validatePoll drops blank options, then checks the remaining count.
func validatePoll(question string, options []string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperr.InvalidArgument("question cannot be empty")
	}
	kept := make([]string, 0, len(options))
	for _, opt := range options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) < minPollOptions || len(kept) > maxPollOptions {
		return nil, apperr.InvalidArgument("polls take between 2 and 10 options")
	}
	return kept, nil
}
