package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/apperr"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const (
	defaultFetchLimit = 50
	maxFetchLimit     = 300
)

// MessageHandler manages the message log endpoints of a channel.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	channelRepo repositories.ChannelRepository
	readRepo    repositories.ReadRepository
	rosterRepo  repositories.RosterRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, channelRepo repositories.ChannelRepository, readRepo repositories.ReadRepository, rosterRepo repositories.RosterRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		readRepo:    readRepo,
		rosterRepo:  rosterRepo,
		userRepo:    userRepo,
		hub:         hub,
		audit:       audit,
	}
}

// GetMessages returns the most recent window of a channel's log. Tombstoned
// content is redacted unless the viewer's role is privileged.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	limit := defaultFetchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxFetchLimit {
		limit = maxFetchLimit
	}

	viewer, err := h.userRepo.ResolveUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve viewer"})
		return
	}

	msgs, err := h.messageRepo.FetchRecent(c.Request.Context(), channelID, limit, viewer.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to the channel and broadcasts it.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return
	}
	if !h.requireMember(c, channelID, userID) {
		return
	}

	var req struct {
		ContentKind    string `json:"content_kind"`
		Content        string `json:"content"`
		AttachmentURL  string `json:"attachment_url"`
		AttachmentName string `json:"attachment_name"`
		ReplyToID      int64  `json:"reply_to_id"`
		CallRoomID     string `json:"call_room_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := models.Draft{
		ContentKind:    models.ContentKind(req.ContentKind),
		Content:        req.Content,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		ReplyToID:      req.ReplyToID,
		CallRoomID:     req.CallRoomID,
	}
	if draft.ContentKind == "" {
		draft.ContentKind = models.ContentText
	}
	if err := validateDraft(draft); err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.messageRepo.Append(c.Request.Context(), channelID, userID, draft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// A fresh direct message bumps both sides of the roster.
	if channel.Kind == models.KindDirect {
		if peer, ok := directPeer(channel.PairKey, userID); ok {
			h.rosterRepo.TouchRecent(c.Request.Context(), userID, peer)
			h.rosterRepo.TouchRecent(c.Request.Context(), peer, userID)
		}
	}

	h.hub.Broadcast(models.ChannelEvent{Type: models.EventMessage, ChannelID: channelID, Message: &msg})
	c.JSON(http.StatusCreated, msg)
}

// EditMessage rewrites a message's content, sender only. A vanished message
// is treated as already gone and the edit is silently dropped.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content cannot be empty"})
		return
	}

	// Reject before mutating so a channel mismatch never leaves a committed
	// edit that subscribers were not told about.
	if _, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNoContent); !ok {
		return
	}

	msg, err := h.messageRepo.Edit(c.Request.Context(), messageID, userID, req.Content)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(models.ChannelEvent{Type: models.EventMessageEdited, ChannelID: channelID, Message: &msg})
	c.JSON(http.StatusOK, msg)
}

// UnsendMessage tombstones a message, sender only. Content stays in the
// store for privileged review; ordinary viewers see a placeholder.
func (h *MessageHandler) UnsendMessage(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	if _, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNoContent); !ok {
		return
	}

	err := h.messageRepo.Unsend(c.Request.Context(), messageID, userID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("message %d unsent in channel %d", messageID, channelID),
		requestIDFromContext(c), userIDFromContext(c))

	h.hub.Broadcast(models.ChannelEvent{Type: models.EventMessageUnsent, ChannelID: channelID, MessageID: messageID, UserID: userID})
	c.Status(http.StatusNoContent)
}

// EditHistory returns a message's pre-edit revisions, visible to the sender
// and privileged roles.
func (h *MessageHandler) EditHistory(c *gin.Context) {
	channelID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	msg, ok := requireMessageInChannel(c, h.messageRepo, messageID, channelID, http.StatusNotFound)
	if !ok {
		return
	}

	if msg.SenderID != userID {
		viewer, err := h.userRepo.ResolveUser(c.Request.Context(), userID)
		if err != nil || !viewer.Role.Privileged() {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view edit history"})
			return
		}
	}

	history, err := h.messageRepo.EditHistory(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// MarkRead stamps the caller onto the unread tail of the channel in one
// atomic statement and reports how many messages were newly marked.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireMember(c, channelID, userID) {
		return
	}

	marked, err := h.readRepo.MarkRead(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	if marked > 0 {
		h.hub.Broadcast(models.ChannelEvent{Type: models.EventRead, ChannelID: channelID, UserID: userID})
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// EndCall marks a call message as ended.
func (h *MessageHandler) EndCall(c *gin.Context) {
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

	err := h.messageRepo.EndCall(c.Request.Context(), messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(models.ChannelEvent{Type: models.EventCallEnded, ChannelID: channelID, MessageID: messageID})
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) requireMember(c *gin.Context, channelID, userID int) bool {
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

// validateDraft checks the structural rules per content kind.
func validateDraft(draft models.Draft) error {
	switch draft.ContentKind {
	case models.ContentText, models.ContentSticker:
		if strings.TrimSpace(draft.Content) == "" {
			return apperr.InvalidArgument("content cannot be empty")
		}
	case models.ContentImage, models.ContentVideo, models.ContentFile:
		if draft.AttachmentURL == "" {
			return apperr.InvalidArgument("attachment_url is required")
		}
	case models.ContentCall:
		if draft.CallRoomID == "" {
			return apperr.InvalidArgument("call_room_id is required")
		}
	case models.ContentPoll:
		return apperr.InvalidArgument("polls are created via the poll endpoint")
	default:
		return apperr.InvalidArgument("unknown content kind")
	}
	return nil
}
