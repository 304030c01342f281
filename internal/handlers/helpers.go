package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/apperr"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get("userID"); ok {
		switch userID := val.(type) {
		case int:
			if userID != 0 {
				value := int64(userID)
				return &value
			}
		case int64:
			if userID != 0 {
				value := userID
				return &value
			}
		}
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil {
			return &parsed
		}
	}

	return nil
}

func parseChannelID(c *gin.Context) (int, bool) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return channelID, true
}

func parseIDs(c *gin.Context) (int, int64, bool) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return 0, 0, false
	}
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return channelID, messageID, true
}

// requireMessageInChannel loads a message and rejects the request when it
// does not live in the channel named by the path. Endpoints that treat a
// vanished message as already gone pass http.StatusNoContent as the missing
// status; the rest pass http.StatusNotFound.
func requireMessageInChannel(c *gin.Context, messageRepo repositories.MessageRepository, messageID int64, channelID, missingStatus int) (models.Message, bool) {
	msg, err := messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound) && missingStatus == http.StatusNoContent:
			c.Status(http.StatusNoContent)
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(missingStatus, gin.H{"error": "message not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		}
		return models.Message{}, false
	}
	if msg.ChannelID != channelID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to channel"})
		return models.Message{}, false
	}
	return msg, true
}

// respondError translates a taxonomy error into its HTTP response.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
}
