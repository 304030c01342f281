package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/presence"
	"messaging-service/internal/typing"
	"messaging-service/internal/ws"
)

func setupPresenceRouter(handler *PresenceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/presence/heartbeat", handler.Heartbeat)
	r.GET("/presence/online", handler.Online)
	r.POST("/channels/:channel_id/typing", handler.SetTyping)
	r.GET("/channels/:channel_id/typing", handler.GetTypers)
	return r
}

func TestHeartbeatThenOnline(t *testing.T) {
	tracker := presence.NewTracker(30 * time.Second)
	handler := NewPresenceHandler(tracker, typing.NewService(5*time.Second), typing.NewThrottle(3*time.Second),
		new(mocks.ChannelRepositoryMock), new(mocks.UserRepositoryMock), ws.NewHub(nil))
	router := setupPresenceRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/presence/heartbeat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/presence/online", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Online []int `json:"online"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []int{1}, resp.Online)
}

func TestSetTypingThrottled(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	typingSvc := typing.NewService(5 * time.Second)
	handler := NewPresenceHandler(presence.NewTracker(30*time.Second), typingSvc, typing.NewThrottle(time.Minute),
		channelRepo, userRepo, ws.NewHub(nil))
	router := setupPresenceRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Twice()

	// First write lands, the immediate second one is dropped by the throttle.
	req := httptest.NewRequest(http.MethodPost, "/channels/5/typing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/channels/5/typing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []int{1}, typingSvc.ActiveTypers(5, 0))
	userRepo.AssertNotCalled(t, "BulkUsers", mock.Anything, mock.Anything)
}

func TestSetTypingBroadcastExcludesActor(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	typingSvc := typing.NewService(5 * time.Second)
	typingSvc.SetTyping(5, 2)
	handler := NewPresenceHandler(presence.NewTracker(30*time.Second), typingSvc, typing.NewThrottle(3*time.Second),
		channelRepo, userRepo, ws.NewHub(nil))
	router := setupPresenceRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	// Only the other typer is resolved; the actor never sees themselves typing.
	userRepo.On("BulkUsers", mock.Anything, []int{2}).
		Return([]models.User{{ID: 2, DisplayName: "Bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/5/typing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestGetTypersExcludesCaller(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	typingSvc := typing.NewService(5 * time.Second)
	typingSvc.SetTyping(5, 1)
	typingSvc.SetTyping(5, 2)
	handler := NewPresenceHandler(presence.NewTracker(30*time.Second), typingSvc, typing.NewThrottle(3*time.Second),
		channelRepo, userRepo, ws.NewHub(nil))
	router := setupPresenceRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{2}).
		Return([]models.User{{ID: 2, DisplayName: "Bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels/5/typing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Typers []string `json:"typers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"Bob"}, resp.Typers)
	userRepo.AssertExpectations(t)
}

func TestTypingNotMemberForbidden(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewPresenceHandler(presence.NewTracker(30*time.Second), typing.NewService(5*time.Second), typing.NewThrottle(3*time.Second),
		channelRepo, new(mocks.UserRepositoryMock), ws.NewHub(nil))
	router := setupPresenceRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/5/typing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
