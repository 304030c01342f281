package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func setupChannelRouter(handler *ChannelHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/channels", handler.ListChannels)
	r.POST("/channels/direct", handler.StartDirect)
	return r
}

func TestListChannelsDecoratesDirectPeers(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	readRepo := new(mocks.ReadRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChannelHandler(channelRepo, readRepo, userRepo, nil)
	router := setupChannelRouter(handler)

	channelRepo.On("ListChannels", mock.Anything, 1).Return([]models.Channel{
		{ID: 1, Kind: models.KindGlobal, Name: "General", PairKey: "global"},
		{ID: 4, Kind: models.KindDirect, PairKey: "d:1:2"},
	}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{2}).
		Return([]models.User{{ID: 2, DisplayName: "Bob"}}, nil).Once()
	readRepo.On("UnreadCount", mock.Anything, 1, 1).Return(3, nil).Once()
	readRepo.On("UnreadCount", mock.Anything, 4, 1).Return(0, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Channels []models.ChannelSummary `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Channels, 2)
	assert.Equal(t, 3, resp.Channels[0].UnreadCount)
	assert.Equal(t, 2, resp.Channels[1].PeerID)
	assert.Equal(t, "Bob", resp.Channels[1].PeerName)

	channelRepo.AssertExpectations(t)
	readRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestStartDirectSuccess(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChannelHandler(channelRepo, new(mocks.ReadRepositoryMock), userRepo, nil)
	router := setupChannelRouter(handler)

	userRepo.On("ResolveUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	channelRepo.On("CreateOrGetDirect", mock.Anything, 1, 2).
		Return(models.Channel{ID: 4, Kind: models.KindDirect, PairKey: "d:1:2"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/direct", bytes.NewBufferString(`{"peer_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	channelRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestStartDirectWithSelfRejected(t *testing.T) {
	handler := NewChannelHandler(new(mocks.ChannelRepositoryMock), new(mocks.ReadRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/channels/direct", bytes.NewBufferString(`{"peer_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartDirectUnknownPeer(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChannelHandler(new(mocks.ChannelRepositoryMock), new(mocks.ReadRepositoryMock), userRepo, nil)
	router := setupChannelRouter(handler)

	userRepo.On("ResolveUser", mock.Anything, 9).Return(models.User{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/direct", bytes.NewBufferString(`{"peer_id":9}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}
