package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/groups", handler.CreateGroup)
	r.GET("/groups/:channel_id/members", handler.Members)
	r.POST("/groups/:channel_id/members", handler.AddMember)
	r.DELETE("/groups/:channel_id/members/:user_id", handler.KickMember)
	r.POST("/groups/:channel_id/admins/:user_id", handler.AddAdmin)
	r.DELETE("/groups/:channel_id", handler.DeleteGroup)
	return r
}

func TestCreateGroupManagerAllowed(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleManager}, nil).Once()
	channelRepo.On("CreateGroup", mock.Anything, 1, "audit team", []int{2, 3}).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, Name: "audit team", CreatedBy: 1}, nil).Once()

	body := bytes.NewBufferString(`{"name":"audit team","member_ids":[2,3]}`)
	req := httptest.NewRequest(http.MethodPost, "/groups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	channelRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateGroupPlainRoleForbidden(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(new(mocks.ChannelRepositoryMock), userRepo, nil)
	router := setupGroupRouter(handler)

	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleUser}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestAddMemberAsGroupAdmin(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 1}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(true, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 4).Return(models.User{ID: 4}, nil).Once()
	channelRepo.On("AddMember", mock.Anything, 7, 4).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/members", bytes.NewBufferString(`{"user_id":4}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestAddMemberNonAdminForbidden(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(false, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleUser}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/members", bytes.NewBufferString(`{"user_id":4}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddMemberManagerOverride(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(false, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleManager}, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 4).Return(models.User{ID: 4}, nil).Once()
	channelRepo.On("AddMember", mock.Anything, 7, 4).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/members", bytes.NewBufferString(`{"user_id":4}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestKickCreatorRejected(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7/members/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestKickAdminRejected(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(true, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 3).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7/members/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestKickMemberSuccess(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(true, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 3).Return(false, nil).Once()
	channelRepo.On("RemoveMember", mock.Anything, 7, 3).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7/members/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestAddAdminTargetNotMember(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 1}, nil).Once()
	channelRepo.On("IsAdmin", mock.Anything, 7, 1).Return(true, nil).Once()
	channelRepo.On("SetAdmin", mock.Anything, 7, 4).Return(repositories.ErrChannelNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/admins/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestDeleteGroupCreatorAllowed(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 1}, nil).Once()
	channelRepo.On("DeleteChannel", mock.Anything, 7).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestDeleteGroupStrangerForbidden(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleManager}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteGroupSuperadminAllowed(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(channelRepo, userRepo, nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindGroup, CreatedBy: 2}, nil).Once()
	userRepo.On("ResolveUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleSuperadmin}, nil).Once()
	channelRepo.On("DeleteChannel", mock.Anything, 7).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestDeleteDirectChannelRejected(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewGroupHandler(channelRepo, new(mocks.UserRepositoryMock), nil)
	router := setupGroupRouter(handler)

	channelRepo.On("GetChannel", mock.Anything, 7).
		Return(models.Channel{ID: 7, Kind: models.KindDirect}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
