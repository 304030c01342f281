package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// GroupHandler manages group channel lifecycle and membership.
type GroupHandler struct {
	channelRepo repositories.ChannelRepository
	userRepo    repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(channelRepo repositories.ChannelRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{channelRepo: channelRepo, userRepo: userRepo, audit: audit}
}

// CreateGroup creates a group channel. Restricted to roles that manage
// groups; the creator becomes the sole initial admin.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")
	caller, err := h.userRepo.ResolveUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve caller"})
		return
	}
	if !caller.Role.CanManageGroups() {
		c.JSON(http.StatusForbidden, gin.H{"error": "role cannot create groups"})
		return
	}

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name cannot be empty"})
		return
	}

	group, err := h.channelRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("group %d %q created", group.ID, group.Name),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, group)
}

// AddMember adds a user to a group. Group admins and group-managing roles
// may do so.
func (h *GroupHandler) AddMember(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, ok := h.requireGroupAdmin(c, channelID)
	if !ok {
		return
	}

	if _, err := h.userRepo.ResolveUser(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := h.channelRepo.AddMember(c.Request.Context(), channelID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("user %d added to group %d %q", req.UserID, group.ID, group.Name),
		requestIDFromContext(c), userIDFromContext(c))

	c.Status(http.StatusNoContent)
}

// KickMember removes a member from a group. The creator and admins cannot
// be kicked.
func (h *GroupHandler) KickMember(c *gin.Context) {
	channelID, targetID, ok := parseGroupMemberIDs(c)
	if !ok {
		return
	}

	group, ok := h.requireGroupAdmin(c, channelID)
	if !ok {
		return
	}

	if targetID == group.CreatedBy {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot kick the group creator"})
		return
	}
	targetAdmin, err := h.channelRepo.IsAdmin(c.Request.Context(), channelID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify target"})
		return
	}
	if targetAdmin {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot kick a group admin"})
		return
	}

	if err := h.channelRepo.RemoveMember(c.Request.Context(), channelID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("user %d removed from group %d %q", targetID, group.ID, group.Name),
		requestIDFromContext(c), userIDFromContext(c))

	c.Status(http.StatusNoContent)
}

// AddAdmin promotes an existing group member to admin.
func (h *GroupHandler) AddAdmin(c *gin.Context) {
	channelID, targetID, ok := parseGroupMemberIDs(c)
	if !ok {
		return
	}

	group, ok := h.requireGroupAdmin(c, channelID)
	if !ok {
		return
	}

	err := h.channelRepo.SetAdmin(c.Request.Context(), channelID, targetID)
	if errors.Is(err, repositories.ErrChannelNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "user is not a group member"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not promote member"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info",
		fmt.Sprintf("user %d promoted to admin of group %d %q", targetID, group.ID, group.Name),
		requestIDFromContext(c), userIDFromContext(c))

	c.Status(http.StatusNoContent)
}

// DeleteGroup hard-deletes a group channel with its whole log. Creator or
// superadmin only.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	group, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}
	if group.Kind != models.KindGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a group channel"})
		return
	}

	if group.CreatedBy != userID {
		caller, err := h.userRepo.ResolveUser(c.Request.Context(), userID)
		if err != nil || caller.Role != models.RoleSuperadmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can delete the group"})
			return
		}
	}

	if err := h.channelRepo.DeleteChannel(c.Request.Context(), channelID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete group"})
		return
	}

	h.audit.Emit(c.Request.Context(), "warn",
		fmt.Sprintf("group %d %q deleted", group.ID, group.Name),
		requestIDFromContext(c), userIDFromContext(c))

	c.Status(http.StatusNoContent)
}

// Members returns the membership roster of a group.
func (h *GroupHandler) Members(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.channelRepo.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	members, err := h.channelRepo.Members(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// requireGroupAdmin loads the group and checks the caller is a group admin
// or holds a group-managing role.
func (h *GroupHandler) requireGroupAdmin(c *gin.Context, channelID int) (models.Channel, bool) {
	userID := c.GetInt("userID")

	group, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return models.Channel{}, false
	}
	if group.Kind != models.KindGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a group channel"})
		return models.Channel{}, false
	}

	admin, err := h.channelRepo.IsAdmin(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify admin"})
		return models.Channel{}, false
	}
	if !admin {
		caller, err := h.userRepo.ResolveUser(c.Request.Context(), userID)
		if err != nil || !caller.Role.CanManageGroups() {
			c.JSON(http.StatusForbidden, gin.H{"error": "group admin required"})
			return models.Channel{}, false
		}
	}

	return group, true
}

func parseGroupMemberIDs(c *gin.Context) (int, int, bool) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return 0, 0, false
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, 0, false
	}
	return channelID, targetID, true
}
