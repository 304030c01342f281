package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/repositories"
)

// RosterHandler manages the direct-peer sidebar.
type RosterHandler struct {
	rosterRepo repositories.RosterRepository
	userRepo   repositories.UserRepository
}

// NewRosterHandler builds a RosterHandler.
func NewRosterHandler(rosterRepo repositories.RosterRepository, userRepo repositories.UserRepository) *RosterHandler {
	return &RosterHandler{rosterRepo: rosterRepo, userRepo: userRepo}
}

// Roster returns the caller's pinned and recent peers with display names.
func (h *RosterHandler) Roster(c *gin.Context) {
	userID := c.GetInt("userID")

	entries, err := h.rosterRepo.Roster(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roster"})
		return
	}

	peerIDs := make([]int, 0, len(entries))
	for _, e := range entries {
		peerIDs = append(peerIDs, e.PeerID)
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

	type rosterResponse struct {
		PeerID         int     `json:"peer_id"`
		PeerName       string  `json:"peer_name,omitempty"`
		Pinned         bool    `json:"pinned"`
		LastMessagedAt *string `json:"last_messaged_at,omitempty"`
	}
	resp := make([]rosterResponse, 0, len(entries))
	for _, e := range entries {
		entry := rosterResponse{
			PeerID:   e.PeerID,
			PeerName: nameByID[e.PeerID],
			Pinned:   e.Pinned,
		}
		if e.LastMessagedAt != nil {
			formatted := e.LastMessagedAt.UTC().Format(time.RFC3339)
			entry.LastMessagedAt = &formatted
		}
		resp = append(resp, entry)
	}

	c.JSON(http.StatusOK, gin.H{"roster": resp})
}

// TogglePinnedPeer pins or unpins a peer in the caller's sidebar.
func (h *RosterHandler) TogglePinnedPeer(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("peer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}

	userID := c.GetInt("userID")
	pinned, err := h.rosterRepo.TogglePinnedPeer(c.Request.Context(), userID, peerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not toggle pin"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pinned": pinned})
}
