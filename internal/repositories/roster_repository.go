package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// RosterRepository maintains the per-user sidebar index of pinned and
// recent direct-message peers. It is a convenience index; the channel
// store remains the source of truth.
type RosterRepository interface {
	Roster(ctx context.Context, userID int) ([]models.RosterEntry, error)
	TogglePinnedPeer(ctx context.Context, userID int, peerID int) (bool, error)
	TouchRecent(ctx context.Context, userID int, peerID int) error
}

// RosterRepo is a sqlx implementation of RosterRepository.
type RosterRepo struct {
	db *sqlx.DB
}

// NewRosterRepo constructs a RosterRepo.
func NewRosterRepo(db *sqlx.DB) *RosterRepo {
	return &RosterRepo{db: db}
}

// Roster returns the user's peers, pinned first, then by recency.
func (r *RosterRepo) Roster(ctx context.Context, userID int) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT user_id, peer_id, pinned, last_messaged_at FROM roster
         WHERE user_id=$1
         ORDER BY pinned DESC, last_messaged_at DESC NULLS LAST, peer_id ASC`, userID)
	return entries, err
}

// TogglePinnedPeer flips the pinned flag for a peer, creating the entry
// when absent, and reports the new state.
func (r *RosterRepo) TogglePinnedPeer(ctx context.Context, userID int, peerID int) (bool, error) {
	var pinned bool
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO roster (user_id, peer_id, pinned) VALUES ($1, $2, TRUE)
         ON CONFLICT (user_id, peer_id) DO UPDATE SET pinned = NOT roster.pinned
         RETURNING pinned`, userID, peerID).Scan(&pinned)
	return pinned, err
}

// TouchRecent refreshes the recency timestamp of a peer after a direct
// message is exchanged.
func (r *RosterRepo) TouchRecent(ctx context.Context, userID int, peerID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roster (user_id, peer_id, last_messaged_at) VALUES ($1, $2, NOW())
         ON CONFLICT (user_id, peer_id) DO UPDATE SET last_messaged_at = NOW()`, userID, peerID)
	return err
}
