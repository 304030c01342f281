package models

import "time"

// RosterEntry orders the direct-message sidebar for one user. Convenience
// index only; the channel store stays the source of truth.
type RosterEntry struct {
	UserID         int        `db:"user_id" json:"-"`
	PeerID         int        `db:"peer_id" json:"peer_id"`
	Pinned         bool       `db:"pinned" json:"pinned"`
	LastMessagedAt *time.Time `db:"last_messaged_at" json:"last_messaged_at,omitempty"`
}
