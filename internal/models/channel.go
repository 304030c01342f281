package models

import (
	"fmt"
	"time"
)

// ChannelKind discriminates the three conversation scopes.
type ChannelKind string

const (
	KindGlobal ChannelKind = "global"
	KindDirect ChannelKind = "direct"
	KindGroup  ChannelKind = "group"
)

// GlobalPairKey is the pair_key of the process-wide global channel singleton.
const GlobalPairKey = "global"

// DirectPairKey derives the identity of a direct channel from its two
// participants. The pair is sorted so both sides converge on the same
// channel when they message each other for the first time concurrently.
func DirectPairKey(a, b int) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("d:%d:%d", a, b)
}

// Channel is a conversation scope owning an ordered message log.
type Channel struct {
	ID        int         `db:"id" json:"id"`
	Kind      ChannelKind `db:"kind" json:"kind"`
	Name      string      `db:"name" json:"name"`
	PairKey   string      `db:"pair_key" json:"-"`
	CreatedBy int         `db:"created_by" json:"created_by"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// ChannelMember is one row of a channel's membership set. IsAdmin is only
// meaningful for group channels.
type ChannelMember struct {
	ChannelID int       `db:"channel_id" json:"channel_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// ChannelSummary is the API-friendly sidebar view of a channel.
type ChannelSummary struct {
	ChannelID   int         `json:"channel_id"`
	Kind        ChannelKind `json:"kind"`
	Name        string      `json:"name,omitempty"`
	PeerID      int         `json:"peer_id,omitempty"`
	PeerName    string      `json:"peer_name,omitempty"`
	UnreadCount int         `json:"unread_count"`
	CreatedAt   time.Time   `json:"created_at"`
}
