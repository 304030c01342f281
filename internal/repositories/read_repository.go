package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReadRepository reconciles per-user read state. Every mutation of the read
// set is a single atomic insert-where-missing; the set only ever grows, so
// concurrent mark-reads and reactions on the same message cannot lose
// each other's writes.
type ReadRepository interface {
	MarkRead(ctx context.Context, channelID int, userID int) (int, error)
	UnreadCount(ctx context.Context, channelID int, userID int) (int, error)
}

// ReadRepo is a sqlx implementation of ReadRepository. The scan is bounded
// to the most recent scanWindow messages; the global channel is further
// bounded to globalWindow of history.
type ReadRepo struct {
	db           *sqlx.DB
	scanWindow   int
	globalWindow time.Duration
}

// NewReadRepo constructs a ReadRepo.
func NewReadRepo(db *sqlx.DB, scanWindow int, globalWindow time.Duration) *ReadRepo {
	return &ReadRepo{db: db, scanWindow: scanWindow, globalWindow: globalWindow}
}

// MarkRead adds the user to the read set of every unseen message in the
// window that they did not send, returning the newly-marked count. Running
// it twice in a row marks nothing the second time.
func (r *ReadRepo) MarkRead(ctx context.Context, channelID int, userID int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT w.id, $2 FROM (
             SELECT m.id, m.sender_id, m.created_at, c.kind
             FROM messages m JOIN channels c ON c.id = m.channel_id
             WHERE m.channel_id = $1
             ORDER BY m.created_at DESC, m.id DESC
             LIMIT $3
         ) w
         WHERE w.sender_id <> $2 AND (w.kind <> 'global' OR w.created_at > $4)
         ON CONFLICT DO NOTHING`,
		channelID, userID, r.scanWindow, r.globalCutoff())
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// UnreadCount counts window messages the user neither sent nor read.
// Tombstoned messages do not count.
func (r *ReadRepo) UnreadCount(ctx context.Context, channelID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM (
             SELECT m.id, m.sender_id, m.is_deleted, m.created_at, c.kind
             FROM messages m JOIN channels c ON c.id = m.channel_id
             WHERE m.channel_id = $1
             ORDER BY m.created_at DESC, m.id DESC
             LIMIT $3
         ) w
         WHERE w.sender_id <> $2
           AND NOT w.is_deleted
           AND (w.kind <> 'global' OR w.created_at > $4)
           AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = w.id AND r.user_id = $2)`,
		channelID, userID, r.scanWindow, r.globalCutoff())
	return count, err
}

func (r *ReadRepo) globalCutoff() time.Time {
	return time.Now().Add(-r.globalWindow)
}
