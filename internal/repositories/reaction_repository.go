package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/apperr"
	"messaging-service/internal/models"
)

// ReactionRepository applies the reaction and pin mutation rules. All
// writes are single-row statements or short row-locked transactions, never
// read-modify-write of a whole message record.
type ReactionRepository interface {
	React(ctx context.Context, messageID int64, userID int, emoji string) (removed bool, err error)
	Reactions(ctx context.Context, messageID int64) ([]models.ReactionGroup, error)
	TogglePin(ctx context.Context, messageID int64) (pinned bool, evicted []int64, err error)
	PinnedMessages(ctx context.Context, channelID int) ([]models.Message, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// React toggles a reaction. Reacting with the emoji already held removes
// it; any other emoji replaces the user's existing reaction in one upsert,
// so a user holds at most one reaction per message at any instant. The
// (message_id, user_id) primary key enforces it under concurrent writers.
func (r *ReactionRepo) React(ctx context.Context, messageID int64, userID int, emoji string) (bool, error) {
	var senderID int
	err := r.db.GetContext(ctx, &senderID, `SELECT sender_id FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrMessageNotFound
	}
	if err != nil {
		return false, err
	}
	if senderID == userID {
		return false, apperr.PermissionDenied("cannot react to own message")
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`,
		messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count == 1 {
		return true, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
         ON CONFLICT (message_id, user_id) DO UPDATE SET emoji=EXCLUDED.emoji, created_at=NOW()`,
		messageID, userID, emoji)
	return false, err
}

// Reactions returns the per-emoji rollup for one message.
func (r *ReactionRepo) Reactions(ctx context.Context, messageID int64) ([]models.ReactionGroup, error) {
	var rows []struct {
		UserID int    `db:"user_id"`
		Emoji  string `db:"emoji"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT user_id, emoji FROM message_reactions WHERE message_id=$1 ORDER BY created_at ASC`, messageID)
	if err != nil {
		return nil, err
	}
	groups := []models.ReactionGroup{}
	for _, row := range rows {
		found := false
		for i := range groups {
			if groups[i].Emoji == row.Emoji {
				groups[i].Count++
				groups[i].Users = append(groups[i].Users, row.UserID)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, models.ReactionGroup{Emoji: row.Emoji, Count: 1, Users: []int{row.UserID}})
		}
	}
	return groups, nil
}

// TogglePin pins or unpins a message. A channel holds at most two pins;
// pinning a third evicts the earliest-pinned one first (bounded FIFO). The
// FOR UPDATE locks serialize concurrent evictions in the same channel, so
// two racing pins cannot both evict the same row or overshoot the bound.
func (r *ReactionRepo) TogglePin(ctx context.Context, messageID int64) (bool, []int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var target struct {
		ChannelID int  `db:"channel_id"`
		IsPinned  bool `db:"is_pinned"`
	}
	err = tx.GetContext(ctx, &target,
		`SELECT channel_id, is_pinned FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMessageNotFound
		return false, nil, err
	}
	if err != nil {
		return false, nil, err
	}

	if target.IsPinned {
		if _, err = tx.ExecContext(ctx,
			`UPDATE messages SET is_pinned=FALSE, pinned_at=NULL WHERE id=$1`, messageID); err != nil {
			return false, nil, err
		}
		err = tx.Commit()
		return false, nil, err
	}

	var pinnedIDs []int64
	if err = tx.SelectContext(ctx, &pinnedIDs,
		`SELECT id FROM messages WHERE channel_id=$1 AND is_pinned ORDER BY pinned_at ASC, id ASC FOR UPDATE`,
		target.ChannelID); err != nil {
		return false, nil, err
	}

	var evicted []int64
	if len(pinnedIDs) >= 2 {
		evicted = pinnedIDs[:len(pinnedIDs)-1]
		query, args, inErr := sqlx.In(`UPDATE messages SET is_pinned=FALSE, pinned_at=NULL WHERE id IN (?)`, evicted)
		if inErr != nil {
			err = inErr
			return false, nil, err
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return false, nil, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE messages SET is_pinned=TRUE, pinned_at=NOW() WHERE id=$1`, messageID); err != nil {
		return false, nil, err
	}

	if err = tx.Commit(); err != nil {
		return false, nil, err
	}
	return true, evicted, nil
}

// PinnedMessages returns a channel's pinned messages, earliest pin first.
func (r *ReactionRepo) PinnedMessages(ctx context.Context, channelID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE channel_id=$1 AND is_pinned
         ORDER BY pinned_at ASC, id ASC`, channelID)
	return msgs, err
}
