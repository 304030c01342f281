package repositories

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/apperr"
	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const replySnippetMax = 120

// MessageRepository is the per-channel append log with its mutable
// annotation fields.
type MessageRepository interface {
	Append(ctx context.Context, channelID int, senderID int, draft models.Draft) (models.Message, error)
	FetchRecent(ctx context.Context, channelID int, limit int, viewerRole models.Role) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	Edit(ctx context.Context, messageID int64, callerID int, newContent string) (models.Message, error)
	Unsend(ctx context.Context, messageID int64, callerID int) error
	EditHistory(ctx context.Context, messageID int64) ([]models.MessageEdit, error)
	EndCall(ctx context.Context, messageID int64) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, channel_id, sender_id, content_kind, content,
    attachment_url, attachment_name, reply_to_id, reply_snippet, reply_sender_name,
    poll_question, poll_multiple, call_room_id, call_ended,
    is_pinned, pinned_at, is_edited, is_deleted, deleted_at, created_at`

// Append stores a message. The server assigns the timestamp and the serial
// id that breaks ties; the sender is added to the read set in the same
// transaction so a message is never unread by its own sender.
func (r *MessageRepo) Append(ctx context.Context, channelID int, senderID int, draft models.Draft) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var replySnippet, replySenderName *string
	var replyToID *int64
	if draft.ReplyToID != 0 {
		// Snapshot the original at reply time. If it has vanished the reply
		// simply carries no preview.
		var orig struct {
			Content    string `db:"content"`
			SenderName string `db:"display_name"`
		}
		err = tx.GetContext(ctx, &orig,
			`SELECT m.content, u.display_name FROM messages m
             JOIN users u ON u.id = m.sender_id WHERE m.id=$1`, draft.ReplyToID)
		if err == nil {
			snippet := truncateRunes(orig.Content, replySnippetMax)
			replyToID = &draft.ReplyToID
			replySnippet = &snippet
			replySenderName = &orig.SenderName
		} else if !errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, err
		}
		err = nil
	}

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (channel_id, sender_id, content_kind, content,
            attachment_url, attachment_name, reply_to_id, reply_snippet, reply_sender_name, call_room_id)
         VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''))
         RETURNING `+messageColumns,
		channelID, senderID, draft.ContentKind, draft.Content,
		draft.AttachmentURL, draft.AttachmentName, replyToID, replySnippet, replySenderName,
		draft.CallRoomID).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		msg.ID, senderID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	msg.ReadBy = []int{senderID}
	return msg, nil
}

// FetchRecent returns the most recent messages of a channel, newest first,
// with reactions, read sets and polls hydrated. Tombstoned content is
// redacted unless the viewer's role is privileged.
func (r *MessageRepo) FetchRecent(ctx context.Context, channelID int, limit int, viewerRole models.Role) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE channel_id=$1
         ORDER BY created_at DESC, id DESC
         LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, msgs); err != nil {
		return nil, err
	}
	for i := range msgs {
		redactMessage(&msgs[i], viewerRole)
	}
	return msgs, nil
}

// GetMessage retrieves a single raw message record.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// Edit overwrites the live content after appending the pre-edit content to
// the edit history. Only the sender may edit; a missing message is reported
// as ErrMessageNotFound so callers can treat a racing delete as a no-op.
func (r *MessageRepo) Edit(ctx context.Context, messageID int64, callerID int, newContent string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var current struct {
		SenderID int    `db:"sender_id"`
		Content  string `db:"content"`
	}
	err = tx.GetContext(ctx, &current, `SELECT sender_id, content FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMessageNotFound
		return models.Message{}, err
	}
	if err != nil {
		return models.Message{}, err
	}
	if current.SenderID != callerID {
		err = apperr.PermissionDenied("only the sender may edit a message")
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_edits (message_id, content) VALUES ($1, $2)`,
		messageID, current.Content); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`UPDATE messages SET content=$2, is_edited=TRUE WHERE id=$1 RETURNING `+messageColumns,
		messageID, newContent).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Unsend tombstones a message. The record, its edit history and reactions
// persist for privileged readers; nothing is physically removed.
func (r *MessageRepo) Unsend(ctx context.Context, messageID int64, callerID int) error {
	var senderID int
	err := r.db.GetContext(ctx, &senderID, `SELECT sender_id FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if senderID != callerID {
		return apperr.PermissionDenied("only the sender may unsend a message")
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted=TRUE, deleted_at=NOW() WHERE id=$1 AND NOT is_deleted`,
		messageID)
	return err
}

// EditHistory returns the pre-edit snapshots, oldest first.
func (r *MessageRepo) EditHistory(ctx context.Context, messageID int64) ([]models.MessageEdit, error) {
	var edits []models.MessageEdit
	err := r.db.SelectContext(ctx, &edits,
		`SELECT id, message_id, content, edited_at FROM message_edits WHERE message_id=$1 ORDER BY edited_at ASC, id ASC`,
		messageID)
	return edits, err
}

// EndCall marks a call-kind message's room as ended when the external call
// service reports termination. Ending twice is an invalid operation.
func (r *MessageRepo) EndCall(ctx context.Context, messageID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET call_ended=TRUE WHERE id=$1 AND call_room_id IS NOT NULL AND NOT call_ended`,
		messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 1 {
		return nil
	}

	var ended bool
	err = r.db.GetContext(ctx, &ended, `SELECT call_ended FROM messages WHERE id=$1 AND call_room_id IS NOT NULL`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	return apperr.InvalidOperation("call already ended")
}

// hydrate loads the annotation sets for a batch of messages.
func (r *MessageRepo) hydrate(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(msgs))
	byID := make(map[int64]*models.Message, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
		byID[msgs[i].ID] = &msgs[i]
	}

	query, args, err := sqlx.In(
		`SELECT message_id, user_id, emoji FROM message_reactions WHERE message_id IN (?) ORDER BY created_at ASC`, ids)
	if err != nil {
		return err
	}
	var reactions []struct {
		MessageID int64  `db:"message_id"`
		UserID    int    `db:"user_id"`
		Emoji     string `db:"emoji"`
	}
	if err := r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range reactions {
		msg := byID[row.MessageID]
		found := false
		for i := range msg.Reactions {
			if msg.Reactions[i].Emoji == row.Emoji {
				msg.Reactions[i].Count++
				msg.Reactions[i].Users = append(msg.Reactions[i].Users, row.UserID)
				found = true
				break
			}
		}
		if !found {
			msg.Reactions = append(msg.Reactions, models.ReactionGroup{Emoji: row.Emoji, Count: 1, Users: []int{row.UserID}})
		}
	}

	query, args, err = sqlx.In(
		`SELECT message_id, user_id FROM message_reads WHERE message_id IN (?) ORDER BY read_at ASC`, ids)
	if err != nil {
		return err
	}
	var reads []struct {
		MessageID int64 `db:"message_id"`
		UserID    int   `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &reads, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range reads {
		byID[row.MessageID].ReadBy = append(byID[row.MessageID].ReadBy, row.UserID)
	}

	pollIDs := make([]int64, 0)
	for _, m := range msgs {
		if m.ContentKind == models.ContentPoll {
			pollIDs = append(pollIDs, m.ID)
		}
	}
	if len(pollIDs) == 0 {
		return nil
	}

	query, args, err = sqlx.In(
		`SELECT o.id, o.message_id, o.position, o.label, v.user_id
         FROM poll_options o
         LEFT JOIN poll_votes v ON v.option_id = o.id
         WHERE o.message_id IN (?)
         ORDER BY o.message_id, o.position`, pollIDs)
	if err != nil {
		return err
	}
	var optionRows []struct {
		ID        int           `db:"id"`
		MessageID int64         `db:"message_id"`
		Position  int           `db:"position"`
		Label     string        `db:"label"`
		UserID    sql.NullInt64 `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &optionRows, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range optionRows {
		msg := byID[row.MessageID]
		if msg.Poll == nil {
			question := ""
			if msg.PollQuestion != nil {
				question = *msg.PollQuestion
			}
			msg.Poll = &models.Poll{Question: question, AllowMultiple: msg.PollMultiple}
		}
		var opt *models.PollOption
		for i := range msg.Poll.Options {
			if msg.Poll.Options[i].ID == row.ID {
				opt = &msg.Poll.Options[i]
				break
			}
		}
		if opt == nil {
			msg.Poll.Options = append(msg.Poll.Options, models.PollOption{
				ID: row.ID, Position: row.Position, Label: row.Label, Voters: []int{},
			})
			opt = &msg.Poll.Options[len(msg.Poll.Options)-1]
		}
		if row.UserID.Valid {
			opt.Voters = append(opt.Voters, int(row.UserID.Int64))
		}
	}
	return nil
}

// redactMessage blanks tombstoned content for non-privileged viewers. The
// record itself stays visible so clients can render a removal marker.
func redactMessage(msg *models.Message, viewerRole models.Role) {
	if !msg.IsDeleted || viewerRole.Privileged() {
		return
	}
	msg.Content = ""
	msg.AttachmentURL = nil
	msg.AttachmentName = nil
	msg.ReplySnippet = nil
	msg.Reactions = nil
	msg.Poll = nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
