package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrOptionNotFound = errors.New("poll option not found")

// PollRepository stores polls as poll-kind messages with their option and
// voter rows. Vote state changes are row-level set mutations inside a
// transaction; the (option_id, user_id) primary key keeps a voter from
// appearing twice in one option.
type PollRepository interface {
	CreatePoll(ctx context.Context, channelID int, senderID int, question string, options []string, allowMultiple bool) (models.Message, error)
	Vote(ctx context.Context, messageID int64, userID int, optionID int) (models.Poll, error)
	GetPoll(ctx context.Context, messageID int64) (models.Poll, error)
}

// PollRepo is a sqlx implementation of PollRepository.
type PollRepo struct {
	db *sqlx.DB
}

// NewPollRepo constructs a PollRepo.
func NewPollRepo(db *sqlx.DB) *PollRepo {
	return &PollRepo{db: db}
}

// CreatePoll appends a poll-kind message with its options. Option count
// validation happens at the handler; this assumes a well-formed poll.
func (r *PollRepo) CreatePoll(ctx context.Context, channelID int, senderID int, question string, options []string, allowMultiple bool) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (channel_id, sender_id, content_kind, poll_question, poll_multiple)
         VALUES ($1, $2, 'poll', $3, $4)
         RETURNING `+messageColumns,
		channelID, senderID, question, allowMultiple).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	poll := &models.Poll{Question: question, AllowMultiple: allowMultiple}
	for i, label := range options {
		var opt models.PollOption
		if err = tx.QueryRowxContext(ctx,
			`INSERT INTO poll_options (message_id, position, label) VALUES ($1, $2, $3) RETURNING id, position, label`,
			msg.ID, i, label).StructScan(&opt); err != nil {
			return models.Message{}, err
		}
		opt.Voters = []int{}
		poll.Options = append(poll.Options, opt)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		msg.ID, senderID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	msg.Poll = poll
	msg.ReadBy = []int{senderID}
	return msg, nil
}

// Vote toggles the user's membership in the target option. For
// single-choice polls the user's votes on every other option are cleared
// first, so an id appears in at most one voter set across the poll.
func (r *PollRepo) Vote(ctx context.Context, messageID int64, userID int, optionID int) (models.Poll, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Poll{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var allowMultiple bool
	err = tx.GetContext(ctx, &allowMultiple,
		`SELECT poll_multiple FROM messages WHERE id=$1 AND content_kind='poll'`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMessageNotFound
		return models.Poll{}, err
	}
	if err != nil {
		return models.Poll{}, err
	}

	var optionOK bool
	if err = tx.GetContext(ctx, &optionOK,
		`SELECT EXISTS(SELECT 1 FROM poll_options WHERE id=$1 AND message_id=$2)`, optionID, messageID); err != nil {
		return models.Poll{}, err
	}
	if !optionOK {
		err = ErrOptionNotFound
		return models.Poll{}, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM poll_votes WHERE option_id=$1 AND user_id=$2`, optionID, userID)
	if err != nil {
		return models.Poll{}, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return models.Poll{}, err
	}

	if removed == 0 {
		if !allowMultiple {
			if _, err = tx.ExecContext(ctx,
				`DELETE FROM poll_votes WHERE message_id=$1 AND user_id=$2`, messageID, userID); err != nil {
				return models.Poll{}, err
			}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO poll_votes (option_id, message_id, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			optionID, messageID, userID); err != nil {
			return models.Poll{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Poll{}, err
	}
	return r.GetPoll(ctx, messageID)
}

// GetPoll hydrates the poll payload of a poll-kind message.
func (r *PollRepo) GetPoll(ctx context.Context, messageID int64) (models.Poll, error) {
	var meta struct {
		Question sql.NullString `db:"poll_question"`
		Multiple bool           `db:"poll_multiple"`
	}
	err := r.db.GetContext(ctx, &meta,
		`SELECT poll_question, poll_multiple FROM messages WHERE id=$1 AND content_kind='poll'`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Poll{}, err
	}

	poll := models.Poll{Question: meta.Question.String, AllowMultiple: meta.Multiple}

	var rows []struct {
		ID       int           `db:"id"`
		Position int           `db:"position"`
		Label    string        `db:"label"`
		UserID   sql.NullInt64 `db:"user_id"`
	}
	err = r.db.SelectContext(ctx, &rows,
		`SELECT o.id, o.position, o.label, v.user_id
         FROM poll_options o
         LEFT JOIN poll_votes v ON v.option_id = o.id
         WHERE o.message_id=$1
         ORDER BY o.position, o.id`, messageID)
	if err != nil {
		return models.Poll{}, err
	}
	for _, row := range rows {
		var opt *models.PollOption
		for i := range poll.Options {
			if poll.Options[i].ID == row.ID {
				opt = &poll.Options[i]
				break
			}
		}
		if opt == nil {
			poll.Options = append(poll.Options, models.PollOption{
				ID: row.ID, Position: row.Position, Label: row.Label, Voters: []int{},
			})
			opt = &poll.Options[len(poll.Options)-1]
		}
		if row.UserID.Valid {
			opt.Voters = append(opt.Voters, int(row.UserID.Int64))
		}
	}
	return poll, nil
}
