package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository abstracts channel and membership persistence.
type ChannelRepository interface {
	GlobalChannel(ctx context.Context) (models.Channel, error)
	CreateOrGetDirect(ctx context.Context, userID int, peerID int) (models.Channel, error)
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	ListChannels(ctx context.Context, userID int) ([]models.Channel, error)
	IsMember(ctx context.Context, channelID int, userID int) (bool, error)
	IsAdmin(ctx context.Context, channelID int, userID int) (bool, error)
	Members(ctx context.Context, channelID int) ([]models.ChannelMember, error)
	CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Channel, error)
	AddMember(ctx context.Context, channelID int, userID int) error
	RemoveMember(ctx context.Context, channelID int, userID int) error
	SetAdmin(ctx context.Context, channelID int, userID int) error
	DeleteChannel(ctx context.Context, channelID int) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, kind, name, pair_key, created_by, created_at`

// GlobalChannel returns the singleton global channel.
func (r *ChannelRepo) GlobalChannel(ctx context.Context) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE pair_key=$1`, models.GlobalPairKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// CreateOrGetDirect lazily creates the direct channel between two users.
// Channel identity is the sorted pair key, so concurrent first sends from
// both participants converge on the same row instead of creating duplicates.
func (r *ChannelRepo) CreateOrGetDirect(ctx context.Context, userID int, peerID int) (models.Channel, error) {
	if userID == peerID {
		return models.Channel{}, errors.New("cannot open a direct channel with self")
	}
	key := models.DirectPairKey(userID, peerID)

	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE pair_key=$1`, key)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO channels (kind, pair_key, created_by) VALUES ('direct', $1, $2)
         ON CONFLICT (pair_key) DO NOTHING
         RETURNING `+channelColumns, key, userID).StructScan(&ch)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race to the other participant; their row is ours too.
		err = r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE pair_key=$1`, key)
	}
	if err != nil {
		return models.Channel{}, err
	}

	for _, id := range []int{userID, peerID} {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			ch.ID, id); err != nil {
			return models.Channel{}, err
		}
	}
	return ch, nil
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// ListChannels returns the global channel plus every direct and group
// channel the user belongs to, most recent first.
func (r *ChannelRepo) ListChannels(ctx context.Context, userID int) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels,
		`SELECT `+channelColumns+` FROM channels
         WHERE kind='global'
            OR id IN (SELECT channel_id FROM channel_members WHERE user_id=$1)
         ORDER BY created_at DESC`, userID)
	return channels, err
}

// IsMember checks whether a user may read and write the channel. Everyone
// is a member of the global channel.
func (r *ChannelRepo) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	var member bool
	err := r.db.GetContext(ctx, &member,
		`SELECT EXISTS(
            SELECT 1 FROM channels WHERE id=$1 AND kind='global'
            UNION ALL
            SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2
        )`, channelID, userID)
	return member, err
}

// IsAdmin checks group-admin membership.
func (r *ChannelRepo) IsAdmin(ctx context.Context, channelID int, userID int) (bool, error) {
	var admin bool
	err := r.db.GetContext(ctx, &admin,
		`SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2 AND is_admin)`,
		channelID, userID)
	return admin, err
}

// Members returns a channel's membership rows.
func (r *ChannelRepo) Members(ctx context.Context, channelID int) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	err := r.db.SelectContext(ctx, &members,
		`SELECT channel_id, user_id, is_admin, added_at FROM channel_members WHERE channel_id=$1 ORDER BY added_at ASC`,
		channelID)
	return members, err
}

// CreateGroup creates a group channel and its members atomically. The
// creator is always a member and the sole initial admin.
func (r *ChannelRepo) CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Channel, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var ch models.Channel
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO channels (kind, name, created_by) VALUES ('group', $1, $2) RETURNING `+channelColumns,
		name, creatorID).StructScan(&ch); err != nil {
		return models.Channel{}, err
	}

	memberSet := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO channel_members (channel_id, user_id, is_admin) VALUES ($1, $2, $3)`,
			ch.ID, id, id == creatorID); err != nil {
			return models.Channel{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

// AddMember adds a user to a group channel.
func (r *ChannelRepo) AddMember(ctx context.Context, channelID int, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		channelID, userID)
	return err
}

// RemoveMember removes a non-admin member. Admin rows are never matched so
// a racing admin promotion cannot be undone by a concurrent kick.
func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID int, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM channel_members WHERE channel_id=$1 AND user_id=$2 AND NOT is_admin`,
		channelID, userID)
	return err
}

// SetAdmin promotes an existing member to group admin.
func (r *ChannelRepo) SetAdmin(ctx context.Context, channelID int, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channel_members SET is_admin=TRUE WHERE channel_id=$1 AND user_id=$2`,
		channelID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// DeleteChannel hard-deletes a channel; messages and their annotation rows
// go with it via ON DELETE CASCADE.
func (r *ChannelRepo) DeleteChannel(ctx context.Context, channelID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}
