package repositories

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/apperr"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestReactSameEmojiRemoves(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sender_id FROM messages WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`)).
		WithArgs(int64(9), 1, "👍").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.React(context.Background(), 9, 1, "👍")
	require.NoError(t, err)
	assert.True(t, removed)
	// The delete consumed the toggle, no upsert may follow.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReactDifferentEmojiReplaces(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sender_id FROM messages WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`)).
		WithArgs(int64(9), 1, "🎉").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The (message_id, user_id) conflict target swaps the emoji in place, so
	// a user never holds two reactions on one message.
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (message_id, user_id) DO UPDATE SET emoji=EXCLUDED.emoji`)).
		WithArgs(int64(9), 1, "🎉").
		WillReturnResult(sqlmock.NewResult(1, 1))

	removed, err := repo.React(context.Background(), 9, 1, "🎉")
	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReactOwnMessageRejectedBeforeWrite(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sender_id FROM messages WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(1))

	_, err := repo.React(context.Background(), 9, 1, "👍")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTogglePinThirdPinEvictsOldest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT channel_id, is_pinned FROM messages WHERE id=$1 FOR UPDATE`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_id", "is_pinned"}).AddRow(5, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM messages WHERE channel_id=$1 AND is_pinned ORDER BY pinned_at ASC, id ASC FOR UPDATE`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_pinned=FALSE, pinned_at=NULL WHERE id IN ($1)`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_pinned=TRUE, pinned_at=NOW() WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pinned, evicted, err := repo.TogglePin(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, pinned)
	// The earliest pin goes, the later one survives next to the new pin.
	assert.Equal(t, []int64{3}, evicted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTogglePinSecondPinKeepsBoth(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT channel_id, is_pinned FROM messages WHERE id=$1 FOR UPDATE`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_id", "is_pinned"}).AddRow(5, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM messages WHERE channel_id=$1 AND is_pinned ORDER BY pinned_at ASC, id ASC FOR UPDATE`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_pinned=TRUE, pinned_at=NOW() WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pinned, evicted, err := repo.TogglePin(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, pinned)
	assert.Empty(t, evicted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTogglePinUnpins(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT channel_id, is_pinned FROM messages WHERE id=$1 FOR UPDATE`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_id", "is_pinned"}).AddRow(5, true))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_pinned=FALSE, pinned_at=NULL WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pinned, evicted, err := repo.TogglePin(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, pinned)
	assert.Empty(t, evicted)
	require.NoError(t, mock.ExpectationsWereMet())
}
