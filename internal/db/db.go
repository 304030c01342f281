package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect initializes the database connection and runs migrations. The
// messaging subsystem shares the host application's Postgres database; the
// users and sessions tables are owned by the host app and only read here.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS channels (
            id SERIAL PRIMARY KEY,
            kind TEXT NOT NULL CHECK (kind IN ('global', 'direct', 'group')),
            name TEXT NOT NULL DEFAULT '',
            pair_key TEXT UNIQUE,
            created_by INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS channel_members (
            channel_id INT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (channel_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            channel_id INT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            content_kind TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL DEFAULT '',
            attachment_url TEXT,
            attachment_name TEXT,
            reply_to_id BIGINT,
            reply_snippet TEXT,
            reply_sender_name TEXT,
            poll_question TEXT,
            poll_multiple BOOLEAN NOT NULL DEFAULT FALSE,
            call_room_id TEXT,
            call_ended BOOLEAN NOT NULL DEFAULT FALSE,
            is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
            pinned_at TIMESTAMPTZ,
            is_edited BOOLEAN NOT NULL DEFAULT FALSE,
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_order
            ON messages (channel_id, created_at DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS message_edits (
            id SERIAL PRIMARY KEY,
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            edited_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS message_reads (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (message_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (message_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS poll_options (
            id SERIAL PRIMARY KEY,
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            position INT NOT NULL,
            label TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS poll_votes (
            option_id INT NOT NULL REFERENCES poll_options(id) ON DELETE CASCADE,
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            PRIMARY KEY (option_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS roster (
            user_id INT NOT NULL,
            peer_id INT NOT NULL,
            pinned BOOLEAN NOT NULL DEFAULT FALSE,
            last_messaged_at TIMESTAMPTZ,
            PRIMARY KEY (user_id, peer_id)
        );`,
		// The global channel is a singleton; pair_key keeps the insert idempotent.
		`INSERT INTO channels (kind, name, pair_key)
            VALUES ('global', 'General', 'global')
            ON CONFLICT (pair_key) DO NOTHING;`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("database migrations applied")
	return nil
}
