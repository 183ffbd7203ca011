package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePostSchema creates the posts and renditions tables if they are missing.
// Safe to call at startup.
func EnsurePostSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			image_filename TEXT NOT NULL,
			image_path TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			instagram_status TEXT NOT NULL DEFAULT 'pending',
			instagram_post_id TEXT,
			instagram_error TEXT,
			twitter_status TEXT NOT NULL DEFAULT 'pending',
			twitter_post_id TEXT,
			twitter_error TEXT,
			facebook_status TEXT NOT NULL DEFAULT 'pending',
			facebook_post_id TEXT,
			facebook_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS renditions (
			id BIGSERIAL PRIMARY KEY,
			post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			resized_path TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			UNIQUE (post_id, platform)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
	}

	for _, ddl := range stmts {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensuring post schema failed: %w", err)
		}
	}
	return nil
}
