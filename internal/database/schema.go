// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package database

import (
	"context"
	"fmt"
)

// createTables creates the core tables and their indexes. All columns
// live in the initial CREATE TABLE statements; there is no migration
// machinery yet.
func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS content_feedback_id_seq`,

		`CREATE TABLE IF NOT EXISTS content_feedback (
			id BIGINT PRIMARY KEY DEFAULT nextval('content_feedback_id_seq'),
			user_id VARCHAR NOT NULL,
			content_type VARCHAR NOT NULL,
			content_id VARCHAR NOT NULL,
			interaction_type VARCHAR NOT NULL,
			brings_back_memories BOOLEAN,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			reward DOUBLE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id VARCHAR PRIMARY KEY,
			selected_movie_ids VARCHAR NOT NULL DEFAULT '[]',
			selected_song_ids VARCHAR NOT NULL DEFAULT '[]',
			birth_year INTEGER NOT NULL DEFAULT 0,
			experiment_group VARCHAR NOT NULL DEFAULT 'treatment',
			nostalgic_period_start INTEGER NOT NULL DEFAULT 0,
			nostalgic_period_end INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_feedback_user_created
			ON content_feedback (user_id, created_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_feedback_user_type
			ON content_feedback (user_id, content_type)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
