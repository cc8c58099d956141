// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reminisce/internal/metrics"
)

// ExperimentGroupControl marks users excluded from bandit learning;
// they receive uniform random picks instead.
const ExperimentGroupControl = "control"

// Preferences holds a user's onboarding profile.
type Preferences struct {
	UserID               string   `json:"user_id"`
	SelectedMovieIDs     []string `json:"selected_movie_ids"`
	SelectedSongIDs      []string `json:"selected_song_ids"`
	BirthYear            int      `json:"birth_year"`
	ExperimentGroup      string   `json:"experiment_group"`
	NostalgicPeriodStart int      `json:"nostalgic_period_start"`
	NostalgicPeriodEnd   int      `json:"nostalgic_period_end"`
}

// InControlGroup reports whether the user is in the holdout group.
func (p *Preferences) InControlGroup() bool {
	return p.ExperimentGroup == ExperimentGroupControl
}

// GetPreferences fetches a user's profile. Returns ErrNotFound when
// the user has not completed onboarding.
func (db *DB) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, selected_movie_ids, selected_song_ids, birth_year,
		       experiment_group, nostalgic_period_start, nostalgic_period_end
		FROM user_preferences
		WHERE user_id = ?`,
		userID)

	var pref Preferences
	var movieJSON, songJSON string
	err := row.Scan(&pref.UserID, &movieJSON, &songJSON, &pref.BirthYear,
		&pref.ExperimentGroup, &pref.NostalgicPeriodStart, &pref.NostalgicPeriodEnd)
	metrics.RecordDBQuery("select", "user_preferences", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	if err := json.Unmarshal([]byte(movieJSON), &pref.SelectedMovieIDs); err != nil {
		return nil, fmt.Errorf("corrupted selected_movie_ids for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(songJSON), &pref.SelectedSongIDs); err != nil {
		return nil, fmt.Errorf("corrupted selected_song_ids for %s: %w", userID, err)
	}
	if pref.ExperimentGroup == "" {
		pref.ExperimentGroup = "treatment"
	}
	return &pref, nil
}

// UpsertPreferences stores or replaces a user's profile.
func (db *DB) UpsertPreferences(ctx context.Context, pref *Preferences) error {
	movieJSON, err := json.Marshal(pref.SelectedMovieIDs)
	if err != nil {
		return fmt.Errorf("failed to encode movie ids: %w", err)
	}
	songJSON, err := json.Marshal(pref.SelectedSongIDs)
	if err != nil {
		return fmt.Errorf("failed to encode song ids: %w", err)
	}
	group := pref.ExperimentGroup
	if group == "" {
		group = "treatment"
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_preferences
			(user_id, selected_movie_ids, selected_song_ids, birth_year,
			 experiment_group, nostalgic_period_start, nostalgic_period_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (user_id) DO UPDATE SET
			selected_movie_ids = excluded.selected_movie_ids,
			selected_song_ids = excluded.selected_song_ids,
			birth_year = excluded.birth_year,
			experiment_group = excluded.experiment_group,
			nostalgic_period_start = excluded.nostalgic_period_start,
			nostalgic_period_end = excluded.nostalgic_period_end,
			updated_at = now()`,
		pref.UserID, string(movieJSON), string(songJSON), pref.BirthYear,
		group, pref.NostalgicPeriodStart, pref.NostalgicPeriodEnd)
	metrics.RecordDBQuery("upsert", "user_preferences", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}
