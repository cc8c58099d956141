// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/reminisce/internal/metrics"
	"github.com/tomtom215/reminisce/internal/recommend"
)

// recentFeedbackLimit bounds how far back positive-rate and
// recently-seen computations look.
const recentFeedbackLimit = 50

// Feedback is one recorded user reaction to a recommendation.
type Feedback struct {
	ID                 int64                     `json:"id"`
	UserID             string                    `json:"user_id"`
	ContentType        recommend.Domain          `json:"content_type"`
	ContentID          string                    `json:"content_id"`
	Interaction        recommend.InteractionType `json:"interaction_type"`
	BringsBackMemories *bool                     `json:"brings_back_memories,omitempty"`
	DurationSeconds    int                       `json:"duration_seconds"`
	Reward             *float64                  `json:"reward,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// RecordFeedback inserts one feedback row. The reward pointer is nil
// when the interaction carried no learning signal.
func (db *DB) RecordFeedback(ctx context.Context, fb *Feedback) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO content_feedback
			(user_id, content_type, content_id, interaction_type,
			 brings_back_memories, duration_seconds, reward)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fb.UserID, string(fb.ContentType), fb.ContentID, string(fb.Interaction),
		fb.BringsBackMemories, fb.DurationSeconds, fb.Reward)
	metrics.RecordDBQuery("insert", "content_feedback", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// RecentFeedback returns the user's most recent feedback rows, newest
// first. A non-positive limit falls back to the default window.
func (db *DB) RecentFeedback(ctx context.Context, userID string, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = recentFeedbackLimit
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, content_type, content_id, interaction_type,
		       brings_back_memories, duration_seconds, reward, created_at
		FROM content_feedback
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		userID, limit)
	metrics.RecordDBQuery("select", "content_feedback", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var result []Feedback
	for rows.Next() {
		var fb Feedback
		var contentType, interaction string
		if err := rows.Scan(&fb.ID, &fb.UserID, &contentType, &fb.ContentID,
			&interaction, &fb.BringsBackMemories, &fb.DurationSeconds,
			&fb.Reward, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		fb.ContentType = recommend.Domain(contentType)
		fb.Interaction = recommend.InteractionType(interaction)
		result = append(result, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feedback rows: %w", err)
	}
	return result, nil
}

// PositiveRate computes the share of the user's recent interactions
// with a positive "brings back memories" vote. Interactions without a
// vote count against the rate; with no history at all it defaults to
// the neutral 0.5.
func (db *DB) PositiveRate(ctx context.Context, userID string) (float64, error) {
	recent, err := db.RecentFeedback(ctx, userID, recentFeedbackLimit)
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0.5, nil
	}

	var positives int
	for _, fb := range recent {
		if fb.BringsBackMemories != nil && *fb.BringsBackMemories {
			positives++
		}
	}
	return float64(positives) / float64(len(recent)), nil
}

// RecentlySeenIDs returns the content IDs the user interacted with
// recently in the given domain, for filtering repeat recommendations.
func (db *DB) RecentlySeenIDs(ctx context.Context, userID string, domain recommend.Domain) (map[string]struct{}, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT content_id FROM (
			SELECT content_id
			FROM content_feedback
			WHERE user_id = ? AND content_type = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)`,
		userID, string(domain), recentFeedbackLimit)
	metrics.RecordDBQuery("select", "content_feedback", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen content: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan content id: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("seen content rows: %w", err)
	}
	return seen, nil
}
