// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tomtom215/reminisce/internal/config"
	"github.com/tomtom215/reminisce/internal/recommend"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "256MB",
		Threads:   2,
	}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestPreferencesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pref := &Preferences{
		UserID:               "user-1",
		SelectedMovieIDs:     []string{"m1", "m2"},
		SelectedSongIDs:      []string{"s9"},
		BirthYear:            1985,
		ExperimentGroup:      "treatment",
		NostalgicPeriodStart: 1995,
		NostalgicPeriodEnd:   2005,
	}
	if err := db.UpsertPreferences(ctx, pref); err != nil {
		t.Fatalf("UpsertPreferences() error = %v", err)
	}

	got, err := db.GetPreferences(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPreferences() error = %v", err)
	}
	if got.BirthYear != 1985 {
		t.Errorf("BirthYear = %d, want 1985", got.BirthYear)
	}
	if len(got.SelectedMovieIDs) != 2 || got.SelectedMovieIDs[1] != "m2" {
		t.Errorf("SelectedMovieIDs = %v", got.SelectedMovieIDs)
	}
	if got.NostalgicPeriodEnd != 2005 {
		t.Errorf("NostalgicPeriodEnd = %d, want 2005", got.NostalgicPeriodEnd)
	}
	if got.InControlGroup() {
		t.Error("InControlGroup() = true for treatment user")
	}
}

func TestPreferencesUpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &Preferences{UserID: "user-1", BirthYear: 1980, SelectedMovieIDs: []string{}, SelectedSongIDs: []string{}}
	if err := db.UpsertPreferences(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &Preferences{
		UserID:           "user-1",
		BirthYear:        1990,
		ExperimentGroup:  ExperimentGroupControl,
		SelectedMovieIDs: []string{"m5"},
		SelectedSongIDs:  []string{},
	}
	if err := db.UpsertPreferences(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetPreferences(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.BirthYear != 1990 {
		t.Errorf("BirthYear = %d, want 1990", got.BirthYear)
	}
	if !got.InControlGroup() {
		t.Error("InControlGroup() = false after upsert to control")
	}
}

func TestGetPreferencesMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetPreferences(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPreferences() error = %v, want ErrNotFound", err)
	}
}

func TestFeedbackRecordAndFetch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entries := []*Feedback{
		{UserID: "u1", ContentType: recommend.DomainSong, ContentID: "s1",
			Interaction: recommend.InteractionClick, Reward: floatPtr(0.8)},
		{UserID: "u1", ContentType: recommend.DomainMovie, ContentID: "m1",
			Interaction: recommend.InteractionSkip, Reward: floatPtr(0)},
		{UserID: "u2", ContentType: recommend.DomainSong, ContentID: "s2",
			Interaction: recommend.InteractionView},
	}
	for _, fb := range entries {
		if err := db.RecordFeedback(ctx, fb); err != nil {
			t.Fatalf("RecordFeedback() error = %v", err)
		}
	}

	got, err := db.RecentFeedback(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("RecentFeedback() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentFeedback() returned %d rows, want 2", len(got))
	}
	// Newest first: the skip was recorded last.
	if got[0].ContentID != "m1" {
		t.Errorf("newest ContentID = %q, want m1", got[0].ContentID)
	}
	if got[0].Reward == nil || *got[0].Reward != 0 {
		t.Errorf("newest Reward = %v, want 0", got[0].Reward)
	}
	if got[1].Interaction != recommend.InteractionClick {
		t.Errorf("older Interaction = %q, want click", got[1].Interaction)
	}
}

func TestPositiveRate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// No feedback at all: neutral default.
	rate, err := db.PositiveRate(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rate != 0.5 {
		t.Errorf("PositiveRate() with no history = %v, want 0.5", rate)
	}

	votes := []*bool{boolPtr(true), boolPtr(true), boolPtr(true), boolPtr(false), nil}
	for i, v := range votes {
		fb := &Feedback{
			UserID:             "u1",
			ContentType:        recommend.DomainSong,
			ContentID:          "s" + string(rune('a'+i)),
			Interaction:        recommend.InteractionClick,
			BringsBackMemories: v,
		}
		if err := db.RecordFeedback(ctx, fb); err != nil {
			t.Fatal(err)
		}
	}

	// 3 positives over 5 recorded interactions; the unvoted row
	// counts against the rate.
	rate, err = db.PositiveRate(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rate != 0.6 {
		t.Errorf("PositiveRate() = %v, want 0.6", rate)
	}
}

func TestRecentlySeenIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []struct {
		user, id string
		domain   recommend.Domain
	}{
		{"u1", "s1", recommend.DomainSong},
		{"u1", "s1", recommend.DomainSong}, // duplicate interaction
		{"u1", "m1", recommend.DomainMovie},
		{"u2", "s9", recommend.DomainSong},
	}
	for _, r := range rows {
		fb := &Feedback{UserID: r.user, ContentType: r.domain, ContentID: r.id,
			Interaction: recommend.InteractionView}
		if err := db.RecordFeedback(ctx, fb); err != nil {
			t.Fatal(err)
		}
	}

	seen, err := db.RecentlySeenIDs(ctx, "u1", recommend.DomainSong)
	if err != nil {
		t.Fatalf("RecentlySeenIDs() error = %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("seen = %v, want exactly s1", seen)
	}
	if _, ok := seen["s1"]; !ok {
		t.Error("s1 missing from seen set")
	}
}
