// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

// Package api provides the HTTP endpoints for recommendation selection,
// feedback ingestion, warm starting, and service status.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reminisce/internal/database"
	"github.com/tomtom215/reminisce/internal/metrics"
	"github.com/tomtom215/reminisce/internal/recommend"
	"github.com/tomtom215/reminisce/internal/recommend/bandit"
)

// fallbackBirthYear is used when a user has no recorded birth year;
// nostalgia math needs some anchor.
const fallbackBirthYear = 2000

// Handlers bundles the dependencies shared by all endpoints.
type Handlers struct {
	db       *database.DB
	engine   *bandit.Hierarchical
	selector *recommend.Selector
	logger   zerolog.Logger
}

// NewHandlers wires the endpoint handlers.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandlers(db *database.DB, engine *bandit.Hierarchical, selector *recommend.Selector, logger zerolog.Logger) *Handlers {
	return &Handlers{
		db:       db,
		engine:   engine,
		selector: selector,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// RecommendRequest carries the context snapshot and candidate list for
// one selection. Candidate generation happens upstream; callers post
// the ranked list.
type RecommendRequest struct {
	UserID      string                `json:"user_id" validate:"required"`
	StressScore *float64              `json:"stress_score" validate:"omitempty,gte=0,lte=1"`
	Emotion     string                `json:"emotion" validate:"omitempty,oneof=anger fear joy love neutral sadness surprise"`
	Candidates  []recommend.Candidate `json:"candidates" validate:"required,min=1"`
}

// RecommendResponse is the payload of a successful selection.
type RecommendResponse struct {
	Content     recommend.Candidate `json:"content"`
	Arm         string              `json:"arm"`
	BanditScore float64             `json:"bandit_score"`
	Source      string              `json:"source"`
	StressScore float64             `json:"stress_score"`
	Emotion     string              `json:"emotion"`
}

// Recommend handles POST /api/v1/recommend.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	prefs, err := h.db.GetPreferences(ctx, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusBadRequest, "PREFERENCES_NOT_FOUND",
			"User preferences not found. Please complete onboarding.", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to load user preferences", err)
		return
	}

	birthYear := prefs.BirthYear
	if birthYear == 0 {
		birthYear = fallbackBirthYear
	}
	var period *recommend.Period
	if prefs.NostalgicPeriodStart != 0 && prefs.NostalgicPeriodEnd != 0 {
		period = &recommend.Period{
			Start: prefs.NostalgicPeriodStart,
			End:   prefs.NostalgicPeriodEnd,
		}
	}

	stress := 0.5
	if req.StressScore != nil {
		stress = *req.StressScore
	}
	emotion := req.Emotion
	if emotion == "" {
		emotion = "neutral"
	}

	positiveRate, err := h.db.PositiveRate(ctx, req.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("positive rate lookup failed, using neutral")
		positiveRate = 0.5
	}

	candidates := req.Candidates
	h.selector.Annotate(candidates, birthYear, period)
	candidates = h.filterRecentlySeen(ctx, req.UserID, candidates)
	metrics.RecommendationCandidates.Observe(float64(len(candidates)))

	var sel *recommend.Selection
	source := "bandit"
	if prefs.InControlGroup() {
		// Holdout users get a uniform random pick and generate no
		// learning signal.
		source = "control"
		sel, err = h.selector.PickRandom(candidates)
	} else {
		contextVec := bandit.BuildContext(stress, emotion, positiveRate, birthYear)
		sel, err = h.selector.Pick(ctx, req.UserID, contextVec, candidates)
	}
	if errors.Is(err, recommend.ErrNoCandidates) {
		respondError(w, r, http.StatusServiceUnavailable, "NO_CANDIDATES",
			"No candidates available after filtering", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "BANDIT_ERROR",
			"Selection failed", err)
		return
	}

	metrics.RecommendationsServed.WithLabelValues(string(sel.Candidate.Domain)).Inc()
	respondSuccess(w, r, http.StatusOK, &RecommendResponse{
		Content:     sel.Candidate,
		Arm:         sel.Arm,
		BanditScore: sel.Score,
		Source:      source,
		StressScore: stress,
		Emotion:     emotion,
	})
}

// filterRecentlySeen drops candidates the user reacted to recently.
// Lookup failures degrade to no filtering rather than failing the request.
func (h *Handlers) filterRecentlySeen(ctx context.Context, userID string, candidates []recommend.Candidate) []recommend.Candidate {
	seen := make(map[string]struct{})
	for _, domain := range []recommend.Domain{recommend.DomainMovie, recommend.DomainSong} {
		ids, err := h.db.RecentlySeenIDs(ctx, userID, domain)
		if err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("seen-content lookup failed, skipping filter")
			return candidates
		}
		for id := range ids {
			seen[id] = struct{}{}
		}
	}
	return recommend.FilterSeen(candidates, seen)
}

// FeedbackRequest reports one user interaction with a recommendation.
type FeedbackRequest struct {
	UserID             string `json:"user_id" validate:"required"`
	ContentType        string `json:"content_type" validate:"required,oneof=movie song"`
	ContentID          string `json:"content_id" validate:"required"`
	InteractionType    string `json:"interaction_type" validate:"omitempty"`
	DurationSeconds    int    `json:"duration_seconds" validate:"omitempty,gte=0"`
	FeedbackSubmitted  bool   `json:"feedback_submitted"`
	BringsBackMemories *bool  `json:"brings_back_memories"`

	// Content metadata so the arm can be reconstructed without a
	// catalogue lookup.
	ContentYear  int    `json:"content_year" validate:"omitempty,gte=0"`
	ContentGenre string `json:"content_genre"`

	// Context snapshot from when the recommendation was shown.
	ContextStress  *float64 `json:"context_stress" validate:"omitempty,gte=0,lte=1"`
	ContextEmotion string   `json:"context_emotion" validate:"omitempty,oneof=anger fear joy love neutral sadness surprise"`
}

// FeedbackResponse reports the computed reward. Success is true even
// for interactions that carry no learning signal.
type FeedbackResponse struct {
	Success bool    `json:"success"`
	Reward  float64 `json:"reward"`
	Message string  `json:"message"`
}

// Feedback handles POST /api/v1/recommend/feedback.
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	interaction := recommend.InteractionType(req.InteractionType)
	reward, hasSignal := recommend.CalculateReward(interaction, req.BringsBackMemories,
		req.DurationSeconds, req.FeedbackSubmitted)

	fb := &database.Feedback{
		UserID:             req.UserID,
		ContentType:        recommend.Domain(req.ContentType),
		ContentID:          req.ContentID,
		Interaction:        interaction,
		BringsBackMemories: req.BringsBackMemories,
		DurationSeconds:    req.DurationSeconds,
	}
	if hasSignal {
		fb.Reward = &reward
	}
	if err := h.db.RecordFeedback(ctx, fb); err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to record feedback")
	} else {
		metrics.FeedbackRecorded.WithLabelValues(string(interaction)).Inc()
	}

	if !hasSignal {
		respondSuccess(w, r, http.StatusOK, &FeedbackResponse{
			Success: true,
			Reward:  0,
			Message: fmt.Sprintf("Interaction %q ignored (no reward signal).", req.InteractionType),
		})
		return
	}

	birthYear := fallbackBirthYear
	if prefs, err := h.db.GetPreferences(ctx, req.UserID); err == nil && prefs.BirthYear != 0 {
		birthYear = prefs.BirthYear
	}
	positiveRate, err := h.db.PositiveRate(ctx, req.UserID)
	if err != nil {
		positiveRate = 0.5
	}

	stress := 0.5
	if req.ContextStress != nil {
		stress = *req.ContextStress
	}
	emotion := req.ContextEmotion
	if emotion == "" {
		emotion = "neutral"
	}

	candidate := recommend.Candidate{
		Domain: recommend.Domain(req.ContentType),
		ID:     req.ContentID,
		Year:   req.ContentYear,
		Genre:  req.ContentGenre,
		Genres: req.ContentGenre,
	}
	arm := recommend.ArmFor(candidate)
	contextVec := bandit.BuildContext(stress, emotion, positiveRate, birthYear)

	if err := h.engine.Update(ctx, req.UserID, contextVec, arm, reward); err != nil {
		// Learning is best effort; the client's feedback was recorded.
		h.logger.Error().Err(err).
			Str("user_id", req.UserID).
			Str("arm", arm).
			Msg("bandit update failed")
	}

	respondSuccess(w, r, http.StatusOK, &FeedbackResponse{
		Success: true,
		Reward:  reward,
		Message: fmt.Sprintf("Feedback recorded (%s, r=%g) and bandit updated.", req.InteractionType, reward),
	})
}

// WarmStartRequest seeds a user's model from onboarding selections.
type WarmStartRequest struct {
	UserID     string                `json:"user_id" validate:"required"`
	Selections []recommend.Candidate `json:"selections" validate:"required,min=1"`
}

// WarmStart handles POST /api/v1/recommend/warmstart.
func (h *Handlers) WarmStart(w http.ResponseWriter, r *http.Request) {
	var req WarmStartRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.engine.WarmStartUser(r.Context(), req.UserID, req.Selections, nil); err != nil {
		respondError(w, r, http.StatusInternalServerError, "BANDIT_ERROR",
			"Warm start failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"user_id":    req.UserID,
		"selections": len(req.Selections),
	})
}

// Status handles GET /api/v1/recommend/status.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.engine.Stats())
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "DATABASE_ERROR",
			"Database unreachable", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
