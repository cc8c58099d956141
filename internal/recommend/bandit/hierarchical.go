// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reminisce/internal/metrics"
	"github.com/tomtom215/reminisce/internal/recommend"
	"github.com/tomtom215/reminisce/internal/recommend/storage"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("bandit engine closed")

// Decision sources reported by SelectDetailed.
const (
	SourceGlobal = "global"
	SourceUser   = "user"
	SourceRandom = "random"
)

// Config tunes the hierarchical bandit engine.
type Config struct {
	// Alpha is the LinUCB exploration parameter.
	Alpha float64

	// MinUserUpdates is the feedback count a user model needs before
	// its predictions are considered at all.
	MinUserUpdates int

	// CacheSize bounds the number of user models held in memory.
	CacheSize int

	// FlushThreshold is the number of updates between write-backs of
	// dirty models to the store.
	FlushThreshold int

	// BlendRampUpdates is the update count at which a user model
	// reaches maximum blend weight.
	BlendRampUpdates int

	// MaxUserWeight caps the per-user blend weight so the global
	// model always retains influence.
	MaxUserWeight float64

	// StoreTimeout bounds individual model store operations.
	StoreTimeout time.Duration

	// Seed seeds the exploration RNG. Zero selects a time-based seed.
	Seed int64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:            1.0,
		MinUserUpdates:   10,
		CacheSize:        500,
		FlushThreshold:   10,
		BlendRampUpdates: 50,
		MaxUserWeight:    0.7,
		StoreTimeout:     5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Alpha <= 0 {
		c.Alpha = def.Alpha
	}
	if c.MinUserUpdates <= 0 {
		c.MinUserUpdates = def.MinUserUpdates
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = def.FlushThreshold
	}
	if c.BlendRampUpdates <= 0 {
		c.BlendRampUpdates = def.BlendRampUpdates
	}
	if c.MaxUserWeight <= 0 || c.MaxUserWeight > 1 {
		c.MaxUserWeight = def.MaxUserWeight
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = def.StoreTimeout
	}
}

// Decision is the outcome of a hierarchical selection.
type Decision struct {
	// Index is the position of the chosen candidate in the input slice.
	Index int

	// Score is the winning model's expected reward, or 0.5 for a
	// random pick.
	Score float64

	// Arm is the genre arm the chosen candidate maps to.
	Arm string

	// Source identifies which model made the call.
	Source string
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	GlobalUpdates     int  `json:"global_updates"`
	GlobalFitted      bool `json:"global_fitted"`
	CachedUserModels  int  `json:"cached_user_models"`
	DirtyUserModels   int  `json:"dirty_user_models"`
	UpdatesSinceFlush int  `json:"updates_since_flush"`
}

// Hierarchical combines a global LinUCB model with per-user models.
//
// The global model learns from all users and always stays in memory.
// Per-user models refine its predictions once a user has enough
// feedback, and live in a bounded LRU cache with write-back
// persistence: models are marked dirty on update and flushed every
// FlushThreshold updates, on eviction, and on Close.
//
// A single mutex guards the cache, dirty sets, and flush counter.
// Model loads during selection run under that mutex; write-back
// flushes snapshot the dirty set under it and perform the store
// writes with it released, so persistence never stalls selection or
// learning. flushMu serializes flush passes and lets Close drain an
// in-flight flush.
type Hierarchical struct {
	cfg    Config
	store  storage.ModelStore
	logger zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex

	flushMu sync.Mutex

	mu                sync.Mutex
	global            *Model
	users             *modelCache
	dirtyGlobal       bool
	dirtyUsers        map[string]struct{}
	updatesSinceFlush int
	closed            bool
}

// New builds the engine, loading the global model from the store.
// A missing or corrupted global record starts a fresh model; any other
// store failure aborts startup.
func New(cfg Config, store storage.ModelStore, logger zerolog.Logger) (*Hierarchical, error) {
	cfg.applyDefaults()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	h := &Hierarchical{
		cfg:        cfg,
		store:      store,
		logger:     logger.With().Str("component", "bandit").Logger(),
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // exploration jitter, not security sensitive
		dirtyUsers: make(map[string]struct{}),
	}
	h.users = newModelCache(cfg.CacheSize, h.onUserEvict)

	global, err := h.loadModel(context.Background(), storage.GlobalModelID)
	if err != nil {
		return nil, fmt.Errorf("load global model: %w", err)
	}
	h.global = global

	h.logger.Info().
		Int("global_updates", global.UpdateCount()).
		Bool("global_fitted", global.Fitted()).
		Int("cache_size", cfg.CacheSize).
		Int("flush_threshold", cfg.FlushThreshold).
		Msg("bandit engine ready")
	return h, nil
}

// Select implements recommend.Policy.
func (h *Hierarchical) Select(ctx context.Context, userID string, contextVec []float64, candidates []recommend.Candidate) (int, float64, error) {
	d, err := h.SelectDetailed(ctx, userID, contextVec, candidates)
	if err != nil {
		return 0, 0, err
	}
	return d.Index, d.Score, nil
}

// SelectDetailed picks the best candidate, blending the user model with
// the global model once the user has MinUserUpdates of history. The
// user model wins only when its confidence-weighted score beats the
// global model's.
func (h *Hierarchical) SelectDetailed(ctx context.Context, userID string, contextVec []float64, candidates []recommend.Candidate) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, recommend.ErrNoCandidates
	}

	arms := make([]string, len(candidates))
	for i := range candidates {
		arms[i] = recommend.ArmFor(candidates[i])
	}
	x := shapeContext(contextVec)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Decision{}, ErrClosed
	}

	d := Decision{Source: SourceGlobal}
	gIdx, gScore, gOK := h.global.Select(x, arms)
	if !gOK {
		// Cold start: the global model has never been updated.
		d.Index = h.randIntn(len(candidates))
		d.Score = 0.5
		d.Source = SourceRandom
		d.Arm = arms[d.Index]
		metrics.BanditSelections.WithLabelValues(d.Source).Inc()
		return d, nil
	}
	d.Index = gIdx
	d.Score = gScore

	userModel, err := h.userModelLocked(ctx, userID)
	if err != nil {
		// Selection degrades to global-only when the store is down.
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("user model unavailable for selection")
	}

	if userModel != nil && userModel.UpdateCount() >= h.cfg.MinUserUpdates {
		if uIdx, uScore, uOK := userModel.Select(x, arms); uOK {
			blend := float64(userModel.UpdateCount()) / float64(h.cfg.BlendRampUpdates)
			if blend > h.cfg.MaxUserWeight {
				blend = h.cfg.MaxUserWeight
			}
			if uScore*blend > gScore*(1-blend) {
				d.Index = uIdx
				d.Score = uScore
				d.Source = SourceUser
			}
		}
	}

	d.Arm = arms[d.Index]
	metrics.BanditSelections.WithLabelValues(d.Source).Inc()
	return d, nil
}

// Update folds an observed reward into the global and the user model.
// Each scope learns independently; a failure in one is logged and does
// not stop the other. Once enough updates accumulate the dirty models
// are flushed, with the engine mutex released during the writes.
func (h *Hierarchical) Update(ctx context.Context, userID string, contextVec []float64, arm string, reward float64) error {
	x := shapeContext(contextVec)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}

	if err := h.global.Update(x, arm, reward); err != nil {
		h.logger.Error().Err(err).Str("arm", arm).Msg("global model update failed")
	} else {
		h.dirtyGlobal = true
	}

	userModel, err := h.userModelLocked(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("user model unavailable for update")
	} else if uerr := userModel.Update(x, arm, reward); uerr != nil {
		h.logger.Error().Err(uerr).Str("user_id", userID).Str("arm", arm).Msg("user model update failed")
	} else {
		h.dirtyUsers[userID] = struct{}{}
	}

	metrics.BanditUpdates.Inc()

	h.updatesSinceFlush++
	flushDue := h.updatesSinceFlush >= h.cfg.FlushThreshold
	h.mu.Unlock()

	if flushDue {
		if ferr := h.Flush(ctx); ferr != nil && !errors.Is(ferr, ErrClosed) {
			h.logger.Error().Err(ferr).Msg("batched flush failed, models stay dirty")
		}
	}
	return nil
}

// flushTarget is a dirty model snapshotted for write-back. An empty
// userID marks the global model.
type flushTarget struct {
	modelID string
	userID  string
	model   *Model
	updates int
}

// Flush persists all dirty models. The dirty set is snapshotted under
// the engine mutex and the store writes run with it released, so
// concurrent selection and learning never wait on the store.
func (h *Hierarchical) Flush(ctx context.Context) error {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	targets, err := h.snapshotDirty()
	if err != nil {
		return err
	}
	return h.writeTargets(ctx, targets)
}

// snapshotDirty collects the dirty models and resets the flush
// counter. It does no I/O.
func (h *Hierarchical) snapshotDirty() ([]flushTarget, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	targets := make([]flushTarget, 0, len(h.dirtyUsers)+1)
	if h.dirtyGlobal {
		targets = append(targets, flushTarget{
			modelID: storage.GlobalModelID,
			model:   h.global,
			updates: h.global.UpdateCount(),
		})
	}
	for userID := range h.dirtyUsers {
		m, ok := h.users.peek(userID)
		if !ok {
			// Evicted since it was dirtied; eviction already persisted it.
			delete(h.dirtyUsers, userID)
			continue
		}
		targets = append(targets, flushTarget{
			modelID: storage.UserModelID(userID),
			userID:  userID,
			model:   m,
			updates: m.UpdateCount(),
		})
	}
	h.updatesSinceFlush = 0
	return targets, nil
}

// writeTargets persists snapshotted models without holding the engine
// mutex, then clears dirty flags for the writes that succeeded. A
// model updated again between snapshot and clear stays dirty.
func (h *Hierarchical) writeTargets(ctx context.Context, targets []flushTarget) error {
	if len(targets) == 0 {
		return nil
	}
	metrics.ModelFlushes.Inc()

	var errs []error
	written := make([]flushTarget, 0, len(targets))
	for _, t := range targets {
		if err := h.persistModel(ctx, t.modelID, t.model); err != nil {
			metrics.ModelFlushErrors.Inc()
			errs = append(errs, err)
			continue
		}
		written = append(written, t)
	}

	h.mu.Lock()
	for _, t := range written {
		if t.userID == "" {
			if h.global.UpdateCount() == t.updates {
				h.dirtyGlobal = false
			}
			continue
		}
		if m, ok := h.users.peek(t.userID); ok && m.UpdateCount() == t.updates {
			delete(h.dirtyUsers, t.userID)
		}
	}
	h.mu.Unlock()
	return errors.Join(errs...)
}

// WarmStartUser seeds a user model from onboarding selections. Every
// selection counts as a full-reward observation under the given
// context (neutral when nil). The model is persisted immediately.
func (h *Hierarchical) WarmStartUser(ctx context.Context, userID string, selections []recommend.Candidate, contextVec []float64) error {
	if len(selections) == 0 {
		return nil
	}
	if contextVec == nil {
		contextVec = NeutralContext()
	}

	decisions := make([]string, len(selections))
	rewards := make([]float64, len(selections))
	contexts := make([][]float64, len(selections))
	for i := range selections {
		decisions[i] = recommend.ArmFor(selections[i])
		rewards[i] = 1.0
		contexts[i] = contextVec
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}

	userModel, err := h.userModelLocked(ctx, userID)
	if err != nil {
		h.mu.Unlock()
		return fmt.Errorf("warm start user %s: %w", userID, err)
	}
	if err := userModel.WarmStart(decisions, rewards, contexts); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("warm start user %s: %w", userID, err)
	}
	h.dirtyUsers[userID] = struct{}{}
	seeded := userModel.UpdateCount()
	h.mu.Unlock()

	// Onboarding signal is too valuable to wait for the next flush; the
	// write runs outside the engine mutex.
	if err := h.persistModel(ctx, storage.UserModelID(userID), userModel); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("warm-started model not persisted, stays dirty")
	} else {
		h.mu.Lock()
		if m, ok := h.users.peek(userID); ok && m.UpdateCount() == seeded {
			delete(h.dirtyUsers, userID)
		}
		h.mu.Unlock()
	}

	metrics.BanditWarmStarts.Inc()
	h.logger.Info().
		Str("user_id", userID).
		Int("selections", len(selections)).
		Msg("user model warm-started")
	return nil
}

// Close drains any in-flight flush, marks the engine closed, and then
// persists the global model and every cached user model as a safety
// net. Once closed is set no model can change, so the writes run
// without the engine mutex. Close is idempotent; operations after
// Close return ErrClosed.
func (h *Hierarchical) Close() error {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true

	targets := make([]flushTarget, 0, h.users.len()+1)
	if h.dirtyGlobal {
		targets = append(targets, flushTarget{modelID: storage.GlobalModelID, model: h.global})
	}
	h.users.each(func(userID string, m *Model) {
		targets = append(targets, flushTarget{modelID: storage.UserModelID(userID), model: m})
	})
	h.dirtyUsers = make(map[string]struct{})
	h.dirtyGlobal = false
	h.updatesSinceFlush = 0
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	for _, t := range targets {
		if err := h.persistModel(ctx, t.modelID, t.model); err != nil {
			errs = append(errs, fmt.Errorf("persist %s on close: %w", t.modelID, err))
		}
	}

	h.logger.Info().Msg("bandit engine closed")
	return errors.Join(errs...)
}

// Stats reports engine state for the status endpoint.
func (h *Hierarchical) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		GlobalUpdates:     h.global.UpdateCount(),
		GlobalFitted:      h.global.Fitted(),
		CachedUserModels:  h.users.len(),
		DirtyUserModels:   len(h.dirtyUsers),
		UpdatesSinceFlush: h.updatesSinceFlush,
	}
}

// userModelLocked returns the cached model for a user, loading it from
// the store on a miss and creating a fresh one when none exists.
// Caller holds mu.
func (h *Hierarchical) userModelLocked(ctx context.Context, userID string) (*Model, error) {
	if m, ok := h.users.get(userID); ok {
		metrics.UserModelCacheHits.Inc()
		return m, nil
	}
	metrics.UserModelCacheMisses.Inc()

	m, err := h.loadModel(ctx, storage.UserModelID(userID))
	if err != nil {
		return nil, err
	}

	h.users.put(userID, m)
	metrics.UserModelCacheSize.Set(float64(h.users.len()))
	return m, nil
}

// loadModel fetches and decodes a model record. Missing or corrupted
// records yield a fresh model; store failures propagate.
func (h *Hierarchical) loadModel(ctx context.Context, modelID string) (*Model, error) {
	storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()

	rec, err := h.store.Get(storeCtx, modelID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.ModelLoads.WithLabelValues("created").Inc()
		return NewModel(nil, h.cfg.Alpha, ContextDim), nil
	case err != nil:
		return nil, err
	}

	m, err := DecodeModel(rec.Blob)
	if err != nil {
		metrics.ModelLoads.WithLabelValues("corrupted").Inc()
		h.logger.Warn().Err(err).Str("model_id", modelID).Msg("discarding corrupted model, starting fresh")
		return NewModel(nil, h.cfg.Alpha, ContextDim), nil
	}

	metrics.ModelLoads.WithLabelValues("loaded").Inc()
	return m, nil
}

// onUserEvict persists an evicted model synchronously so learned state
// survives cache pressure. Runs under mu via modelCache.put.
func (h *Hierarchical) onUserEvict(userID string, m *Model) {
	metrics.UserModelCacheEvictions.Inc()

	if err := h.persistModel(context.Background(), storage.UserModelID(userID), m); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("evicted user model not persisted")
		return
	}
	delete(h.dirtyUsers, userID)
}

// persistModel encodes and writes one model, retrying a failed write
// once before giving up.
func (h *Hierarchical) persistModel(ctx context.Context, modelID string, m *Model) error {
	blob, err := EncodeModel(m)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", modelID, err)
	}
	rec := &storage.Record{
		ModelID:     modelID,
		Blob:        blob,
		UpdateCount: m.UpdateCount(),
		UpdatedAt:   time.Now().UTC(),
	}

	for attempt := 0; attempt < 2; attempt++ {
		storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
		err = h.store.Put(storeCtx, rec)
		cancel()
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("persist model %s: %w", modelID, err)
}

func (h *Hierarchical) randIntn(n int) int {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return h.rng.Intn(n)
}

// Ensure interface compliance.
var _ recommend.Policy = (*Hierarchical)(nil)
