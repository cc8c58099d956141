// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reminisce/internal/recommend"
	"github.com/tomtom215/reminisce/internal/recommend/storage"
)

func songCandidate(genre string) recommend.Candidate {
	return recommend.Candidate{Domain: recommend.DomainSong, ID: "s-" + genre, Genre: genre}
}

func newTestEngine(t *testing.T, cfg Config, store storage.ModelStore) *Hierarchical {
	t.Helper()
	h, err := New(cfg, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return h
}

func seedUserModel(t *testing.T, store storage.ModelStore, userID, arm string, updates int, reward float64) {
	t.Helper()
	m := NewModel(nil, 1.0, ContextDim)
	x := BuildContext(0.5, "joy", 0.5, 1990)
	for i := 0; i < updates; i++ {
		if err := m.Update(x, arm, reward); err != nil {
			t.Fatalf("seed update: %v", err)
		}
	}
	blob, err := EncodeModel(m)
	if err != nil {
		t.Fatalf("seed encode: %v", err)
	}
	rec := &storage.Record{ModelID: storage.UserModelID(userID), Blob: blob, UpdateCount: updates}
	if err := store.Put(context.Background(), rec); err != nil {
		t.Fatalf("seed put: %v", err)
	}
}

func TestSelectNoCandidates(t *testing.T) {
	h := newTestEngine(t, Config{Seed: 1}, storage.NewMemoryStore())
	_, err := h.SelectDetailed(context.Background(), "u", NeutralContext(), nil)
	if !errors.Is(err, recommend.ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
}

func TestColdStartUniformRandom(t *testing.T) {
	h := newTestEngine(t, Config{Seed: 42}, storage.NewMemoryStore())

	candidates := []recommend.Candidate{
		songCandidate("pop"),
		songCandidate("rock"),
		songCandidate("hiphop"),
		songCandidate("rnb"),
		songCandidate("country"),
	}

	const draws = 1000
	counts := make([]int, len(candidates))
	for i := 0; i < draws; i++ {
		d, err := h.SelectDetailed(context.Background(), "u", NeutralContext(), candidates)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if d.Source != SourceRandom {
			t.Fatalf("source = %q, want random before any update", d.Source)
		}
		if d.Score != 0.5 {
			t.Fatalf("score = %v, want 0.5 for random pick", d.Score)
		}
		counts[d.Index]++
	}

	// Expect roughly uniform: 200 per candidate, generous tolerance.
	for i, n := range counts {
		if n < 130 || n > 270 {
			t.Errorf("candidate %d picked %d times of %d, outside uniform tolerance", i, n, draws)
		}
	}
}

func TestUpdateTriggersFlush(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{FlushThreshold: 3, Seed: 1}, store)

	x := NeutralContext()
	for i := 0; i < 3; i++ {
		if err := h.Update(context.Background(), "alice", x, "pop", 1.0); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	if store.Len() != 2 {
		t.Fatalf("store has %d records after flush, want global + user", store.Len())
	}
	if _, err := store.Get(context.Background(), storage.GlobalModelID); err != nil {
		t.Errorf("global model not flushed: %v", err)
	}
	if _, err := store.Get(context.Background(), storage.UserModelID("alice")); err != nil {
		t.Errorf("user model not flushed: %v", err)
	}

	stats := h.Stats()
	if stats.UpdatesSinceFlush != 0 {
		t.Errorf("updates since flush = %d, want 0 after flush", stats.UpdatesSinceFlush)
	}
	if stats.DirtyUserModels != 0 {
		t.Errorf("dirty users = %d, want 0 after flush", stats.DirtyUserModels)
	}
}

func TestBlendPrefersStrongUserModel(t *testing.T) {
	store := storage.NewMemoryStore()
	seedUserModel(t, store, "bob", "rock", 50, 1.0)

	h := newTestEngine(t, Config{Seed: 1}, store)

	// One weak global observation so the global model is fitted but
	// unconvinced.
	x := BuildContext(0.5, "joy", 0.5, 1990)
	if err := h.Update(context.Background(), "seed-user", x, "pop", 0.1); err != nil {
		t.Fatalf("global seed update: %v", err)
	}

	candidates := []recommend.Candidate{songCandidate("pop"), songCandidate("rock")}
	d, err := h.SelectDetailed(context.Background(), "bob", x, candidates)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if d.Source != SourceUser {
		t.Errorf("source = %q, want user", d.Source)
	}
	if d.Index != 1 || d.Arm != "rock" {
		t.Errorf("picked (%d, %s), want rock via user model", d.Index, d.Arm)
	}
}

func TestBlendGateRequiresHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	// Strong preference, but below the minimum update gate.
	seedUserModel(t, store, "carol", "rock", 5, 1.0)

	h := newTestEngine(t, Config{MinUserUpdates: 10, Seed: 1}, store)

	x := BuildContext(0.5, "joy", 0.5, 1990)
	if err := h.Update(context.Background(), "seed-user", x, "pop", 0.9); err != nil {
		t.Fatalf("global seed update: %v", err)
	}

	candidates := []recommend.Candidate{songCandidate("pop"), songCandidate("rock")}
	d, err := h.SelectDetailed(context.Background(), "carol", x, candidates)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if d.Source != SourceGlobal {
		t.Errorf("source = %q, want global when user history below gate", d.Source)
	}
}

func TestEvictionPersistsModel(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{CacheSize: 1, FlushThreshold: 100, Seed: 1}, store)

	x := NeutralContext()
	if err := h.Update(context.Background(), "u1", x, "pop", 1.0); err != nil {
		t.Fatalf("update u1: %v", err)
	}
	// Loading u2 evicts u1, which must persist it despite no flush yet.
	if err := h.Update(context.Background(), "u2", x, "rock", 1.0); err != nil {
		t.Fatalf("update u2: %v", err)
	}

	rec, err := store.Get(context.Background(), storage.UserModelID("u1"))
	if err != nil {
		t.Fatalf("evicted model missing from store: %v", err)
	}
	restored, err := DecodeModel(rec.Blob)
	if err != nil {
		t.Fatalf("decode evicted model: %v", err)
	}
	if restored.UpdateCount() != 1 {
		t.Errorf("evicted model update count = %d, want 1", restored.UpdateCount())
	}

	if h.Stats().CachedUserModels != 1 {
		t.Errorf("cached models = %d, want 1", h.Stats().CachedUserModels)
	}
}

func TestWarmStartPersistsImmediately(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{FlushThreshold: 100, Seed: 1}, store)

	selections := make([]recommend.Candidate, 12)
	for i := range selections {
		selections[i] = songCandidate("rock")
	}
	if err := h.WarmStartUser(context.Background(), "dave", selections, nil); err != nil {
		t.Fatalf("warm start: %v", err)
	}

	rec, err := store.Get(context.Background(), storage.UserModelID("dave"))
	if err != nil {
		t.Fatalf("warm-started model not in store: %v", err)
	}
	restored, err := DecodeModel(rec.Blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if restored.UpdateCount() != len(selections) {
		t.Errorf("update count = %d, want %d", restored.UpdateCount(), len(selections))
	}
	if h.Stats().DirtyUserModels != 0 {
		t.Error("warm-started model left dirty after immediate persist")
	}
}

func TestWarmStartEmptySelections(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{Seed: 1}, store)

	if err := h.WarmStartUser(context.Background(), "erin", nil, nil); err != nil {
		t.Fatalf("empty warm start: %v", err)
	}
	if store.Len() != 0 {
		t.Error("empty warm start wrote to the store")
	}
}

func TestCloseFlushesAndRejectsFurtherUse(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{FlushThreshold: 100, Seed: 1}, store)

	x := NeutralContext()
	for _, user := range []string{"u1", "u2"} {
		if err := h.Update(context.Background(), user, x, "pop", 1.0); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("store has %d records after close, want global + 2 users", store.Len())
	}

	if err := h.Close(); err != nil {
		t.Errorf("second close returned %v, want nil", err)
	}

	if _, err := h.SelectDetailed(context.Background(), "u1", x, []recommend.Candidate{songCandidate("pop")}); !errors.Is(err, ErrClosed) {
		t.Errorf("select after close: err = %v, want ErrClosed", err)
	}
	if err := h.Update(context.Background(), "u1", x, "pop", 1.0); !errors.Is(err, ErrClosed) {
		t.Errorf("update after close: err = %v, want ErrClosed", err)
	}
	if err := h.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("flush after close: err = %v, want ErrClosed", err)
	}
}

func TestCorruptedUserModelStartsFresh(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := &storage.Record{ModelID: storage.UserModelID("frank"), Blob: []byte("rotten")}
	if err := store.Put(context.Background(), rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	h := newTestEngine(t, Config{Seed: 1}, store)
	if err := h.Update(context.Background(), "frank", NeutralContext(), "pop", 1.0); err != nil {
		t.Fatalf("update over corrupted model: %v", err)
	}
}

// slowStore parks every Put until released, simulating a stalled
// backend.
type slowStore struct {
	*storage.MemoryStore
	entered chan struct{} // closed when the first Put starts
	release chan struct{}
	once    sync.Once
}

func newSlowStore() *slowStore {
	return &slowStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *slowStore) Put(ctx context.Context, rec *storage.Record) error {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.MemoryStore.Put(ctx, rec)
}

func TestFlushDoesNotBlockSelection(t *testing.T) {
	store := newSlowStore()
	h := newTestEngine(t, Config{FlushThreshold: 1, Seed: 1}, store)

	x := NeutralContext()
	updateDone := make(chan error, 1)
	go func() {
		updateDone <- h.Update(context.Background(), "u1", x, "pop", 1.0)
	}()

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("flush never reached the store")
	}

	// The flush is parked inside a store write; selection must not
	// queue behind it.
	selected := make(chan error, 1)
	go func() {
		_, err := h.SelectDetailed(context.Background(), "u1", x, []recommend.Candidate{songCandidate("pop")})
		selected <- err
	}()
	select {
	case err := <-selected:
		if err != nil {
			t.Fatalf("select during flush: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("selection blocked behind an in-flight store write")
	}

	close(store.release)
	if err := <-updateDone; err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestRedirtiedModelStaysDirtyAfterFlush(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{FlushThreshold: 100, Seed: 1}, store)

	x := NeutralContext()
	if err := h.Update(context.Background(), "u1", x, "pop", 1.0); err != nil {
		t.Fatalf("update: %v", err)
	}

	targets, err := h.snapshotDirty()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Another reward lands between snapshot and write-back.
	if err := h.Update(context.Background(), "u1", x, "pop", 1.0); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := h.writeTargets(context.Background(), targets); err != nil {
		t.Fatalf("write-back: %v", err)
	}

	if got := h.Stats().DirtyUserModels; got != 1 {
		t.Errorf("dirty users = %d, want 1 for model updated during write-back", got)
	}
	if !h.dirtyGlobal {
		t.Error("global model updated during write-back was marked clean")
	}
}

func TestUpdateUnknownArmIsContained(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestEngine(t, Config{Seed: 1}, store)

	x := NeutralContext()
	if err := h.Update(context.Background(), "u1", x, "polka", 1.0); err != nil {
		t.Fatalf("unknown-arm update returned %v, want nil", err)
	}
	if got := h.Stats().GlobalUpdates; got != 0 {
		t.Errorf("global updates = %d, want 0 after unknown-arm update", got)
	}

	// Learning continues normally afterwards.
	if err := h.Update(context.Background(), "u1", x, "pop", 1.0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := h.Stats().GlobalUpdates; got != 1 {
		t.Errorf("global updates = %d, want 1", got)
	}
}

// failingStore errors on per-user Gets to simulate a degraded backend.
type failingStore struct {
	*storage.MemoryStore
}

func (s *failingStore) Get(ctx context.Context, modelID string) (*storage.Record, error) {
	if modelID != storage.GlobalModelID {
		return nil, fmt.Errorf("backend down")
	}
	return s.MemoryStore.Get(ctx, modelID)
}

func TestSelectDegradesWhenStoreFails(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	h := newTestEngine(t, Config{Seed: 1}, store)

	x := BuildContext(0.5, "joy", 0.5, 1990)
	// Global still learns even though the user model cannot load.
	if err := h.Update(context.Background(), "gina", x, "pop", 1.0); err != nil {
		t.Fatalf("update: %v", err)
	}

	d, err := h.SelectDetailed(context.Background(), "gina", x, []recommend.Candidate{songCandidate("pop"), songCandidate("rock")})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if d.Source != SourceGlobal {
		t.Errorf("source = %q, want global-only degradation", d.Source)
	}
	if d.Arm != "pop" {
		t.Errorf("arm = %q, want pop", d.Arm)
	}
}
