// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ModelStore used in tests and for
// ephemeral deployments where models do not need to survive restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get implements ModelStore.
func (s *MemoryStore) Get(ctx context.Context, modelID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[modelID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Blob = append([]byte(nil), rec.Blob...)
	return &cp, nil
}

// Put implements ModelStore.
func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *rec
	cp.Blob = append([]byte(nil), rec.Blob...)
	s.mu.Lock()
	s.records[rec.ModelID] = &cp
	s.mu.Unlock()
	return nil
}

// Close implements ModelStore.
func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
