// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reminisce/internal/metrics"
)

// keyPrefix namespaces model records within the Badger keyspace.
var keyPrefix = []byte("model:")

// BadgerStore is a ModelStore backed by an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "model_store").Logger(),
	}, nil
}

func modelKey(modelID string) []byte {
	return append(append([]byte(nil), keyPrefix...), modelID...)
}

// Get implements ModelStore.
func (s *BadgerStore) Get(ctx context.Context, modelID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(modelKey(modelID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
		})
	})
	metrics.ObserveModelStore("get", time.Since(start))

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("load model %s: %w", modelID, err)
	}
	return &rec, nil
}

// Put implements ModelStore.
func (s *BadgerStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode model %s: %w", rec.ModelID, err)
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(modelKey(rec.ModelID), buf.Bytes())
	})
	metrics.ObserveModelStore("put", time.Since(start))

	if err != nil {
		return fmt.Errorf("save model %s: %w", rec.ModelID, err)
	}
	return nil
}

// Close implements ModelStore.
func (s *BadgerStore) Close() error {
	s.logger.Debug().Msg("closing model store")
	return s.db.Close()
}
