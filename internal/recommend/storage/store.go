// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package storage

import (
	"context"
	"errors"
	"time"
)

// Well-known model identifiers. Per-user models use UserModelID.
const (
	// GlobalModelID is the key of the shared global bandit model.
	GlobalModelID = "global"

	// userModelPrefix prefixes per-user model identifiers.
	userModelPrefix = "user_"
)

// UserModelID returns the store key for a user's bandit model.
func UserModelID(userID string) string {
	return userModelPrefix + userID
}

// ErrNotFound is returned by Get when no record exists for a model ID.
var ErrNotFound = errors.New("model not found")

// Record is a persisted bandit model.
//
// The blob is opaque to the store; the bandit package owns its encoding.
// UpdateCount and UpdatedAt are duplicated outside the blob so operational
// tooling can inspect model freshness without decoding it.
type Record struct {
	// ModelID is "global" or "user_<id>".
	ModelID string `json:"model_id"`

	// Blob is the serialized model state.
	Blob []byte `json:"blob"`

	// UpdateCount is the model's lifetime update counter at save time.
	UpdateCount int `json:"update_count"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// ModelStore persists bandit models across restarts.
//
// The store is the single source of truth; in-memory caches are a
// performance optimization only. Implementations must be safe for
// concurrent use.
type ModelStore interface {
	// Get loads a record by model ID, or ErrNotFound.
	Get(ctx context.Context, modelID string) (*Record, error)

	// Put creates or replaces the record for rec.ModelID.
	Put(ctx context.Context, rec *Record) error

	// Close releases store resources.
	Close() error
}
