// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

// Package bandit implements the contextual bandit engine behind
// recommendation ranking.
//
// The engine is hierarchical: one global LinUCB model learns from all
// users, and per-user models refine its predictions once a user has
// enough feedback history. User models live in a bounded LRU cache and
// are written back to the model store in batches, on eviction, and on
// shutdown.
//
// Each LinUCB arm is a content genre. The model maintains a per-arm
// design matrix A and reward vector b; the estimated weight vector
// theta = A^(-1) * b scores a context by its dot product theta' * x.
package bandit
