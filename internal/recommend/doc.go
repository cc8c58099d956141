// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

// Package recommend contains the domain types and pure scoring functions of
// the recommendation pipeline: candidates, genre-to-arm normalization,
// nostalgia scoring, reward shaping, and the selector that applies the
// bandit's arm-level decision to a candidate list.
//
// # Pipeline
//
// A selection request flows through:
//
//  1. Upstream recommenders (external) produce candidates with similarity
//     scores.
//  2. Selector.Annotate computes a nostalgia score per candidate from the
//     user's birth year or explicit target period.
//  3. Selector.Pick filters weakly nostalgic candidates, shuffles to remove
//     positional bias, asks the bandit Policy for an arm-level decision,
//     and re-ranks within the chosen arm (uniform pick among the top 5 by
//     similarity) for controlled diversity.
//
// After the user reacts, CalculateReward converts the interaction into a
// reward in [0,1], or reports that the interaction carries no signal.
//
// # Arms
//
// The bandit does not learn per item; it learns per genre bucket. Each
// domain has six buckets (five named genres plus an explicit "other"), and
// the two domains' vocabularies are disjoint, so one arm set covers both.
// The mapping tables are deterministic and total: every input, including the
// empty string, maps to some arm.
//
// # Nostalgia model
//
// NostalgiaScore combines a personal component (a Gaussian reminiscence bump
// peaking at age 13) with a cultural component (a popularity-scaled boost
// for pre-birth content). Popularity boosts nostalgia but cannot create it.
//
// The bandit implementation itself lives in the bandit subpackage; model
// persistence lives in the storage subpackage.
package recommend
