// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// SelectorConfig tunes candidate preparation and within-arm re-ranking.
type SelectorConfig struct {
	// MinNostalgiaScore filters candidates below this nostalgia threshold.
	// If the filter would remove everything, the unfiltered list is kept
	// (upstream recommenders already enforce a minimum content age).
	MinNostalgiaScore float64

	// MaxMovieRatings is the rating-count ceiling used to normalize movie
	// popularity.
	MaxMovieRatings float64

	// MaxSongPopularity is the ceiling for Spotify's 0-100 popularity.
	MaxSongPopularity float64

	// TopN is the within-arm pool size: after the bandit picks an arm, the
	// returned item is drawn uniformly from the TopN highest-similarity
	// candidates in that arm.
	TopN int

	// Seed fixes the random source for reproducible tests. 0 uses a
	// default seed.
	Seed int64
}

// DefaultSelectorConfig returns production defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MinNostalgiaScore: 0.3,
		MaxMovieRatings:   100000,
		MaxSongPopularity: 100,
		TopN:              5,
	}
}

// Selection is the outcome of one pick.
type Selection struct {
	// Candidate is the chosen item.
	Candidate Candidate

	// Arm is the genre bucket the bandit chose.
	Arm string

	// Score is the bandit's score for the chosen arm (0.5 when the pick
	// was random).
	Score float64
}

// Selector prepares a candidate list and applies the bandit's arm-level
// decision to it. It is safe for concurrent use.
type Selector struct {
	policy Policy
	cfg    SelectorConfig
	logger zerolog.Logger

	// rng injects controlled diversity; guarded because selections run
	// concurrently.
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewSelector creates a selector over the given policy.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSelector(policy Policy, cfg SelectorConfig, logger zerolog.Logger) *Selector {
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.MaxMovieRatings <= 0 {
		cfg.MaxMovieRatings = 100000
	}
	if cfg.MaxSongPopularity <= 0 {
		cfg.MaxSongPopularity = 100
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	return &Selector{
		policy: policy,
		cfg:    cfg,
		logger: logger.With().Str("component", "selector").Logger(),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for candidate shuffling
	}
}

// Annotate fills each candidate's NostalgiaScore from the user's birth year
// (or explicit target period). Candidates without a release year score zero.
func (s *Selector) Annotate(candidates []Candidate, birthYear int, period *Period) {
	for i := range candidates {
		c := &candidates[i]
		if c.Year == 0 {
			c.NostalgiaScore = 0
			continue
		}
		if c.Domain == DomainSong {
			c.NostalgiaScore = NostalgiaScore(birthYear, c.Year, c.Popularity, s.cfg.MaxSongPopularity, NostalgiaOptions{
				UseLinear:    true,
				TargetPeriod: period,
			})
		} else {
			c.NostalgiaScore = NostalgiaScore(birthYear, c.Year, c.RatingCount, s.cfg.MaxMovieRatings, NostalgiaOptions{
				TargetPeriod: period,
			})
		}
	}
}

// FilterSeen removes candidates whose IDs appear in seen.
func FilterSeen(candidates []Candidate, seen map[string]struct{}) []Candidate {
	if len(seen) == 0 {
		return candidates
	}
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}

// Pick runs the full selection pipeline: nostalgia filter, shuffle, bandit
// arm choice, then within-arm re-ranking.
func (s *Selector) Pick(ctx context.Context, userID string, contextVec []float64, candidates []Candidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	pool := s.filterNostalgic(candidates)
	s.shuffle(pool)

	idx, score, err := s.policy.Select(ctx, userID, contextVec, pool)
	if err != nil {
		return nil, err
	}

	arm := ArmFor(pool[idx])
	chosen := s.pickWithinArm(pool, idx, arm)

	s.logger.Debug().
		Str("user_id", userID).
		Str("arm", arm).
		Float64("score", score).
		Float64("nostalgia", chosen.NostalgiaScore).
		Str("content_id", chosen.ID).
		Msg("candidate selected")

	return &Selection{Candidate: chosen, Arm: arm, Score: score}, nil
}

// PickRandom returns a uniformly random candidate with a neutral score.
// Used for the control experiment group, which must not learn.
func (s *Selector) PickRandom(candidates []Candidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	s.rngMu.Lock()
	idx := s.rng.Intn(len(candidates))
	s.rngMu.Unlock()

	c := candidates[idx]
	return &Selection{Candidate: c, Arm: ArmFor(c), Score: 0.5}, nil
}

// filterNostalgic keeps candidates at or above the nostalgia threshold,
// falling back to the full list when the filter would remove everything.
func (s *Selector) filterNostalgic(candidates []Candidate) []Candidate {
	if s.cfg.MinNostalgiaScore <= 0 {
		return candidates
	}
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.NostalgiaScore >= s.cfg.MinNostalgiaScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		s.logger.Debug().
			Int("candidates", len(candidates)).
			Msg("no candidates above nostalgia threshold, keeping all")
		return candidates
	}
	return kept
}

// shuffle randomizes candidate order to avoid positional bias (e.g. favoring
// movies because the movie recommender runs first).
func (s *Selector) shuffle(candidates []Candidate) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
}

// pickWithinArm applies the within-arm re-ranking contract: candidates
// sharing the chosen arm are sorted by similarity descending, and the result
// is drawn uniformly from the top N. This keeps the arm-level learning signal
// intact while avoiding always surfacing the same highest-similarity item.
func (s *Selector) pickWithinArm(candidates []Candidate, selectedIdx int, arm string) Candidate {
	armMates := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if ArmFor(c) == arm {
			armMates = append(armMates, c)
		}
	}
	if len(armMates) <= 1 {
		return candidates[selectedIdx]
	}

	sort.SliceStable(armMates, func(i, j int) bool {
		return armMates[i].SimilarityScore > armMates[j].SimilarityScore
	})
	n := s.cfg.TopN
	if len(armMates) < n {
		n = len(armMates)
	}

	s.rngMu.Lock()
	idx := s.rng.Intn(n)
	s.rngMu.Unlock()

	return armMates[idx]
}
