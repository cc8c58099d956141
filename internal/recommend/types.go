// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import "context"

// Domain identifies which content catalogue a candidate belongs to.
type Domain string

const (
	// DomainMovie is catalogue content from the movie recommender.
	DomainMovie Domain = "movie"

	// DomainSong is catalogue content from the song recommender.
	DomainSong Domain = "song"
)

// Valid reports whether the domain is one of the known catalogues.
func (d Domain) Valid() bool {
	return d == DomainMovie || d == DomainSong
}

// Candidate is one piece of content proposed by an upstream recommender.
//
// Candidate generation itself (collaborative filtering, vector similarity)
// happens outside this service; callers hand us the ranked list and we pick
// one entry with the bandit.
type Candidate struct {
	// Domain is the content catalogue (movie or song).
	Domain Domain `json:"type"`

	// ID is the catalogue identifier (MovieLens movieId, Spotify track ID).
	ID string `json:"id"`

	// Title is the movie title (movies only).
	Title string `json:"title,omitempty"`

	// Name is the track name (songs only).
	Name string `json:"name,omitempty"`

	// Artists is the comma-separated artist list (songs only).
	Artists string `json:"artists,omitempty"`

	// Genres is the pipe-delimited genre string (movies only).
	Genres string `json:"genres,omitempty"`

	// Genre is the single genre label (songs only).
	Genre string `json:"genre,omitempty"`

	// Year is the release year, 0 when unknown.
	Year int `json:"year,omitempty"`

	// RatingCount is the number of catalogue ratings (movies only).
	RatingCount float64 `json:"rating_count,omitempty"`

	// Popularity is the pre-normalized 0-100 popularity (songs only).
	Popularity float64 `json:"popularity,omitempty"`

	// NostalgiaScore is filled in by the selector before bandit scoring.
	NostalgiaScore float64 `json:"nostalgia_score"`

	// SimilarityScore is the upstream recommender's similarity to the
	// user's liked items. Used for within-arm re-ranking only.
	SimilarityScore float64 `json:"similarity_score"`
}

// DisplayName returns the human-readable name regardless of domain.
func (c Candidate) DisplayName() string {
	if c.Domain == DomainSong {
		return c.Name
	}
	return c.Title
}

// Policy selects one candidate given a context vector. Implemented by the
// hierarchical bandit; defined here so the selector does not depend on the
// bandit package directly.
type Policy interface {
	// Select returns the index of the chosen candidate and its score.
	Select(ctx context.Context, userID string, contextVec []float64, candidates []Candidate) (int, float64, error)
}
