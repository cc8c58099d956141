// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import "strings"

// Arm buckets. Genre implicitly identifies the content domain: movie arms
// and song arms never overlap, so a single bandit can learn over the union.
const (
	ArmOtherMovie = "other_movie"
	ArmOtherSong  = "other_song"
)

// MovieArms lists the six movie genre buckets in canonical order.
func MovieArms() []string {
	return []string{"drama", "comedy", "action", "romance", "thriller", ArmOtherMovie}
}

// SongArms lists the six song genre buckets in canonical order.
func SongArms() []string {
	return []string{"pop", "rock", "hiphop", "rnb", "country", ArmOtherSong}
}

// DefaultArms returns the full arm vocabulary (movie arms followed by song
// arms, 12 total).
func DefaultArms() []string {
	return append(MovieArms(), SongArms()...)
}

// movieGenreMap collapses raw catalogue genres into the five named movie
// buckets. Anything absent maps to other_movie.
var movieGenreMap = map[string]string{
	"drama":           "drama",
	"comedy":          "comedy",
	"action":          "action",
	"adventure":       "action",
	"romance":         "romance",
	"thriller":        "thriller",
	"horror":          "thriller",
	"crime":           "thriller",
	"sci-fi":          "action",
	"science fiction": "action",
	"animation":       "comedy",
	"family":          "comedy",
	"fantasy":         "action",
	"mystery":         "thriller",
	"war":             "drama",
	"western":         "action",
	"documentary":     ArmOtherMovie,
	"musical":         "comedy",
	"history":         "drama",
}

// songGenreMap collapses raw catalogue genres into the five named song
// buckets. Anything absent maps to other_song.
var songGenreMap = map[string]string{
	"pop":         "pop",
	"rock":        "rock",
	"alternative": "rock",
	"indie":       "rock",
	"hip hop":     "hiphop",
	"hip-hop":     "hiphop",
	"rap":         "hiphop",
	"r&b":         "rnb",
	"rnb":         "rnb",
	"soul":        "rnb",
	"country":     "country",
	"folk":        "country",
	"blues":       "rnb",
	"electronic":  "pop",
	"dance":       "pop",
	"edm":         "pop",
	"jazz":        ArmOtherSong,
	"classical":   ArmOtherSong,
	"metal":       "rock",
	"punk":        "rock",
	"reggae":      ArmOtherSong,
	"latin":       "pop",
}

// NormalizeMovieGenre maps a raw movie genre string to one of the six movie
// arms. Pipe-delimited lists use the first entry; empty input, unknown
// genres, and whitespace all map to other_movie. The mapping is total: every
// input normalizes to some arm.
func NormalizeMovieGenre(raw string) string {
	if raw == "" {
		return ArmOtherMovie
	}
	first, _, _ := strings.Cut(raw, "|")
	first = strings.ToLower(strings.TrimSpace(first))
	if arm, ok := movieGenreMap[first]; ok {
		return arm
	}
	return ArmOtherMovie
}

// NormalizeSongGenre maps a raw song genre string to one of the six song
// arms. Empty or unknown input maps to other_song.
func NormalizeSongGenre(raw string) string {
	if raw == "" {
		return ArmOtherSong
	}
	genre := strings.ToLower(strings.TrimSpace(raw))
	if arm, ok := songGenreMap[genre]; ok {
		return arm
	}
	return ArmOtherSong
}

// ArmFor maps a candidate to its bandit arm via the domain-specific genre
// tables. Candidates with an unrecognized domain are treated as movies, which
// keeps the mapping total.
func ArmFor(c Candidate) string {
	if c.Domain == DomainSong {
		return NormalizeSongGenre(c.Genre)
	}
	return NormalizeMovieGenre(c.Genres)
}
