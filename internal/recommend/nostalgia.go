// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import "math"

// Nostalgia scoring constants. The reminiscence bump peaks in early
// adolescence; see Janssen et al. on autobiographical memory.
const (
	// NostalgiaPeakAge is the age at which nostalgia for contemporaneous
	// content peaks.
	NostalgiaPeakAge = 13.0

	// NostalgiaWidth is the Gaussian width of the reminiscence bump.
	NostalgiaWidth = 8.0

	// PrebirthDecay is the exponential decay rate applied to content
	// released before the user was born.
	PrebirthDecay = 0.03
)

// AgeNostalgia scores how nostalgic content is for a user who was
// ageAtRelease years old when it came out.
//
// Non-negative ages follow a Gaussian centered on the reminiscence bump.
// Negative ages (pre-birth content) take the value at age zero and decay it
// exponentially with distance from birth.
func AgeNostalgia(ageAtRelease int) float64 {
	age := float64(ageAtRelease)
	if age >= 0 {
		d := age - NostalgiaPeakAge
		return math.Exp(-(d * d) / (2 * NostalgiaWidth * NostalgiaWidth))
	}
	birthScore := math.Exp(-(NostalgiaPeakAge * NostalgiaPeakAge) / (2 * NostalgiaWidth * NostalgiaWidth))
	return birthScore * math.Exp(-PrebirthDecay*math.Abs(age))
}

// PopularityScore converts a raw rating count into a log-scaled [0,1] score
// so mega-hits do not dominate. Non-positive inputs score zero.
func PopularityScore(count, maxCount float64) float64 {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	return math.Log1p(count) / math.Log1p(maxCount)
}

// Period is an explicit nostalgic period chosen by the user, overriding the
// birth-year-based reminiscence bump.
type Period struct {
	Start int
	End   int
}

// NostalgiaOptions tunes NostalgiaScore for different popularity scales.
type NostalgiaOptions struct {
	// UseLinear scales popularity as count/maxCount instead of log1p. Use
	// for sources that are already normalized, like Spotify's 0-100
	// popularity.
	UseLinear bool

	// TargetPeriod, when non-nil, centers the personal component on the
	// user's chosen period instead of their birth year.
	TargetPeriod *Period
}

// NostalgiaScore combines personal (lived) and cultural (inherited) nostalgia
// into a single [0,1] score, rounded to three decimals.
//
// Popularity boosts nostalgia but cannot create it: the personal component is
// scaled by (0.7 + 0.3*pop), and only pre-birth content earns a cultural
// term (pop * 0.4).
func NostalgiaScore(birthYear, releaseYear int, ratingCount, maxCount float64, opts NostalgiaOptions) float64 {
	var pop float64
	if opts.UseLinear {
		if maxCount > 0 {
			pop = math.Min(1.0, ratingCount/maxCount)
		}
	} else {
		pop = PopularityScore(ratingCount, maxCount)
	}

	var personal, cultural float64
	if p := opts.TargetPeriod; p != nil {
		mid := float64(p.Start+p.End) / 2
		dist := math.Abs(float64(releaseYear) - mid)
		sigma := math.Max(5.0, float64(p.End-p.Start)/2)
		personal = math.Exp(-(dist * dist) / (2 * sigma * sigma))
	} else {
		ageAtRelease := releaseYear - birthYear
		personal = AgeNostalgia(ageAtRelease)
		if ageAtRelease < 0 {
			cultural = pop * 0.4
		}
	}

	final := personal*(0.7+0.3*pop) + cultural
	final = math.Min(1.0, math.Max(0.0, final))
	return math.Round(final*1000) / 1000
}
