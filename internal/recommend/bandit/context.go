// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

// ContextDim is the fixed dimension of context feature vectors.
//
// Layout:
//
//	[0]     stress score (0-1)
//	[1:8]   emotion one-hot (anger, fear, joy, love, neutral, sadness, surprise)
//	[8]     historical positive feedback rate (0-1)
//	[9]     birth year, normalized as (year-2000)/40
//	[10:12] reserved padding
const ContextDim = 12

// emotionLabels lists the recognized emotions in one-hot order.
var emotionLabels = []string{"anger", "fear", "joy", "love", "neutral", "sadness", "surprise"}

// BuildContext assembles a context feature vector from user state.
// An unrecognized emotion leaves the one-hot block zero. A zero birth
// year is treated as unknown and encodes as 0 (the year 2000).
func BuildContext(stressScore float64, emotion string, positiveRate float64, birthYear int) []float64 {
	vec := make([]float64, ContextDim)
	vec[0] = stressScore

	for i, label := range emotionLabels {
		if emotion == label {
			vec[1+i] = 1.0
			break
		}
	}

	vec[8] = positiveRate

	if birthYear != 0 {
		vec[9] = float64(birthYear-2000) / 40.0
	}

	return vec
}

// NeutralContext returns the context used when no user state is
// available, such as warm-starting from onboarding selections:
// moderate stress, neutral emotion, everything else zero.
func NeutralContext() []float64 {
	vec := make([]float64, ContextDim)
	vec[0] = 0.3
	vec[5] = 1.0
	return vec
}

// shapeContext forces a vector to ContextDim by truncating or
// zero-padding. Callers may hand in vectors from older clients or
// stored histories with a different layout.
func shapeContext(vec []float64) []float64 {
	shaped := make([]float64, ContextDim)
	copy(shaped, vec)
	return shaped
}
