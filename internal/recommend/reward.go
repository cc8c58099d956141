// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

// InteractionType classifies how the user reacted to a recommendation.
type InteractionType string

const (
	// InteractionView is a bare impression. Not a learning signal.
	InteractionView InteractionType = "view"

	// InteractionClick means the user opened the recommendation.
	InteractionClick InteractionType = "click"

	// InteractionSkip means the user dismissed it immediately.
	InteractionSkip InteractionType = "skip"

	// InteractionNext means the user moved on after looking at it.
	InteractionNext InteractionType = "next"

	// InteractionReplay means the user came back to it.
	InteractionReplay InteractionType = "replay"
)

// lingerSeconds is the dwell time above which a "next" counts as mild
// interest rather than indifference.
const lingerSeconds = 30

// CalculateReward converts an interaction into a bandit reward.
//
// The reward hierarchy, strongest signal first:
//
//  1. An explicit "brings back memories" answer overrides everything
//     (yes = 1.0, no = 0.0).
//  2. Replay = 1.0, click = 0.8.
//  3. "next" after lingering more than 30 seconds = 0.6, but only when the
//     user has not already voted explicitly (avoids double counting).
//  4. Skip = 0.0.
//
// The second return is false when the interaction carries no learning signal
// at all (views, short "next" events, unknown types); the caller must not
// update the bandit in that case.
func CalculateReward(interaction InteractionType, bringsBackMemories *bool, durationSeconds int, feedbackSubmitted bool) (float64, bool) {
	if bringsBackMemories != nil {
		if *bringsBackMemories {
			return 1.0, true
		}
		return 0.0, true
	}

	switch interaction {
	case InteractionReplay:
		return 1.0, true
	case InteractionClick:
		return 0.8, true
	case InteractionNext:
		if durationSeconds > lingerSeconds && !feedbackSubmitted {
			return 0.6, true
		}
		return 0, false
	case InteractionSkip:
		return 0.0, true
	default:
		return 0, false
	}
}
