// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestCalculateReward(t *testing.T) {
	tests := []struct {
		name               string
		interaction        InteractionType
		bringsBackMemories *bool
		duration           int
		feedbackSubmitted  bool
		wantReward         float64
		wantSignal         bool
	}{
		{
			name:               "explicit yes overrides everything",
			interaction:        InteractionSkip,
			bringsBackMemories: boolPtr(true),
			wantReward:         1.0,
			wantSignal:         true,
		},
		{
			name:               "explicit no overrides everything",
			interaction:        InteractionReplay,
			bringsBackMemories: boolPtr(false),
			wantReward:         0.0,
			wantSignal:         true,
		},
		{
			name:        "replay is full reward",
			interaction: InteractionReplay,
			wantReward:  1.0,
			wantSignal:  true,
		},
		{
			name:        "click is strong positive",
			interaction: InteractionClick,
			wantReward:  0.8,
			wantSignal:  true,
		},
		{
			name:        "next after lingering",
			interaction: InteractionNext,
			duration:    45,
			wantReward:  0.6,
			wantSignal:  true,
		},
		{
			name:        "quick next is no signal",
			interaction: InteractionNext,
			duration:    10,
			wantSignal:  false,
		},
		{
			name:        "boundary dwell is no signal",
			interaction: InteractionNext,
			duration:    30,
			wantSignal:  false,
		},
		{
			name:              "next after explicit vote ignored",
			interaction:       InteractionNext,
			duration:          120,
			feedbackSubmitted: true,
			wantSignal:        false,
		},
		{
			name:        "skip is explicit negative",
			interaction: InteractionSkip,
			wantReward:  0.0,
			wantSignal:  true,
		},
		{
			name:        "view is no signal",
			interaction: InteractionView,
			wantSignal:  false,
		},
		{
			name:        "unknown interaction is no signal",
			interaction: "hover",
			wantSignal:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reward, ok := CalculateReward(tt.interaction, tt.bringsBackMemories, tt.duration, tt.feedbackSubmitted)
			if ok != tt.wantSignal {
				t.Fatalf("signal = %v, want %v", ok, tt.wantSignal)
			}
			if ok && reward != tt.wantReward {
				t.Errorf("reward = %v, want %v", reward, tt.wantReward)
			}
		})
	}
}
