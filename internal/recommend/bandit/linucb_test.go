// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import (
	"errors"
	"math"
	"testing"
)

func TestModelUnfittedSelect(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)

	if m.Fitted() {
		t.Fatal("new model reports fitted")
	}
	if _, _, ok := m.Select(NeutralContext(), []string{"pop", "rock"}); ok {
		t.Error("unfitted model produced a scored selection")
	}
	if m.PredictExpectations(NeutralContext()) != nil {
		t.Error("unfitted model produced expectations")
	}
}

func TestModelLearnsArmPreference(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)
	x := BuildContext(0.5, "joy", 0.5, 1990)

	// Reward "rock" heavily, "pop" never.
	for i := 0; i < 20; i++ {
		if err := m.Update(x, "rock", 1.0); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	if !m.Fitted() {
		t.Fatal("model not fitted after updates")
	}
	if got := m.UpdateCount(); got != 20 {
		t.Fatalf("update count = %d, want 20", got)
	}

	idx, score, ok := m.Select(x, []string{"pop", "rock", "country"})
	if !ok {
		t.Fatal("fitted model refused to select")
	}
	if idx != 1 {
		t.Errorf("selected index %d, want 1 (rock)", idx)
	}
	if score <= 0 || score > 1.5 {
		t.Errorf("score = %v, want a positive expectation", score)
	}
}

func TestModelSelectUnknownArmScore(t *testing.T) {
	m := NewModel([]string{"pop"}, 1.0, ContextDim)
	x := BuildContext(0.5, "joy", 0.5, 0)

	// Slightly negative signal for the known arm so the unknown arm's
	// fixed 0.5 wins.
	for i := 0; i < 5; i++ {
		if err := m.Update(x, "pop", 0.0); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	idx, score, ok := m.Select(x, []string{"pop", "jazz"})
	if !ok {
		t.Fatal("fitted model refused to select")
	}
	if idx != 1 {
		t.Errorf("selected index %d, want 1 (unknown arm)", idx)
	}
	if score != unknownArmScore {
		t.Errorf("score = %v, want %v", score, unknownArmScore)
	}
}

func TestModelUpdateUnknownArm(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)
	err := m.Update(NeutralContext(), "polka", 1.0)
	if !errors.Is(err, ErrUnknownArm) {
		t.Fatalf("err = %v, want ErrUnknownArm", err)
	}
	if m.Fitted() || m.UpdateCount() != 0 {
		t.Error("rejected update mutated model state")
	}
}

func TestModelWarmStart(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)
	x := NeutralContext()

	// Prior state that the warm start must discard.
	for i := 0; i < 7; i++ {
		if err := m.Update(x, "pop", 0.0); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	decisions := []string{"rock", "rock", "rock"}
	rewards := []float64{1, 1, 1}
	contexts := [][]float64{x, x, x}
	if err := m.WarmStart(decisions, rewards, contexts); err != nil {
		t.Fatalf("warm start: %v", err)
	}

	if got := m.UpdateCount(); got != 3 {
		t.Errorf("update count = %d, want batch length 3", got)
	}
	idx, _, ok := m.Select(x, []string{"pop", "rock"})
	if !ok || idx != 1 {
		t.Errorf("post-warm-start selection = (%d, %v), want rock", idx, ok)
	}
}

func TestModelWarmStartValidation(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)
	x := NeutralContext()

	if err := m.WarmStart(nil, nil, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
	if err := m.WarmStart([]string{"pop"}, []float64{1, 1}, [][]float64{x}); err == nil {
		t.Error("mismatched batch lengths accepted")
	}
	if err := m.WarmStart([]string{"polka"}, []float64{1}, [][]float64{x}); !errors.Is(err, ErrUnknownArm) {
		t.Errorf("err = %v, want ErrUnknownArm", err)
	}
}

func TestInvertMatrix(t *testing.T) {
	// Inverting the identity returns the identity.
	inv := invertMatrix(identityMatrix(4))
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(inv[i][j]-want) > 1e-9 {
				t.Fatalf("identity inverse [%d][%d] = %v, want %v", i, j, inv[i][j], want)
			}
		}
	}

	// Known 2x2 inverse: [[4,7],[2,6]]^-1 = [[0.6,-0.7],[-0.2,0.4]].
	inv = invertMatrix([][]float64{{4, 7}, {2, 6}})
	want := [][]float64{{0.6, -0.7}, {-0.2, 0.4}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(inv[i][j]-want[i][j]) > 1e-9 {
				t.Errorf("inverse[%d][%d] = %v, want %v", i, j, inv[i][j], want[i][j])
			}
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := NewModel(nil, 1.3, ContextDim)
	x := BuildContext(0.7, "sadness", 0.4, 1985)
	for i := 0; i < 15; i++ {
		if err := m.Update(x, "drama", 0.8); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	blob, err := EncodeModel(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored, err := DecodeModel(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if restored.UpdateCount() != m.UpdateCount() || restored.Fitted() != m.Fitted() {
		t.Errorf("metadata mismatch: got (%d, %v), want (%d, %v)",
			restored.UpdateCount(), restored.Fitted(), m.UpdateCount(), m.Fitted())
	}

	// Predictions must survive the round trip bit-for-bit.
	wantScores := m.PredictExpectations(x)
	gotScores := restored.PredictExpectations(x)
	for arm, want := range wantScores {
		if got := gotScores[arm]; got != want {
			t.Errorf("arm %q expectation = %v, want %v", arm, got, want)
		}
	}
}

func TestDecodeModelCorrupted(t *testing.T) {
	if _, err := DecodeModel([]byte("not a gob stream")); !errors.Is(err, ErrModelCorrupted) {
		t.Errorf("garbage blob: err = %v, want ErrModelCorrupted", err)
	}
	if _, err := DecodeModel(nil); !errors.Is(err, ErrModelCorrupted) {
		t.Errorf("empty blob: err = %v, want ErrModelCorrupted", err)
	}
}

func TestDecodeModelTrailingBytes(t *testing.T) {
	m := NewModel(nil, 1.0, ContextDim)
	if err := m.Update(NeutralContext(), "pop", 1.0); err != nil {
		t.Fatalf("update: %v", err)
	}
	blob, err := EncodeModel(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	restored, err := DecodeModel(append(blob, 0xde, 0xad, 0xbe, 0xef))
	if err != nil {
		t.Fatalf("decode with trailing bytes: %v", err)
	}
	if restored.UpdateCount() != 1 {
		t.Errorf("update count = %d, want 1", restored.UpdateCount())
	}
}
