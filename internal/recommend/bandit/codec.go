// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

// ErrModelCorrupted is returned when a persisted model blob cannot be
// decoded or fails structural validation. Callers treat a corrupted
// model as absent and start fresh.
var ErrModelCorrupted = errors.New("model blob corrupted")

// modelState is the gob wire form of a Model.
type modelState struct {
	Arms     []string
	Alpha    float64
	Dim      int
	Fitted   bool
	NUpdates int
	A        map[string][][]float64
	B        map[string][]float64
}

// EncodeModel serializes a model for persistence.
func EncodeModel(m *Model) ([]byte, error) {
	m.mu.RLock()
	state := modelState{
		Arms:     append([]string(nil), m.arms...),
		Alpha:    m.alpha,
		Dim:      m.dim,
		Fitted:   m.fitted,
		NUpdates: m.nUpdates,
		A:        make(map[string][][]float64, len(m.arms)),
		B:        make(map[string][]float64, len(m.arms)),
	}
	for _, arm := range m.arms {
		A := make([][]float64, m.dim)
		for i := range m.A[arm] {
			A[i] = append([]float64(nil), m.A[arm][i]...)
		}
		state.A[arm] = A
		state.B[arm] = append([]float64(nil), m.b[arm]...)
	}
	m.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encode model state: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeModel reconstructs a model from a persisted blob. Trailing
// bytes after the gob stream are tolerated; a decode failure or a
// structurally invalid state returns ErrModelCorrupted.
func DecodeModel(blob []byte) (*Model, error) {
	var state modelState
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupted, err)
	}

	if err := validateState(&state); err != nil {
		return nil, err
	}

	m := NewModel(state.Arms, state.Alpha, state.Dim)
	m.mu.Lock()
	for _, arm := range m.arms {
		for i := range state.A[arm] {
			copy(m.A[arm][i], state.A[arm][i])
		}
		copy(m.b[arm], state.B[arm])
	}
	m.fitted = state.Fitted
	m.nUpdates = state.NUpdates
	m.mu.Unlock()
	return m, nil
}

func validateState(state *modelState) error {
	if len(state.Arms) == 0 || state.Dim <= 0 || state.NUpdates < 0 {
		return fmt.Errorf("%w: invalid header", ErrModelCorrupted)
	}
	for _, arm := range state.Arms {
		A, okA := state.A[arm]
		b, okB := state.B[arm]
		if !okA || !okB || len(A) != state.Dim || len(b) != state.Dim {
			return fmt.Errorf("%w: arm %q has malformed parameters", ErrModelCorrupted, arm)
		}
		for _, row := range A {
			if len(row) != state.Dim {
				return fmt.Errorf("%w: arm %q has malformed parameters", ErrModelCorrupted, arm)
			}
		}
	}
	return nil
}
