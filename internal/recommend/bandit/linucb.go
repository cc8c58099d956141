// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/tomtom215/reminisce/internal/recommend"
)

// ErrUnknownArm is returned when an update names an arm outside the
// model's fixed arm vocabulary.
var ErrUnknownArm = errors.New("unknown arm")

// unknownArmScore is assigned to candidate arms the model has no
// parameters for during selection.
const unknownArmScore = 0.5

// Model is a LinUCB contextual bandit over a fixed set of genre arms.
// Reference: "A Contextual-Bandit Approach to Personalized News Article
// Recommendation" (Li et al., 2010)
//
// For each arm the model maintains:
// - A matrix: regularized design matrix (dim x dim), identity at init
// - b vector: reward-weighted context sum (dim)
//
// The estimated weight vector theta = A^(-1) * b scores a context by
// theta' * x. Selection uses the point estimate only; exploration comes
// from the uniform-random phase before the model is first fitted.
//
// Model is safe for concurrent use.
type Model struct {
	mu sync.RWMutex

	arms   []string
	armSet map[string]struct{}
	alpha  float64
	dim    int

	// Per-arm model parameters.
	A map[string][][]float64
	b map[string][]float64

	fitted   bool
	nUpdates int
}

// NewModel creates a LinUCB model. A nil arms slice selects the default
// genre vocabulary; alpha and dim fall back to 1.0 and ContextDim.
func NewModel(arms []string, alpha float64, dim int) *Model {
	if len(arms) == 0 {
		arms = recommend.DefaultArms()
	}
	if alpha <= 0 {
		alpha = 1.0
	}
	if dim <= 0 {
		dim = ContextDim
	}

	m := &Model{
		arms:   append([]string(nil), arms...),
		armSet: make(map[string]struct{}, len(arms)),
		alpha:  alpha,
		dim:    dim,
		A:      make(map[string][][]float64, len(arms)),
		b:      make(map[string][]float64, len(arms)),
	}
	for _, arm := range m.arms {
		m.armSet[arm] = struct{}{}
	}
	m.resetLocked()
	return m
}

// resetLocked reinitializes all per-arm parameters. Caller holds mu.
func (m *Model) resetLocked() {
	for _, arm := range m.arms {
		m.A[arm] = identityMatrix(m.dim)
		m.b[arm] = make([]float64, m.dim)
	}
	m.fitted = false
	m.nUpdates = 0
}

// Arms returns the model's arm vocabulary.
func (m *Model) Arms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.arms...)
}

// Fitted reports whether the model has seen at least one observation.
func (m *Model) Fitted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fitted
}

// UpdateCount returns the lifetime number of observations.
func (m *Model) UpdateCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nUpdates
}

// Select scores each candidate arm against the context and returns the
// index and score of the best one. The bool is false when the model is
// unfitted or no candidates were given; the caller is expected to fall
// back to a uniform-random pick.
//
// Arms outside the model's vocabulary score 0.5. Ties keep the earliest
// candidate.
func (m *Model) Select(contextVec []float64, candidateArms []string) (int, float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.fitted || len(candidateArms) == 0 {
		return 0, 0, false
	}

	x := shapeContext(contextVec)
	expectations := m.predictExpectationsLocked(x)

	bestIdx := 0
	bestScore := math.Inf(-1)
	for i, arm := range candidateArms {
		score, ok := expectations[arm]
		if !ok {
			score = unknownArmScore
		}
		if score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	return bestIdx, bestScore, true
}

// PredictExpectations returns the expected reward per arm for a
// context, or nil for an unfitted model.
func (m *Model) PredictExpectations(contextVec []float64) map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.fitted {
		return nil
	}
	return m.predictExpectationsLocked(shapeContext(contextVec))
}

// predictExpectationsLocked computes theta' * x per arm. Caller holds
// mu and has already shaped x.
func (m *Model) predictExpectationsLocked(x []float64) map[string]float64 {
	scores := make(map[string]float64, len(m.arms))
	for _, arm := range m.arms {
		Ainv := invertMatrix(m.A[arm])
		if Ainv == nil {
			continue
		}

		// theta = A^(-1) * b
		theta := make([]float64, m.dim)
		for i := 0; i < m.dim; i++ {
			for j := 0; j < m.dim; j++ {
				theta[i] += Ainv[i][j] * m.b[arm][j]
			}
		}

		var expected float64
		for i := 0; i < m.dim; i++ {
			expected += theta[i] * x[i]
		}
		scores[arm] = expected
	}
	return scores
}

// Update applies one observed reward for an arm given the context the
// decision was made in. The first update transitions the model from
// uniform-random selection to scored selection.
func (m *Model) Update(contextVec []float64, arm string, reward float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.armSet[arm]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownArm, arm)
	}

	m.updateArmLocked(arm, shapeContext(contextVec), reward)
	m.fitted = true
	m.nUpdates++
	return nil
}

// updateArmLocked folds one observation into an arm. Caller holds mu
// and has already shaped x.
func (m *Model) updateArmLocked(arm string, x []float64, reward float64) {
	// A = A + x * x'
	A := m.A[arm]
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			A[i][j] += x[i] * x[j]
		}
	}

	// b = b + reward * x
	b := m.b[arm]
	for i := 0; i < m.dim; i++ {
		b[i] += reward * x[i]
	}
}

// WarmStart discards any learned state and refits the model on a batch
// of historical decisions. The update count becomes the batch length.
// An empty batch is a no-op.
func (m *Model) WarmStart(decisions []string, rewards []float64, contexts [][]float64) error {
	if len(decisions) == 0 {
		return nil
	}
	if len(decisions) != len(rewards) || len(decisions) != len(contexts) {
		return fmt.Errorf("warm start batch mismatch: %d decisions, %d rewards, %d contexts",
			len(decisions), len(rewards), len(contexts))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, arm := range decisions {
		if _, ok := m.armSet[arm]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownArm, arm)
		}
	}

	m.resetLocked()
	for i, arm := range decisions {
		m.updateArmLocked(arm, shapeContext(contexts[i]), rewards[i])
	}
	m.fitted = true
	m.nUpdates = len(decisions)
	return nil
}

// identityMatrix creates an n x n identity matrix.
func identityMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1.0
	}
	return m
}

// invertMatrix computes the inverse of a matrix using Gaussian elimination.
//
//nolint:gocritic // A follows standard linear algebra notation
func invertMatrix(A [][]float64) [][]float64 {
	n := len(A)
	if n == 0 {
		return nil
	}

	// Create augmented matrix [A|I]
	augmented := make([][]float64, n)
	for i := range augmented {
		augmented[i] = make([]float64, 2*n)
		copy(augmented[i], A[i])
		augmented[i][n+i] = 1.0
	}

	// Forward elimination
	for i := 0; i < n; i++ {
		// Find pivot
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(augmented[k][i]) > math.Abs(augmented[maxRow][i]) {
				maxRow = k
			}
		}
		augmented[i], augmented[maxRow] = augmented[maxRow], augmented[i]

		// Check for singular matrix
		if math.Abs(augmented[i][i]) < 1e-10 {
			// Add regularization
			augmented[i][i] = 1e-10
		}

		// Eliminate column
		for k := i + 1; k < n; k++ {
			factor := augmented[k][i] / augmented[i][i]
			for j := i; j < 2*n; j++ {
				augmented[k][j] -= factor * augmented[i][j]
			}
		}
	}

	// Back substitution
	for i := n - 1; i >= 0; i-- {
		pivot := augmented[i][i]
		for j := i; j < 2*n; j++ {
			augmented[i][j] /= pivot
		}
		for k := 0; k < i; k++ {
			factor := augmented[k][i]
			for j := i; j < 2*n; j++ {
				augmented[k][j] -= factor * augmented[i][j]
			}
		}
	}

	// Extract inverse
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
		copy(inv[i], augmented[i][n:])
	}

	return inv
}
