package transition

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/acr/internal/scale"
)

var (
	// ErrNotRated is returned when NR is passed as a start or end rating
	ErrNotRated = errors.New("NR is not a transition state")
	// ErrInvalidWeight is returned for negative or non-finite severity weights
	ErrInvalidWeight = errors.New("severity weight must be finite and non-negative")
	// ErrInvalidMagnitude is returned for non-finite severity magnitudes
	ErrInvalidMagnitude = errors.New("severity magnitude must be finite")
)

const n = scale.NumNotches

// Matrix accumulates rating transitions between two observation dates.
// Cells are indexed by notch. Accumulate first, then query; a Matrix is not
// safe for concurrent writes. Build partial matrices per worker and Merge them.
// ⭐ SSOT: Transition Matrix Engine
type Matrix struct {
	counts [n][n]int
	starts [n]int

	sevNum [n][n]float64 // Σ weight × magnitude
	sevDen [n][n]float64 // Σ weight
}

// New creates an empty matrix
func New() *Matrix {
	return &Matrix{}
}

func notches(start, end scale.Code) (int, int, error) {
	s, ok := start.Notch()
	if !ok {
		return 0, 0, fmt.Errorf("%w: start", ErrNotRated)
	}
	e, ok := end.Notch()
	if !ok {
		return 0, 0, fmt.Errorf("%w: end", ErrNotRated)
	}
	return s, e, nil
}

// RecordTransition counts one observed bond-period pair
func (m *Matrix) RecordTransition(start, end scale.Code) error {
	s, e, err := notches(start, end)
	if err != nil {
		return err
	}
	m.counts[s][e]++
	m.starts[s]++
	return nil
}

// RecordSeverity accumulates one weighted magnitude (e.g. spread change weighted by
// market value) into the (start, end) cell. It does not touch the counts.
func (m *Matrix) RecordSeverity(start, end scale.Code, magnitude, weight float64) error {
	s, e, err := notches(start, end)
	if err != nil {
		return err
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidWeight, weight)
	}
	if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidMagnitude, magnitude)
	}
	m.sevNum[s][e] += weight * magnitude
	m.sevDen[s][e] += weight
	return nil
}

// Merge adds another matrix's accumulators into m
func (m *Matrix) Merge(other *Matrix) {
	for s := 0; s < n; s++ {
		m.starts[s] += other.starts[s]
		for e := 0; e < n; e++ {
			m.counts[s][e] += other.counts[s][e]
			m.sevNum[s][e] += other.sevNum[s][e]
			m.sevDen[s][e] += other.sevDen[s][e]
		}
	}
}

// Count returns the raw count of a cell (0 for NR on either side)
func (m *Matrix) Count(start, end scale.Code) int {
	s, e, err := notches(start, end)
	if err != nil {
		return 0
	}
	return m.counts[s][e]
}

// StartCount returns how many pairs started at the given rating
func (m *Matrix) StartCount(start scale.Code) int {
	s, ok := start.Notch()
	if !ok {
		return 0
	}
	return m.starts[s]
}

// Total returns the number of recorded transitions
func (m *Matrix) Total() int {
	total := 0
	for _, c := range m.starts {
		total += c
	}
	return total
}

// TransitionProbability is count / start total; NaN when the start was never observed
func (m *Matrix) TransitionProbability(start, end scale.Code) float64 {
	s, e, err := notches(start, end)
	if err != nil || m.starts[s] == 0 {
		return math.NaN()
	}
	return float64(m.counts[s][e]) / float64(m.starts[s])
}

// sumWhere adds the probabilities of every end notch matching keep
func (m *Matrix) sumWhere(start scale.Code, keep func(s, e int) bool) float64 {
	s, ok := start.Notch()
	if !ok || m.starts[s] == 0 {
		return math.NaN()
	}
	var sum float64
	for e := 0; e < n; e++ {
		if keep(s, e) {
			sum += float64(m.counts[s][e])
		}
	}
	return sum / float64(m.starts[s])
}

// UpgradeProbability is the probability of ending on a better notch
func (m *Matrix) UpgradeProbability(start scale.Code) float64 {
	return m.sumWhere(start, func(s, e int) bool { return e > s })
}

// DowngradeProbability is the probability of ending on a worse notch (D included)
func (m *Matrix) DowngradeProbability(start scale.Code) float64 {
	return m.sumWhere(start, func(s, e int) bool { return e < s })
}

// DefaultProbability is the probability of ending at D
func (m *Matrix) DefaultProbability(start scale.Code) float64 {
	return m.sumWhere(start, func(_, e int) bool { return e == scale.Default })
}

// ExpectedNotchChange is Σ (notch(end) - notch(start)) × p(start, end)
func (m *Matrix) ExpectedNotchChange(start scale.Code) float64 {
	s, ok := start.Notch()
	if !ok || m.starts[s] == 0 {
		return math.NaN()
	}
	var sum float64
	for e := 0; e < n; e++ {
		sum += float64(e-s) * float64(m.counts[s][e])
	}
	return sum / float64(m.starts[s])
}

// WeightedSeverity is Σ(weight × magnitude) / Σ weight for a cell; NaN without weight
func (m *Matrix) WeightedSeverity(start, end scale.Code) float64 {
	s, e, err := notches(start, end)
	if err != nil || m.sevDen[s][e] == 0 {
		return math.NaN()
	}
	return m.sevNum[s][e] / m.sevDen[s][e]
}

// RowSummary holds the per-start statistics of a matrix
type RowSummary struct {
	Start               scale.Code `json:"start"`
	Count               int        `json:"count"`
	Upgrade             float64    `json:"upgrade"`
	Downgrade           float64    `json:"downgrade"`
	Default             float64    `json:"default"`
	ExpectedNotchChange float64    `json:"expected_notch_change"`
}

// Summary returns one RowSummary per observed start rating, best first
func (m *Matrix) Summary() []RowSummary {
	var out []RowSummary
	for _, start := range scale.Descending() {
		if m.StartCount(start) == 0 {
			continue
		}
		out = append(out, RowSummary{
			Start:               start,
			Count:               m.StartCount(start),
			Upgrade:             m.UpgradeProbability(start),
			Downgrade:           m.DowngradeProbability(start),
			Default:             m.DefaultProbability(start),
			ExpectedNotchChange: m.ExpectedNotchChange(start),
		})
	}
	return out
}
