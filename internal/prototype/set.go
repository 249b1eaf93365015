package prototype

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNoPrototypes       = errors.New("no prototypes produced")
	ErrDimensionMismatch  = errors.New("centroid dimension mismatch")
	ErrDuplicateLabel     = errors.New("duplicate label")
	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
	ErrSnapshotMissing    = errors.New("snapshot missing")
	ErrFingerprintChanged = errors.New("snapshot built with a different extractor")
)

// Set is an immutable label -> centroid mapping. Row i of Centroids belongs
// to Labels()[i]. A Set is never mutated after construction; callers replace
// it wholesale through Store.
type Set struct {
	fingerprint string
	dim         int
	labels      []string
	centroids   [][]float32
	index       map[string]int
}

// NormalizeLabel is the key form used for every label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func Empty(fingerprint string, dim int) *Set {
	return &Set{fingerprint: fingerprint, dim: dim, index: map[string]int{}}
}

// NewSet copies labels and centroids into a new Set.
func NewSet(fingerprint string, dim int, labels []string, centroids [][]float32) (*Set, error) {
	if len(labels) != len(centroids) {
		return nil, fmt.Errorf("%w: %d labels vs %d rows", ErrDimensionMismatch, len(labels), len(centroids))
	}
	s := &Set{
		fingerprint: fingerprint,
		dim:         dim,
		labels:      make([]string, 0, len(labels)),
		centroids:   make([][]float32, 0, len(centroids)),
		index:       make(map[string]int, len(labels)),
	}
	for i, raw := range labels {
		label := NormalizeLabel(raw)
		if label == "" {
			return nil, fmt.Errorf("empty label at row %d", i)
		}
		if _, ok := s.index[label]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
		}
		if len(centroids[i]) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(centroids[i]), dim)
		}
		row := make([]float32, dim)
		copy(row, centroids[i])
		s.index[label] = len(s.labels)
		s.labels = append(s.labels, label)
		s.centroids = append(s.centroids, row)
	}
	return s, nil
}

func (s *Set) Fingerprint() string {
	return s.fingerprint
}

func (s *Set) Dim() int {
	return s.dim
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Labels returns the labels in row order. The slice must not be modified.
func (s *Set) Labels() []string {
	if s == nil {
		return nil
	}
	return s.labels
}

// Centroids returns the centroid matrix in row order. Rows must not be modified.
func (s *Set) Centroids() [][]float32 {
	if s == nil {
		return nil
	}
	return s.centroids
}

func (s *Set) Centroid(label string) ([]float32, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[NormalizeLabel(label)]
	if !ok {
		return nil, false
	}
	return s.centroids[i], true
}

// Categories returns the labels sorted ascending. Never nil.
func (s *Set) Categories() []string {
	out := make([]string, 0, s.Len())
	out = append(out, s.Labels()...)
	sort.Strings(out)
	return out
}
