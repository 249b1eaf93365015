package prototype

import (
	"context"
	"fmt"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/vision"
)

// Sample is one labeled training example. Exactly one of Image or Vector is
// expected to be set; Vector wins when both are.
type Sample struct {
	Label  string
	Source string
	Image  []byte
	Vector vision.Vector
}

// SampleSource streams samples to fn. An error from Walk means the whole
// source is unusable; a single bad sample is delivered and rejected by Add.
type SampleSource interface {
	Walk(ctx context.Context, fn func(Sample) error) error
}

// Accumulator collects running per-label sums so the mean can be taken
// without holding every descriptor in memory.
type Accumulator struct {
	extractor vision.Extractor
	sums      map[string][]float64
	counts    map[string]int
	skipped   int
}

func NewAccumulator(extractor vision.Extractor) *Accumulator {
	return &Accumulator{
		extractor: extractor,
		sums:      make(map[string][]float64),
		counts:    make(map[string]int),
	}
}

// Add extracts (if needed) and folds one sample into its label. Failures are
// returned so the caller can log and skip.
func (a *Accumulator) Add(sample Sample) error {
	label := NormalizeLabel(sample.Label)
	if label == "" {
		return fmt.Errorf("sample %s has empty label", sample.Source)
	}
	vec := sample.Vector
	if vec == nil {
		var err error
		vec, err = a.extractor.Extract(sample.Image)
		if err != nil {
			return err
		}
	}
	dim := a.extractor.Dim()
	if len(vec) != dim {
		return fmt.Errorf("%w: sample %s has %d values, want %d", ErrDimensionMismatch, sample.Source, len(vec), dim)
	}
	sum, ok := a.sums[label]
	if !ok {
		sum = make([]float64, dim)
		a.sums[label] = sum
	}
	for i, v := range vec {
		sum[i] += float64(v)
	}
	a.counts[label]++
	return nil
}

// Consume walks src, adding each sample and logging (not returning) the
// per-sample failures.
func (a *Accumulator) Consume(ctx context.Context, src SampleSource) error {
	logger := logutil.GetLogger(ctx)
	return src.Walk(ctx, func(sample Sample) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Add(sample); err != nil {
			a.skipped++
			logger.Warn("skip training sample",
				zap.String("label", sample.Label),
				zap.String("source", sample.Source),
				zap.Error(err),
			)
		}
		return nil
	})
}

func (a *Accumulator) Skipped() int {
	return a.skipped
}

// Set computes per-label means. Labels are ordered ascending so the row order
// is reproducible across builds.
func (a *Accumulator) Set() *Set {
	labels := make([]string, 0, len(a.sums))
	for label, n := range a.counts {
		if n > 0 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	dim := a.extractor.Dim()
	s := &Set{
		fingerprint: a.extractor.Fingerprint(),
		dim:         dim,
		labels:      labels,
		centroids:   make([][]float32, len(labels)),
		index:       make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		n := float64(a.counts[label])
		row := make([]float32, dim)
		for j, v := range a.sums[label] {
			row[j] = float32(v / n)
		}
		s.centroids[i] = row
		s.index[label] = i
	}
	return s
}

// Build groups the samples of every source by label and returns the centroid
// set. Unreadable samples are skipped; labels left with no sample are absent.
func Build(ctx context.Context, extractor vision.Extractor, sources ...SampleSource) (*Set, error) {
	acc := NewAccumulator(extractor)
	for _, src := range sources {
		if err := acc.Consume(ctx, src); err != nil {
			return nil, err
		}
	}
	set := acc.Set()
	logutil.GetLogger(ctx).Info("prototype set built",
		zap.Int("labels", set.Len()),
		zap.Int("skipped", acc.Skipped()),
	)
	return set, nil
}

// SliceSource adapts an in-memory slice to SampleSource.
type SliceSource []Sample

func (s SliceSource) Walk(ctx context.Context, fn func(Sample) error) error {
	for _, sample := range s {
		if err := fn(sample); err != nil {
			return err
		}
	}
	return nil
}
