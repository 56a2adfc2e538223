// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Aggregation of per-frame metrics into summary statistics.

package vqm

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Aggregate holds summary statistics for a single metric over the full
// frame sequence. Derived once, never mutated.
type Aggregate struct {
	Mean         float64
	HarmonicMean float64
	Min          float64
	Max          float64
	StDev        float64
	Variance     float64
	// 5th percentile, a "nearly worst frame" indicator.
	Percentile5 float64
}

// AggregateFrameMetrics reduces ordered per-frame metrics to per-metric
// Aggregate statistics. Deterministic for a given FrameMetrics sequence.
func AggregateFrameMetrics(fm FrameMetrics, metrics []Metric) (map[Metric]Aggregate, error) {
	if len(fm) == 0 {
		return nil, errors.New("no frame metrics to aggregate")
	}

	aggs := make(map[Metric]Aggregate, len(metrics))
	for _, m := range metrics {
		vals := fm.Values(m)

		var a Aggregate
		a.Min = floats.Min(vals)
		a.Max = floats.Max(vals)
		a.HarmonicMean = stat.HarmonicMean(vals, nil)
		a.Variance = stat.Variance(vals, nil)
		a.Mean, a.StDev = stat.MeanStdDev(vals, nil)

		// stat.Quantile wants sorted input, keep vals in frame order.
		sorted := make([]float64, len(vals))
		copy(sorted, vals)
		sort.Float64s(sorted)
		a.Percentile5 = stat.Quantile(0.05, stat.Empirical, sorted, nil)

		aggs[m] = a
	}

	return aggs, nil
}
