// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Per-frame metric abstractions and libvmaf log parsing.

package vqm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// FrameMetric contains VQM scores for a single frame. Immutable once
// parsed.
type FrameMetric struct {
	FrameNum uint
	Scores   map[Metric]float64
}

// FrameMetrics is a sequence of per-frame scores ordered by increasing
// frame number.
type FrameMetrics []FrameMetric

// ParseError means the libvmaf log did not hold up its part of the
// contract: malformed document or a requested metric missing from a
// frame.
type ParseError struct {
	Reason string
	err    error
}

func (e *ParseError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("parsing VQM result: %s: %s", e.Reason, e.err)
	}
	return "parsing VQM result: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.err }

// Helper structs for libvmaf JSON log document. Per-frame metrics land in
// a plain map since field names are version dependent.
type libvmafResult struct {
	Version string         `json:"version"`
	Frames  []libvmafFrame `json:"frames"`
}

type libvmafFrame struct {
	FrameNum uint               `json:"frameNum"`
	Metrics  map[string]float64 `json:"metrics"`
}

// FrameMetricsFromLibvmafJSON parses libvmaf JSON log into FrameMetrics.
//
// Every requested metric must be present in every frame under one of its
// known spellings, a missing or malformed metric is a hard *ParseError,
// there is no partial parse. Output is ordered by increasing frame
// number.
func FrameMetricsFromLibvmafJSON(r io.Reader, metrics []Metric) (FrameMetrics, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Reason: "reading libvmaf log", err: err}
	}

	var res libvmafResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, &ParseError{Reason: "unmarshaling libvmaf log", err: err}
	}
	if len(res.Frames) == 0 {
		return nil, &ParseError{Reason: "no frames in libvmaf log"}
	}

	sort.Slice(res.Frames, func(i, j int) bool {
		return res.Frames[i].FrameNum < res.Frames[j].FrameNum
	})

	fm := make(FrameMetrics, 0, len(res.Frames))
	for _, fr := range res.Frames {
		scores := make(map[Metric]float64, len(metrics))
		for _, m := range metrics {
			v, ok := frameScore(fr, m)
			if !ok {
				return nil, &ParseError{Reason: fmt.Sprintf(
					"metric %s missing for frame %d", m.DisplayName(), fr.FrameNum)}
			}
			scores[m] = v
		}
		fm = append(fm, FrameMetric{FrameNum: fr.FrameNum, Scores: scores})
	}

	return fm, nil
}

// frameScore pulls metric value from frame under any of its known
// aliases.
func frameScore(fr libvmafFrame, m Metric) (float64, bool) {
	for _, alias := range metricAliases[m] {
		if v, ok := fr.Metrics[alias]; ok {
			return v, true
		}
	}
	return 0, false
}

// Values extracts a single metric as a vector in frame order.
func (fm FrameMetrics) Values(m Metric) []float64 {
	vals := make([]float64, len(fm))
	for i, v := range fm {
		vals[i] = v.Scores[m]
	}
	return vals
}

// WriteCSV writes header row "frame,<metric...>" followed by one row per
// frame. Output is deterministic for a given FrameMetrics sequence.
func (fm FrameMetrics) WriteCSV(w io.Writer, metrics []Metric) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(metrics)+1)
	header = append(header, "frame")
	for _, m := range metrics {
		header = append(header, string(m))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("WriteCSV() header: %w", err)
	}

	for _, f := range fm {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatUint(uint64(f.FrameNum), 10))
		for _, m := range metrics {
			row = append(row, strconv.FormatFloat(f.Scores[m], 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteCSV() frame %d: %w", f.FrameNum, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
