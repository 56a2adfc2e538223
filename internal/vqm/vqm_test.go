// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vqm

import (
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixFakeFfmpeg creates an executable shell script standing in for ffmpeg.
// Instead of computing metrics it writes a canned libvmaf JSON log to the
// result file given via fixture, so runner tests do not need real video
// material.
func fixFakeFfmpeg(t *testing.T, resultFile, log string) string {
	t.Helper()
	script := path.Join(t.TempDir(), "ffmpeg")
	body := fmt.Sprintf("#!/bin/sh\ncat >%s <<'EOF'\n%s\nEOF\n", resultFile, log)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

// fixFailingFfmpeg creates an executable shell script which fails the way
// ffmpeg does on a broken invocation.
func fixFailingFfmpeg(t *testing.T, exitCode int) string {
	t.Helper()
	script := path.Join(t.TempDir(), "ffmpeg")
	body := fmt.Sprintf("#!/bin/sh\necho \"boom\" >&2\nexit %d\n", exitCode)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func fixRequest() *Request {
	return &Request{
		ReferenceFile: "/videos/reference.mp4",
		DistortedFile: "/videos/distorted.mp4",
		ModelFile:     "/models/vmaf_v0.6.1.json",
		Duration:      -1,
		Metrics:       []Metric{VMAF, PSNR},
	}
}

func Test_FfmpegVMAF_Measure(t *testing.T) {
	resultFile := path.Join(t.TempDir(), "result.json")
	ffmpeg := fixFakeFfmpeg(t, resultFile, libvmafLogNewNames)

	m := NewFfmpegVMAF(ffmpeg, fixRequest(), resultFile, nil)
	require.NoError(t, m.Measure())

	res, err := m.GetResult()
	require.NoError(t, err)

	assert.Equal(t, resultFile, res.ResultFile)
	require.Len(t, res.Frames, 3)
	assert.Equal(t, 92.5, res.Frames[0].Scores[VMAF])
	assert.Equal(t, 41.2, res.Frames[0].Scores[PSNR])

	require.Contains(t, res.Aggregates, VMAF)
	require.Contains(t, res.Aggregates, PSNR)
	assert.InDelta(t, 92.4667, res.Aggregates[VMAF].Mean, 0.0001)
	assert.Equal(t, 91.8, res.Aggregates[VMAF].Min)
	assert.Equal(t, 93.1, res.Aggregates[VMAF].Max)
}

func Test_FfmpegVMAF_Measure_ToolFailure(t *testing.T) {
	resultFile := path.Join(t.TempDir(), "result.json")
	ffmpeg := fixFailingFfmpeg(t, 3)

	m := NewFfmpegVMAF(ffmpeg, fixRequest(), resultFile, nil)
	err := m.Measure()
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr, "Expecting error of type ExecutionError")
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Contains(t, execErr.Output, "boom")
	assert.Contains(t, execErr.Cmd, ffmpeg)
}

func Test_FfmpegVMAF_Measure_MissingTool(t *testing.T) {
	resultFile := path.Join(t.TempDir(), "result.json")

	m := NewFfmpegVMAF("/non/existent/ffmpeg", fixRequest(), resultFile, nil)
	err := m.Measure()
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, -1, execErr.ExitCode, "exit code unavailable when the tool never started")
}

func Test_FfmpegVMAF_MeasureTwice(t *testing.T) {
	resultFile := path.Join(t.TempDir(), "result.json")
	ffmpeg := fixFakeFfmpeg(t, resultFile, libvmafLogNewNames)

	m := NewFfmpegVMAF(ffmpeg, fixRequest(), resultFile, nil)
	require.NoError(t, m.Measure())
	assert.ErrorContains(t, m.Measure(), "Measure() already executed")
}

func Test_FfmpegVMAF_GetResultBeforeMeasure(t *testing.T) {
	m := NewFfmpegVMAF("ffmpeg", fixRequest(), "result.json", nil)

	_, err := m.GetResult()
	require.Error(t, err)
	if diff := cmp.Diff("GetResult() depends on Measure() called first", err.Error()); diff != "" {
		t.Errorf("Error message mismatch (-want +got):\n%s", diff)
	}
}

func Test_FfmpegVMAF_GetResult_BadResultFile(t *testing.T) {
	resultFile := path.Join(t.TempDir(), "result.json")
	ffmpeg := fixFakeFfmpeg(t, resultFile, `{"frames": []}`)

	m := NewFfmpegVMAF(ffmpeg, fixRequest(), resultFile, nil)
	require.NoError(t, m.Measure())

	_, err := m.GetResult()
	var perr *ParseError
	assert.ErrorAs(t, err, &perr, "Expecting error of type ParseError")
}
