// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Tests for run subcommand.
package main

import (
	"bytes"
	"os"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RunApp_Run(t *testing.T) {
	fixFakeToolsOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist := fixVideoFile(t, "distorted.mp4")
	model := fixModelFile(t)
	outDir := t.TempDir()

	out := &bytes.Buffer{}
	cmd := CreateRunCommand()
	cmd.out = out

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-psnr",
		"-out-dir", outDir,
		dist,
	})
	require.NoError(t, err, "Unexpected error running measurement")

	t.Run("Should create per-frame CSV file", func(t *testing.T) {
		b, err := os.ReadFile(path.Join(outDir, "distorted-quality.csv"))
		require.NoError(t, err)

		want := "frame,vmaf,psnr\n0,92.5,41.2\n1,93.1,41.6\n2,91.8,40.9\n"
		if diff := cmp.Diff(want, string(b)); diff != "" {
			t.Errorf("Per-frame CSV mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Should create summary report", func(t *testing.T) {
		b, err := os.ReadFile(path.Join(outDir, "report.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(b), "distorted")
		assert.Contains(t, string(b), "VMAFMean")
	})

	t.Run("Should save libvmaf result file", func(t *testing.T) {
		assert.FileExists(t, path.Join(outDir, "distorted-vqm.json"))
	})

	t.Run("Should print console summary", func(t *testing.T) {
		assert.Contains(t, out.String(), "Results for "+dist)
		assert.Contains(t, out.String(), "VMAF")
		assert.Contains(t, out.String(), "PSNR")
		assert.Contains(t, out.String(), "mean=92.47")
	})
}

func Test_RunApp_Run_MultipleDistorted(t *testing.T) {
	fixFakeToolsOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist1 := fixVideoFile(t, "distorted1.mp4")
	dist2 := fixVideoFile(t, "distorted2.mp4")
	model := fixModelFile(t)
	outDir := t.TempDir()

	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-out-dir", outDir,
		dist1, dist2,
	})
	require.NoError(t, err)

	assert.FileExists(t, path.Join(outDir, "distorted1-quality.csv"))
	assert.FileExists(t, path.Join(outDir, "distorted2-quality.csv"))
}

func Test_RunApp_Run_DryRun(t *testing.T) {
	fixFakeToolsOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist := fixVideoFile(t, "distorted.mp4")
	model := fixModelFile(t)
	outDir := t.TempDir()

	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-out-dir", outDir,
		"-dry-run",
		dist,
	})
	require.NoError(t, err)

	assert.NoFileExists(t, path.Join(outDir, "distorted-quality.csv"))
	assert.NoFileExists(t, path.Join(outDir, "report.csv"))
}

func Test_RunApp_Run_UsageErrors(t *testing.T) {
	tests := map[string]struct {
		args    func(t *testing.T) []string
		wantMsg string
	}{
		"Missing reference flag": {
			args: func(t *testing.T) []string {
				return []string{fixVideoFile(t, "distorted.mp4")}
			},
			wantMsg: "mandatory option -reference is missing",
		},
		"No distorted files": {
			args: func(t *testing.T) []string {
				return []string{"-reference", fixVideoFile(t, "reference.mp4")}
			},
			wantMsg: "at least one distorted video file is required",
		},
		"Crop out of frame bounds": {
			args: func(t *testing.T) []string {
				return []string{
					"-reference", fixVideoFile(t, "reference.mp4"),
					"-model", fixModelFile(t),
					"-crop", "2000:800:0:0",
					"-out-dir", t.TempDir(),
					fixVideoFile(t, "distorted.mp4"),
				}
			},
			wantMsg: "out of 1920x1080 frame bounds",
		},
		"Zero duration": {
			args: func(t *testing.T) []string {
				return []string{
					"-reference", fixVideoFile(t, "reference.mp4"),
					"-model", fixModelFile(t),
					"-duration", "0",
					"-out-dir", t.TempDir(),
					fixVideoFile(t, "distorted.mp4"),
				}
			},
			wantMsg: "zero duration",
		},
		"Explicit negative duration": {
			args: func(t *testing.T) []string {
				return []string{
					"-reference", fixVideoFile(t, "reference.mp4"),
					"-model", fixModelFile(t),
					"-duration", "-5",
					"-out-dir", t.TempDir(),
					fixVideoFile(t, "distorted.mp4"),
				}
			},
			wantMsg: "option -duration must be positive",
		},
		"Position past reference end without duration": {
			args: func(t *testing.T) []string {
				return []string{
					"-reference", fixVideoFile(t, "reference.mp4"),
					"-model", fixModelFile(t),
					"-position", "100",
					"-out-dir", t.TempDir(),
					fixVideoFile(t, "distorted.mp4"),
				}
			},
			wantMsg: "beyond reference video length",
		},
		"Window past reference end": {
			args: func(t *testing.T) []string {
				return []string{
					"-reference", fixVideoFile(t, "reference.mp4"),
					"-model", fixModelFile(t),
					"-position", "8", "-duration", "4",
					"-out-dir", t.TempDir(),
					fixVideoFile(t, "distorted.mp4"),
				}
			},
			wantMsg: "exceed reference video length",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fixFakeToolsOnPath(t)
			cmd := CreateRunCommand()
			cmd.out = &bytes.Buffer{}

			err := cmd.Run(tc.args(t))
			require.Error(t, err)

			appErr, ok := err.(*AppError)
			require.True(t, ok, "Expecting error of type AppError, got %T", err)
			assert.Equal(t, exitCodeUsageError, appErr.ExitCode())
			assert.ErrorContains(t, err, tc.wantMsg)
		})
	}
}

func Test_RunApp_Run_DryRun_ExistingResults(t *testing.T) {
	fixFakeToolsOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist := fixVideoFile(t, "distorted.mp4")
	model := fixModelFile(t)
	outDir := t.TempDir()

	// Results from a previous run must not block a dry run and must
	// survive it untouched.
	existing := path.Join(outDir, "distorted-quality.csv")
	prev := []byte("frame,vmaf\n0,90\n")
	require.NoError(t, os.WriteFile(existing, prev, 0o644))

	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-out-dir", outDir,
		"-dry-run",
		dist,
	})
	require.NoError(t, err)

	b, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, string(prev), string(b))
}

func Test_RunApp_Run_FullHelp(t *testing.T) {
	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{"-full-help"})
	require.Error(t, err)

	appErr, ok := err.(*AppError)
	require.True(t, ok)
	assert.Equal(t, 0, appErr.ExitCode(), "full help terminates run with success exit code")
}

func Test_RunApp_Run_RefuseOverwrite(t *testing.T) {
	fixFakeToolsOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist := fixVideoFile(t, "distorted.mp4")
	model := fixModelFile(t)
	outDir := t.TempDir()

	// Simulate results from a previous run.
	existing := path.Join(outDir, "distorted-quality.csv")
	require.NoError(t, os.WriteFile(existing, []byte("frame,vmaf\n0,90\n"), 0o644))

	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-out-dir", outDir,
		dist,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "refusing to overwrite")

	appErr, ok := err.(*AppError)
	require.True(t, ok)
	assert.Equal(t, exitCodeUsageError, appErr.ExitCode())
}

func Test_RunApp_Run_FfmpegFailure(t *testing.T) {
	fixFakeToolsOnPath(t)
	fixFakeFailingFfmpegOnPath(t)
	ref := fixVideoFile(t, "reference.mp4")
	dist := fixVideoFile(t, "distorted.mp4")
	model := fixModelFile(t)

	cmd := CreateRunCommand()
	cmd.out = &bytes.Buffer{}

	err := cmd.Run([]string{
		"-reference", ref,
		"-model", model,
		"-out-dir", t.TempDir(),
		dist,
	})
	require.Error(t, err)

	appErr, ok := err.(*AppError)
	require.True(t, ok, "Expecting error of type AppError, got %T", err)
	assert.Equal(t, exitCodeExecutionError, appErr.ExitCode())
}
