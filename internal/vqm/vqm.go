// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Contains implementation of VQM tool that uses ffmpeg and libvmaf along
// with related data structures and interfaces.

package vqm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/evolution-gaming/vqcheck/internal/logging"
	"github.com/evolution-gaming/vqcheck/internal/lw"
)

// Cap on captured ffmpeg output, protects against a runaway process
// flooding memory.
const outputBufferSize = 5 * 1024 * 1024

// Measurer is the interface implemented by VQM tools.
type Measurer interface {
	Measure() error
	GetResult() (Result, error)
}

// Result contains a complete measurement result: ordered per-frame scores
// plus per-metric aggregates.
type Result struct {
	// libvmaf JSON log backing this result.
	ResultFile string
	Frames     FrameMetrics
	Aggregates map[Metric]Aggregate
}

// ExecutionError means the external VQM tool terminated abnormally.
type ExecutionError struct {
	Cmd      string
	ExitCode int
	Output   string
	err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("VQM tool exited with status %d: %s", e.ExitCode, e.err)
}

func (e *ExecutionError) Unwrap() error { return e.err }

// Make sure FfmpegVMAF implements Measurer interface.
var _ Measurer = (*FfmpegVMAF)(nil)

// FfmpegVMAF defines VQM tool and implements Measurer interface.
type FfmpegVMAF struct {
	// Path to ffmpeg executable
	exePath string
	// ffmpeg command arguments
	ffmpegArgs []string
	// Measurement request this tool was created for
	request *Request
	// ffmpeg generated results will be stored in this file
	resultFile string
	output     []byte
	measured   bool
}

// NewFfmpegVMAF will initialize VQM Measurer based on ffmpeg and libvmaf.
//
// globalArgs are prepended verbatim to the assembled command line, see
// application configuration option ffmpeg_global_args.
func NewFfmpegVMAF(ffmpegPath string, req *Request, resultFile string, globalArgs []string) *FfmpegVMAF {
	return &FfmpegVMAF{
		exePath:    ffmpegPath,
		ffmpegArgs: req.FfmpegArgs(resultFile, globalArgs),
		request:    req,
		resultFile: resultFile,
		output:     []byte{},
	}
}

// Measure runs the single ffmpeg invocation for this request.
//
// Blocks until the external process terminates. Single attempt, a failed
// invocation is fatal for the measurement.
func (f *FfmpegVMAF) Measure() error {
	if f.measured {
		return errors.New("Measure() already executed")
	}

	cmd := exec.Command(f.exePath, f.ffmpegArgs...) //#nosec G204
	logging.Debugf("VQM tool command: %v", cmd.Args)

	var buf bytes.Buffer
	out := lw.LimitWriter(&buf, outputBufferSize)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	f.output = buf.Bytes()
	if err != nil {
		logging.Infof("VQM tool execution failure:\n%s", cmd.String())
		logging.Infof("VQM tool output:\n%s", f.output)
		return &ExecutionError{
			Cmd:      cmd.String(),
			ExitCode: exitCode(err),
			Output:   string(f.output),
			err:      err,
		}
	}

	f.measured = true
	return nil
}

// GetResult parses and aggregates metrics from the libvmaf result file.
func (f *FfmpegVMAF) GetResult() (Result, error) {
	var res Result

	if !f.measured {
		return res, errors.New("GetResult() depends on Measure() called first")
	}

	fd, err := os.Open(f.resultFile)
	if err != nil {
		return res, fmt.Errorf("opening result file: %w", err)
	}
	defer fd.Close()

	frames, err := FrameMetricsFromLibvmafJSON(fd, f.request.Metrics)
	if err != nil {
		return res, err
	}

	agg, err := AggregateFrameMetrics(frames, f.request.Metrics)
	if err != nil {
		return res, err
	}

	res = Result{
		ResultFile: f.resultFile,
		Frames:     frames,
		Aggregates: agg,
	}
	return res, nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
