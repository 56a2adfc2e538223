// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// vqcheck tool's probe subcommand implementation.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/evolution-gaming/vqcheck/internal/logging"
	"github.com/evolution-gaming/vqcheck/internal/tools"
)

// Make sure ProbeApp implements Commander interface.
var _ Commander = (*ProbeApp)(nil)

// ProbeApp is probe subcommand context that implements Commander interface.
type ProbeApp struct {
	out io.Writer
	// FlagSet instance
	fs *flag.FlagSet
	// Input video file path
	flInFile string
	// Global flags
	gf globalFlags
}

// CreateProbeCommand will create Commander instance from ProbeApp.
func CreateProbeCommand() *ProbeApp {
	longHelp := `Subcommand "probe" will print video stream metadata for given video file.

Examples:

  vqcheck probe -i video.mp4`

	app := &ProbeApp{
		fs:  flag.NewFlagSet("probe", flag.ContinueOnError),
		gf:  globalFlags{},
		out: os.Stdout,
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInFile, "i", "", "Input video file (mandatory)")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}
	return app
}

func (a *ProbeApp) Name() string {
	return a.fs.Name()
}

func (a *ProbeApp) Help() {
	a.fs.Usage()
}

// Run is main entry point into ProbeApp execution.
func (a *ProbeApp) Run(args []string) error {
	if err := a.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      "usage error",
		}
	}

	if a.gf.Debug {
		logging.EnableDebugLogger()
	}

	if a.flInFile == "" {
		a.fs.Usage()
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      "mandatory option -i is missing",
		}
	}

	meta, err := tools.FfprobeExtractMetadata(a.flInFile)
	if err != nil {
		return &AppError{
			exitCode: exitCodeExecutionError,
			msg:      fmt.Sprintf("extracting metadata: %s", err),
		}
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	return nil
}
