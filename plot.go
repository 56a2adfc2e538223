// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// vqcheck tool's vqmplot subcommand implementation.

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/evolution-gaming/vqcheck/internal/analysis"
	"github.com/evolution-gaming/vqcheck/internal/logging"
	"github.com/evolution-gaming/vqcheck/internal/vqm"
)

// Make sure VQMPlotApp implements Commander interface.
var _ Commander = (*VQMPlotApp)(nil)

// VQMPlotApp is vqmplot subcommand context that implements Commander interface.
type VQMPlotApp struct {
	// FlagSet instance
	fs *flag.FlagSet
	// Input per-frame CSV file path
	flInFile string
	// Metric to plot
	flMetric string
	// Plot output file
	flOutFile string
	// Global flags
	gf globalFlags
}

// CreateVQMPlotCommand will create Commander instance from VQMPlotApp.
func CreateVQMPlotCommand() *VQMPlotApp {
	longHelp := `Subcommand "vqmplot" will create a plot for given metric from a per-frame
CSV report as produced by the "run" subcommand.

Examples:

  vqcheck vqmplot -metric vmaf -i distorted-quality.csv`

	app := &VQMPlotApp{
		fs: flag.NewFlagSet("vqmplot", flag.ContinueOnError),
		gf: globalFlags{},
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInFile, "i", "", "Input per-frame CSV file (mandatory)")
	app.fs.StringVar(&app.flMetric, "metric", string(vqm.VMAF), "Metric column to plot")
	app.fs.StringVar(&app.flOutFile, "o", "", "File to save plot to")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}
	return app
}

func (a *VQMPlotApp) Name() string {
	return a.fs.Name()
}

func (a *VQMPlotApp) Help() {
	a.fs.Usage()
}

// Run is main entry point into VQMPlotApp execution.
func (a *VQMPlotApp) Run(args []string) error {
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

	metric := vqm.Metric(strings.ToLower(a.flMetric))
	base := path.Base(a.flInFile)
	base = strings.TrimSuffix(base, path.Ext(base))
	if a.flOutFile == "" {
		a.flOutFile = fmt.Sprintf("%s-%s.png", base, metric)
	}

	values, err := readMetricColumn(a.flInFile, metric)
	if err != nil {
		return &AppError{
			exitCode: exitCodeParseError,
			msg:      err.Error(),
		}
	}

	if err := analysis.MultiPlotVqm(values, metric.DisplayName(), base, a.flOutFile); err != nil {
		return &AppError{
			exitCode: 1,
			msg:      fmt.Sprintf("creating %s multiplot: %s", metric.DisplayName(), err),
		}
	}
	logging.Infof("%s multi-plot done: %s", metric.DisplayName(), a.flOutFile)

	return nil
}

// readMetricColumn extracts a single metric column from per-frame CSV file.
func readMetricColumn(csvFile string, m vqm.Metric) ([]float64, error) {
	fd, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("opening per-frame CSV file: %w", err)
	}
	defer fd.Close()

	rows, err := csv.NewReader(fd).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading per-frame CSV file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no frame rows in %s", csvFile)
	}

	col := -1
	for i, name := range rows[0] {
		if name == string(m) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %s column in %s, have %v", m, csvFile, rows[0])
	}

	values := make([]float64, 0, len(rows)-1)
	for i, row := range rows[1:] {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, fmt.Errorf("frame row %d: %w", i, err)
		}
		values = append(values, v)
	}

	return values, nil
}
