// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// vqcheck tool's run subcommand implementation.

package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evolution-gaming/vqcheck/internal/logging"
	"github.com/evolution-gaming/vqcheck/internal/metric"
	"github.com/evolution-gaming/vqcheck/internal/tools"
	"github.com/evolution-gaming/vqcheck/internal/video"
	"github.com/evolution-gaming/vqcheck/internal/vqm"
	"github.com/jszwec/csvutil"
)

// CreateRunCommand will create instance of RunApp.
func CreateRunCommand() *RunApp {
	longHelp := `Subcommand "run" will measure video quality of one or more distorted video
files against a reference video file and report VQM metrics. VMAF is
always calculated, additional metrics are enabled via flags. Per-frame
metric values are written to a <distorted>-quality.csv file and a summary
of all measurements to a CSV report.

Examples:

  vqcheck run -reference source.mp4 distorted.mp4
  vqcheck run -reference source.mp4 -crop 140:140:0:0 -psnr distorted1.mp4 distorted2.mp4
  vqcheck run -reference source.mp4 -position 10 -duration 60 distorted.mp4`

	app := &RunApp{
		fs:     flag.NewFlagSet("run", flag.ContinueOnError),
		gf:     globalFlags{},
		mStore: metric.NewStore(),
		out:    os.Stdout,
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flReference, "reference", "", "Reference video file (mandatory)")
	app.fs.StringVar(&app.flCrop, "crop", "", "Crop rectangle as W:H:X:Y, HandBrake T:B:L:R style also accepted")
	app.fs.Float64Var(&app.flPosition, "position", 0, "Start position in reference video, seconds")
	app.fs.Float64Var(&app.flDuration, "duration", -1, "Duration to analyse, seconds (default: full length)")
	app.fs.StringVar(&app.flModel, "model", "", "libvmaf model file (overrides configuration)")
	app.fs.BoolVar(&app.flPSNR, "psnr", false, "Also calculate PSNR metric")
	app.fs.BoolVar(&app.flSSIM, "ssim", false, "Also calculate SSIM metric")
	app.fs.BoolVar(&app.flMSSSIM, "ms-ssim", false, "Also calculate MS-SSIM metric")
	app.fs.IntVar(&app.flSubsample, "subsample", 0, "Calculate metrics on every Nth frame only")
	app.fs.IntVar(&app.flThreads, "threads", 0, "libvmaf thread count")
	app.fs.StringVar(&app.flOutDir, "out-dir", ".", "Output directory to store results")
	app.fs.BoolVar(&app.flDryRun, "dry-run", false, "Do not actually run, just do checks and print ffmpeg command")
	app.fs.BoolVar(&app.flFullHelp, "full-help", false, "Print full help including libvmaf tuning options and exit")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// RunApp is run subcommand application context that implements Commander interface.
type RunApp struct {
	// Configuration object
	cfg *Config
	// FlagSet instance
	fs *flag.FlagSet
	// Console summary destination
	out io.Writer
	// Global flags
	gf globalFlags
	// VQ metric store
	mStore *metric.Store

	flReference string
	flCrop      string
	flPosition  float64
	flDuration  float64
	flModel     string
	flPSNR      bool
	flSSIM      bool
	flMSSSIM    bool
	flSubsample int
	flThreads   int
	flOutDir    string
	flDryRun    bool
	flFullHelp  bool

	// Distorted video files from positional arguments
	distorted []string
	// Extra ffmpeg arguments from configuration
	ffmpegGlobalArgs []string
}

func (a *RunApp) Name() string {
	return a.fs.Name()
}

func (a *RunApp) Help() {
	a.fs.Usage()
}

// init will do RunApp state initialization.
func (a *RunApp) init(args []string) error {
	if err := a.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      fmt.Sprintf("%s usage error", a.fs.Name()),
		}
	}

	if a.gf.Debug {
		logging.EnableDebugLogger()
	}

	if a.flFullHelp {
		a.fs.Usage()
		return &AppError{exitCode: 0}
	}

	// Reference video file is mandatory.
	if a.flReference == "" {
		a.fs.Usage()
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      "mandatory option -reference is missing",
		}
	}

	// At least one distorted video file is required.
	a.distorted = a.fs.Args()
	if len(a.distorted) == 0 {
		a.fs.Usage()
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      "at least one distorted video file is required",
		}
	}

	// Negative duration is an internal "full length" sentinel, from the
	// user it can only be a mistake. Flag default is negative, so only an
	// explicitly set flag is checked.
	durationSet := false
	a.fs.Visit(func(f *flag.Flag) {
		if f.Name == "duration" {
			durationSet = true
		}
	})
	if durationSet && a.flDuration < 0 {
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      "option -duration must be positive",
		}
	}

	// Load application configuration.
	c, err := LoadConfig(a.gf.ConfFile)
	if err != nil {
		return &AppError{exitCode: exitCodeUsageError, msg: err.Error()}
	}
	a.cfg = &c

	// Check if configuration is valid.
	if err := a.cfg.Verify(); err != nil {
		return &AppError{exitCode: exitCodeUsageError, msg: fmt.Sprintf("configuration validation: %s", err)}
	}

	a.ffmpegGlobalArgs, err = a.cfg.GetFfmpegGlobalArgs()
	if err != nil {
		return &AppError{exitCode: exitCodeUsageError, msg: err.Error()}
	}

	if err := os.MkdirAll(a.flOutDir, os.FileMode(0o755)); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("creating output directory: %s", err)}
	}

	return nil
}

// metrics assembles requested metric set, VMAF is always on.
func (a *RunApp) metrics() []vqm.Metric {
	m := []vqm.Metric{vqm.VMAF}
	if a.flPSNR {
		m = append(m, vqm.PSNR)
	}
	if a.flSSIM {
		m = append(m, vqm.SSIM)
	}
	if a.flMSSSIM {
		m = append(m, vqm.MSSSIM)
	}
	return m
}

// modelFile resolves libvmaf model file, -model flag wins over configuration.
func (a *RunApp) modelFile() string {
	if a.flModel != "" {
		return a.flModel
	}
	return a.cfg.LibvmafModelPath.Value()
}

// crop parses and normalizes crop flag against reference video metadata.
func (a *RunApp) crop(refMeta video.Metadata) (*video.Crop, error) {
	if a.flCrop == "" {
		return nil, nil
	}
	c, err := video.ParseCrop(a.flCrop)
	if err != nil {
		return nil, err
	}
	normalized := video.NormalizeCrop(c, refMeta)
	if normalized != c {
		logging.Infof("Crop %s interpreted as HandBrake T:B:L:R, converted to %s", c, normalized)
	}
	return &normalized, nil
}

// measure executes the full measurement pipeline for a single distorted file.
func (a *RunApp) measure(distortedFile string, refMeta video.Metadata, crop *video.Crop) error {
	distMeta, err := tools.FfprobeExtractMetadata(distortedFile)
	if err != nil {
		return &AppError{exitCode: exitCodeExecutionError, msg: fmt.Sprintf("extracting metadata: %s", err)}
	}

	req := &vqm.Request{
		ReferenceFile: a.flReference,
		DistortedFile: distortedFile,
		Crop:          crop,
		Position:      a.flPosition,
		Duration:      a.flDuration,
		Metrics:       a.metrics(),
		ModelFile:     a.modelFile(),
		Subsample:     a.flSubsample,
		Threads:       a.flThreads,
	}

	if err := req.Verify(refMeta, distMeta); err != nil {
		return &AppError{exitCode: exitCodeUsageError, msg: err.Error()}
	}

	base := path.Base(distortedFile)
	base = strings.TrimSuffix(base, path.Ext(base))
	csvFile := path.Join(a.flOutDir, base+"-quality.csv")
	resultFile := path.Join(a.flOutDir, base+"-vqm.json")

	// Do not write over results from a previous run. Dry run produces no
	// results, so existing files are not at risk there.
	if !a.flDryRun && fileExists(csvFile) {
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      fmt.Sprintf("refusing to overwrite existing result file: %s", csvFile),
		}
	}

	vqmTool := vqm.NewFfmpegVMAF(a.cfg.FfmpegPath.Value(), req, resultFile, a.ffmpegGlobalArgs)

	if a.flDryRun {
		logging.Infof("Dry run, would execute:\n%s %s",
			a.cfg.FfmpegPath.Value(), strings.Join(req.FfmpegArgs(resultFile, a.ffmpegGlobalArgs), " "))
		return nil
	}

	logging.Infof("Start measuring VQMs for %s", distortedFile)
	if err := vqmTool.Measure(); err != nil {
		var execErr *vqm.ExecutionError
		if errors.As(err, &execErr) {
			return &AppError{exitCode: exitCodeExecutionError, msg: err.Error()}
		}
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	res, err := vqmTool.GetResult()
	if err != nil {
		var parseErr *vqm.ParseError
		if errors.As(err, &parseErr) {
			return &AppError{exitCode: exitCodeParseError, msg: err.Error()}
		}
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	logging.Infof("Done measuring VQMs for %s", distortedFile)

	if err := a.writeFrameCSV(csvFile, res.Frames, req.Metrics); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	logging.Infof("Per-frame metrics written to %s", csvFile)

	record := newRecord(base, req, distMeta, res)
	record.FrameCSVFile = csvFile
	record.Cmd = a.cfg.FfmpegPath.Value() + " " + strings.Join(req.FfmpegArgs(resultFile, a.ffmpegGlobalArgs), " ")
	id := a.mStore.Insert(record)
	logging.Debugf("Storing record (id=%v) with VQ metrics", id)

	a.printSummary(distortedFile, req.Metrics, res.Aggregates)

	return nil
}

// writeFrameCSV saves per-frame metric values to CSV file.
func (a *RunApp) writeFrameCSV(csvFile string, frames vqm.FrameMetrics, metrics []vqm.Metric) error {
	fd, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("creating per-frame CSV file: %w", err)
	}
	defer fd.Close()

	if err := frames.WriteCSV(fd, metrics); err != nil {
		return fmt.Errorf("writing per-frame CSV file: %w", err)
	}
	return nil
}

// printSummary prints console summary for a single measured file.
func (a *RunApp) printSummary(distortedFile string, metrics []vqm.Metric, aggs map[vqm.Metric]vqm.Aggregate) {
	fmt.Fprintf(a.out, "Results for %s:\n", distortedFile)
	for _, m := range metrics {
		agg, ok := aggs[m]
		if !ok {
			continue
		}
		p := m.Precision()
		fmt.Fprintf(a.out, "  %-8s mean=%.*f  p5=%.*f  min=%.*f  max=%.*f\n",
			m.DisplayName(),
			p, agg.Mean,
			p, agg.Percentile5,
			p, agg.Min,
			p, agg.Max)
	}
}

// newRecord maps a measurement result into a metric store Record.
func newRecord(name string, req *vqm.Request, distMeta video.Metadata, res vqm.Result) metric.Record {
	r := metric.Record{
		Name:          name,
		ReferenceFile: req.ReferenceFile,
		DistortedFile: req.DistortedFile,
		VQMResultFile: res.ResultFile,
		VideoDuration: distMeta.Duration,
		FrameCount:    len(res.Frames),
	}

	for m, agg := range res.Aggregates {
		switch m {
		case vqm.VMAF:
			r.VMAFMin = agg.Min
			r.VMAFMax = agg.Max
			r.VMAFMean = agg.Mean
			r.VMAFHarmonicMean = agg.HarmonicMean
			r.VMAFStDev = agg.StDev
			r.VMAFVariance = agg.Variance
			r.VMAFPercentile5 = agg.Percentile5
		case vqm.PSNR:
			r.PSNRMin = agg.Min
			r.PSNRMax = agg.Max
			r.PSNRMean = agg.Mean
			r.PSNRHarmonicMean = agg.HarmonicMean
			r.PSNRStDev = agg.StDev
			r.PSNRVariance = agg.Variance
			r.PSNRPercentile5 = agg.Percentile5
		case vqm.SSIM:
			r.SSIMMin = agg.Min
			r.SSIMMax = agg.Max
			r.SSIMMean = agg.Mean
			r.SSIMHarmonicMean = agg.HarmonicMean
			r.SSIMStDev = agg.StDev
			r.SSIMVariance = agg.Variance
			r.SSIMPercentile5 = agg.Percentile5
		case vqm.MSSSIM:
			r.MS_SSIMMin = agg.Min
			r.MS_SSIMMax = agg.Max
			r.MS_SSIMMean = agg.Mean
			r.MS_SSIMHarmonicMean = agg.HarmonicMean
			r.MS_SSIMStDev = agg.StDev
			r.MS_SSIMVariance = agg.Variance
			r.MS_SSIMPercentile5 = agg.Percentile5
		}
	}

	return r
}

// saveReport writes recorded metrics to report file.
func (a *RunApp) saveReport() error {
	ids := a.mStore.GetIDs()
	// Store iteration order is unspecified, keep report rows in insertion order.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	report := make([]metric.Record, 0, len(ids))
	for _, id := range ids {
		r, err := a.mStore.Get(id)
		if err != nil {
			return fmt.Errorf("getting record (id=%v) from metric store: %w", id, err)
		}
		report = append(report, r)
	}

	reportPath := path.Join(a.flOutDir, a.cfg.ReportFileName.Value())
	reportOut, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("creating CSV report file: %w", err)
	}
	defer reportOut.Close()

	w := csv.NewWriter(reportOut)
	if err := csvutil.NewEncoder(w).Encode(report); err != nil {
		return fmt.Errorf("writing CSV report: %w", err)
	}
	w.Flush()

	logging.Infof("Summary report written to %s", reportPath)
	return w.Error()
}

// Run is main entry point into RunApp execution.
func (a *RunApp) Run(args []string) error {
	logging.Infof("vqcheck version: %s", vInfo)
	if err := a.init(args); err != nil {
		return err
	}

	logging.Debugf("Application configuration: %#v", a.cfg)

	// Bail out early when ffmpeg lacks libvmaf support.
	if !tools.HasLibvmafFilter(a.cfg.FfmpegPath.Value()) {
		return &AppError{
			exitCode: exitCodeUsageError,
			msg:      fmt.Sprintf("ffmpeg at %s has no libvmaf filter support", a.cfg.FfmpegPath.Value()),
		}
	}

	// Reference metadata is extracted once, all measurements share it.
	refMeta, err := tools.FfprobeExtractMetadata(a.flReference)
	if err != nil {
		return &AppError{exitCode: exitCodeExecutionError, msg: fmt.Sprintf("extracting reference metadata: %s", err)}
	}

	crop, err := a.crop(refMeta)
	if err != nil {
		return &AppError{exitCode: exitCodeUsageError, msg: err.Error()}
	}

	// To avoid ambiguity, resolve output path to absolute representation.
	outDirPath, err := filepath.Abs(a.flOutDir)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	a.flOutDir = outDirPath

	for _, distortedFile := range a.distorted {
		if err := a.measure(distortedFile, refMeta, crop); err != nil {
			return err
		}
	}

	// Early return in "dry run" mode, no results to report.
	if a.flDryRun {
		logging.Info("Dry run mode finished!")
		return nil
	}

	if err := a.saveReport(); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	logging.Info("Done")
	return nil
}
