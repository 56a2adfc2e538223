// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// ffmpeg filter graph and command line assembly.

package vqm

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterGraph produces -filter_complex expression pairing distorted and
// reference streams for libvmaf computation, with results logged as JSON
// to resultFile.
//
// Crop (when given) is applied to both streams ahead of the metric
// comparison so that libvmaf sees matching frame geometry. setpts resets
// timestamps so that both streams pair up from their first decoded frame,
// which is what makes the -ss/-t reference trim line up.
func (r *Request) FilterGraph(resultFile string) string {
	var fg strings.Builder

	crop := ""
	if r.Crop != nil {
		crop = "crop=" + r.Crop.String() + ","
	}
	fmt.Fprintf(&fg, "[0:v]%ssetpts=PTS-STARTPTS[dist];", crop)
	fmt.Fprintf(&fg, "[1:v]%ssetpts=PTS-STARTPTS[ref];", crop)
	fg.WriteString("[dist][ref]" + r.libvmafOpts(resultFile))

	return fg.String()
}

func (r *Request) libvmafOpts(resultFile string) string {
	opts := []string{
		"log_fmt=json",
		"log_path=" + resultFile,
		"model=path=" + r.ModelFile,
	}
	if r.Subsample > 0 {
		opts = append(opts, "n_subsample="+strconv.Itoa(r.Subsample))
	}
	if r.Threads > 0 {
		opts = append(opts, "n_threads="+strconv.Itoa(r.Threads))
	}
	if feats := r.featureOpts(); feats != "" {
		opts = append(opts, feats)
	}
	return "libvmaf=" + strings.Join(opts, ":")
}

// featureOpts enables computation of additional metrics via libvmaf
// feature entries.
func (r *Request) featureOpts() string {
	var feats []string
	for _, m := range r.Metrics {
		if f, ok := libvmafFeatures[m]; ok {
			feats = append(feats, "name="+f)
		}
	}
	if len(feats) == 0 {
		return ""
	}
	return "feature=" + strings.Join(feats, "|")
}

// FfmpegArgs assembles the complete ffmpeg argument list for this Request.
//
// Distorted video is input 0, reference is input 1. The position/duration
// trim is expressed as -ss/-t input options on the reference input only,
// the distorted video is assumed pre-trimmed to match.
func (r *Request) FfmpegArgs(resultFile string, globalArgs []string) []string {
	args := append([]string{}, globalArgs...)
	args = append(args, "-i", r.DistortedFile)
	if r.Position > 0 {
		args = append(args, "-ss", formatSeconds(r.Position))
	}
	if r.Duration > 0 {
		args = append(args, "-t", formatSeconds(r.Duration))
	}
	args = append(args, "-i", r.ReferenceFile)
	args = append(args, "-filter_complex", r.FilterGraph(resultFile))
	args = append(args, "-f", "null", "-")
	return args
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
