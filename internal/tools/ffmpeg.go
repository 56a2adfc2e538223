// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Ffmpeg family related tools.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/evolution-gaming/vqcheck/internal/logging"
	"github.com/evolution-gaming/vqcheck/internal/video"
)

var (
	ffmpegCmd  = "ffmpeg"
	ffprobeCmd = "ffprobe"
	// Environment variables that override tool discovery on $PATH.
	ffmpegOverrideEnv  = "VQCHECK_FFMPEG"
	ffprobeOverrideEnv = "VQCHECK_FFPROBE"
	// A specific libvmaf model file to be used when calculating VMAF score.
	libvmafModel = "vmaf_v0.6.1.json"
	// A list of known locations where various distributions of ffmpeg may put
	// libvmaf models.
	libvmafModelLocations = []string{
		"/usr/local/share/model",
		"/usr/share/model",
		"/opt/ffmpeg-static/model",
	}
)

// FfmpegPath will return path to ffmpeg binary and error if path is not found.
func FfmpegPath() (string, error) {
	p, err := FindTool(ffmpegCmd, ffmpegOverrideEnv)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found: %w", err)
	}
	return p, nil
}

// FfprobePath will return path to ffprobe binary and error if path is not found.
func FfprobePath() (string, error) {
	p, err := FindTool(ffprobeCmd, ffprobeOverrideEnv)
	if err != nil {
		return "", fmt.Errorf("ffprobe not found: %w", err)
	}
	return p, nil
}

// FfprobeExtractMetadata will query video file metadata via ffprobe.
func FfprobeExtractMetadata(videoFile string) (video.Metadata, error) {
	var vmeta video.Metadata

	if _, err := os.Stat(videoFile); os.IsNotExist(err) {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() os.Stat: %w", err)
	}

	ffprobeArgs := []string{
		"-v", "quiet",
		"-threads", "0",
		"-select_streams", "v",
		"-count_frames",
		"-of", "json",
		"-show_format",
		"-show_streams",
		videoFile,
	}
	ffprobePath, err := FfprobePath()
	if err != nil {
		return vmeta, err
	}
	cmd := exec.Command(ffprobePath, ffprobeArgs...)
	logging.Debugf("Running: %s\n", cmd)
	out, err := cmd.Output()
	if err != nil {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() exec error: %w", err)
	}

	// Unmarshal metadata from both "streams" and "format" JSON objects.
	meta := &struct {
		Streams []video.Metadata
		Format  video.Metadata
	}{}
	if err := json.Unmarshal(out, &meta); err != nil {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() json.Unmarshal: %w", err)
	}
	if len(meta.Streams) == 0 {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() no video streams in %s", videoFile)
	}

	vmeta = meta.Streams[0]
	// For mkv container Streams does not contain duration, so we have to look into Format.
	vmeta.Duration = math.Max(vmeta.Duration, meta.Format.Duration)
	logging.Debugf("%s %+v", videoFile, vmeta)

	return vmeta, nil
}

// FindLibvmafModel will return path to libvmaf model file.
//
// XXX: Although not specifically related to ffmpeg family tools, but for time
// being keep it here.
func FindLibvmafModel() (string, error) {
	for _, l := range libvmafModelLocations {
		p := path.Join(l, libvmafModel)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("libvmaf model file %s not found in any of %s", libvmafModel, libvmafModelLocations)
}

// HasLibvmafFilter checks that given ffmpeg binary was built with libvmaf
// filter support.
func HasLibvmafFilter(ffmpegPath string) bool {
	cmd := exec.Command(ffmpegPath, "-hide_banner", "-filters")
	out, err := cmd.Output()
	if err != nil {
		logging.Debugf("ffmpeg -filters failed: %s", err)
		return false
	}
	return strings.Contains(string(out), "libvmaf")
}
