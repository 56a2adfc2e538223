// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Reusable helpers and fixtures for tests.
package main

import (
	"fmt"
	"os"
	"path"
	"testing"
)

// Canned ffprobe metadata document for a short full HD clip.
const fakeFfprobeDoc = `{
  "streams": [
    {
      "codec_name": "h264",
      "r_frame_rate": "24/1",
      "width": 1920,
      "height": 1080,
      "bit_rate": "86740",
      "nb_read_frames": "240",
      "duration": "10.000000"
    }
  ],
  "format": {
    "duration": "10.000000"
  }
}`

// Canned libvmaf JSON log the fake ffmpeg "computes".
const fakeLibvmafLog = `{
  "version": "2.3.1",
  "frames": [
    {"frameNum": 0, "metrics": {"vmaf": 92.5, "psnr_y": 41.2, "float_ssim": 0.9911, "float_ms_ssim": 0.9877}},
    {"frameNum": 1, "metrics": {"vmaf": 93.1, "psnr_y": 41.6, "float_ssim": 0.9915, "float_ms_ssim": 0.9881}},
    {"frameNum": 2, "metrics": {"vmaf": 91.8, "psnr_y": 40.9, "float_ssim": 0.9902, "float_ms_ssim": 0.9869}}
  ]
}`

// fixFakeToolsOnPath fixture puts fake ffmpeg and ffprobe scripts on PATH.
//
// Fake ffprobe prints canned full HD metadata for any file. Fake ffmpeg
// reports libvmaf filter support and on a measurement invocation writes a
// canned libvmaf JSON log to the log_path location from the filter graph.
func fixFakeToolsOnPath(t *testing.T) {
	t.Helper()
	fakePath := t.TempDir()
	t.Setenv("PATH", fmt.Sprintf("%s:%s", fakePath, os.Getenv("PATH")))

	ffprobe := "#!/bin/sh\ncat <<'EOF'\n" + fakeFfprobeDoc + "\nEOF\n"
	if err := os.WriteFile(path.Join(fakePath, "ffprobe"), []byte(ffprobe), 0o755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ffmpeg := `#!/bin/sh
case "$*" in
  *-filters*)
    echo " T.C libvmaf           VV->V      Calculate the VMAF."
    exit 0
    ;;
esac
log_path=$(printf '%s' "$*" | sed -n 's/.*log_path=\([^:]*\).*/\1/p')
if [ -z "$log_path" ]; then
  echo "no log_path in args" >&2
  exit 1
fi
cat >"$log_path" <<'EOF'
` + fakeLibvmafLog + `
EOF
`
	if err := os.WriteFile(path.Join(fakePath, "ffmpeg"), []byte(ffmpeg), 0o755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// fixFakeFailingFfmpegOnPath fixture replaces fake ffmpeg with one that
// fails measurement invocations but still reports libvmaf support.
func fixFakeFailingFfmpegOnPath(t *testing.T) {
	t.Helper()
	fakePath := t.TempDir()
	t.Setenv("PATH", fmt.Sprintf("%s:%s", fakePath, os.Getenv("PATH")))

	ffmpeg := `#!/bin/sh
case "$*" in
  *-filters*)
    echo " T.C libvmaf           VV->V      Calculate the VMAF."
    exit 0
    ;;
esac
echo "Conversion failed!" >&2
exit 1
`
	if err := os.WriteFile(path.Join(fakePath, "ffmpeg"), []byte(ffmpeg), 0o755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// fixVideoFile fixture creates a stub video file.
func fixVideoFile(t *testing.T, name string) string {
	t.Helper()
	p := path.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("stub video payload"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return p
}

// fixModelFile fixture creates a stub libvmaf model file.
func fixModelFile(t *testing.T) string {
	t.Helper()
	p := path.Join(t.TempDir(), "vmaf_v0.6.1.json")
	if err := os.WriteFile(p, []byte(`{"name": "vmaf_v0.6.1"}`), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return p
}
