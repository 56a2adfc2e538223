// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Video quality metric identifiers and their libvmaf spellings.

package vqm

// Metric identifies a single video quality metric computed by libvmaf.
//
// The underlying string doubles as CSV column name.
type Metric string

const (
	VMAF   Metric = "vmaf"
	PSNR   Metric = "psnr"
	SSIM   Metric = "ssim"
	MSSSIM Metric = "ms_ssim"
)

// AllMetrics lists supported metrics in canonical report column order.
var AllMetrics = []Metric{VMAF, PSNR, SSIM, MSSSIM}

// metricAliases maps Metric to per-frame field names seen in libvmaf JSON
// logs. libvmaf renames metric fields between versions, so each metric
// carries the full set of known spellings.
var metricAliases = map[Metric][]string{
	VMAF:   {"vmaf"},
	PSNR:   {"psnr", "psnr_y"},
	SSIM:   {"ssim", "float_ssim"},
	MSSSIM: {"ms_ssim", "float_ms_ssim"},
}

// libvmafFeatures maps additional metrics to the libvmaf filter feature
// that enables their computation. VMAF itself needs no feature entry.
var libvmafFeatures = map[Metric]string{
	PSNR:   "psnr",
	SSIM:   "float_ssim",
	MSSSIM: "float_ms_ssim",
}

// DisplayName returns human readable metric name for console reports.
func (m Metric) DisplayName() string {
	switch m {
	case VMAF:
		return "VMAF"
	case PSNR:
		return "PSNR"
	case SSIM:
		return "SSIM"
	case MSSSIM:
		return "MS-SSIM"
	}
	return string(m)
}

// Precision returns the number of decimal places used when formatting
// metric values. SSIM family values sit close to 1.0 and need more digits
// to be telling.
func (m Metric) Precision() int {
	switch m {
	case SSIM, MSSSIM:
		return 4
	}
	return 2
}
