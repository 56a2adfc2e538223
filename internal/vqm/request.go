// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Measurement request definition and validation.

package vqm

import (
	"fmt"
	"os"
	"strings"

	"github.com/evolution-gaming/vqcheck/internal/video"
)

// Measurements are constrained to full HD material.
const (
	requiredWidth  = 1920
	requiredHeight = 1080
)

// RequestError error type defines Request validation failures.
type RequestError struct {
	msg     string
	reasons []string
}

func (e *RequestError) Error() string {
	if len(e.reasons) > 0 {
		return fmt.Sprintf("%s with reasons:\n%s", e.msg, strings.Join(e.reasons, "\n"))
	}
	return e.msg
}

func (e *RequestError) Reasons() []string {
	return e.reasons
}

func (e *RequestError) addReason(reason string) {
	e.reasons = append(e.reasons, reason)
}

// Request describes a single quality measurement of a distorted video
// against a reference video.
type Request struct {
	// Uncompressed or mezzanine source video.
	ReferenceFile string
	// Video under evaluation, possibly cropped/trimmed relative to
	// reference.
	DistortedFile string
	// Optional crop rectangle, nil means compare full frames. Crop is
	// expected in normalized W:H:X:Y form, see video.NormalizeCrop.
	Crop *video.Crop
	// Start position in the reference video, seconds.
	Position float64
	// Duration of analysed clip from the reference video, seconds.
	// Negative means full remaining length; exact zero is rejected by
	// Verify.
	Duration float64
	// Metrics to compute. Callers always include VMAF.
	Metrics []Metric
	// libvmaf model file path.
	ModelFile string
	// libvmaf frame subsampling interval, 0 means libvmaf default.
	Subsample int
	// libvmaf thread count, 0 means libvmaf default.
	Threads int
}

// Verify validates Request against extracted metadata of both videos.
//
// Returns *RequestError accumulating all validation failures. Verify has
// no side effects and runs before any external process is invoked.
func (r *Request) Verify(refMeta, distMeta video.Metadata) error {
	errReq := &RequestError{msg: "invalid measurement request"}

	if _, err := os.Stat(r.ReferenceFile); err != nil {
		errReq.addReason(fmt.Sprintf("reference video: %s", err))
	}
	if _, err := os.Stat(r.DistortedFile); err != nil {
		errReq.addReason(fmt.Sprintf("distorted video: %s", err))
	}

	if refMeta.Width != requiredWidth || refMeta.Height != requiredHeight {
		errReq.addReason(fmt.Sprintf(
			"reference video resolution %dx%d, only %dx%d supported",
			refMeta.Width, refMeta.Height, requiredWidth, requiredHeight))
	}
	if distMeta.Width != requiredWidth || distMeta.Height != requiredHeight {
		errReq.addReason(fmt.Sprintf(
			"distorted video resolution %dx%d, only %dx%d supported",
			distMeta.Width, distMeta.Height, requiredWidth, requiredHeight))
	}

	if r.Crop != nil && !r.Crop.FitsWithin(refMeta) {
		errReq.addReason(fmt.Sprintf(
			"crop %s out of %dx%d frame bounds",
			r.Crop, refMeta.Width, refMeta.Height))
	}

	if r.Position < 0 {
		errReq.addReason(fmt.Sprintf("negative position %gs", r.Position))
	}
	if r.Duration == 0 {
		errReq.addReason("zero duration")
	}
	// Position alone can run past the reference end when duration is left
	// at "full remaining length".
	if r.Position > 0 && r.Position >= refMeta.Duration {
		errReq.addReason(fmt.Sprintf(
			"position %gs beyond reference video length %gs",
			r.Position, refMeta.Duration))
	}
	if r.Duration > 0 && r.Position+r.Duration > refMeta.Duration {
		errReq.addReason(fmt.Sprintf(
			"position %gs and duration %gs exceed reference video length %gs",
			r.Position, r.Duration, refMeta.Duration))
	}

	if r.ModelFile == "" {
		errReq.addReason("libvmaf model file not set")
	} else if _, err := os.Stat(r.ModelFile); err != nil {
		errReq.addReason(fmt.Sprintf("libvmaf model file: %s", err))
	}

	if len(errReq.reasons) != 0 {
		return errReq
	}
	return nil
}
