// Package segmentation implements the planning core: timestamp indexing,
// gesture log parsing, window planning with overlap resolution, per-camera
// frame extraction, frame-rate normalization, and the run manifest.
package segmentation

import (
	"errors"
	"fmt"
)

// MalformedLogError reports an unusable gesture or timestamp log. It is fatal
// for the whole run: with no valid events there is nothing to plan.
type MalformedLogError struct {
	Reason string
	Err    error
}

func (e *MalformedLogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed log: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed log: %s", e.Reason)
}

func (e *MalformedLogError) Unwrap() error { return e.Err }

// IsMalformedLog reports whether err wraps a MalformedLogError.
func IsMalformedLog(err error) bool {
	var target *MalformedLogError
	return errors.As(err, &target)
}

// ErrMissingMedia marks a camera whose video container is absent. The camera
// is skipped for the run; all other cameras continue.
var ErrMissingMedia = errors.New("camera media not found")

// Rejection reasons recorded in the manifest and metrics.
const (
	RejectTooShort = "too_short"
	RejectNoFrames = "no_frames"
)
