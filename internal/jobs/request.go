// Package jobs runs the long segmentation, tracking, ROI and export steps
// in the background. Jobs never touch viewer state; callers poll Status.
package jobs

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind names a pipeline step.
type Kind string

const (
	KindSegmentation Kind = "segmentation"
	KindTracking     Kind = "tracking"
	KindSquareROI    Kind = "square_roi"
	KindExport       Kind = "export"
)

// Kinds lists every job kind in pipeline order.
var Kinds = []Kind{KindSegmentation, KindTracking, KindSquareROI, KindExport}

// Channel roles for segmentation.
const (
	RoleBrightfield = "Brightfield"
	RoleFluorescent = "Fluorescent"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid job request")

// Request carries the parameters of one job. Fields not used by a kind are
// ignored.
type Request struct {
	Kind      Kind   `json:"kind"`
	InputPath string `json:"input_path,omitempty"`
	OutputDir string `json:"output_dir"`

	PositionMin int `json:"position_min"`
	PositionMax int `json:"position_max"`

	// segmentation
	FrameMin     int      `json:"frame_min,omitempty"`
	FrameMax     int      `json:"frame_max,omitempty"`
	ChannelRoles []string `json:"channel_roles,omitempty"`

	// tracking
	ExpandLabels bool `json:"expand_labels,omitempty"`

	// square_roi
	SquareSize float64 `json:"square_size,omitempty"`

	// export
	Minutes float64 `json:"minutes,omitempty"`
}

// Positions expands the inclusive position range.
func (r Request) Positions() []int {
	var out []int
	for p := r.PositionMin; p <= r.PositionMax; p++ {
		out = append(out, p)
	}
	return out
}

// SegmentationChannel returns the index of the single brightfield channel.
func (r Request) SegmentationChannel() (int, bool) {
	found := -1
	for i, role := range r.ChannelRoles {
		if role == RoleBrightfield {
			if found >= 0 {
				return 0, false
			}
			found = i
		}
	}
	return found, found >= 0
}

// FluorescenceChannels returns the indexes of fluorescent channels.
func (r Request) FluorescenceChannels() []int {
	var out []int
	for i, role := range r.ChannelRoles {
		if role == RoleFluorescent {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks the parameters the kind needs.
func (r Request) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s job: %w: %s", r.Kind, ErrInvalidRequest, fmt.Sprintf(format, args...))
	}

	if r.OutputDir == "" {
		return invalid("output directory is required")
	}
	if r.PositionMin < 0 || r.PositionMax < r.PositionMin {
		return invalid("position range %d-%d", r.PositionMin, r.PositionMax)
	}

	switch r.Kind {
	case KindSegmentation:
		if r.InputPath == "" {
			return invalid("input path is required")
		}
		if r.FrameMin < 0 || r.FrameMax < r.FrameMin {
			return invalid("frame range %d-%d", r.FrameMin, r.FrameMax)
		}
		if _, ok := r.SegmentationChannel(); !ok {
			return invalid("exactly one brightfield channel is required")
		}
		for i, role := range r.ChannelRoles {
			if role != "" && role != RoleBrightfield && role != RoleFluorescent {
				return invalid("channel %d has unknown role %q", i, role)
			}
		}
	case KindTracking:
	case KindSquareROI:
		if r.SquareSize <= 0 {
			return invalid("square size must be positive")
		}
	case KindExport:
		if r.Minutes <= 0 {
			return invalid("frame interval in minutes must be positive")
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// Args renders the request as command-line flags for an external program.
func (r Request) Args() []string {
	args := []string{
		"--output", r.OutputDir,
		"--position-min", strconv.Itoa(r.PositionMin),
		"--position-max", strconv.Itoa(r.PositionMax),
	}
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	switch r.Kind {
	case KindSegmentation:
		seg, _ := r.SegmentationChannel()
		args = append(args,
			"--input", r.InputPath,
			"--frame-min", strconv.Itoa(r.FrameMin),
			"--frame-max", strconv.Itoa(r.FrameMax),
			"--segmentation-channel", strconv.Itoa(seg),
		)
		for _, c := range r.FluorescenceChannels() {
			args = append(args, "--fluorescence-channel", strconv.Itoa(c))
		}
	case KindTracking:
		if r.ExpandLabels {
			args = append(args, "--expand-labels")
		}
	case KindSquareROI:
		args = append(args, "--square-size", ftoa(r.SquareSize))
	case KindExport:
		args = append(args, "--minutes", ftoa(r.Minutes))
	}
	return args
}
