// Package frames provides the raw microscopy planes shown by the viewer.
// Decoding of the acquisition format is left to the pipeline; the viewer
// only needs 16-bit planes indexed by position, channel and frame.
package frames

import (
	"context"
	"fmt"
	"image"

	"trackview/internal/models"
)

// Metadata declares the bounds of a frame source.
type Metadata struct {
	Positions    int      `yaml:"positions"`
	Frames       int      `yaml:"frames"`
	Channels     int      `yaml:"channels"`
	Height       int      `yaml:"height"`
	Width        int      `yaml:"width"`
	ChannelNames []string `yaml:"channelNames"`
}

// Check validates an index triple against the metadata.
func (m Metadata) Check(position, channel, frame int) error {
	switch {
	case position < 0 || (m.Positions > 0 && position >= m.Positions):
		return fmt.Errorf("position %d of %d: %w", position, m.Positions, models.ErrOutOfRange)
	case channel < 0 || channel >= m.Channels:
		return fmt.Errorf("channel %d of %d: %w", channel, m.Channels, models.ErrOutOfRange)
	case frame < 0 || frame >= m.Frames:
		return fmt.Errorf("frame %d of %d: %w", frame, m.Frames, models.ErrOutOfRange)
	}
	return nil
}

// Source yields single-channel 16-bit planes of fixed size Height x Width.
type Source interface {
	Metadata() Metadata
	Plane(ctx context.Context, position, channel, frame int) (*image.Gray16, error)
	Close() error
}
