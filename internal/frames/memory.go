package frames

import (
	"context"
	"fmt"
	"image"

	"trackview/internal/models"
)

// Key addresses one plane.
type Key struct {
	Position int
	Channel  int
	Frame    int
}

// Memory is a Source over preloaded planes. Planes not present in the map
// are produced by Generate when set, otherwise reported as not found.
type Memory struct {
	Meta     Metadata
	Planes   map[Key]*image.Gray16
	Generate func(k Key) *image.Gray16
}

func (m *Memory) Metadata() Metadata { return m.Meta }

func (m *Memory) Plane(ctx context.Context, position, channel, frame int) (*image.Gray16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Meta.Check(position, channel, frame); err != nil {
		return nil, err
	}
	k := Key{position, channel, frame}
	if p, ok := m.Planes[k]; ok {
		return p, nil
	}
	if m.Generate != nil {
		return m.Generate(k), nil
	}
	return nil, fmt.Errorf("plane %+v: %w", k, models.ErrNotFound)
}

func (m *Memory) Close() error { return nil }

// Uniform returns a plane of the given size filled with v.
func Uniform(width, height int, v uint16) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 2 {
		img.Pix[i] = uint8(v >> 8)
		img.Pix[i+1] = uint8(v)
	}
	return img
}
