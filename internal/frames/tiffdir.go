package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"trackview/internal/models"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"
)

// MetadataFileName describes the bounds of a TIFF directory.
const MetadataFileName = "metadata.yaml"

// TIFFDir reads planes exported as one 16-bit TIFF per
// (position, channel, frame): p<pos>_c<ch>_t<frame>.tif.
type TIFFDir struct {
	root string
	meta Metadata
}

// OpenTIFFDir loads metadata.yaml from root.
func OpenTIFFDir(root string) (*TIFFDir, error) {
	path := filepath.Join(root, MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("frame metadata %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read frame metadata %s: %w: %v", path, models.ErrIO, err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse frame metadata %s: %w: %v", path, models.ErrInvalidData, err)
	}
	if meta.Frames <= 0 || meta.Channels <= 0 || meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("frame metadata %s declares empty bounds: %w", path, models.ErrInvalidData)
	}

	return &TIFFDir{root: root, meta: meta}, nil
}

// PlaneName is the file name of one plane.
func PlaneName(position, channel, frame int) string {
	return fmt.Sprintf("p%d_c%d_t%d.tif", position, channel, frame)
}

func (d *TIFFDir) Metadata() Metadata { return d.meta }

func (d *TIFFDir) Plane(ctx context.Context, position, channel, frame int) (*image.Gray16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.meta.Check(position, channel, frame); err != nil {
		return nil, err
	}

	path := filepath.Join(d.root, PlaneName(position, channel, frame))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("plane %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("open plane %s: %w: %v", path, models.ErrIO, err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode plane %s: %w: %v", path, models.ErrInvalidData, err)
	}

	gray := toGray16(img)
	b := gray.Bounds()
	if b.Dx() != d.meta.Width || b.Dy() != d.meta.Height {
		return nil, fmt.Errorf("plane %s is %dx%d, metadata declares %dx%d: %w",
			path, b.Dx(), b.Dy(), d.meta.Width, d.meta.Height, models.ErrInvalidData)
	}
	return gray, nil
}

func (d *TIFFDir) Close() error { return nil }

// toGray16 widens 8-bit planes and flattens anything else through the
// Gray16 color model.
func toGray16(img image.Image) *image.Gray16 {
	switch t := img.(type) {
	case *image.Gray16:
		return t
	case *image.Gray:
		out := image.NewGray16(t.Bounds())
		for y := t.Rect.Min.Y; y < t.Rect.Max.Y; y++ {
			for x := t.Rect.Min.X; x < t.Rect.Max.X; x++ {
				v := uint16(t.GrayAt(x, y).Y)
				out.SetGray16(x, y, color.Gray16{Y: v<<8 | v})
			}
		}
		return out
	default:
		out := image.NewGray16(img.Bounds())
		draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
		return out
	}
}
