package frames

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"trackview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func writePlane(t *testing.T, dir string, k Key, img image.Image) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, PlaneName(k.Position, k.Channel, k.Frame)))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func newTIFFDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	meta := "positions: 2\nframes: 3\nchannels: 2\nheight: 4\nwidth: 5\nchannelNames: [BF, GFP]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(meta), 0644))
	return dir
}

func TestTIFFDirReadsGray16Plane(t *testing.T) {
	dir := newTIFFDir(t)
	plane := Uniform(5, 4, 1234)
	plane.SetGray16(2, 1, color.Gray16{Y: 60000})
	writePlane(t, dir, Key{1, 1, 2}, plane)

	src, err := OpenTIFFDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"BF", "GFP"}, src.Metadata().ChannelNames)

	got, err := src.Plane(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, got.Gray16At(0, 0).Y)
	assert.EqualValues(t, 60000, got.Gray16At(2, 1).Y)
}

func TestTIFFDirWidensGray8(t *testing.T) {
	dir := newTIFFDir(t)
	plane := image.NewGray(image.Rect(0, 0, 5, 4))
	plane.SetGray(0, 0, color.Gray{Y: 255})
	writePlane(t, dir, Key{0, 0, 0}, plane)

	src, err := OpenTIFFDir(dir)
	require.NoError(t, err)
	got, err := src.Plane(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 65535, got.Gray16At(0, 0).Y)
}

func TestTIFFDirBoundsAndMissingPlanes(t *testing.T) {
	src, err := OpenTIFFDir(newTIFFDir(t))
	require.NoError(t, err)

	_, err = src.Plane(context.Background(), 0, 2, 0)
	assert.ErrorIs(t, err, models.ErrOutOfRange)

	_, err = src.Plane(context.Background(), 0, 0, 3)
	assert.ErrorIs(t, err, models.ErrOutOfRange)

	_, err = src.Plane(context.Background(), 0, 0, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTIFFDirRejectsWrongSize(t *testing.T) {
	dir := newTIFFDir(t)
	writePlane(t, dir, Key{0, 0, 0}, Uniform(3, 3, 1))

	src, err := OpenTIFFDir(dir)
	require.NoError(t, err)
	_, err = src.Plane(context.Background(), 0, 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidData)
}

func TestOpenTIFFDirWithoutMetadata(t *testing.T) {
	_, err := OpenTIFFDir(t.TempDir())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemorySource(t *testing.T) {
	src := &Memory{
		Meta:     Metadata{Frames: 2, Channels: 1, Height: 2, Width: 2},
		Generate: func(k Key) *image.Gray16 { return Uniform(2, 2, uint16(k.Frame)) },
	}
	got, err := src.Plane(context.Background(), 0, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Gray16At(1, 1).Y)
}
