package labels

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"trackview/internal/logger"
	"trackview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"
)

func TestImageCropClipsToBounds(t *testing.T) {
	m := NewImage(4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			m.Set(x, y, int32(10*y+x))
		}
	}

	c := m.Crop(image.Rect(2, 1, 10, 10))
	require.Equal(t, 2, c.Width)
	require.Equal(t, 2, c.Height)
	assert.Equal(t, []int32{12, 13, 22, 23}, c.Pix)
}

func TestFillRect(t *testing.T) {
	m := NewImage(3, 3)
	m.FillRect(image.Rect(1, 1, 5, 5), 7)
	assert.EqualValues(t, 0, m.At(0, 0))
	assert.EqualValues(t, 7, m.At(2, 2))
}

func TestMemoryContainer(t *testing.T) {
	frame := NewImage(2, 2)
	c := &Memory{Min: 5, Max: 6, Frames: []*Image{frame, frame}}

	got, err := c.Labels(1)
	require.NoError(t, err)
	assert.Same(t, frame, got)

	_, err = c.Labels(2)
	assert.ErrorIs(t, err, models.ErrOutOfRange)

	require.NoError(t, c.Close())
	assert.True(t, c.Closed())
	_, err = c.Labels(0)
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestOpenHDF5MissingFile(t *testing.T) {
	_, err := HDF5Opener{}.Open(filepath.Join(t.TempDir(), "XY00"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

const (
	h5Frames = 3
	h5Height = 2
	h5Width  = 4
)

// writeContainer writes dir/data.h5 where every pixel of frame f holds
// 100*f + its row-major index. channel is stored as fl_channel_names unless
// empty.
func writeContainer(t *testing.T, dir string, frameMin, frameMax int64, channel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))

	f, err := hdf5.CreateFile(filepath.Join(dir, FileName), hdf5.F_ACC_TRUNC)
	require.NoError(t, err)
	defer f.Close()

	space, err := hdf5.CreateSimpleDataspace([]uint{h5Frames, h5Height, h5Width}, nil)
	require.NoError(t, err)
	defer space.Close()

	dset, err := f.CreateDataset(labelsDataset, hdf5.T_NATIVE_INT32, space)
	require.NoError(t, err)
	defer dset.Close()

	data := make([]int32, h5Frames*h5Height*h5Width)
	for i := range data {
		data[i] = int32(100*(i/(h5Height*h5Width)) + i%(h5Height*h5Width))
	}
	require.NoError(t, dset.Write(&data))

	root, err := f.OpenGroup("/")
	require.NoError(t, err)
	defer root.Close()

	scalar, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	require.NoError(t, err)
	defer scalar.Close()

	for name, v := range map[string]int64{attrFrameMin: frameMin, attrFrameMax: frameMax} {
		attr, err := root.CreateAttribute(name, hdf5.T_NATIVE_INT64, scalar)
		require.NoError(t, err)
		require.NoError(t, attr.Write(&v, hdf5.T_NATIVE_INT64))
		require.NoError(t, attr.Close())
	}

	if channel != "" {
		attr, err := root.CreateAttribute(attrChannelNames, hdf5.T_GO_STRING, scalar)
		require.NoError(t, err)
		require.NoError(t, attr.Write(&channel, hdf5.T_GO_STRING))
		require.NoError(t, attr.Close())
	}
}

func TestHDF5ContainerReadsFramesAndAttributes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "XY00")
	writeContainer(t, dir, 5, 7, "GFP")

	c, err := HDF5Opener{Logger: logger.Nop()}.Open(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, c.FrameMin())
	assert.Equal(t, 7, c.FrameMax())
	assert.Equal(t, []string{"GFP"}, c.ChannelNames())

	// frame 6 is local index 1
	img, err := c.Labels(6 - c.FrameMin())
	require.NoError(t, err)
	require.Equal(t, h5Width, img.Width)
	require.Equal(t, h5Height, img.Height)
	assert.Equal(t, []int32{100, 101, 102, 103, 104, 105, 106, 107}, img.Pix)
	assert.EqualValues(t, 105, img.At(1, 1))

	_, err = c.Labels(h5Frames)
	assert.ErrorIs(t, err, models.ErrOutOfRange)
	_, err = c.Labels(-1)
	assert.ErrorIs(t, err, models.ErrOutOfRange)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err = c.Labels(0)
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestHDF5ContainerWithoutChannelNamesWarns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "XY01")
	writeContainer(t, dir, 0, 2, "")

	var logs bytes.Buffer
	c, err := HDF5Opener{Logger: logger.NewZerolog(&logs, logger.DebugLevel)}.Open(dir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{defaultChannelNm}, c.ChannelNames())
	assert.Contains(t, logs.String(), "channel names unavailable")
	assert.Contains(t, logs.String(), attrChannelNames)
}
