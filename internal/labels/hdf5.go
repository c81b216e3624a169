package labels

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"trackview/internal/logger"
	"trackview/internal/models"

	"gonum.org/v1/hdf5"
)

// Layout of the label container written by the segmentation pipeline.
const (
	labelsDataset    = "labels"
	attrFrameMin     = "frame_min"
	attrFrameMax     = "frame_max"
	attrChannelNames = "fl_channel_names"
	defaultChannelNm = "brightness_0"
)

// HDF5Opener opens data.h5 containers: a frames x height x width "labels"
// dataset plus frame_min / frame_max / fl_channel_names root attributes.
type HDF5Opener struct {
	Logger logger.Logger
}

func (o HDF5Opener) Open(dir string) (Container, error) {
	c, err := OpenHDF5(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	if c.namesErr != nil && o.Logger != nil {
		o.Logger.Warning("labels", "channel names unavailable, using brightness column name", map[string]interface{}{
			"dir":   dir,
			"error": c.namesErr.Error(),
		})
	}
	return c, nil
}

// HDF5 is a label container backed by an open HDF5 file handle. The handle
// is held until Close.
type HDF5 struct {
	mu sync.Mutex

	file    *hdf5.File
	dataset *hdf5.Dataset

	frames   int
	height   int
	width    int
	frameMin int
	frameMax int

	channelNames []string
	// namesErr records why channel names fell back to the default.
	namesErr error
}

// OpenHDF5 opens path read-only.
func OpenHDF5(path string) (*HDF5, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("label container %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("label container %s: %w: %v", path, models.ErrIO, err)
	}

	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, models.ErrIO, err)
	}

	c := &HDF5{file: f}
	if err := c.init(); err != nil {
		c.Close()
		return nil, fmt.Errorf("label container %s: %w", path, err)
	}
	return c, nil
}

func (c *HDF5) init() error {
	dset, err := c.file.OpenDataset(labelsDataset)
	if err != nil {
		return fmt.Errorf("dataset %q: %w: %v", labelsDataset, models.ErrInvalidData, err)
	}
	c.dataset = dset

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return fmt.Errorf("dataset %q extent: %w: %v", labelsDataset, models.ErrInvalidData, err)
	}
	if len(dims) != 3 {
		return fmt.Errorf("dataset %q has %d dimensions, want 3: %w", labelsDataset, len(dims), models.ErrInvalidData)
	}
	c.frames, c.height, c.width = int(dims[0]), int(dims[1]), int(dims[2])

	root, err := c.file.OpenGroup("/")
	if err != nil {
		return fmt.Errorf("root group: %w: %v", models.ErrInvalidData, err)
	}
	defer root.Close()

	if c.frameMin, err = readIntAttr(root, attrFrameMin); err != nil {
		return err
	}
	if c.frameMax, err = readIntAttr(root, attrFrameMax); err != nil {
		return err
	}

	c.channelNames, c.namesErr = readStringsAttr(root, attrChannelNames)
	if c.namesErr != nil || len(c.channelNames) == 0 {
		if c.namesErr == nil {
			c.namesErr = fmt.Errorf("attribute %q is empty", attrChannelNames)
		}
		c.channelNames = []string{defaultChannelNm}
	}
	return nil
}

// readStringsAttr reads a scalar or 1-D variable-length string attribute,
// the layout h5py writes for a list of str.
func readStringsAttr(g *hdf5.Group, name string) ([]string, error) {
	attr, err := g.OpenAttribute(name)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w: %v", name, models.ErrNotFound, err)
	}
	defer attr.Close()

	space := attr.Space()
	defer space.Close()
	n := space.SimpleExtentNPoints()
	if n <= 0 {
		return nil, nil
	}

	// HDF5 fills one C string pointer per element.
	ptrs := make([]*byte, n)
	if err := attr.Read(&ptrs[0], hdf5.T_GO_STRING); err != nil {
		return nil, fmt.Errorf("read attribute %q: %w: %v", name, models.ErrInvalidData, err)
	}

	names := make([]string, n)
	for i, p := range ptrs {
		names[i] = cString(p)
	}
	return names, nil
}

func cString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func readIntAttr(g *hdf5.Group, name string) (int, error) {
	attr, err := g.OpenAttribute(name)
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %w: %v", name, models.ErrInvalidData, err)
	}
	defer attr.Close()

	var v int64
	if err := attr.Read(&v, hdf5.T_NATIVE_INT64); err != nil {
		return 0, fmt.Errorf("read attribute %q: %w: %v", name, models.ErrInvalidData, err)
	}
	return int(v), nil
}

func (c *HDF5) FrameMin() int { return c.frameMin }
func (c *HDF5) FrameMax() int { return c.frameMax }

// ChannelNames returns the fluorescence channel names from fl_channel_names,
// or the brightness column name when the attribute is missing.
func (c *HDF5) ChannelNames() []string {
	return append([]string(nil), c.channelNames...)
}

// Labels reads one frame with a hyperslab selection, without loading the
// whole stack.
func (c *HDF5) Labels(local int) (*Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataset == nil {
		return nil, fmt.Errorf("label container closed: %w", models.ErrIO)
	}
	if local < 0 || local >= c.frames {
		return nil, fmt.Errorf("label frame %d of %d: %w", local, c.frames, models.ErrOutOfRange)
	}

	filespace := c.dataset.Space()
	defer filespace.Close()

	offset := []uint{uint(local), 0, 0}
	count := []uint{1, uint(c.height), uint(c.width)}
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, fmt.Errorf("select frame %d: %w: %v", local, models.ErrIO, err)
	}

	memspace, err := hdf5.CreateSimpleDataspace([]uint{uint(c.height * c.width)}, nil)
	if err != nil {
		return nil, fmt.Errorf("memory dataspace: %w: %v", models.ErrIO, err)
	}
	defer memspace.Close()

	img := NewImage(c.width, c.height)
	if err := c.dataset.ReadSubset(&img.Pix, memspace, filespace); err != nil {
		return nil, fmt.Errorf("read frame %d: %w: %v", local, models.ErrIO, err)
	}
	return img, nil
}

// Close releases the dataset and file handles. Safe to call twice.
func (c *HDF5) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.dataset != nil {
		errs = append(errs, c.dataset.Close())
		c.dataset = nil
	}
	if c.file != nil {
		errs = append(errs, c.file.Close())
		c.file = nil
	}
	return errors.Join(errs...)
}
