package render

import (
	"fmt"
	"image"

	"trackview/internal/labels"
	"trackview/internal/opencv/conversion"

	"gocv.io/x/gocv"
)

// outlineKernel is a 5x5 diamond of 13 ones.
var outlineKernel = []int32{
	0, 0, 1, 0, 0,
	0, 1, 1, 1, 0,
	1, 1, 1, 1, 1,
	0, 1, 1, 1, 0,
	0, 0, 1, 0, 0,
}

const outlineKernelSum = 13

// Outlines keeps only the boundary pixels of each labeled object. A pixel
// whose diamond neighborhood mean equals its own label is interior and
// cleared; any other pixel with a positive mean keeps its original label.
func Outlines(img *labels.Image) (*labels.Image, error) {
	src, err := conversion.Int32ToMat(img.Pix, img.Width, img.Height)
	if err != nil {
		return nil, fmt.Errorf("outlines: %w", err)
	}
	defer src.Close()

	kernel, err := conversion.Int32ToMat(outlineKernel, 5, 5)
	if err != nil {
		return nil, fmt.Errorf("outline kernel: %w", err)
	}
	defer kernel.Close()

	filtered := gocv.NewMat()
	defer filtered.Close()
	gocv.Filter2D(src, &filtered, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	sums, err := conversion.MatToFloat64(filtered)
	if err != nil {
		return nil, fmt.Errorf("outlines: %w", err)
	}

	out := labels.NewImage(img.Width, img.Height)
	for i, v := range img.Pix {
		// integer sums divide exactly, so uniform neighborhoods compare equal
		mean := sums[i] / outlineKernelSum
		if mean != float64(v) && mean > 0 {
			out.Pix[i] = v
		}
	}
	return out, nil
}

// LabelSet is a set of label ids.
type LabelSet map[int32]struct{}

// NewLabelSet builds a set from ids.
func NewLabelSet(ids ...int32) LabelSet {
	s := make(LabelSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// MaskIn is 255 where the outline label belongs to set, 0 elsewhere.
func MaskIn(outlines *labels.Image, set LabelSet) (gocv.Mat, error) {
	return mask(outlines, func(v int32) bool {
		_, ok := set[v]
		return ok
	})
}

// MaskEqual is 255 where the outline label equals label, 0 elsewhere.
func MaskEqual(outlines *labels.Image, label int32) (gocv.Mat, error) {
	return mask(outlines, func(v int32) bool { return v == label })
}

func mask(outlines *labels.Image, keep func(int32) bool) (gocv.Mat, error) {
	gray := image.NewGray(outlines.Bounds())
	for i, v := range outlines.Pix {
		if keep(v) {
			gray.Pix[i] = 255
		}
	}
	m, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("mask: %w", err)
	}
	return m, nil
}
