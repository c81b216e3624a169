package render

import (
	"fmt"
	"image"
	"image/color"

	"trackview/internal/labels"

	"gocv.io/x/gocv"
)

// Overlay colors. gocv converts them to BGR when drawing.
var (
	ColorTracked          = color.RGBA{R: 255, A: 255}
	ColorEnabled          = color.RGBA{G: 255, A: 255}
	ColorSelected         = color.RGBA{B: 255, A: 255}
	ColorSelectedDisabled = color.RGBA{R: 255, G: 140, A: 255}
)

// Combine takes a where mask is set and b elsewhere. a and b are 3-channel,
// mask is single-channel 0/255.
func Combine(a, b, mask gocv.Mat) gocv.Mat {
	mask3 := gocv.NewMat()
	defer mask3.Close()
	gocv.CvtColor(mask, &mask3, gocv.ColorGrayToBGR)

	inv := gocv.NewMat()
	defer inv.Close()
	gocv.BitwiseNot(mask3, &inv)

	ma := gocv.NewMat()
	defer ma.Close()
	gocv.BitwiseAnd(a, mask3, &ma)

	mb := gocv.NewMat()
	defer mb.Close()
	gocv.BitwiseAnd(b, inv, &mb)

	out := gocv.NewMat()
	gocv.Add(ma, mb, &out)
	return out
}

// Layers describes what the overlay marks at one frame.
type Layers struct {
	Tracked LabelSet
	Enabled LabelSet

	// HasSelection is false when the selected particle has no label at
	// this frame.
	HasSelection    bool
	Selected        int32
	SelectedEnabled bool
}

// Overlay paints the outline layers bottom to top: tracked in red, enabled
// in green, then the selection in blue (orange when disabled). It returns
// the overlay and the tracked mask used to merge it onto the frame.
func Overlay(outlines *labels.Image, layers Layers) (overlay, trackedMask gocv.Mat, err error) {
	w, h := outlines.Width, outlines.Height

	trackedMask, err = MaskIn(outlines, layers.Tracked)
	if err != nil {
		return gocv.NewMat(), gocv.NewMat(), fmt.Errorf("tracked mask: %w", err)
	}

	overlay = gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	overlay.SetTo(gocv.NewScalar(0, 0, 0, 0))

	overlay = paint(overlay, ColorTracked, trackedMask)

	enabledMask, err := MaskIn(outlines, layers.Enabled)
	if err != nil {
		overlay.Close()
		trackedMask.Close()
		return gocv.NewMat(), gocv.NewMat(), fmt.Errorf("enabled mask: %w", err)
	}
	overlay = paint(overlay, ColorEnabled, enabledMask)
	enabledMask.Close()

	if layers.HasSelection {
		selectedMask, err := MaskEqual(outlines, layers.Selected)
		if err != nil {
			overlay.Close()
			trackedMask.Close()
			return gocv.NewMat(), gocv.NewMat(), fmt.Errorf("selection mask: %w", err)
		}
		c := ColorSelected
		if !layers.SelectedEnabled {
			c = ColorSelectedDisabled
		}
		overlay = paint(overlay, c, selectedMask)
		selectedMask.Close()
	}

	return overlay, trackedMask, nil
}

// paint composites a solid layer of c onto base through mask and releases
// base.
func paint(base gocv.Mat, c color.RGBA, mask gocv.Mat) gocv.Mat {
	layer := gocv.NewMatWithSize(base.Rows(), base.Cols(), gocv.MatTypeCV8UC3)
	defer layer.Close()
	gocv.Rectangle(&layer, image.Rect(0, 0, base.Cols(), base.Rows()), c, -1)

	out := Combine(layer, base, mask)
	base.Close()
	return out
}

// Blank returns an empty overlay and mask, used for frames without labels.
func Blank(width, height int) (overlay, mask gocv.Mat) {
	overlay = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	overlay.SetTo(gocv.NewScalar(0, 0, 0, 0))
	mask = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return overlay, mask
}

// Render merges the overlay onto the 3-channel frame through mask.
func Render(overlay, frame, mask gocv.Mat) gocv.Mat {
	return Combine(overlay, frame, mask)
}
