// Package render turns raw planes and label masks into the composited,
// outline-annotated frame shown to the reviewer.
package render

import (
	"fmt"
	"image"

	"trackview/internal/opencv/conversion"

	"gocv.io/x/gocv"
)

const maxUint16 = 65535

// Normalize maps a 16-bit plane to 8 bits. Intensities at or above threshold
// saturate; the rest scale linearly to the full range. The 8-bit step
// rounds instead of truncating.
func Normalize(raw *image.Gray16, threshold int) (gocv.Mat, error) {
	b := raw.Bounds()
	if threshold <= 0 {
		// every pixel is >= 0, so the whole plane saturates
		return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), b.Dy(), b.Dx(), gocv.MatTypeCV8UC1), nil
	}

	clipped, err := scaleToRange(raw, threshold)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer clipped.Close()

	out := gocv.NewMat()
	gocv.ConvertScaleAbs(clipped, &out, 1.0/256.0, -0.49999)
	return out, nil
}

// scaleToRange returns the plane as CV64F scaled by 65535/threshold and
// clipped at 65535. The ratio is applied as a float64 matrix product.
func scaleToRange(raw *image.Gray16, threshold int) (gocv.Mat, error) {
	src, err := conversion.Gray16ToMat(raw)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("normalize: %w", err)
	}
	defer src.Close()

	wide := gocv.NewMat()
	defer wide.Close()
	src.ConvertTo(&wide, gocv.MatTypeCV64F)

	ratio := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(maxUint16/float64(threshold), 0, 0, 0), wide.Rows(), wide.Cols(), gocv.MatTypeCV64F)
	defer ratio.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Multiply(wide, ratio, &scaled)

	clipped := gocv.NewMat()
	gocv.Threshold(scaled, &clipped, maxUint16, maxUint16, gocv.ThresholdTrunc)
	return clipped, nil
}

// ToBGR expands a single-channel image to 3-channel gray.
func ToBGR(gray gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.CvtColor(gray, &out, gocv.ColorGrayToBGR)
	return out
}

// Threshold picks the saturation threshold of a channel. Channel 0 is
// brightfield and always uses its fixed threshold.
func Threshold(channel, contrast, brightfield int) int {
	if channel == 0 {
		return brightfield
	}
	return contrast
}
