package render

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"trackview/internal/frames"
	"trackview/internal/labels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// square returns a 12x12 mask with label 1 on [2,9)x[2,9).
func square() *labels.Image {
	img := labels.NewImage(12, 12)
	img.FillRect(image.Rect(2, 2, 9, 9), 1)
	return img
}

func bgrAt(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{m.GetUCharAt3(y, x, 0), m.GetUCharAt3(y, x, 1), m.GetUCharAt3(y, x, 2)}
}

func TestNormalizeMonotonicUntilThreshold(t *testing.T) {
	raw := image.NewGray16(image.Rect(0, 0, 8, 1))
	values := []uint16{0, 100, 2500, 5000, 9999, 10000, 20000, 65535}
	for i, v := range values {
		raw.SetGray16(i, 0, color.Gray16{Y: v})
	}

	out, err := Normalize(raw, 10000)
	require.NoError(t, err)
	defer out.Close()
	require.Equal(t, gocv.MatTypeCV8UC1, out.Type())

	prev := uint8(0)
	for i := range values {
		got := out.GetUCharAt(0, i)
		assert.GreaterOrEqual(t, got, prev, "pixel %d", i)
		prev = got
	}
	assert.EqualValues(t, 0, out.GetUCharAt(0, 0))
	assert.EqualValues(t, 255, out.GetUCharAt(0, 5))
	assert.EqualValues(t, 255, out.GetUCharAt(0, 7))
}

func TestNormalizeZeroThresholdSaturates(t *testing.T) {
	out, err := Normalize(frames.Uniform(3, 2, 0), 0)
	require.NoError(t, err)
	defer out.Close()
	assert.EqualValues(t, 255, out.GetUCharAt(1, 2))
}

func TestScaleToRangeUsesDoublePrecision(t *testing.T) {
	const threshold = 12345
	values := []uint16{0, 1, 7, 4321, 12344, 12345, 40000}
	raw := image.NewGray16(image.Rect(0, 0, len(values), 1))
	for i, v := range values {
		raw.SetGray16(i, 0, color.Gray16{Y: v})
	}

	scaled, err := scaleToRange(raw, threshold)
	require.NoError(t, err)
	defer scaled.Close()
	require.Equal(t, gocv.MatTypeCV64F, scaled.Type())

	ratio := 65535 / float64(threshold)
	for i, v := range values {
		want := min(float64(v)*ratio, 65535)
		assert.InDelta(t, want, scaled.GetDoubleAt(0, i), 1e-9, "pixel %d", i)
	}
}

func TestThresholdUsesBrightfieldForChannelZero(t *testing.T) {
	assert.Equal(t, 40000, Threshold(0, 10000, 40000))
	assert.Equal(t, 10000, Threshold(1, 10000, 40000))
}

func TestOutlinesClearInteriorKeepEdges(t *testing.T) {
	out, err := Outlines(square())
	require.NoError(t, err)

	assert.EqualValues(t, 0, out.At(5, 5), "interior")
	assert.EqualValues(t, 1, out.At(2, 5), "left edge")
	assert.EqualValues(t, 1, out.At(8, 8), "corner")
	assert.EqualValues(t, 0, out.At(0, 0), "background")
	assert.EqualValues(t, 0, out.At(1, 5), "background next to edge")
}

func TestOutlinesKeepIsolatedPixel(t *testing.T) {
	img := labels.NewImage(9, 9)
	img.Set(4, 4, 7)

	out, err := Outlines(img)
	require.NoError(t, err)
	// the center counts toward the mean, so a lone pixel is not background
	assert.EqualValues(t, 7, out.At(4, 4))
	assert.Equal(t, 13, outlineKernelSum)
	assert.EqualValues(t, 1, outlineKernel[2*5+2])
}

func TestOutlinesBetweenTouchingLabels(t *testing.T) {
	img := labels.NewImage(12, 6)
	img.FillRect(image.Rect(0, 0, 6, 6), 3)
	img.FillRect(image.Rect(6, 0, 12, 6), 4)

	out, err := Outlines(img)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out.At(5, 3))
	assert.EqualValues(t, 4, out.At(6, 3))
	assert.EqualValues(t, 0, out.At(2, 3))
}

func TestMasks(t *testing.T) {
	outlines := labels.NewImage(3, 1)
	outlines.Pix = []int32{0, 1, 2}

	in, err := MaskIn(outlines, NewLabelSet(2))
	require.NoError(t, err)
	defer in.Close()
	assert.EqualValues(t, 0, in.GetUCharAt(0, 1))
	assert.EqualValues(t, 255, in.GetUCharAt(0, 2))

	eq, err := MaskEqual(outlines, 1)
	require.NoError(t, err)
	defer eq.Close()
	assert.EqualValues(t, 255, eq.GetUCharAt(0, 1))
	assert.EqualValues(t, 0, eq.GetUCharAt(0, 2))
}

func TestCombineSelectsThroughMask(t *testing.T) {
	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 1, 2, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 2, 3, 0), 1, 2, gocv.MatTypeCV8UC3)
	defer b.Close()
	m := gocv.NewMatWithSize(1, 2, gocv.MatTypeCV8UC1)
	defer m.Close()
	m.SetUCharAt(0, 0, 255)
	m.SetUCharAt(0, 1, 0)

	out := Combine(a, b, m)
	defer out.Close()
	assert.Equal(t, [3]uint8{10, 20, 30}, bgrAt(out, 0, 0))
	assert.Equal(t, [3]uint8{1, 2, 3}, bgrAt(out, 1, 0))
}

func TestOverlaySelectionColorWins(t *testing.T) {
	outlines, err := Outlines(square())
	require.NoError(t, err)

	for _, tc := range []struct {
		name    string
		enabled bool
		want    [3]uint8
	}{
		{"enabled selection is blue", true, [3]uint8{255, 0, 0}},
		{"disabled selection is orange", false, [3]uint8{0, 140, 255}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			overlay, mask, err := Overlay(outlines, Layers{
				Tracked:         NewLabelSet(1),
				Enabled:         NewLabelSet(1),
				HasSelection:    true,
				Selected:        1,
				SelectedEnabled: tc.enabled,
			})
			require.NoError(t, err)
			defer overlay.Close()
			defer mask.Close()

			assert.Equal(t, tc.want, bgrAt(overlay, 2, 5))
			assert.EqualValues(t, 255, mask.GetUCharAt(5, 2))
			assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(overlay, 5, 5))
		})
	}
}

func TestOverlayLayerOrder(t *testing.T) {
	img := labels.NewImage(20, 10)
	img.FillRect(image.Rect(1, 1, 8, 8), 1)
	img.FillRect(image.Rect(11, 1, 18, 8), 2)
	outlines, err := Outlines(img)
	require.NoError(t, err)

	overlay, mask, err := Overlay(outlines, Layers{
		Tracked: NewLabelSet(1, 2),
		Enabled: NewLabelSet(2),
	})
	require.NoError(t, err)
	defer overlay.Close()
	defer mask.Close()

	assert.Equal(t, [3]uint8{0, 0, 255}, bgrAt(overlay, 1, 4), "tracked only is red")
	assert.Equal(t, [3]uint8{0, 255, 0}, bgrAt(overlay, 11, 4), "enabled is green")
}

func TestRenderKeepsFrameOutsideMask(t *testing.T) {
	outlines, err := Outlines(square())
	require.NoError(t, err)
	overlay, mask, err := Overlay(outlines, Layers{Tracked: NewLabelSet(1)})
	require.NoError(t, err)
	defer overlay.Close()
	defer mask.Close()

	gray, err := Normalize(frames.Uniform(12, 12, 5000), 10000)
	require.NoError(t, err)
	defer gray.Close()
	frame := ToBGR(gray)
	defer frame.Close()

	out := Render(overlay, frame, mask)
	defer out.Close()

	base := gray.GetUCharAt(0, 0)
	assert.Equal(t, [3]uint8{base, base, base}, bgrAt(out, 5, 5))
	assert.Equal(t, [3]uint8{0, 0, 255}, bgrAt(out, 2, 5))
}

func TestBlankOverlayLeavesFrameUntouched(t *testing.T) {
	overlay, mask := Blank(4, 3)
	defer overlay.Close()
	defer mask.Close()
	assert.Equal(t, 3, overlay.Rows())
	assert.Equal(t, 4, overlay.Cols())
	assert.Equal(t, 0, gocv.CountNonZero(mask))
}

func TestEncodeJPEGBase64(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()

	s, err := EncodeJPEGBase64(img, 90)
	require.NoError(t, err)
	data, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
}
