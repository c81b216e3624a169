package conversion

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestGray16ToMatKeepsValues(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	img.SetGray16(2, 1, color.Gray16{Y: 50000})

	mat, err := Gray16ToMat(img)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 2, mat.Rows())
	assert.Equal(t, 3, mat.Cols())
	assert.Equal(t, gocv.MatTypeCV16UC1, mat.Type())
	assert.EqualValues(t, 50000, uint16(mat.GetShortAt(1, 2)))
}

func TestInt32RoundTripThroughFloatMat(t *testing.T) {
	pix := []int32{0, 1, 2, 70000, 5, 6}
	mat, err := Int32ToMat(pix, 3, 2)
	require.NoError(t, err)
	defer mat.Close()

	got, err := MatToFloat64(mat)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 70000, 5, 6}, got)
}

func TestInt32ToMatRejectsSizeMismatch(t *testing.T) {
	_, err := Int32ToMat([]int32{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestMatToImageBGR(t *testing.T) {
	mat := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetUCharAt3(0, 1, 0, 10)
	mat.SetUCharAt3(0, 1, 1, 20)
	mat.SetUCharAt3(0, 1, 2, 30)

	img, err := MatToImage(mat)
	require.NoError(t, err)
	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 255}, rgba.RGBAAt(1, 0))
}

func TestMatToImageGray(t *testing.T) {
	mat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV8UC1)
	defer mat.Close()
	mat.SetUCharAt(1, 2, 200)

	img, err := MatToImage(mat)
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.EqualValues(t, 200, gray.GrayAt(2, 1).Y)
}

func TestValidateMatEmpty(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()
	assert.Error(t, ValidateMat(mat, 0, "test"))
}
