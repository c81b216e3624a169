// Package conversion moves pixel data between Go images and gocv Mats.
package conversion

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"gocv.io/x/gocv"
)

// ValidateMat rejects empty Mats and Mats of an unexpected channel count.
// A channels value of 0 accepts any count.
func ValidateMat(mat gocv.Mat, channels int, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("%s: empty Mat", operation)
	}
	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("%s: invalid dimensions %dx%d", operation, mat.Cols(), mat.Rows())
	}
	if channels > 0 && mat.Channels() != channels {
		return fmt.Errorf("%s: expected %d channels, got %d", operation, channels, mat.Channels())
	}
	return nil
}

// fromBytes builds a Mat that owns its pixels. NewMatFromBytes may reference
// the Go slice, so the result is cloned before data can be collected.
func fromBytes(rows, cols int, matType gocv.MatType, data []byte) (gocv.Mat, error) {
	ref, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("Mat creation failed: %w", err)
	}
	defer ref.Close()
	out := ref.Clone()
	runtime.KeepAlive(data)
	return out, nil
}

// Gray16ToMat converts a 16-bit plane to a CV_16UC1 Mat.
func Gray16ToMat(img *image.Gray16) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("input image is nil")
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image %dx%d", width, height)
	}

	data := make([]byte, 2*width*height)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			binary.LittleEndian.PutUint16(data[i:], img.Gray16At(x, y).Y)
			i += 2
		}
	}
	return fromBytes(height, width, gocv.MatTypeCV16UC1, data)
}

// Int32ToMat converts a row-major label buffer to a CV_64FC1 Mat, the depth
// the linear filters operate on.
func Int32ToMat(pix []int32, width, height int) (gocv.Mat, error) {
	if len(pix) != width*height {
		return gocv.NewMat(), fmt.Errorf("buffer of %d values does not match %dx%d", len(pix), width, height)
	}
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image %dx%d", width, height)
	}

	data := make([]byte, 8*len(pix))
	for i, v := range pix {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(float64(v)))
	}
	return fromBytes(height, width, gocv.MatTypeCV64FC1, data)
}

// MatToFloat64 returns the pixels of a CV_64FC1 Mat in row-major order.
func MatToFloat64(mat gocv.Mat) ([]float64, error) {
	if err := ValidateMat(mat, 1, "float extraction"); err != nil {
		return nil, err
	}
	if mat.Type() != gocv.MatTypeCV64FC1 {
		return nil, fmt.Errorf("float extraction: unexpected Mat type %v", mat.Type())
	}

	data := mat.ToBytes()
	out := make([]float64, mat.Rows()*mat.Cols())
	if len(data) < 8*len(out) {
		return nil, fmt.Errorf("float extraction: short buffer %d", len(data))
	}
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return out, nil
}

// MatToImage converts an 8-bit GoCV Mat to a standard Go image.
func MatToImage(src gocv.Mat) (image.Image, error) {
	if err := ValidateMat(src, 0, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()

	switch src.Channels() {
	case 1:
		return matToGray(src, rows, cols)
	case 3:
		return matToBGRToRGBA(src, rows, cols, 3)
	case 4:
		return matToBGRToRGBA(src, rows, cols, 4)
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// matToGray converts single-channel Mat to grayscale image
func matToGray(src gocv.Mat, rows, cols int) (*image.Gray, error) {
	data := src.ToBytes()
	if len(data) < rows*cols {
		return nil, fmt.Errorf("pixel buffer too short: %d", len(data))
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+cols], data[y*cols:(y+1)*cols])
	}
	return img, nil
}

// matToBGRToRGBA converts BGR or BGRA Mat to RGBA image
func matToBGRToRGBA(src gocv.Mat, rows, cols, channels int) (*image.RGBA, error) {
	data := src.ToBytes()
	if len(data) < rows*cols*channels {
		return nil, fmt.Errorf("pixel buffer too short: %d", len(data))
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p := (y*cols + x) * channels
			a := uint8(255)
			if channels == 4 {
				a = data[p+3]
			}
			img.SetRGBA(x, y, color.RGBA{R: data[p+2], G: data[p+1], B: data[p], A: a})
		}
	}
	return img, nil
}
