package labels

import "image"

// Image is a 2D label mask: each pixel holds the id of the object covering
// it, 0 for background. Pix is row-major.
type Image struct {
	Width  int
	Height int
	Pix    []int32
}

// NewImage allocates a zeroed label image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]int32, width*height)}
}

func (m *Image) At(x, y int) int32 {
	return m.Pix[y*m.Width+x]
}

func (m *Image) Set(x, y int, v int32) {
	m.Pix[y*m.Width+x] = v
}

// Bounds returns the image rectangle anchored at the origin.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Crop copies the part of m inside r. r is clipped to the image.
func (m *Image) Crop(r image.Rectangle) *Image {
	r = r.Intersect(m.Bounds())
	out := NewImage(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := (r.Min.Y+y)*m.Width + r.Min.X
		copy(out.Pix[y*out.Width:(y+1)*out.Width], m.Pix[src:src+out.Width])
	}
	return out
}

// FillRect sets every pixel of r to v. Used to paint synthetic masks.
func (m *Image) FillRect(r image.Rectangle, v int32) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, v)
		}
	}
}
