package components

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ImageDisplay is a titled raster area that scales its image to fit.
type ImageDisplay struct {
	container *fyne.Container
	title     *widget.RichText
	image     *canvas.Image
	empty     *widget.Label
}

func NewImageDisplay(title string, width, height float32) *ImageDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(fyne.NewSize(width, height))

	empty := widget.NewLabel("No data")
	empty.Alignment = fyne.TextAlignCenter

	heading := widget.NewRichTextFromMarkdown("**" + title + "**")

	return &ImageDisplay{
		container: container.NewBorder(heading, nil, nil, nil, container.NewStack(img, container.NewCenter(empty))),
		title:     heading,
		image:     img,
		empty:     empty,
	}
}

func (d *ImageDisplay) GetContainer() *fyne.Container {
	return d.container
}

// SetImage replaces the shown image. nil clears the display.
func (d *ImageDisplay) SetImage(img image.Image) {
	d.image.Image = img
	if img == nil {
		d.empty.Show()
	} else {
		d.empty.Hide()
	}
	d.image.Refresh()
}

// HasImage reports whether an image is shown.
func (d *ImageDisplay) HasImage() bool {
	return d.image.Image != nil
}
