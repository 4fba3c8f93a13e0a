package image

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

type Processor struct{}

// Fit scales img down so neither side exceeds maxSide, keeping the aspect
// ratio. Images already within bounds are returned unchanged.
func (p *Processor) Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3)
}

func (p *Processor) CropToSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w == h {
		return img
	}

	var crop image.Rectangle
	if w > h {
		offset := (w - h) / 2
		crop = image.Rect(b.Min.X+offset, b.Min.Y, b.Min.X+offset+h, b.Min.Y+h)
	} else {
		offset := (h - w) / 2
		crop = image.Rect(b.Min.X, b.Min.Y+offset, b.Min.X+w, b.Min.Y+offset+w)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, crop.Min, draw.Src)
	return rgba
}
