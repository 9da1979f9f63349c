package datasets

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ResizeCenterCrop returns an ImageTransform that resizes the smallest dimension
// of the image to size, preserving the aspect ratio, and then crops the largest
// dimension to size, cut from the middle. The result is always size x size pixels.
func ResizeCenterCrop(size int) ImageTransform {
	return func(img image.Image) image.Image {
		// 1. Resize the smallest dimension to size, preserving ratio.
		width := img.Bounds().Dx()
		height := img.Bounds().Dy()
		if width < height {
			ratio := float64(width) / float64(size)
			width = size
			height = int(math.Round(float64(height) / ratio))
		} else if height < width {
			ratio := float64(height) / float64(size)
			height = size
			width = int(math.Round(float64(width) / ratio))
		} else {
			width = size
			height = size
		}
		img = imaging.Resize(img, width, height, imaging.Linear)

		// 2. Crop at center the largest dimension to size.
		if width > height {
			start := (width - size) / 2
			img = imaging.Crop(img, image.Rect(start, 0, start+size, size))
		} else if height > width {
			start := (height - size) / 2
			img = imaging.Crop(img, image.Rect(0, start, size, start+size))
		}
		return img
	}
}

// ResizeWithPadding returns an ImageTransform that resizes the image to fit in
// width x height without distorting the scale, pasting it centered over a
// transparent background of exactly width x height.
func ResizeWithPadding(width, height int) ImageTransform {
	return func(img image.Image) image.Image {
		imgSize := img.Bounds().Size()
		wRatio := float64(width) / float64(imgSize.X)
		hRatio := float64(height) / float64(imgSize.Y)

		adjustedWidth, adjustedHeight := width, height
		if wRatio < hRatio {
			adjustedHeight = int(wRatio * float64(imgSize.Y))
		} else if hRatio < wRatio {
			adjustedWidth = int(hRatio * float64(imgSize.X))
		}
		img = imaging.Resize(img, adjustedWidth, adjustedHeight, imaging.Lanczos)
		if adjustedWidth != width || adjustedHeight != height {
			bgImg := image.NewRGBA(image.Rect(0, 0, width, height))
			img = imaging.PasteCenter(bgImg, img)
		}
		return img
	}
}
