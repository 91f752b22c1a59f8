// Package imagecrop trims uniform background borders from an image,
// leaving the smallest rectangle that still contains all the content.
package imagecrop

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"
)

// tolerance is the per-channel distance (8-bit scale) at which a pixel is
// still considered part of the background.
const tolerance = 12

// CropToContent reads the image at src, removes the uniform border around
// its content and writes the result to dst as JPEG. The background color is
// sampled from the top-left corner. An image with no detectable content is
// written unchanged.
func CropToContent(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	box := contentBox(img)
	if box.Empty() {
		box = img.Bounds()
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create cropped image: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, crop(img, box), &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode cropped image: %w", err)
	}
	return nil
}

// contentBox returns the bounding rectangle of every pixel that differs from
// the background color beyond the tolerance.
func contentBox(img image.Image) image.Rectangle {
	bounds := img.Bounds()
	bg := color.NRGBAModel.Convert(img.At(bounds.Min.X, bounds.Min.Y)).(color.NRGBA)

	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if !nearBackground(px, bg) {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func nearBackground(px, bg color.NRGBA) bool {
	return absDiff(px.R, bg.R) <= tolerance &&
		absDiff(px.G, bg.G) <= tolerance &&
		absDiff(px.B, bg.B) <= tolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func crop(img image.Image, box image.Rectangle) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			out.Set(x-box.Min.X, y-box.Min.Y, img.At(x, y))
		}
	}
	return out
}
