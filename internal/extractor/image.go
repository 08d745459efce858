package extractor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PreparedImage is an image normalized for upload.
type PreparedImage struct {
	Data   []byte // JPEG encoded
	Width  int
	Height int
}

// PrepareImage decodes data, downscales it to fit within maxSize and re-encodes it as JPEG.
// A maxSize of zero keeps the original dimensions.
func PrepareImage(data []byte, maxSize int) (*PreparedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	newWidth, newHeight := fitWithin(width, height, maxSize)
	var out image.Image = img
	if newWidth != width || newHeight != height {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &PreparedImage{Data: buf.Bytes(), Width: newWidth, Height: newHeight}, nil
}

// fitWithin scales width and height so the longer side is at most maxSize, keeping aspect ratio.
func fitWithin(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height
	}
	if width > height {
		return maxSize, max(1, int(float64(height)*float64(maxSize)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxSize)/float64(height))), maxSize
}
