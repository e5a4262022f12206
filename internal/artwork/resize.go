package artwork

import (
	"bytes"
	"fmt"
	_ "image/gif" // GIF format support
	_ "image/png" // PNG format support

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// Resize scales the image to exactly width x height, cropping around the
// center to keep the aspect ratio, and encodes the result as JPEG.
func Resize(data []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	out := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
