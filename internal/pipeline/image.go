package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var formatMIMETypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Image is one uploaded receipt as received from the caller.
type Image struct {
	Filename string
	Data     []byte
}

// DecodedImage is an image that was verified to decode as PNG, JPEG or WEBP.
type DecodedImage struct {
	Filename string
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// DecodeImage verifies that data is a complete, supported image. The original
// bytes are passed to the model unchanged.
func DecodeImage(data []byte, filename string) (DecodedImage, error) {
	if len(data) == 0 {
		return DecodedImage{}, fmt.Errorf("DecodeImage: %s: empty file: %w", filename, ErrUnsupportedImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return DecodedImage{}, fmt.Errorf("DecodeImage: %s: %v: %w", filename, err, ErrUnsupportedImage)
	}

	mime, ok := formatMIMETypes[format]
	if !ok {
		return DecodedImage{}, fmt.Errorf("DecodeImage: %s: format %q: %w", filename, format, ErrUnsupportedImage)
	}

	bounds := img.Bounds()
	return DecodedImage{
		Filename: filename,
		MIMEType: mime,
		Data:     data,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
