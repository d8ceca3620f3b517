// Package images checks uploaded image files before they reach the blob
// store.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/webp"
)

// MaxUploadSize is the largest accepted image upload.
const MaxUploadSize = 5 << 20

var (
	ErrEmpty       = errors.New("empty file")
	ErrTooLarge    = errors.New("file is too large")
	ErrUnsupported = errors.New("unsupported image type")
)

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// Info describes a validated upload.
type Info struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Inspect validates data as a JPEG, PNG or WebP image no larger than
// MaxUploadSize. The format is taken from the bytes, not from the declared
// content type or file name.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if len(data) > MaxUploadSize {
		return Info{}, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, http.DetectContentType(data))
	}
	ct, ok := contentTypes[format]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}

	return Info{Format: format, ContentType: ct, Width: cfg.Width, Height: cfg.Height}, nil
}

// Message is the user-facing text for an Inspect error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return "Max image size is 5MB."
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrEmpty):
		return "Only .jpg, .jpeg, .png and .webp formats are supported."
	default:
		return "Invalid image file."
	}
}
