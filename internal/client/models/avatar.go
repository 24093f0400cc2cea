package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
)

// ErrInvalidImage is returned when avatar bytes cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// AvatarAsset is an image held in memory: the raw bytes that travel to and
// from the object store plus the decoded image for renderers.
type AvatarAsset struct {
	Data        []byte
	ContentType string
	Image       image.Image
}

// NewAvatarAsset decodes data right away so that a corrupt blob fails here
// instead of rendering as an empty avatar later.
func NewAvatarAsset(data []byte) (*AvatarAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image: %w", ErrInvalidImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ct := "image/" + format
	if format == "" {
		ct = http.DetectContentType(data)
	}

	return &AvatarAsset{Data: data, ContentType: ct, Image: img}, nil
}

// Bounds returns the decoded width and height.
func (a *AvatarAsset) Bounds() (int, int) {
	if a == nil || a.Image == nil {
		return 0, 0
	}
	b := a.Image.Bounds()
	return b.Dx(), b.Dy()
}
