// Package assets moves avatar images to and from the object store.
//
// Every upload gets a fresh random key; the store never overwrites an
// object. Old objects are not deleted when a profile moves on to a new key.
package assets

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/common"
)

var (
	ErrRejected = fmt.Errorf("avatar storage %w", common.ErrorRejected)
	ErrNotFound = fmt.Errorf("avatar %w", common.ErrorNotFound)
	ErrNetwork  = fmt.Errorf("avatar storage: %w", common.ErrorUnavailable)
)

type Transfer interface {
	// Upload stores data under a new key and returns it.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	// Download fails with ErrNotFound or ErrNetwork.
	Download(ctx context.Context, key string) ([]byte, error)
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func extensionFor(contentType string) string {
	return extensions[contentType]
}
