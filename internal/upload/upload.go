// Package upload stores avatar images with an external object host and
// returns their public URL. The account service never keeps the bytes.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported image type")

// Uploader is the object-upload collaborator.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// DetectImage sniffs data and returns its MIME type and extension. Only
// common web image formats are accepted.
func DetectImage(data []byte) (contentType, ext string, err error) {
	mt := mimetype.Detect(data)
	if _, ok := allowedImageTypes[mt.String()]; !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	return mt.String(), mt.Extension(), nil
}

// AvatarKey builds the object key for a new avatar of accountID.
func AvatarKey(accountID, ext string) string {
	return path.Join("avatars", accountID, uuid.NewString()+ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// keyFromURL reverses joinURL for URLs under base.
func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
