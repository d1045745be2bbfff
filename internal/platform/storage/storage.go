// Package storage adapts S3-compatible object storage for uploaded images.
package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object identifies a stored object. Key is the canonical identifier used
// for deletion; URL is what clients render.
type Object struct {
	Key string
	URL string
}

// Upload is a file handed to the store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the image store port consumed by catalog modules.
type Store interface {
	Put(ctx context.Context, prefix string, up Upload) (Object, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision-free object key under prefix keeping the
// original file extension.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return uuid.NewString() + ext
	}
	return prefix + "/" + uuid.NewString() + ext
}

func contentTypeFor(up Upload) string {
	if up.ContentType != "" && up.ContentType != "application/octet-stream" {
		return up.ContentType
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(up.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// IsImage reports whether the upload's declared or inferred content type is
// an image type.
func IsImage(up Upload) bool {
	return strings.HasPrefix(contentTypeFor(up), "image/")
}
