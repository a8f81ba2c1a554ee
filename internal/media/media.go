// Package media stores uploaded images, either on the local filesystem or in an S3 bucket.
package media

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Storage is an object store addressed by slash-separated keys such as
// "1024/gallery/front.jpg".
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// CopyPrefix copies every object under src to the same relative key under dst.
	CopyPrefix(ctx context.Context, src, dst string) (int, error)
	// DeletePrefix removes every object under prefix. A missing prefix is not an error.
	DeletePrefix(ctx context.Context, prefix string) error
	// URL returns the address clients fetch the object from.
	URL(key string) string
}

// checkKey rejects keys that could escape the storage root.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid media key %q", key)
	}
	trimmed := strings.TrimSuffix(key, "/")
	if path.Clean(trimmed) != trimmed || strings.HasPrefix(trimmed, "..") {
		return fmt.Errorf("invalid media key %q", key)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("invalid media key %q", key)
		}
	}
	return nil
}
