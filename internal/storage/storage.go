// Package storage uploads request images to a single public bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// UploadPrefix is the folder every uploaded image is placed under.
const UploadPrefix = "uploads/"

// ObjectStore is a single bucket with deterministic public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, body []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
	Bucket() string
}

// PathFromURL extracts the object path from a public URL that starts with
// prefix, the store's PublicURL(""). ok is false for any other URL.
func PathFromURL(prefix, publicURL string) (string, bool) {
	path, ok := strings.CutPrefix(publicURL, prefix)
	if !ok || prefix == "" || path == "" {
		return "", false
	}
	return path, true
}

func publicURL(base, bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, strings.TrimPrefix(path, "/"))
}
