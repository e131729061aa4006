package publish

import (
	"context"
	"path/filepath"
	"strings"
)

// target abstracts the hosting backend. Keys are slash-separated paths
// relative to the hosting root, e.g. "acme/2025_05_May/report.html".
type target interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URLFor(key string) string
	Name() string
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".css":
		return "text/css"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
