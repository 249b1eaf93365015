package service

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

// imageExt picks a file extension from a file name or URL, defaulting to .jpg.
func imageExt(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(path.Ext(name))
	if _, ok := imageExts[ext]; ok {
		return ext
	}
	return ".jpg"
}
