package repository

import (
	"mime"
	"path"
	"strings"
)

// Application subtypes that are binary even though they don't fall under
// the audio/image/video/font families.
var binaryApplicationTypes = map[string]bool{
	"application/gzip":               true,
	"application/java-archive":       true,
	"application/msword":             true,
	"application/octet-stream":       true,
	"application/ogg":                true,
	"application/pdf":                true,
	"application/vnd.microsoft.icon": true,
	"application/vnd.ms-fontobject":  true,
	"application/wasm":               true,
	"application/x-7z-compressed":    true,
	"application/x-bzip2":            true,
	"application/x-rar-compressed":   true,
	"application/x-shockwave-flash":  true,
	"application/x-tar":              true,
	"application/zip":                true,
	"application/zstd":               true,
}

// binaryByName infers whether a file is binary from its name alone.
// Unknown extensions return false; the caller then falls back to checking
// the content for UTF-8 validity.
func binaryByName(name string) bool {
	mt := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if mt == "" {
		return false
	}
	if essence, _, ok := strings.Cut(mt, ";"); ok {
		mt = essence
	}
	mt = strings.TrimSpace(mt)

	switch {
	case strings.HasPrefix(mt, "audio/"),
		strings.HasPrefix(mt, "image/"),
		strings.HasPrefix(mt, "video/"),
		strings.HasPrefix(mt, "font/"):
		return true
	}
	return binaryApplicationTypes[mt]
}
