package httpx

import (
	"mime"
	"path"
	"strings"
)

// Types the platform table often lacks or maps inconsistently.
var builtinMimeTypes = map[string]string{
	".css":   "text/css",
	".htm":   "text/html",
	".html":  "text/html",
	".js":    "application/javascript",
	".json":  "application/json",
	".md":    "text/plain",
	".txt":   "text/plain",
	".xml":   "text/xml",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".mp4":   "video/mp4",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// MimeTypeForFile guesses a MIME type from a file name's extension, falling
// back to application/octet-stream.
func MimeTypeForFile(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if t, ok := builtinMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
