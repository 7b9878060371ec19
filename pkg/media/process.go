// Package media turns local media file paths into the image ContentParts
// the Context Assembler splices into a multimodal user message.
package media

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nanobot-ai/agentcore/pkg/providers"
)

// imageExts is the extension fallback used when content sniffing is
// inconclusive (e.g. a truncated or empty file).
var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ProcessImage reads path and returns a data-URI image ContentPart, or
// ok=false if the file is missing or not recognizable as an image. Callers
// should silently skip a file on ok=false rather than surface an error.
func ProcessImage(path string) (providers.ContentPart, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return providers.ContentPart{}, false
	}

	mimeType := sniffImageMIME(data)
	if mimeType == "" {
		if ext := strings.ToLower(filepath.Ext(path)); imageExts[ext] != "" {
			mimeType = imageExts[ext]
		}
	}
	if mimeType == "" {
		return providers.ContentPart{}, false
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return providers.ContentPart{
		Type: "image_url",
		ImageURL: &providers.ImageURL{
			URL: "data:" + mimeType + ";base64," + encoded,
		},
	}, true
}

func sniffImageMIME(data []byte) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	ct := http.DetectContentType(data[:n])
	if strings.HasPrefix(ct, "image/") {
		// DetectContentType can append a charset for some types; strip it.
		if idx := strings.Index(ct, ";"); idx != -1 {
			ct = ct[:idx]
		}
		return ct
	}
	return ""
}

// BuildMediaParts processes each path in order, silently dropping files that
// don't resolve to an image. The result is ready to prepend to a trailing
// text ContentPart.
func BuildMediaParts(paths []string) []providers.ContentPart {
	var parts []providers.ContentPart
	for _, p := range paths {
		if part, ok := ProcessImage(p); ok {
			parts = append(parts, part)
		}
	}
	return parts
}
