package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

type mimeGroup string

const (
	mimeGroupImages mimeGroup = "image"
	mimeGroupVideos mimeGroup = "video"
)

var mimeTypesByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/jpeg", "image/png", "image/webp", "image/gif"},
	mimeGroupVideos: {"video/mp4", "video/quicktime", "video/webm"},
}

var allowedMimeGroups = []mimeGroup{mimeGroupImages, mimeGroupVideos}

var allowedMimeTypes = buildAllowedMimeTypes()

func buildAllowedMimeTypes() map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range allowedMimeGroups {
		for _, value := range mimeGroupTypes[group] {
			set[value] = struct{}{}
		}
	}
	return set
}

func mimeTypeFromExtension(path string) string {
	return mimeTypesByExtension[strings.ToLower(filepath.Ext(path))]
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(mimeType string) bool {
	_, ok := allowedMimeTypes[mimeType]
	return ok
}
