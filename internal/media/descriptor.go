package media

import (
	"path/filepath"
	"strings"

	"github.com/angelmondragon/dmmedia/pkg/enums"
)

// Descriptor describes a local media file ready for upload.
type Descriptor struct {
	Path      string
	MimeType  string
	SizeBytes int64
	// DurationMs is set only for video and is probed once per resolution.
	DurationMs int64
}

// PrimaryType returns the part of the MIME type before the slash.
func (d Descriptor) PrimaryType() string {
	primary, _, _ := strings.Cut(d.MimeType, "/")
	return primary
}

func (d Descriptor) IsVideo() bool {
	return d.PrimaryType() == "video"
}

func (d Descriptor) IsImage() bool {
	return d.PrimaryType() == "image"
}

func (d Descriptor) IsGIF() bool {
	return d.MimeType == "image/gif"
}

// HasDuration reports whether DurationMs carries a probed value.
func (d Descriptor) HasDuration() bool {
	return d.IsVideo() && d.DurationMs > 0
}

// FileName is the base name sent with the multipart payload.
func (d Descriptor) FileName() string {
	return filepath.Base(d.Path)
}

// DMCategory picks the direct-message category hint matching the media kind.
func (d Descriptor) DMCategory() enums.MediaCategory {
	switch {
	case d.IsVideo():
		return enums.MediaCategoryDMVideo
	case d.IsGIF():
		return enums.MediaCategoryDMGif
	default:
		return enums.MediaCategoryDMImage
	}
}
