package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

// Resolver turns a local path into a Descriptor. It only touches the local file system.
type Resolver struct {
	prober DurationProber
}

// NewResolver builds a resolver; prober is required for video files.
func NewResolver(prober DurationProber) *Resolver {
	return &Resolver{prober: prober}
}

// Resolve stats the file, determines its MIME type and, for video, probes the duration.
func (r *Resolver) Resolve(ctx context.Context, path string) (Descriptor, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return Descriptor{}, pkgerrors.New(pkgerrors.CodeValidation, "media path is required")
	}

	info, err := os.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Descriptor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "media file not found")
		}
		return Descriptor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "media file unreadable")
	}
	if !info.Mode().IsRegular() {
		return Descriptor{}, pkgerrors.New(pkgerrors.CodeValidation, "media path is not a regular file")
	}

	mimeType, err := detectMimeType(clean)
	if err != nil {
		return Descriptor{}, err
	}

	desc := Descriptor{
		Path:      clean,
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	}

	if desc.IsVideo() {
		if r.prober == nil {
			return Descriptor{}, pkgerrors.New(pkgerrors.CodeMediaProbe, "no duration prober configured")
		}
		duration, err := r.prober.ProbeDuration(ctx, clean)
		if err != nil {
			return Descriptor{}, pkgerrors.Wrap(pkgerrors.CodeMediaProbe, err, "probe video duration").
				WithDetails(map[string]any{"path": clean})
		}
		desc.DurationMs = max(duration.Round(time.Millisecond).Milliseconds(), 1)
	}

	return desc, nil
}

func detectMimeType(path string) (string, error) {
	if byExt := mimeTypeFromExtension(path); byExt != "" {
		return byExt, nil
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "media file unreadable")
	}
	sniffed, err := sniffMimeType(detected.String())
	if err != nil || !isAllowedMime(sniffed) {
		return "", pkgerrors.New(pkgerrors.CodeUnsupportedMediaType, "unexpected media type of provided file").
			WithDetails(map[string]any{"path": path, "detected": detected.String()})
	}
	return sniffed, nil
}
