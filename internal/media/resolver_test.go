package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/dmmedia/pkg/enums"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	duration time.Duration
	err      error
	calls    int
}

func (s *stubProber) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	s.calls++
	return s.duration, s.err
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestResolveImageByExtension(t *testing.T) {
	path := writeFile(t, "photo.JPG", make([]byte, 48213))
	prober := &stubProber{}

	desc, err := NewResolver(prober).Resolve(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", desc.MimeType)
	assert.Equal(t, int64(48213), desc.SizeBytes)
	assert.False(t, desc.HasDuration())
	assert.Equal(t, "photo.JPG", desc.FileName())
	assert.Equal(t, enums.MediaCategoryDMImage, desc.DMCategory())
	assert.Zero(t, prober.calls)
}

func TestResolveVideoProbesDuration(t *testing.T) {
	path := writeFile(t, "clip.mp4", make([]byte, 1024))
	prober := &stubProber{duration: 12345600 * time.Microsecond}

	desc, err := NewResolver(prober).Resolve(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "video/mp4", desc.MimeType)
	assert.True(t, desc.HasDuration())
	assert.Equal(t, int64(12346), desc.DurationMs)
	assert.Equal(t, enums.MediaCategoryDMVideo, desc.DMCategory())
	assert.Equal(t, 1, prober.calls)
}

func TestResolveIsIdempotent(t *testing.T) {
	path := writeFile(t, "clip.mov", make([]byte, 2048))
	resolver := NewResolver(&stubProber{duration: 3 * time.Second})

	first, err := resolver.Resolve(context.Background(), path)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveSniffsContentWithoutKnownExtension(t *testing.T) {
	path := writeFile(t, "upload.bin", append(pngHeader, make([]byte, 64)...))

	desc, err := NewResolver(&stubProber{}).Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", desc.MimeType)
}

func TestResolveRejectsSniffedTypeOutsideAllowList(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
	path := writeFile(t, "upload.bin", svg)

	_, err := NewResolver(&stubProber{}).Resolve(context.Background(), path)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedMediaType))
}

func TestResolveSubMillisecondVideoKeepsDuration(t *testing.T) {
	path := writeFile(t, "blip.mp4", []byte("x"))

	desc, err := NewResolver(&stubProber{duration: 400 * time.Microsecond}).Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), desc.DurationMs)
	assert.True(t, desc.HasDuration())
}

func TestResolveRejectsUnsupportedType(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("plain text, not media"))
	prober := &stubProber{}

	_, err := NewResolver(prober).Resolve(context.Background(), path)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedMediaType))
	assert.Zero(t, prober.calls)
}

func TestResolveMissingFile(t *testing.T) {
	_, err := NewResolver(&stubProber{}).Resolve(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveDirectory(t *testing.T) {
	_, err := NewResolver(&stubProber{}).Resolve(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveProbeFailure(t *testing.T) {
	path := writeFile(t, "broken.webm", []byte("x"))

	_, err := NewResolver(&stubProber{err: errors.New("moov atom not found")}).Resolve(context.Background(), path)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMediaProbe))
}

func TestResolveVideoWithoutProber(t *testing.T) {
	path := writeFile(t, "clip.mp4", []byte("x"))

	_, err := NewResolver(nil).Resolve(context.Background(), path)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMediaProbe))
}

func TestDescriptorGIFCategory(t *testing.T) {
	desc := Descriptor{MimeType: "image/gif"}
	assert.True(t, desc.IsGIF())
	assert.True(t, desc.IsImage())
	assert.Equal(t, enums.MediaCategoryDMGif, desc.DMCategory())
}
