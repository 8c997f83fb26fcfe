package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadRecordsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_upload_records.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no upload_records migration found")

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS upload_records",
		"CHECK (size_bytes >= 0)",
		"upload_records_media_id_idx",
		"DROP TABLE IF EXISTS upload_records",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestShippedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Media Index!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260301120000_add_media_index.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "Add Media Index!", now)
	assert.Error(t, err, "duplicate migration should fail")

	_, err = createSQLMigrationAt(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_unbalanced.sql"), []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect("SQLite"))
	assert.Equal(t, "postgres", Dialect(""))
	assert.Equal(t, "postgres", Dialect("postgres"))
}
