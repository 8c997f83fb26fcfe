package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/dmmedia/internal/media"
	"github.com/angelmondragon/dmmedia/internal/transport"
	"github.com/angelmondragon/dmmedia/internal/upload"
	"github.com/angelmondragon/dmmedia/internal/upload/uploadtest"
	"github.com/angelmondragon/dmmedia/internal/uploadlog"
	"github.com/angelmondragon/dmmedia/pkg/config"
	"github.com/angelmondragon/dmmedia/pkg/db/models"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T, endpoint string) *app {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.UploadRecord{}))

	records := uploadlog.NewRepository(conn)
	client := transport.NewClient(config.AuthConfig{}, 5*time.Second)
	pipeline, err := upload.NewPipeline(client, upload.PipelineConfig{Endpoint: endpoint})
	require.NoError(t, err)
	uploader, err := upload.NewUploader(media.NewResolver(nil), pipeline, upload.WithJournal(records))
	require.NoError(t, err)

	return &app{
		cfg:      &config.Config{},
		logg:     logger.Nop(),
		uploader: uploader,
		records:  records,
	}
}

func TestAppUploadsAndLists(t *testing.T) {
	server := uploadtest.NewServer("4242")
	t.Cleanup(server.Close)
	a := newTestApp(t, server.Endpoint())

	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, make([]byte, 512), 0o600))

	var out bytes.Buffer
	require.NoError(t, a.run(context.Background(), options{file: path}, &out))
	assert.Equal(t, "4242\n", out.String())

	out.Reset()
	require.NoError(t, a.run(context.Background(), options{list: "succeeded"}, &out))
	assert.Contains(t, out.String(), "4242")
	assert.Contains(t, out.String(), "photo.png")
	assert.NoError(t, a.close())
}

func TestAppListRequiresJournal(t *testing.T) {
	a := &app{cfg: &config.Config{}, logg: logger.Nop()}
	err := a.run(context.Background(), options{list: "failed"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvDBDSN)
}
