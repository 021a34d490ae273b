package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagegallery/internal/config"
	"imagegallery/internal/database"
	"imagegallery/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:    "test",
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		Upload: config.UploadConfig{
			MaxSize:      1 << 20,
			AllowedTypes: []string{"image/png"},
			RequireImage: false,
		},
	}
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := database.Connect("file:server_migrate?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("users"))
	assert.True(t, db.Migrator().HasTable("images"))

	require.NoError(t, Migrate(db), "migrations must be re-runnable")
}

func TestPolicy(t *testing.T) {
	p := Policy(testConfig().Upload)
	assert.Equal(t, int64(1<<20), p.MaxSize)
	assert.Equal(t, []string{"image/png"}, p.AllowedTypes)
	assert.False(t, p.RequireImage)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStorage(context.Background(), config.StorageConfig{Driver: config.StorageDriverLocal, Dir: dir, PublicURL: "/files"})
	require.NoError(t, err)
	local, ok := s.(*storage.Local)
	require.True(t, ok)
	assert.Equal(t, "/files/images/a.png", local.URL("images/a.png"))

	_, err = OpenStorage(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestNew_HealthAndStatic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("file:server_health?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, Migrate(db))

	store, err := storage.NewLocal(t.TempDir(), "/storage")
	require.NoError(t, err)
	p, err := store.Store(context.Background(), []byte("pixels"), "dot.png", "image/png")
	require.NoError(t, err)

	r := New(Deps{Config: testConfig(), DB: db, Storage: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, store.URL(p), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pixels", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
