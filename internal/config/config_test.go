package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photorate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 10, cfg.Points.Initial)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Contains(t, cfg.Database.URL, "/photo_rating?sslmode=disable")
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, `
port: "8080"
store: memory
points:
  initial: 0
auth:
  jwt_secret: from-file
  token_ttl: 30m
storage:
  backend: s3
  s3:
    bucket: photos
`)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 0, cfg.Points.Initial)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "photos", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region, "untouched defaults survive the overlay")
}

func TestLoad_DatabaseURLFromParts(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "rater")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_DB", "ratings")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://rater:pw@db:5432/ratings?sslmode=disable", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.URL = "postgres://x"
	require.NoError(t, cfg.Validate())

	cfg.Store = "mongo"
	cfg.Storage.Backend = "ftp"
	cfg.Auth.TokenTTL = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "mongo"`)
	assert.Contains(t, err.Error(), `unknown storage backend "ftp"`)
	assert.Contains(t, err.Error(), "token ttl must be positive")

	cfg = Default()
	cfg.Store = StoreMemory
	cfg.Storage.Backend = StorageS3
	assert.ErrorContains(t, cfg.Validate(), "s3 bucket is required")
}
