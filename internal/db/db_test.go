package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"photo-rating/internal/config"
	"photo-rating/internal/db/migrations"
	"photo-rating/internal/dbx"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, Ping(context.Background(), sqlDB))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing_Error(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	assert.ErrorContains(t, Ping(context.Background(), sqlDB), "connection refused")
}

func TestWithConnection_PropagatesFnError(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	want := errors.New("fn failed")
	got := WithConnection(context.Background(), sqlDB, func(ctx context.Context, conn dbx.DBTX) error {
		require.NotNil(t, conn)
		return want
	})
	assert.ErrorIs(t, got, want)
	assert.Equal(t, 0, sqlDB.Stats().InUse, "connection must be released")
}

func TestMigrate_UsesEmbeddedFS(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error { return errors.New("bad sql") }
	assert.ErrorContains(t, Migrate(context.Background(), nil), "run migrations: bad sql")
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrations.FS.ReadFile("00001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "PRIMARY KEY (photo_id, rater_id)")
	assert.Contains(t, string(data), "CREATE UNIQUE INDEX users_email_lower_idx ON users (lower(email))")
	assert.NotContains(t, string(data), "NOT NULL UNIQUE", "a case-sensitive email constraint would let Alice@ and alice@ both register")
}

func TestOpen_BadURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Open(context.Background(), config.Database{URL: "://nope", ConnectRetries: 1}, logger)
	assert.ErrorContains(t, err, "unable to parse connection string")
}

func TestCloseNil(t *testing.T) {
	var d *DB
	assert.NotPanics(t, d.Close)
}
