package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RejectsMalformedDSN(t *testing.T) {
	db, err := Open(context.Background(), "not a dsn")
	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse dsn")
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database: ping")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db)
	assert.Equal(t, 25, db.Stats().MaxOpenConnections)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		bs, err := fs.ReadFile(migrationsFS, name)
		require.NoError(t, err)
		body := string(bs)
		assert.True(t, strings.Contains(body, "-- +goose Up"), "%s has no Up section", name)
		assert.True(t, strings.Contains(body, "-- +goose Down"), "%s has no Down section", name)
	}

	bs, err := fs.ReadFile(migrationsFS, migrationsDir+"/00001_create_accounts.sql")
	require.NoError(t, err)
	assert.Contains(t, string(bs), "UNIQUE KEY uq_accounts_email (email)")
	assert.Contains(t, string(bs), "UNIQUE KEY uq_accounts_username (username)")
}

func TestSetupGoose(t *testing.T) {
	require.NoError(t, setupGoose())
	require.NoError(t, setupGoose())
}
