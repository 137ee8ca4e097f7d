package db

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGormSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wellbot.db")
	db, err := OpenGorm("sqlite", path, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenGormLogsFailedStatementsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	db, err := OpenGorm("sqlite", filepath.Join(t.TempDir(), "wellbot.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.Exec("SELECT 1").Error)
	assert.Empty(t, buf.String())

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)
	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"component":"gorm"`)
	assert.Contains(t, out, "missing_table")
}

func TestOpenGormInvalidDriver(t *testing.T) {
	_, err := OpenGorm("mysql", "x", zerolog.Nop())
	require.Error(t, err)

	_, err = OpenGorm("postgres", "", zerolog.Nop())
	require.Error(t, err)
}

func TestOpenGormSQLiteCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "path", "wellbot.db")

	db, err := OpenGorm("sqlite", dbPath, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)
}

func TestSQLiteFilePath(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
		ok   bool
	}{
		{":memory:", "", false},
		{"file::memory:?cache=shared", "", false},
		{"file:data/app.db?mode=memory", "", false},
		{"data/app.db?_pragma=busy_timeout(5000)", "data/app.db", true},
		{"file:/var/lib/wellbot.db?cache=shared", "/var/lib/wellbot.db", true},
	}
	for _, tc := range cases {
		got, ok := sqliteFilePath(tc.dsn)
		assert.Equal(t, tc.ok, ok, tc.dsn)
		assert.Equal(t, tc.want, got, tc.dsn)
	}
}
