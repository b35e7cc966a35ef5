package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
)

func TestConnect_SqliteAndMigrate(t *testing.T) {
	gdb, err := Connect("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(gdb))
	for _, m := range []any{&chat.Session{}, &chat.Turn{}, &chat.Job{}} {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "x")
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
