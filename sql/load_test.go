package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		assert.NoError(t, Init(db.Instance))
		assert.NoError(t, Init(db.Instance))
	})
}

func TestLoadSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	loaders := []struct {
		name      string
		load      func(force bool) error
		functions []string
	}{
		{"index", func(force bool) error { return LoadIndexSql(db.Instance, force) }, IndexFunctions},
		{"nodes", func(force bool) error { return LoadNodesSql(db.Instance, force) }, NodesFunctions},
		{"edges", func(force bool) error { return LoadEdgesSql(db.Instance, force) }, EdgesFunctions},
	}

	for _, l := range loaders {
		t.Run("Load "+l.name+" SQL functions", func(t *testing.T) {
			err := l.load(false)
			require.NoError(t, err)

			exist, err := checkFunctions(db.Instance, l.functions)
			require.NoError(t, err)
			assert.True(t, exist, "All %s functions should exist", l.name)
		})

		t.Run("Force reload "+l.name+" SQL functions", func(t *testing.T) {
			assert.NoError(t, l.load(true))
		})
	}

	t.Run("Load all SQL functions", func(t *testing.T) {
		assert.NoError(t, LoadAllSql(db.Instance, false))
	})
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Missing function", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, []string{"function_that_does_not_exist"})
		require.NoError(t, err)
		assert.False(t, exist)
	})
}
