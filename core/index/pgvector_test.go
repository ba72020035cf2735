package index

import (
	"context"
	"testing"

	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/database"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	loadSql "github.com/siherrmann/biolink/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initIndexHandler(t *testing.T) *database.IndexDBHandler {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	teardown, port, err := helper.MustStartPostgresContainer()
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if teardown != nil {
			_ = teardown(context.Background())
		}
	})

	helper.SetTestDatabaseConfigEnvs(t, port)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	db := helper.NewTestDatabase(dbConfig)
	require.NoError(t, loadSql.Init(db.Instance))

	handler, err := database.NewIndexDBHandler(db, true)
	require.NoError(t, err)
	return handler
}

func TestPgVectorStore(t *testing.T) {
	handler := initIndexHandler(t)
	ctx := context.Background()

	t.Run("Invalid call NewPgVectorStore with nil handler", func(t *testing.T) {
		_, err := NewPgVectorStore(ctx, nil, 3)
		assert.Error(t, err)
	})

	t.Run("Valid call Query through Index", func(t *testing.T) {
		idx, err := Open(ctx, PgVectorFactory(handler, 3), pipeline.NewPipeline(keywordEmbed), testLogger())
		require.NoError(t, err)
		defer idx.Close(ctx)

		require.NoError(t, idx.Upsert(ctx, "A", "diabetes", model.Metadata{"title": "A"}))
		require.NoError(t, idx.Upsert(ctx, "B", "cancer", model.Metadata{"title": "B"}))
		require.NoError(t, idx.Upsert(ctx, "C", "cancer", model.Metadata{"title": "C"}))

		results, err := idx.Query(ctx, "cancer", 5)
		require.NoError(t, err)
		require.Len(t, results, 3, "Expected k to be clamped to the indexed count")
		assert.Equal(t, "B", results[0].ID, "Expected ties in insertion order")
		assert.Equal(t, "C", results[1].ID)
		assert.Equal(t, "A", results[2].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, "B", results[0].Metadata.GetString("title"))
	})

	t.Run("Closed store drops its table", func(t *testing.T) {
		store, err := NewPgVectorStore(ctx, handler, 3)
		require.NoError(t, err)
		require.NoError(t, store.Close(ctx))

		_, err = store.Count(ctx)
		assert.ErrorIs(t, err, ErrClosed)

		_, err = handler.CountDocuments(ctx, store.Name())
		assert.Error(t, err, "Expected the session table to be dropped")
	})

	t.Run("Dimension mismatch is rejected", func(t *testing.T) {
		store, err := NewPgVectorStore(ctx, handler, 3)
		require.NoError(t, err)
		defer store.Close(ctx)

		err = store.Upsert(ctx, &model.IndexedDocument{ID: "A", Embedding: []float32{1}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
