package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbed maps three keywords onto the axes of a 3-dimensional space.
func keywordEmbed(text string) ([]float32, error) {
	text = strings.ToLower(text)
	vector := []float32{0, 0, 0}
	for i, keyword := range []string{"cancer", "diabetes", "heart"} {
		vector[i] = float32(strings.Count(text, keyword))
	}
	return vector, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIndex(t *testing.T) *Index {
	idx, err := Open(context.Background(), MemoryFactory(), pipeline.NewPipeline(keywordEmbed), testLogger())
	require.NoError(t, err, "Expected Open to not return an error")
	t.Cleanup(func() { _ = idx.Close(context.Background()) })
	return idx
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("Query on empty index returns empty list", func(t *testing.T) {
		idx := newTestIndex(t)

		results, err := idx.Query(ctx, "cancer", 5)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("Valid call Query orders by similarity", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.Upsert(ctx, "A", "diabetes study", model.Metadata{"title": "A"}))
		require.NoError(t, idx.Upsert(ctx, "B", "cancer study", model.Metadata{"title": "B"}))
		require.NoError(t, idx.Upsert(ctx, "C", "cancer and heart study", model.Metadata{"title": "C"}))

		results, err := idx.Query(ctx, "cancer", 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "B", results[0].ID, "Expected the exact match first")
		assert.Equal(t, "C", results[1].ID)
		assert.Equal(t, "A", results[2].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, 0.0, results[2].Score, "Expected orthogonal documents to score 0")

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "Expected descending scores")
		}
	})

	t.Run("k larger than the index is clamped", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.Upsert(ctx, "A", "cancer", nil))
		require.NoError(t, idx.Upsert(ctx, "B", "diabetes", nil))

		results, err := idx.Query(ctx, "cancer", 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Non-positive k returns empty list", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.Upsert(ctx, "A", "cancer", nil))

		results, err := idx.Query(ctx, "cancer", 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Equal scores keep insertion order", func(t *testing.T) {
		idx := newTestIndex(t)
		for _, id := range []string{"Z", "Y", "X"} {
			require.NoError(t, idx.Upsert(ctx, id, "heart", nil))
		}

		results, err := idx.Query(ctx, "heart", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"Z", "Y", "X"}, []string{results[0].ID, results[1].ID, results[2].ID})
	})

	t.Run("Upsert with existing id overwrites", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.Upsert(ctx, "A", "cancer", model.Metadata{"v": 1}))
		require.NoError(t, idx.Upsert(ctx, "A", "diabetes", model.Metadata{"v": 2}))

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := idx.Query(ctx, "diabetes", 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "diabetes", results[0].Content)
		assert.Equal(t, "2", results[0].Metadata.GetString("v"))
	})

	t.Run("Every result id was indexed", func(t *testing.T) {
		idx := newTestIndex(t)
		indexed := map[string]bool{}
		for _, id := range []string{"N1", "N2", "N3", "N4"} {
			indexed[id] = true
			require.NoError(t, idx.Upsert(ctx, id, id+" cancer diabetes", nil))
		}

		results, err := idx.Query(ctx, "heart", 4)
		require.NoError(t, err)
		for _, r := range results {
			assert.True(t, indexed[r.ID], "Expected result %s to be an indexed id", r.ID)
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
		}
	})
}

func TestIndexErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert with empty id", func(t *testing.T) {
		idx := newTestIndex(t)
		err := idx.Upsert(ctx, " ", "cancer", nil)
		assert.ErrorIs(t, err, ErrEmptyID)
	})

	t.Run("Upsert with failing embedder", func(t *testing.T) {
		idx, err := Open(ctx, MemoryFactory(), pipeline.NewPipeline(func(text string) ([]float32, error) {
			return nil, assert.AnError
		}), testLogger())
		require.NoError(t, err)

		err = idx.Upsert(ctx, "A", "cancer", nil)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Open with failing factory", func(t *testing.T) {
		_, err := Open(ctx, func(ctx context.Context) (Store, error) {
			return nil, assert.AnError
		}, pipeline.NewPipeline(keywordEmbed), testLogger())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Query after Close", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.Upsert(ctx, "A", "cancer", nil))
		require.NoError(t, idx.Close(ctx))

		_, err := idx.Query(ctx, "cancer", 1)
		assert.True(t, errors.Is(err, ErrClosed), "Expected ErrClosed after Close")
	})
}

func TestScoreHelpers(t *testing.T) {
	t.Run("ScoreFromDistance clamps to the unit interval", func(t *testing.T) {
		assert.Equal(t, 1.0, ScoreFromDistance(0))
		assert.Equal(t, 0.0, ScoreFromDistance(1.5))
		assert.Equal(t, 1.0, ScoreFromDistance(-0.2))
		assert.InDelta(t, 0.75, ScoreFromDistance(0.25), 1e-9)
	})

	t.Run("CosineSimilarity of mismatched vectors is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
		assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 0}, []float32{1, 0}), 1e-9)
	})

	t.Run("NewSessionName is unique", func(t *testing.T) {
		a, b := NewSessionName("idx"), NewSessionName("idx")
		assert.NotEqual(t, a, b)
		assert.True(t, strings.HasPrefix(a, "idx_"))
		assert.NotContains(t, a, "-")
	})
}
