package pipeline

import (
	"os"
	"testing"

	"github.com/siherrmann/biolink/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutModels(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("BIOLINK_MODEL_TESTS") == "" {
		t.Skip("Skipping model test (requires model download, set BIOLINK_MODEL_TESTS to run)")
	}
}

func testModelConfiguration(t *testing.T) helper.ModelConfiguration {
	config, err := helper.NewConfiguration()
	require.NoError(t, err)
	return config.Models
}

func TestDefaultEmbedder(t *testing.T) {
	t.Run("Generate embedding for text", func(t *testing.T) {
		skipWithoutModels(t)

		embedder, err := DefaultEmbedder(testModelConfiguration(t))
		require.NoError(t, err)

		embedding, err := embedder("Metastatic breast cancer in postmenopausal women.")
		require.NoError(t, err)
		assert.Equal(t, 384, len(embedding), "all-MiniLM-L6-v2 produces 384-dimensional embeddings")
	})

	t.Run("Same text produces same embedding", func(t *testing.T) {
		skipWithoutModels(t)

		embedder, err := DefaultEmbedder(testModelConfiguration(t))
		require.NoError(t, err)

		first, err := embedder("Deterministic embedding test")
		require.NoError(t, err)
		second, err := embedder("Deterministic embedding test")
		require.NoError(t, err)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.InDelta(t, first[i], second[i], 0.0001, "Same text should produce same embedding")
		}
	})
}
