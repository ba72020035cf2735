package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/siherrmann/biolink/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualize(t *testing.T) {
	ctx := context.Background()

	t.Run("Nodes are styled by type", func(t *testing.T) {
		store := NewMemoryStore()
		builder, err := NewBuilder(store, newKeywordExtractor(), testLogger())
		require.NoError(t, err)
		_, err = builder.Rebuild(ctx, testPapers(), testTrials())
		require.NoError(t, err)

		vis, err := Visualize(ctx, store, 0)
		require.NoError(t, err)
		require.Len(t, vis.Nodes, 7)
		assert.Len(t, vis.Edges, 7)

		byID := map[string]*model.VisNode{}
		for _, n := range vis.Nodes {
			byID[n.ID] = n
		}

		paper := byID[model.PaperNodeID("PMID1")]
		require.NotNil(t, paper)
		assert.Equal(t, "#ef5350", paper.Color)
		assert.Equal(t, 25, paper.Size)
		assert.Equal(t, "Metformin outco...", paper.Label, "Expected labels over 15 runes to be cut")
		assert.True(t, strings.HasPrefix(paper.Tooltip, "PAPER: Metformin outcomes\n\n2023-01-01 | Diabetes Care"))

		trial := byID[model.TrialNodeID("NCT0001")]
		require.NotNil(t, trial)
		assert.Equal(t, "#66bb6a", trial.Color)
		assert.Contains(t, trial.Tooltip, "CRITERIA:\nAdults with type 2 diabetes.")

		drug := byID[model.EntityNodeID("Metformin")]
		require.NotNil(t, drug)
		assert.Equal(t, "#42a5f5", drug.Color)
		assert.Equal(t, "Metformin", drug.Label)
		assert.Equal(t, "DRUG: Metformin", drug.Tooltip)

		assert.Equal(t, "#ffa726", byID[model.EntityNodeID("type 2 diabetes")].Color)
		assert.Equal(t, "#ab47bc", byID[model.EntityNodeID("EGFR")].Color)

		concept := byID[model.EntityNodeID("HbA1c")]
		require.NotNil(t, concept)
		assert.Equal(t, "#bdbdbd", concept.Color)
		assert.Equal(t, 15, concept.Size)
		assert.Equal(t, "Concept: HbA1c", concept.Tooltip)
	})

	t.Run("Node cap drops edges to missing nodes", func(t *testing.T) {
		store := NewMemoryStore()
		addNode(t, store, "hub", model.NodeTypeDisease, "asthma")
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("p%d", i)
			addNode(t, store, id, model.NodeTypePaper, id)
			addEdge(t, store, id, "hub", model.RelationMentions)
		}

		vis, err := Visualize(ctx, store, 3)
		require.NoError(t, err)
		assert.Len(t, vis.Nodes, 3)
		require.Len(t, vis.Edges, 2)
		for _, e := range vis.Edges {
			assert.Equal(t, "hub", e.Target)
			assert.Equal(t, "MENTIONS", e.Label)
		}
	})

	t.Run("Long trial criteria are cut in the tooltip", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.UpsertNode(ctx, &model.Node{
			ID:         "t1",
			Type:       model.NodeTypeTrial,
			Label:      "Trial",
			Attributes: model.Metadata{"criteria": strings.Repeat("a", 500)},
		}))

		vis, err := Visualize(ctx, store, 10)
		require.NoError(t, err)
		require.Len(t, vis.Nodes, 1)
		assert.True(t, strings.HasSuffix(vis.Nodes[0].Tooltip, strings.Repeat("a", 400)+"..."))
	})

	t.Run("Empty graph", func(t *testing.T) {
		vis, err := Visualize(ctx, NewMemoryStore(), 10)
		require.NoError(t, err)
		assert.Empty(t, vis.Nodes)
		assert.Empty(t, vis.Edges)
	})
}

func TestVisualizationJSON(t *testing.T) {
	t.Run("Edges are encoded with source and target", func(t *testing.T) {
		store := NewMemoryStore()
		addNode(t, store, "a", model.NodeTypePaper, "Paper A")
		addNode(t, store, "b", model.NodeTypeChemical, "Metformin")
		addEdge(t, store, "a", "b", model.RelationMentions)

		vis, err := Visualize(context.Background(), store, 10)
		require.NoError(t, err)

		data, err := json.Marshal(vis)
		require.NoError(t, err, "Expected the visualization to marshal")

		var decoded struct {
			Nodes []map[string]any `json:"nodes"`
			Edges []map[string]any `json:"edges"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded.Edges, 1)
		assert.Equal(t, map[string]any{"source": "a", "target": "b", "label": "MENTIONS"}, decoded.Edges[0])

		require.Len(t, decoded.Nodes, 2)
		for _, key := range []string{"id", "label", "title", "color", "size"} {
			assert.Contains(t, decoded.Nodes[0], key, "Expected node key %s", key)
		}
	})
}
