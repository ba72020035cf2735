package biolink

import (
	"context"
	"strings"
	"testing"

	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordNER tags the known names wherever they occur in the text.
func keywordNER(text string) ([]model.Span, error) {
	known := map[string]string{
		"Metformin": "Medication",
		"diabetes":  "Disease_disorder",
	}
	spans := []model.Span{}
	lower := strings.ToLower(text)
	for name, group := range known {
		if start := strings.Index(lower, strings.ToLower(name)); start >= 0 {
			spans = append(spans, model.Span{Text: name, Type: group, Confidence: 0.9, Start: start, End: start + len(name)})
		}
	}
	return spans, nil
}

func testConfiguration(t *testing.T) *helper.Configuration {
	t.Setenv("LOG_LEVEL", "error")
	config, err := helper.NewConfiguration()
	require.NoError(t, err, "Expected default configuration to load")
	return config
}

func testSource() *source.StaticSource {
	female := model.SexFemale
	return source.NewStaticSource(
		[]*model.Trial{
			{ID: "NCT1", Title: "Metformin in adults", Criteria: "Adults with type 2 diabetes.", Status: "RECRUITING", Phase: "PHASE2"},
			{ID: "NCT2", Title: "Finished diabetes study", Criteria: "Adults with diabetes.", Status: "COMPLETED"},
			{ID: "NCT3", Title: "Diabetes in pregnancy", Criteria: "Pregnant women with diabetes.", Status: "RECRUITING", Sex: female},
		},
		[]*model.Paper{
			{ID: "PMID1", Title: "Metformin outcomes", Abstract: "Metformin reduced HbA1c in type 2 diabetes.", Journal: "Diabetes Care", Date: "2023-01-01"},
			{ID: "PMID2", Title: "Lung cancer screening", Abstract: "Low dose CT screening in smokers."},
		},
	)
}

func initBioLink(t *testing.T) *BioLink {
	src := testSource()
	b, err := NewBioLink(testConfiguration(t), src, src)
	require.NoError(t, err, "Expected NewBioLink to not return an error")

	p := pipeline.NewPipeline(pipeline.HashingEmbedder(b.Config.EmbeddingDim))
	p.SetEntityExtractor(keywordNER)
	require.NoError(t, b.SetPipeline(p))

	t.Cleanup(func() {
		_ = b.Close(context.Background())
	})
	return b
}

func TestNewBioLink(t *testing.T) {
	t.Run("Valid call NewBioLink with memory backends", func(t *testing.T) {
		src := testSource()
		b, err := NewBioLink(testConfiguration(t), src, src)
		require.NoError(t, err, "Expected NewBioLink to not return an error")
		require.NotNil(t, b)
		defer b.Close(context.Background())

		assert.Nil(t, b.DB, "Expected no database for memory backends")
		assert.NotNil(t, b.Pipeline, "Expected a default pipeline")
		assert.NotNil(t, b.Graph, "Expected a graph store")
		assert.NotNil(t, b.Builder, "Expected a graph builder")
		assert.NotNil(t, b.Querier, "Expected a graph querier")
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		config := testConfiguration(t)
		config.IndexBackend = "faiss"

		_, err := NewBioLink(config, nil, nil)
		assert.Error(t, err, "Expected error for unsupported index backend")
	})

	t.Run("SetPipeline with nil", func(t *testing.T) {
		b := initBioLink(t)
		assert.Error(t, b.SetPipeline(nil))
	})

	t.Run("Close twice", func(t *testing.T) {
		b, err := NewBioLink(testConfiguration(t), nil, nil)
		require.NoError(t, err)
		assert.NoError(t, b.Close(context.Background()))
		assert.NoError(t, b.Close(context.Background()))
	})
}

func TestSessionMatchTrials(t *testing.T) {
	b := initBioLink(t)

	t.Run("Valid call MatchTrials", func(t *testing.T) {
		male := model.SexMale
		age := 45

		result, err := b.NewSession().MatchTrials(context.Background(), &model.PatientQuery{
			Description: "45 year old man with type 2 diabetes on metformin",
			Condition:   "diabetes",
			Age:         &age,
			Sex:         &male,
		})
		require.NoError(t, err, "Expected MatchTrials to not return an error")

		assert.Equal(t, model.RankStatusOK, result.Status)
		assert.Equal(t, 2, result.Candidates, "Expected only recruiting trials as candidates")
		assert.Equal(t, 1, result.Eligible, "Expected the female only trial to be filtered")
		assert.Equal(t, []string{"NCT1"}, result.IDs())
	})

	t.Run("No candidates", func(t *testing.T) {
		result, err := b.NewSession().MatchTrials(context.Background(), &model.PatientQuery{Condition: "asthma"})
		require.NoError(t, err)
		assert.Equal(t, model.RankStatusNoCandidates, result.Status)
		assert.Empty(t, result.Matches)
	})

	t.Run("Empty condition", func(t *testing.T) {
		_, err := b.NewSession().MatchTrials(context.Background(), &model.PatientQuery{Description: "anything"})
		assert.Error(t, err, "Expected error for an empty condition")
	})

	t.Run("Without trial source", func(t *testing.T) {
		empty, err := NewBioLink(testConfiguration(t), nil, nil)
		require.NoError(t, err)
		defer empty.Close(context.Background())

		_, err = empty.NewSession().MatchTrials(context.Background(), &model.PatientQuery{Condition: "diabetes"})
		assert.Error(t, err, "Expected error without a trial source")
	})
}

func TestSessionGraph(t *testing.T) {
	t.Run("Valid call BuildGraph with trials", func(t *testing.T) {
		b := initBioLink(t)

		summary, err := b.NewSession().BuildGraph(context.Background(), "metformin", true)
		require.NoError(t, err, "Expected BuildGraph to not return an error")

		assert.Equal(t, "metformin", summary.Topic)
		assert.Equal(t, model.BuildModePapersAndTrials, summary.Mode)
		assert.Equal(t, 1, summary.PapersIngested)
		assert.Equal(t, 1, summary.TrialsIngested)
		assert.Equal(t, 4, summary.Edges, "Expected two mentions, one investigates and one recruits for edge")
	})

	t.Run("Mode follows the request when no trial matches", func(t *testing.T) {
		b := initBioLink(t)

		summary, err := b.NewSession().BuildGraph(context.Background(), "lung", true)
		require.NoError(t, err)
		assert.Equal(t, model.BuildModePapersAndTrials, summary.Mode, "Expected the requested mode")
		assert.Equal(t, 0, summary.TrialsIngested)

		summary, err = b.NewSession().ExtendGraph(context.Background(), "metformin", false)
		require.NoError(t, err)
		assert.Equal(t, model.BuildModePapersOnly, summary.Mode)
	})

	t.Run("QueryGraph after build", func(t *testing.T) {
		b := initBioLink(t)
		session := b.NewSession()
		_, err := session.BuildGraph(context.Background(), "metformin", true)
		require.NoError(t, err)

		answer, err := session.QueryGraph(context.Background(), "What is known about Metformin?")
		require.NoError(t, err, "Expected QueryGraph to not return an error")

		assert.Equal(t, []string{"Metformin"}, answer.Terms)
		assert.True(t, answer.Found(), "Expected facts about metformin")
		assert.Contains(t, answer.String(), string(model.RelationInvestigates))
		assert.Contains(t, answer.String(), string(model.RelationMentions))
	})

	t.Run("QueryGraph on empty graph", func(t *testing.T) {
		b := initBioLink(t)

		answer, err := b.NewSession().QueryGraph(context.Background(), "Metformin")
		require.NoError(t, err)
		assert.Equal(t, model.NoGraphKnowledge, answer.String())
	})

	t.Run("BuildGraph replaces ExtendGraph merges", func(t *testing.T) {
		b := initBioLink(t)
		session := b.NewSession()

		_, err := session.BuildGraph(context.Background(), "metformin", false)
		require.NoError(t, err)
		_, err = session.ExtendGraph(context.Background(), "lung", false)
		require.NoError(t, err)

		nodes, _, err := b.Graph.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, nodes, "Expected both papers and the two entities")

		_, err = session.BuildGraph(context.Background(), "lung", false)
		require.NoError(t, err)

		nodes, edges, err := b.Graph.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, nodes, "Expected only the lung paper after rebuilding")
		assert.Equal(t, 0, edges)
	})

	t.Run("Visualize", func(t *testing.T) {
		b := initBioLink(t)
		session := b.NewSession()
		_, err := session.BuildGraph(context.Background(), "metformin", true)
		require.NoError(t, err)

		vis, err := session.Visualize(context.Background())
		require.NoError(t, err, "Expected Visualize to not return an error")
		assert.Len(t, vis.Nodes, 4)
		assert.Len(t, vis.Edges, 4)
	})

	t.Run("Without paper source", func(t *testing.T) {
		b, err := NewBioLink(testConfiguration(t), nil, nil)
		require.NoError(t, err)
		defer b.Close(context.Background())

		_, err = b.NewSession().BuildGraph(context.Background(), "metformin", false)
		assert.Error(t, err, "Expected error without a paper source")
	})
}

func TestSessionEvaluate(t *testing.T) {
	b := initBioLink(t)
	male := model.SexMale

	cases := []*model.EvaluationCase{
		{ID: "P1", Condition: "diabetes", Description: "Man with type 2 diabetes", Sex: &male, GroundTruth: []string{"NCT1"}},
		{ID: "P2", Condition: "diabetes", Description: "No labels"},
	}

	t.Run("Valid call Evaluate", func(t *testing.T) {
		report, err := b.NewSession().Evaluate(context.Background(), "facade", cases)
		require.NoError(t, err, "Expected Evaluate to not return an error")

		assert.Equal(t, "facade", report.Name)
		assert.Equal(t, b.Config.EvalTopK, report.TopK)
		assert.Equal(t, 1, report.Skipped, "Expected the unlabeled case to be skipped")
		require.NotNil(t, report.Metrics)
		assert.Equal(t, 1, report.Metrics.NumCases)
		assert.InDelta(t, 1.0, report.Metrics.MeanReciprocalRank, 1e-9)
		assert.InDelta(t, 1.0, report.Metrics.PrecisionAt1, 1e-9)
	})
}
