package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/siherrmann/biolink/core/index"
	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbed maps three keywords onto the axes of a 3-dimensional space.
// Texts containing "broken" can't be embedded.
func keywordEmbed(text string) ([]float32, error) {
	text = strings.ToLower(text)
	if strings.Contains(text, "broken") {
		return nil, errors.New("embedding failed")
	}
	vector := []float32{0.01, 0.01, 0.01}
	for i, keyword := range []string{"insulin", "metformin", "exercise"} {
		vector[i] += float32(strings.Count(text, keyword))
	}
	return vector, nil
}

// MockTrialSource fails every call
type MockTrialSource struct{}

func (m *MockTrialSource) FetchRecruiting(ctx context.Context, condition string, limit int) ([]*model.Trial, error) {
	return nil, assert.AnError
}

func intPtr(v int) *int {
	return &v
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTrials() []*model.Trial {
	return []*model.Trial{
		{ID: "NCT1", Title: "Insulin titration", Criteria: "Adults with diabetes on insulin", MinAge: intPtr(18), MaxAge: intPtr(65), Sex: model.SexAll, Countries: []string{"United States"}, Status: "RECRUITING", Conditions: []string{"Diabetes"}},
		{ID: "NCT2", Title: "Metformin extended release", Criteria: "Adults with diabetes taking metformin", MinAge: intPtr(18), Sex: model.SexAll, Status: "RECRUITING", Conditions: []string{"Diabetes"}},
		{ID: "NCT3", Title: "Exercise programme", Criteria: "Women with diabetes who exercise", Sex: model.SexFemale, Status: "RECRUITING", Conditions: []string{"Diabetes"}},
		{ID: "NCT4", Title: "Metformin and exercise", Criteria: "Diabetes, metformin, exercise", Status: "RECRUITING", Conditions: []string{"Diabetes"}},
	}
}

func newTestRanker(t *testing.T, trials []*model.Trial) *Ranker {
	ranker, err := NewRanker(source.NewStaticSource(trials, nil), index.MemoryFactory(), pipeline.NewPipeline(keywordEmbed), testLogger())
	require.NoError(t, err, "Expected NewRanker to not return an error")
	return ranker
}

func TestNewRanker(t *testing.T) {
	p := pipeline.NewPipeline(keywordEmbed)
	src := source.NewStaticSource(nil, nil)

	t.Run("Valid call NewRanker", func(t *testing.T) {
		ranker, err := NewRanker(src, index.MemoryFactory(), p, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultCandidateLimit, ranker.CandidateLimit)
	})

	t.Run("Invalid call NewRanker with missing dependencies", func(t *testing.T) {
		_, err := NewRanker(nil, index.MemoryFactory(), p, nil)
		assert.Error(t, err)
		_, err = NewRanker(src, nil, p, nil)
		assert.Error(t, err)
		_, err = NewRanker(src, index.MemoryFactory(), nil, nil)
		assert.Error(t, err)
	})
}

func TestRankerRank(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call Rank orders by similarity", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "I take metformin", Limit: 2})
		require.NoError(t, err, "Expected Rank to not return an error")
		assert.Equal(t, model.RankStatusOK, result.Status)
		assert.Equal(t, 4, result.Candidates)
		assert.Equal(t, 4, result.Eligible)
		require.Len(t, result.Matches, 2, "Expected at most k matches")
		assert.Equal(t, "NCT2", result.Matches[0].ID)
		assert.Equal(t, "Metformin extended release", result.Matches[0].Title)
		assert.GreaterOrEqual(t, result.Matches[0].Score, result.Matches[1].Score)
		for _, m := range result.Matches {
			assert.GreaterOrEqual(t, m.Score, 0.0)
			assert.LessOrEqual(t, m.Score, 1.0)
		}
	})

	t.Run("Matches are a subset of the eligible trials", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())
		male := model.SexMale
		country := "germany"

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "exercise and insulin", Age: intPtr(40), Sex: &male, Country: &country, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Eligible, "Expected the US only and the female only trial to be filtered")
		assert.ElementsMatch(t, []string{"NCT2", "NCT4"}, result.IDs())
	})

	t.Run("k larger than the eligible set clamps", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin", Limit: 50})
		require.NoError(t, err)
		assert.Len(t, result.Matches, 4)
	})

	t.Run("Non-positive k uses the default limit", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())
		ranker.DefaultLimit = 3

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin"})
		require.NoError(t, err)
		assert.Len(t, result.Matches, 3)
	})

	t.Run("No candidates at all", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "asthma", Description: "insulin", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, model.RankStatusNoCandidates, result.Status)
		assert.Equal(t, MessageNoCandidates, result.Message)
		assert.Empty(t, result.Matches)
	})

	t.Run("Patient outside the age range gets no eligible signal", func(t *testing.T) {
		trials := []*model.Trial{{ID: "NCT1", Title: "Trial", Criteria: "diabetes", MinAge: intPtr(18), MaxAge: intPtr(65), Sex: model.SexAll, Countries: []string{"United States"}, Status: "RECRUITING"}}
		ranker := newTestRanker(t, trials)

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin", Age: intPtr(70), Limit: 5})
		require.NoError(t, err, "Expected no eligible trials to not be an error")
		assert.Equal(t, model.RankStatusNoEligible, result.Status)
		assert.Equal(t, MessageNoEligible, result.Message)
		assert.Equal(t, 1, result.Candidates)
		assert.Zero(t, result.Eligible)
	})

	t.Run("Snippets are bounded", func(t *testing.T) {
		trials := []*model.Trial{{ID: "NCT1", Title: "Insulin", Criteria: "diabetes " + strings.Repeat("x", 400), Status: "RECRUITING"}}
		ranker := newTestRanker(t, trials)

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin", Limit: 1})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.Equal(t, SnippetLength+3, len([]rune(result.Matches[0].Snippet)))
		assert.True(t, strings.HasSuffix(result.Matches[0].Snippet, "..."))
	})

	t.Run("Candidates that can't be embedded are skipped", func(t *testing.T) {
		trials := append(testTrials(), &model.Trial{ID: "NCT9", Title: "Broken record", Criteria: "diabetes", Status: "RECRUITING"})
		ranker := newTestRanker(t, trials)

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Eligible)
		assert.Len(t, result.Matches, 4)
		assert.NotContains(t, result.IDs(), "NCT9")
	})

	t.Run("Failing query embedding gives no matches", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "broken text", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, model.RankStatusNoMatches, result.Status)
		assert.Equal(t, MessageNoMatches, result.Message)
	})

	t.Run("Empty description falls back to the condition", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		result, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "metformin", Limit: 1})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.Equal(t, "NCT2", result.Matches[0].ID)
	})

	t.Run("Empty condition is an input error", func(t *testing.T) {
		ranker := newTestRanker(t, testTrials())

		_, err := ranker.Rank(ctx, &model.PatientQuery{Condition: "  ", Description: "insulin"})
		assert.ErrorIs(t, err, ErrEmptyCondition)
		_, err = ranker.Rank(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyCondition)
	})

	t.Run("Failing source returns an error", func(t *testing.T) {
		ranker, err := NewRanker(&MockTrialSource{}, index.MemoryFactory(), pipeline.NewPipeline(keywordEmbed), testLogger())
		require.NoError(t, err)

		_, err = ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin"})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Failing index factory returns an error", func(t *testing.T) {
		factory := func(ctx context.Context) (index.Store, error) { return nil, assert.AnError }
		ranker, err := NewRanker(source.NewStaticSource(testTrials(), nil), factory, pipeline.NewPipeline(keywordEmbed), testLogger())
		require.NoError(t, err)

		_, err = ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin"})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Every call uses a fresh index that is closed afterwards", func(t *testing.T) {
		var stores []*index.MemoryStore
		factory := func(ctx context.Context) (index.Store, error) {
			store := index.NewMemoryStore()
			stores = append(stores, store)
			return store, nil
		}
		ranker, err := NewRanker(source.NewStaticSource(testTrials(), nil), factory, pipeline.NewPipeline(keywordEmbed), testLogger())
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err = ranker.Rank(ctx, &model.PatientQuery{Condition: "diabetes", Description: "insulin"})
			require.NoError(t, err)
		}

		require.Len(t, stores, 2)
		assert.NotEqual(t, stores[0].Name(), stores[1].Name())
		for _, s := range stores {
			_, err := s.Count(ctx)
			assert.ErrorIs(t, err, index.ErrClosed)
		}
	})
}
