package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/biolink/core/eligibility"
	"github.com/siherrmann/biolink/core/index"
	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

var ErrEmptyCondition = errors.New("condition is empty")

const (
	DefaultCandidateLimit = 50
	DefaultLimit          = 5
	SnippetLength         = 300

	MessageNoCandidates = "No active recruiting trials found"
	MessageNoEligible   = "No trials matched the basic eligibility filters"
	MessageNoMatches    = "No trials matched the patient description"
)

// Ranker filters recruiting trials by eligibility and orders the remaining
// ones by similarity to the patient description.
type Ranker struct {
	trials   source.TrialSource
	factory  index.Factory
	pipeline *pipeline.Pipeline
	log      *slog.Logger

	CandidateLimit int
	DefaultLimit   int
}

// NewRanker creates a ranker. Every Rank call indexes into a fresh store from factory.
func NewRanker(trials source.TrialSource, factory index.Factory, p *pipeline.Pipeline, logger *slog.Logger) (*Ranker, error) {
	if trials == nil {
		return nil, helper.NewError("ranker validation", fmt.Errorf("trial source is nil"))
	}
	if factory == nil {
		return nil, helper.NewError("ranker validation", fmt.Errorf("index factory is nil"))
	}
	if p == nil {
		return nil, helper.NewError("ranker validation", fmt.Errorf("pipeline is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ranker{
		trials:         trials,
		factory:        factory,
		pipeline:       p,
		log:            logger.With(slog.String("component", "ranker")),
		CandidateLimit: DefaultCandidateLimit,
		DefaultLimit:   DefaultLimit,
	}, nil
}

// Rank returns at most query.Limit matches. Empty results are reported through
// the status, only invalid input and source or index failures are errors.
func (r *Ranker) Rank(ctx context.Context, query *model.PatientQuery) (*model.RankResult, error) {
	if query == nil || strings.TrimSpace(query.Condition) == "" {
		return nil, ErrEmptyCondition
	}

	k := query.Limit
	if k <= 0 {
		k = r.DefaultLimit
	}

	candidates, err := r.trials.FetchRecruiting(ctx, query.Condition, r.CandidateLimit)
	if err != nil {
		return nil, helper.NewError("fetch candidates", err)
	}
	result := &model.RankResult{Candidates: len(candidates), Matches: []*model.MatchResult{}}
	if len(candidates) == 0 {
		result.Status = model.RankStatusNoCandidates
		result.Message = MessageNoCandidates
		return result, nil
	}

	eligible := eligibility.Filter(candidates, query.Age, query.Sex, query.Country)
	result.Eligible = len(eligible)
	if len(eligible) == 0 {
		result.Status = model.RankStatusNoEligible
		result.Message = MessageNoEligible
		return result, nil
	}

	idx, err := index.Open(ctx, r.factory, r.pipeline, r.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := idx.Close(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("Error closing index", slog.String("index", idx.Name()), slog.String("error", err.Error()))
		}
	}()

	trials := map[string]*model.Trial{}
	for _, trial := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metadata := model.Metadata{"title": trial.Title, "status": trial.Status, "phase": trial.Phase}
		if err := idx.Upsert(ctx, trial.ID, trial.Document(), metadata); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warn("Skipped trial", slog.String("trial_id", trial.ID), slog.String("error", err.Error()))
			continue
		}
		trials[trial.ID] = trial
	}

	text := query.Description
	if strings.TrimSpace(text) == "" {
		text = query.Condition
	}

	docs, err := idx.Query(ctx, text, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Warn("Error querying index", slog.String("error", err.Error()))
		docs = nil
	}

	for _, doc := range docs {
		trial, ok := trials[doc.ID]
		if !ok {
			continue
		}
		result.Matches = append(result.Matches, &model.MatchResult{
			ID:       trial.ID,
			Score:    doc.Score,
			Title:    trial.Title,
			Snippet:  helper.Ellipsis(doc.Content, SnippetLength),
			Metadata: doc.Metadata,
		})
	}

	if len(result.Matches) == 0 {
		result.Status = model.RankStatusNoMatches
		result.Message = MessageNoMatches
		return result, nil
	}

	result.Status = model.RankStatusOK
	r.log.Info("Ranked trials",
		slog.String("condition", query.Condition),
		slog.Int("candidates", result.Candidates),
		slog.Int("eligible", result.Eligible),
		slog.Int("matches", len(result.Matches)),
	)

	return result, nil
}
