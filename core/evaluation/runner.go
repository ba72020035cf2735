package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

const (
	DefaultTopK   = 10
	detailedRanks = 5
)

// Ranker ranks trials for a patient, *retrieval.Ranker implements it.
type Ranker interface {
	Rank(ctx context.Context, query *model.PatientQuery) (*model.RankResult, error)
}

// RankerFunc adapts a function to a Ranker.
type RankerFunc func(ctx context.Context, query *model.PatientQuery) (*model.RankResult, error)

func (f RankerFunc) Rank(ctx context.Context, query *model.PatientQuery) (*model.RankResult, error) {
	return f(ctx, query)
}

// Runner ranks every labeled case and scores the predictions.
type Runner struct {
	ranker Ranker
	log    *slog.Logger

	TopK int
}

// NewRunner creates a runner requesting DefaultTopK matches per case.
func NewRunner(ranker Ranker, logger *slog.Logger) (*Runner, error) {
	if ranker == nil {
		return nil, helper.NewError("runner validation", fmt.Errorf("ranker is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		ranker: ranker,
		log:    logger.With(slog.String("component", "evaluation")),
		TopK:   DefaultTopK,
	}, nil
}

// Run evaluates the cases. Cases without ground truth are skipped, a failing
// ranking counts as a case without predictions and is recorded in its detail.
func (r *Runner) Run(ctx context.Context, name string, cases []*model.EvaluationCase) (*model.EvaluationReport, error) {
	report := &model.EvaluationReport{
		Name:      name,
		TopK:      r.TopK,
		Cases:     []*model.CaseDetail{},
		CreatedAt: time.Now(),
	}

	var allPredictions [][]string
	var allGroundTruth []model.IDSet
	var allScores [][]float64

	r.log.Info("Running evaluation", slog.String("name", name), slog.Int("cases", len(cases)))

	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		groundTruth := model.NewIDSet(c.GroundTruth...)
		if len(groundTruth) == 0 {
			r.log.Warn("No ground truth labels, skipping case", slog.String("case_id", c.ID))
			report.Skipped++
			continue
		}

		detail := &model.CaseDetail{
			CaseID:         c.ID,
			Condition:      c.Condition,
			GroundTruth:    groundTruth.Sorted(),
			NumGroundTruth: len(groundTruth),
			Predicted:      []string{},
		}

		result, err := r.ranker.Rank(ctx, c.Query(r.TopK))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Error("Error ranking case", slog.String("case_id", c.ID), slog.String("error", err.Error()))
			detail.Error = err.Error()
			allPredictions = append(allPredictions, []string{})
			allGroundTruth = append(allGroundTruth, groundTruth)
			allScores = append(allScores, []float64{})
			report.Cases = append(report.Cases, detail)
			continue
		}

		predicted := result.IDs()
		scores := result.Scores()
		allPredictions = append(allPredictions, predicted)
		allGroundTruth = append(allGroundTruth, groundTruth)
		allScores = append(allScores, scores)

		detail.NumPredictions = len(predicted)
		detail.CorrectInTopK = countCorrect(predicted, groundTruth)
		detail.FirstCorrectRank = FirstCorrectRank(predicted, groundTruth)
		detail.Predicted = append(detail.Predicted, topK(predicted, detailedRanks)...)
		if len(scores) > 0 {
			detail.TopScore = scores[0]
		}
		report.Cases = append(report.Cases, detail)

		r.log.Info("Evaluated case",
			slog.Int("case", i+1),
			slog.String("case_id", c.ID),
			slog.Int("predictions", detail.NumPredictions),
			slog.Int("correct", detail.CorrectInTopK),
		)
	}

	metrics, err := CalculateMetrics(allPredictions, allGroundTruth, allScores)
	if err != nil {
		return nil, helper.NewError("calculate metrics", err)
	}
	report.Metrics = metrics

	return report, nil
}
