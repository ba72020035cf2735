package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// DefaultClassifier creates a zero-shot classifier over the given labels.
// A call with a subset of the labels only returns that subset.
func DefaultClassifier(config helper.ModelConfiguration, labels []string) (ClassifyFunc, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no candidate labels given")
	}

	modelPath, err := helper.PrepareModel(config.Directory, config.Classifier, config.ClassifierOnnx)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	pipelineConfig := hugot.ZeroShotClassificationConfig{
		ModelPath: modelPath,
		Name:      "zero-shot-pipeline",
		Options: []hugot.ZeroShotClassificationOption{
			pipelines.WithHypothesisTemplate("This text describes the {}."),
			pipelines.WithLabels(labels),
			pipelines.WithMultilabel(false),
		},
	}
	classifierPipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create classifier pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create classifier pipeline: %w", err)
	}

	return func(text string, candidates []string) ([]model.LabelScore, error) {
		result, err := classifierPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to classify text: %w", err)
		}

		if len(result.ClassificationOutputs) == 0 {
			return nil, fmt.Errorf("no classification generated")
		}

		var scores []model.LabelScore
		for _, v := range result.ClassificationOutputs[0].SortedValues {
			if len(candidates) > 0 && !containsFold(candidates, v.Key) {
				continue
			}
			scores = append(scores, model.LabelScore{Label: v.Key, Score: float64(v.Value)})
		}

		return scores, nil
	}, nil
}

// DiscourseLabelNames returns the discourse labels as classifier candidates.
func DiscourseLabelNames() []string {
	names := make([]string, 0, len(model.DiscourseLabels))
	for _, l := range model.DiscourseLabels {
		names = append(names, string(l))
	}
	return names
}

func containsFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
