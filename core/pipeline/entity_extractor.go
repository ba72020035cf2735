package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// DefaultEntityExtractor creates a biomedical NER function.
// Spans are aggregated, the "O" label is ignored.
func DefaultEntityExtractor(config helper.ModelConfiguration) (NERFunc, error) {
	modelPath, err := helper.PrepareModel(config.Directory, config.NER, config.NEROnnx)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	pipelineConfig := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]model.Span, error) {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}

		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		spans := make([]model.Span, 0, len(result.Entities[0]))
		for _, entity := range result.Entities[0] {
			spans = append(spans, model.Span{
				Text:       strings.TrimSpace(entity.Word),
				Type:       normalizeEntityType(entity.Entity),
				Confidence: float64(entity.Score),
				Start:      int(entity.Start),
				End:        int(entity.End),
			})
		}

		return spans, nil
	}, nil
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
