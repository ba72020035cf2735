package pipeline

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

var allowedEntityName = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.]+$`)

// DefaultStopwords are generic terms never kept as entities.
var DefaultStopwords = []string{
	"study", "group", "data", "analysis", "results", "using", "between",
	"associated", "clinical", "patient", "year", "years", "time", "high",
	"during", "after", "before", "treatment", "control", "placebo",
}

// AnalyzerConfig holds the filter constants of the analyzer.
type AnalyzerConfig struct {
	MinTextLength       int
	MaxTextLength       int
	ConfidenceThreshold float64
	MinEntityLength     int
	Stopwords           []string
	Labels              []model.DiscourseLabel
}

// DefaultAnalyzerConfig returns the default extraction limits.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinTextLength:       10,
		MaxTextLength:       512,
		ConfidenceThreshold: 0.75,
		MinEntityLength:     3,
		Stopwords:           DefaultStopwords,
		Labels:              model.DiscourseLabels,
	}
}

// Analyzer turns text into a discourse label and typed entities.
// It never returns an error, failing model calls degrade to the
// neutral label and no entities.
type Analyzer struct {
	pipeline  *Pipeline
	config    AnalyzerConfig
	stopwords map[string]struct{}
	log       *slog.Logger
}

// NewAnalyzer creates an analyzer on top of the model pipeline.
func NewAnalyzer(p *Pipeline, config AnalyzerConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Labels) == 0 {
		config.Labels = model.DiscourseLabels
	}

	stopwords := make(map[string]struct{}, len(config.Stopwords))
	for _, w := range config.Stopwords {
		stopwords[model.CanonicalName(w)] = struct{}{}
	}

	return &Analyzer{
		pipeline:  p,
		config:    config,
		stopwords: stopwords,
		log:       logger,
	}
}

// Analyze classifies text and extracts its entities.
func (a *Analyzer) Analyze(ctx context.Context, text string) *model.Analysis {
	analysis := &model.Analysis{
		Label:    model.LabelBackground,
		Entities: []*model.Entity{},
	}

	text = strings.TrimSpace(text)
	if len([]rune(text)) < a.config.MinTextLength {
		return analysis
	}
	text = helper.Truncate(text, a.config.MaxTextLength)

	analysis.Label = a.classify(ctx, text)
	analysis.Entities = a.entities(ctx, text)

	return analysis
}

// Entities only runs entity extraction.
func (a *Analyzer) Entities(ctx context.Context, text string) []*model.Entity {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < a.config.MinTextLength {
		return []*model.Entity{}
	}
	return a.entities(ctx, helper.Truncate(text, a.config.MaxTextLength))
}

func (a *Analyzer) classify(ctx context.Context, text string) model.DiscourseLabel {
	if a.pipeline == nil || a.pipeline.Classifier == nil {
		return model.LabelBackground
	}

	candidates := make([]string, 0, len(a.config.Labels))
	for _, l := range a.config.Labels {
		candidates = append(candidates, string(l))
	}

	scores, err := a.pipeline.Classify(ctx, text, candidates)
	if err != nil {
		a.log.Warn("Classification failed, using neutral label", slog.String("error", err.Error()))
		return model.LabelBackground
	}

	for _, s := range scores {
		if label, ok := model.ParseDiscourseLabel(s.Label); ok {
			return label
		}
	}
	return model.LabelBackground
}

func (a *Analyzer) entities(ctx context.Context, text string) []*model.Entity {
	if a.pipeline == nil || a.pipeline.EntityExtractor == nil {
		return []*model.Entity{}
	}

	spans, err := a.pipeline.Extract(ctx, text)
	if err != nil {
		a.log.Warn("Entity extraction failed, skipping entities", slog.String("error", err.Error()))
		return []*model.Entity{}
	}

	return a.FilterSpans(spans)
}

// FilterSpans applies the confidence, length, stoplist and character filters
// and deduplicates on the canonical name. The first occurrence wins.
func (a *Analyzer) FilterSpans(spans []model.Span) []*model.Entity {
	entities := []*model.Entity{}
	seen := make(map[string]struct{}, len(spans))

	for _, s := range spans {
		name := strings.TrimSpace(s.Text)
		if s.Confidence < a.config.ConfidenceThreshold {
			continue
		}
		if strings.HasPrefix(name, "##") {
			continue
		}
		if len([]rune(name)) < a.config.MinEntityLength {
			continue
		}
		if !allowedEntityName.MatchString(name) {
			continue
		}

		key := model.CanonicalName(name)
		if _, stop := a.stopwords[key]; stop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entities = append(entities, &model.Entity{
			Name:       name,
			Type:       MapEntityType(s.Type),
			Confidence: s.Confidence,
		})
	}

	return entities
}

// MapEntityType maps a NER group to a graph node type.
func MapEntityType(group string) model.NodeType {
	g := strings.ToLower(group)
	switch {
	case strings.Contains(g, "chemical"), strings.Contains(g, "medication"), strings.Contains(g, "drug"):
		return model.NodeTypeChemical
	case strings.Contains(g, "disease"), strings.Contains(g, "diagnosis"):
		return model.NodeTypeDisease
	case strings.Contains(g, "gene"), strings.Contains(g, "protein"):
		return model.NodeTypeTarget
	default:
		return model.NodeTypeConcept
	}
}
