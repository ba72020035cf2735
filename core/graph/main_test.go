package graph

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/siherrmann/biolink/model"
)

// keywordExtractor finds every known entity whose name occurs in the text.
type keywordExtractor struct {
	entities []*model.Entity
	label    model.DiscourseLabel
	calls    int
}

func newKeywordExtractor() *keywordExtractor {
	return &keywordExtractor{
		entities: []*model.Entity{
			{Name: "Metformin", Type: model.NodeTypeChemical, Confidence: 0.95},
			{Name: "type 2 diabetes", Type: model.NodeTypeDisease, Confidence: 0.9},
			{Name: "HbA1c", Type: model.NodeTypeConcept, Confidence: 0.8},
			{Name: "EGFR", Type: model.NodeTypeTarget, Confidence: 0.85},
		},
		label: model.LabelOutcome,
	}
}

func (e *keywordExtractor) Analyze(ctx context.Context, text string) *model.Analysis {
	e.calls++
	analysis := &model.Analysis{Label: e.label, Entities: []*model.Entity{}}
	lower := strings.ToLower(text)
	for _, entity := range e.entities {
		if strings.Contains(lower, strings.ToLower(entity.Name)) {
			analysis.Entities = append(analysis.Entities, entity)
		}
	}
	return analysis
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPapers() []*model.Paper {
	return []*model.Paper{
		{ID: "PMID1", Title: "Metformin outcomes", Abstract: "Metformin reduced HbA1c in type 2 diabetes.", Journal: "Diabetes Care", Date: "2023-01-01"},
		{ID: "PMID2", Title: "EGFR signalling", Abstract: "EGFR mutations in lung tumours and METFORMIN response."},
	}
}

func testTrials() []*model.Trial {
	return []*model.Trial{
		{ID: "NCT0001", Title: "Metformin in adults", Criteria: "Adults with type 2 diabetes.", Status: "RECRUITING", Phase: "PHASE2"},
	}
}
