package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// Builder merges papers, trials and their extracted entities into a Store.
// Only one build runs at a time per builder.
type Builder struct {
	mu        sync.Mutex
	store     Store
	extractor Extractor
	log       *slog.Logger
}

// NewBuilder creates a builder writing to store.
func NewBuilder(store Store, extractor Extractor, logger *slog.Logger) (*Builder, error) {
	if store == nil {
		return nil, helper.NewError("builder validation", fmt.Errorf("graph store is nil"))
	}
	if extractor == nil {
		return nil, helper.NewError("builder validation", fmt.Errorf("extractor is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		store:     store,
		extractor: extractor,
		log:       logger.With(slog.String("component", "graph builder")),
	}, nil
}

// Rebuild clears the store and ingests papers and trials as a fresh snapshot.
func (b *Builder) Rebuild(ctx context.Context, papers []*model.Paper, trials []*model.Trial) (*model.BuildSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.ClearAll(ctx); err != nil {
		return nil, helper.NewError("clear graph", err)
	}

	return b.ingest(ctx, papers, trials)
}

// Ingest merges papers and trials into the existing graph without clearing it.
// Ingesting the same documents again does not change the graph.
func (b *Builder) Ingest(ctx context.Context, papers []*model.Paper, trials []*model.Trial) (*model.BuildSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ingest(ctx, papers, trials)
}

type buildState struct {
	summary  *model.BuildSummary
	entities map[string]bool
	edges    map[string]bool
}

func (b *Builder) ingest(ctx context.Context, papers []*model.Paper, trials []*model.Trial) (*model.BuildSummary, error) {
	state := &buildState{
		summary:  &model.BuildSummary{Mode: model.BuildModePapersOnly},
		entities: map[string]bool{},
		edges:    map[string]bool{},
	}
	if len(trials) > 0 {
		state.summary.Mode = model.BuildModePapersAndTrials
	}

	b.log.Info("Building graph", slog.Int("papers", len(papers)), slog.Int("trials", len(trials)))

	for _, paper := range papers {
		if err := ctx.Err(); err != nil {
			return state.summary, err
		}
		if paper == nil || strings.TrimSpace(paper.ID) == "" {
			continue
		}
		if err := b.ingestPaper(ctx, state, paper); err != nil {
			return state.summary, err
		}
		state.summary.PapersIngested++
	}

	for _, trial := range trials {
		if err := ctx.Err(); err != nil {
			return state.summary, err
		}
		if trial == nil || strings.TrimSpace(trial.ID) == "" {
			continue
		}
		if err := b.ingestTrial(ctx, state, trial); err != nil {
			return state.summary, err
		}
		state.summary.TrialsIngested++
	}

	state.summary.EntityNodes = len(state.entities)
	state.summary.Edges = len(state.edges)

	b.log.Info("Built graph",
		slog.Int("papers", state.summary.PapersIngested),
		slog.Int("trials", state.summary.TrialsIngested),
		slog.Int("entities", state.summary.EntityNodes),
		slog.Int("edges", state.summary.Edges),
	)

	return state.summary, nil
}

func (b *Builder) ingestPaper(ctx context.Context, state *buildState, paper *model.Paper) error {
	analysis := b.analyze(ctx, paper.Abstract)

	node := &model.Node{
		ID:    model.PaperNodeID(paper.ID),
		Type:  model.NodeTypePaper,
		Label: firstNonEmpty(paper.Title, paper.ID),
		Attributes: model.Metadata{
			"paper_id":        paper.ID,
			"title":           paper.Title,
			"date":            paper.Date,
			"journal":         paper.Journal,
			"discourse_label": string(analysis.Label),
			"abstract":        paper.Abstract,
		},
	}
	if err := b.store.UpsertNode(ctx, node); err != nil {
		return helper.NewError("upsert paper node", err)
	}

	for _, entity := range analysis.Entities {
		attrs := model.Metadata{"context": string(analysis.Label)}
		if err := b.link(ctx, state, node, entity, model.RelationMentions, attrs); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) ingestTrial(ctx context.Context, state *buildState, trial *model.Trial) error {
	analysis := b.analyze(ctx, trial.Document())

	node := &model.Node{
		ID:    model.TrialNodeID(trial.ID),
		Type:  model.NodeTypeTrial,
		Label: firstNonEmpty(trial.Title, trial.ID),
		Attributes: model.Metadata{
			"trial_id": trial.ID,
			"title":    trial.Title,
			"phase":    trial.Phase,
			"status":   trial.Status,
			"criteria": trial.Criteria,
		},
	}
	if err := b.store.UpsertNode(ctx, node); err != nil {
		return helper.NewError("upsert trial node", err)
	}

	for _, entity := range analysis.Entities {
		relation := model.RelationRecruitsFor
		if entity.Type == model.NodeTypeChemical {
			relation = model.RelationInvestigates
		}
		if err := b.link(ctx, state, node, entity, relation, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) analyze(ctx context.Context, text string) *model.Analysis {
	analysis := b.extractor.Analyze(ctx, text)
	if analysis == nil {
		return &model.Analysis{Label: model.LabelBackground}
	}
	return analysis
}

// link upserts the entity node and the edge from source to it.
func (b *Builder) link(ctx context.Context, state *buildState, source *model.Node, entity *model.Entity, relation model.Relation, attributes model.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entityType := entity.Type
	if !entityType.IsEntity() || !entityType.Valid() {
		entityType = model.NodeTypeConcept
	}

	target := &model.Node{
		ID:         model.EntityNodeID(entity.Name),
		Type:       entityType,
		Label:      entity.Name,
		Attributes: model.Metadata{"name": model.CanonicalName(entity.Name)},
	}
	if err := b.store.UpsertNode(ctx, target); err != nil {
		return helper.NewError("upsert entity node", err)
	}
	state.entities[target.ID] = true

	edge := &model.Edge{
		SourceID:   source.ID,
		TargetID:   target.ID,
		Relation:   relation,
		Attributes: attributes,
	}
	err := b.store.UpsertEdge(ctx, edge)
	if errors.Is(err, model.ErrDanglingEdge) {
		b.log.Warn("Skipped dangling edge", slog.String("source", source.ID), slog.String("target", target.ID))
		return nil
	}
	if err != nil {
		return helper.NewError("upsert edge", err)
	}
	state.edges[edge.Key()] = true
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
