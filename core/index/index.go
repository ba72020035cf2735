package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

var (
	ErrClosed            = errors.New("index store is closed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyID           = errors.New("document id is empty")
)

// Store is the vector storage of one session. Implementations are not safe
// for concurrent use, every session owns its own store.
type Store interface {
	Name() string
	Upsert(ctx context.Context, doc *model.IndexedDocument) error
	Query(ctx context.Context, embedding []float32, k int) ([]*model.ScoredDocument, error)
	Count(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Factory creates a fresh, uniquely named store.
type Factory func(ctx context.Context) (Store, error)

// NewSessionName returns a unique store name with the given prefix.
func NewSessionName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Index embeds texts and stores them in a session store.
type Index struct {
	store    Store
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// New creates an index over store, embedding with the pipeline.
func New(store Store, p *pipeline.Pipeline, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		store:    store,
		pipeline: p,
		log:      logger.With(slog.String("index", store.Name())),
	}
}

// Open creates a fresh store with the factory and wraps it into an index.
func Open(ctx context.Context, factory Factory, p *pipeline.Pipeline, logger *slog.Logger) (*Index, error) {
	store, err := factory(ctx)
	if err != nil {
		return nil, helper.NewError("create index store", err)
	}
	return New(store, p, logger), nil
}

// Name returns the name of the underlying store.
func (i *Index) Name() string {
	return i.store.Name()
}

// Upsert embeds text and stores it under id, overwriting a prior entry.
func (i *Index) Upsert(ctx context.Context, id string, text string, metadata model.Metadata) error {
	embedding, err := i.pipeline.Embed(ctx, text)
	if err != nil {
		return helper.NewError("embed document", err)
	}
	return i.UpsertEmbedded(ctx, id, text, embedding, metadata)
}

// UpsertEmbedded stores a document with a precomputed embedding.
func (i *Index) UpsertEmbedded(ctx context.Context, id string, text string, embedding []float32, metadata model.Metadata) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	if len(embedding) == 0 {
		return helper.NewError("upsert document", fmt.Errorf("embedding of %s is empty", id))
	}
	if metadata == nil {
		metadata = model.Metadata{}
	}

	err := i.store.Upsert(ctx, &model.IndexedDocument{
		ID:        id,
		Content:   text,
		Embedding: embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return helper.NewError("upsert document", err)
	}
	return nil
}

// Query returns the k documents most similar to text, highest score first.
// An empty index returns an empty list.
func (i *Index) Query(ctx context.Context, text string, k int) ([]*model.ScoredDocument, error) {
	if k <= 0 {
		return []*model.ScoredDocument{}, nil
	}

	count, err := i.store.Count(ctx)
	if err != nil {
		return nil, helper.NewError("count documents", err)
	}
	if count == 0 {
		return []*model.ScoredDocument{}, nil
	}
	if k > count {
		k = count
	}

	embedding, err := i.pipeline.Embed(ctx, text)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	results, err := i.store.Query(ctx, embedding, k)
	if err != nil {
		return nil, helper.NewError("query documents", err)
	}

	i.log.Debug("Queried index", slog.Int("k", k), slog.Int("results", len(results)))

	return results, nil
}

// Count returns the number of stored documents.
func (i *Index) Count(ctx context.Context) (int, error) {
	return i.store.Count(ctx)
}

// Close drops the session store.
func (i *Index) Close(ctx context.Context) error {
	return i.store.Close(ctx)
}

// ScoreFromDistance converts a cosine distance to a similarity score in [0,1].
func ScoreFromDistance(distance float64) float64 {
	return clampScore(1 - distance)
}

// CosineSimilarity returns the cosine similarity of a and b, zero vectors score 0.
func CosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
