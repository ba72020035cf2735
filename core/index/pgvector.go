package index

import (
	"context"
	"fmt"

	"github.com/siherrmann/biolink/database"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// PgVectorStore keeps the documents of one session in its own Postgres table.
type PgVectorStore struct {
	handler   database.IndexDBHandlerFunctions
	table     string
	dimension int
	closed    bool
}

// NewPgVectorStore creates the session table with the given embedding dimension.
func NewPgVectorStore(ctx context.Context, handler database.IndexDBHandlerFunctions, dimension int) (*PgVectorStore, error) {
	if handler == nil {
		return nil, helper.NewError("pgvector store validation", fmt.Errorf("index handler is nil"))
	}

	store := &PgVectorStore{
		handler:   handler,
		table:     NewSessionName("idx"),
		dimension: dimension,
	}

	err := handler.CreateSessionTable(ctx, store.table, dimension)
	if err != nil {
		return nil, helper.NewError("create session table", err)
	}

	return store, nil
}

// PgVectorFactory creates pgvector stores on handler.
func PgVectorFactory(handler database.IndexDBHandlerFunctions, dimension int) Factory {
	return func(ctx context.Context) (Store, error) {
		return NewPgVectorStore(ctx, handler, dimension)
	}
}

func (s *PgVectorStore) Name() string {
	return s.table
}

func (s *PgVectorStore) Upsert(ctx context.Context, doc *model.IndexedDocument) error {
	if s.closed {
		return ErrClosed
	}
	if len(doc.Embedding) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(doc.Embedding))
	}
	return s.handler.UpsertDocument(ctx, s.table, doc)
}

func (s *PgVectorStore) Query(ctx context.Context, embedding []float32, k int) ([]*model.ScoredDocument, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(embedding))
	}

	docs, err := s.handler.SelectDocumentsBySimilarity(ctx, s.table, embedding, k)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		doc.Score = clampScore(doc.Score)
	}
	return docs, nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.handler.CountDocuments(ctx, s.table)
}

// Close drops the session table.
func (s *PgVectorStore) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.handler.DropSessionTable(ctx, s.table)
}
