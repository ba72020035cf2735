package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/siherrmann/biolink/model"
)

type memoryEntry struct {
	doc *model.IndexedDocument
	seq int
}

// MemoryStore keeps the documents of one session in memory.
type MemoryStore struct {
	name    string
	entries map[string]*memoryEntry
	dim     int
	nextSeq int
	closed  bool
}

// NewMemoryStore creates an empty, uniquely named memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		name:    NewSessionName("memory"),
		entries: map[string]*memoryEntry{},
	}
}

// MemoryFactory creates memory stores.
func MemoryFactory() Factory {
	return func(ctx context.Context) (Store, error) {
		return NewMemoryStore(), nil
	}
}

func (s *MemoryStore) Name() string {
	return s.name
}

// Upsert overwrites an existing entry in place, keeping its insertion position.
func (s *MemoryStore) Upsert(ctx context.Context, doc *model.IndexedDocument) error {
	if s.closed {
		return ErrClosed
	}
	if s.dim == 0 {
		s.dim = len(doc.Embedding)
	} else if len(doc.Embedding) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dim, len(doc.Embedding))
	}

	stored := &model.IndexedDocument{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: append([]float32(nil), doc.Embedding...),
		Metadata:  doc.Metadata.Copy(),
	}

	if existing, ok := s.entries[doc.ID]; ok {
		existing.doc = stored
		return nil
	}

	s.entries[doc.ID] = &memoryEntry{doc: stored, seq: s.nextSeq}
	s.nextSeq++
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, embedding []float32, k int) ([]*model.ScoredDocument, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.entries) > 0 && len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dim, len(embedding))
	}

	type scored struct {
		entry *memoryEntry
		score float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, scored{entry: e, score: clampScore(CosineSimilarity(embedding, e.doc.Embedding))})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.seq < candidates[j].entry.seq
	})

	if k < 0 {
		k = 0
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]*model.ScoredDocument, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, &model.ScoredDocument{
			ID:       c.entry.doc.ID,
			Content:  c.entry.doc.Content,
			Metadata: c.entry.doc.Metadata.Copy(),
			Score:    c.score,
		})
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.entries), nil
}

// Close drops all documents, the store can't be used afterwards.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.entries = nil
	s.closed = true
	return nil
}
