package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

const (
	payloadDocID    = "doc_id"
	payloadContent  = "content"
	payloadSeq      = "seq"
	payloadMetadata = "metadata"
)

// NewQdrantClient connects to the configured Qdrant instance.
func NewQdrantClient(config *helper.QdrantConfiguration) (*qdrant.Client, error) {
	if config == nil {
		return nil, helper.NewError("qdrant configuration validation", fmt.Errorf("qdrant configuration is nil"))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, helper.NewError("create qdrant client", err)
	}
	return client, nil
}

// QdrantStore keeps the documents of one session in its own Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	seqs       map[string]int64
	nextSeq    int64
	closed     bool
}

// NewQdrantStore creates the session collection with cosine distance.
func NewQdrantStore(ctx context.Context, client *qdrant.Client, dimension int) (*QdrantStore, error) {
	if client == nil {
		return nil, helper.NewError("qdrant store validation", fmt.Errorf("qdrant client is nil"))
	}

	store := &QdrantStore{
		client:     client,
		collection: NewSessionName("biolink"),
		dimension:  dimension,
		seqs:       map[string]int64{},
	}

	err := client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: store.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, helper.NewError("create collection", err)
	}

	return store, nil
}

// QdrantFactory creates qdrant stores on client.
func QdrantFactory(client *qdrant.Client, dimension int) Factory {
	return func(ctx context.Context) (Store, error) {
		return NewQdrantStore(ctx, client, dimension)
	}
}

func (s *QdrantStore) Name() string {
	return s.collection
}

// Upsert stores the document under a point id derived from its id.
// A re-upserted document keeps its insertion position.
func (s *QdrantStore) Upsert(ctx context.Context, doc *model.IndexedDocument) error {
	if s.closed {
		return ErrClosed
	}
	if len(doc.Embedding) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(doc.Embedding))
	}

	seq, ok := s.seqs[doc.ID]
	if !ok {
		seq = s.nextSeq
	}

	metadata, err := doc.Metadata.Marshal()
	if err != nil {
		return helper.NewError("marshal metadata", err)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(pointID(doc.ID)),
				Vectors: qdrant.NewVectors(doc.Embedding...),
				Payload: map[string]*qdrant.Value{
					payloadDocID:    qdrant.NewValueString(doc.ID),
					payloadContent:  qdrant.NewValueString(doc.Content),
					payloadSeq:      qdrant.NewValueInt(seq),
					payloadMetadata: qdrant.NewValueString(string(metadata)),
				},
			},
		},
	})
	if err != nil {
		return helper.NewError("upsert points", err)
	}

	if !ok {
		s.seqs[doc.ID] = seq
		s.nextSeq++
	}
	return nil
}

// Query returns the k nearest documents, equal scores ordered by insertion.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, k int) ([]*model.ScoredDocument, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if k <= 0 {
		return []*model.ScoredDocument{}, nil
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(embedding))
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, helper.NewError("query points", err)
	}

	type scoredPoint struct {
		doc *model.ScoredDocument
		seq int64
	}
	points := make([]scoredPoint, 0, len(response))
	for _, point := range response {
		doc := &model.ScoredDocument{
			Score:    clampScore(float64(point.Score)),
			Metadata: model.Metadata{},
		}
		var seq int64
		if payload := point.Payload; payload != nil {
			doc.ID = payload[payloadDocID].GetStringValue()
			doc.Content = payload[payloadContent].GetStringValue()
			seq = payload[payloadSeq].GetIntegerValue()
			if raw := payload[payloadMetadata].GetStringValue(); raw != "" {
				if err := doc.Metadata.Unmarshal(raw); err != nil {
					return nil, helper.NewError("unmarshal metadata", err)
				}
			}
		}
		points = append(points, scoredPoint{doc: doc, seq: seq})
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].doc.Score != points[j].doc.Score {
			return points[i].doc.Score > points[j].doc.Score
		}
		return points[i].seq < points[j].seq
	})

	results := make([]*model.ScoredDocument, 0, len(points))
	for _, p := range points {
		results = append(results, p.doc)
	}
	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, helper.NewError("count points", err)
	}
	return int(count), nil
}

// Close deletes the session collection. The client stays open.
func (s *QdrantStore) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil {
		return helper.NewError("delete collection", err)
	}
	return nil
}

func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
