package graph

import (
	"context"

	"github.com/siherrmann/biolink/model"
)

// Store is a property graph store. UpsertNode and UpsertEdge are idempotent,
// UpsertEdge returns model.ErrDanglingEdge if one of the endpoints is missing.
type Store interface {
	ClearAll(ctx context.Context) error
	UpsertNode(ctx context.Context, node *model.Node) error
	UpsertEdge(ctx context.Context, edge *model.Edge) error
	MatchNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error)
	Neighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error)
	SelectNode(ctx context.Context, id string) (*model.Node, error)
	SelectNodes(ctx context.Context, limit int) ([]*model.Node, error)
	SelectEdges(ctx context.Context) ([]*model.Edge, error)
	Count(ctx context.Context) (nodes int, edges int, err error)
}

// Extractor turns text into a discourse label and typed entities.
type Extractor interface {
	Analyze(ctx context.Context, text string) *model.Analysis
}
