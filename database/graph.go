package database

import (
	"context"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// PostgresGraph is a property graph store on the graph_nodes and graph_edges tables.
type PostgresGraph struct {
	nodes *NodesDBHandler
	edges *EdgesDBHandler
}

// NewPostgresGraph creates the node and edge handlers on db.
func NewPostgresGraph(db *helper.Database, force bool) (*PostgresGraph, error) {
	nodes, err := NewNodesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create nodes handler", err)
	}

	edges, err := NewEdgesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	return &PostgresGraph{nodes: nodes, edges: edges}, nil
}

// ClearAll deletes every edge and node.
func (g *PostgresGraph) ClearAll(ctx context.Context) error {
	if _, err := g.edges.DeleteAllEdges(ctx); err != nil {
		return helper.NewError("delete edges", err)
	}
	if _, err := g.nodes.DeleteAllNodes(ctx); err != nil {
		return helper.NewError("delete nodes", err)
	}
	return nil
}

func (g *PostgresGraph) UpsertNode(ctx context.Context, node *model.Node) error {
	return g.nodes.UpsertNode(ctx, node)
}

func (g *PostgresGraph) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	return g.edges.UpsertEdge(ctx, edge)
}

func (g *PostgresGraph) MatchNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error) {
	return g.edges.SelectNeighborhood(ctx, term, limit)
}

func (g *PostgresGraph) Neighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error) {
	return g.edges.SelectNeighbors(ctx, nodeID)
}

func (g *PostgresGraph) SelectNode(ctx context.Context, id string) (*model.Node, error) {
	return g.nodes.SelectNode(ctx, id)
}

func (g *PostgresGraph) SelectNodes(ctx context.Context, limit int) ([]*model.Node, error) {
	return g.nodes.SelectAllNodes(ctx, limit)
}

func (g *PostgresGraph) SelectEdges(ctx context.Context) ([]*model.Edge, error) {
	return g.edges.SelectAllEdges(ctx)
}

// Count returns the number of nodes and edges.
func (g *PostgresGraph) Count(ctx context.Context) (int, int, error) {
	nodes, err := g.nodes.CountNodes(ctx)
	if err != nil {
		return 0, 0, err
	}
	edges, err := g.edges.CountEdges(ctx)
	if err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}
