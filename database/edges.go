package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	loadSql "github.com/siherrmann/biolink/sql"
)

// EdgesDBHandlerFunctions defines the interface for graph edge database operations.
type EdgesDBHandlerFunctions interface {
	UpsertEdge(ctx context.Context, edge *model.Edge) error
	SelectAllEdges(ctx context.Context) ([]*model.Edge, error)
	SelectEdgesOfNode(ctx context.Context, nodeID string) ([]*model.Edge, error)
	SelectNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error)
	SelectNeighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error)
	DeleteAllEdges(ctx context.Context) (int, error)
	CountEdges(ctx context.Context) (int, error)
}

// EdgesDBHandler handles graph edge database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// The graph_edges table references graph_nodes, so the nodes table has to exist first.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'graph_edges' table if it does not exist yet.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph_edges();`)
	if err != nil {
		log.Panicf("error initializing graph_edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table graph_edges")

	return nil
}

// UpsertEdge inserts an edge or merges its attributes into the existing one.
// It returns model.ErrDanglingEdge if one of the endpoints is missing.
func (h *EdgesDBHandler) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	if edge.Attributes == nil {
		edge.Attributes = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_graph_edge($1, $2, $3, $4)`,
		edge.SourceID,
		edge.TargetID,
		edge.Relation,
		edge.Attributes,
	)

	err := row.Scan(
		&edge.SourceID,
		&edge.TargetID,
		&edge.Relation,
		&edge.Attributes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrDanglingEdge
	}
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectAllEdges retrieves all edges in insertion order
func (h *EdgesDBHandler) SelectAllEdges(ctx context.Context) ([]*model.Edge, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_graph_edges()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// SelectEdgesOfNode retrieves the incoming and outgoing edges of a node
func (h *EdgesDBHandler) SelectEdgesOfNode(ctx context.Context, nodeID string) ([]*model.Edge, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_graph_edges_of_node($1)`,
		nodeID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// SelectNeighborhood retrieves the nodes matching term with their adjacent nodes
func (h *EdgesDBHandler) SelectNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_graph_neighborhood($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNeighbors(rows)
}

// SelectNeighbors retrieves the adjacent nodes of one node
func (h *EdgesDBHandler) SelectNeighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_graph_neighbors($1)`,
		nodeID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNeighbors(rows)
}

// DeleteAllEdges deletes every edge and returns the number of deleted edges
func (h *EdgesDBHandler) DeleteAllEdges(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_all_graph_edges()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// CountEdges returns the number of stored edges
func (h *EdgesDBHandler) CountEdges(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_graph_edges()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanEdges(rows *sql.Rows) ([]*model.Edge, error) {
	edges := []*model.Edge{}
	for rows.Next() {
		edge := &model.Edge{}
		err := rows.Scan(
			&edge.SourceID,
			&edge.TargetID,
			&edge.Relation,
			&edge.Attributes,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

func scanNeighbors(rows *sql.Rows) ([]*model.Neighbor, error) {
	neighbors := []*model.Neighbor{}
	for rows.Next() {
		neighbor := &model.Neighbor{
			Node:     &model.Node{},
			Edge:     &model.Edge{},
			Adjacent: &model.Node{},
		}
		err := rows.Scan(
			&neighbor.Node.ID,
			&neighbor.Node.Type,
			&neighbor.Node.Label,
			&neighbor.Node.Attributes,
			&neighbor.Edge.SourceID,
			&neighbor.Edge.TargetID,
			&neighbor.Edge.Relation,
			&neighbor.Edge.Attributes,
			&neighbor.Adjacent.ID,
			&neighbor.Adjacent.Type,
			&neighbor.Adjacent.Label,
			&neighbor.Adjacent.Attributes,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		neighbors = append(neighbors, neighbor)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return neighbors, nil
}
