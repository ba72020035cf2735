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

// NodesDBHandlerFunctions defines the interface for graph node database operations.
type NodesDBHandlerFunctions interface {
	UpsertNode(ctx context.Context, node *model.Node) error
	SelectNode(ctx context.Context, id string) (*model.Node, error)
	SelectAllNodes(ctx context.Context, limit int) ([]*model.Node, error)
	SelectNodesBySearch(ctx context.Context, term string, limit int) ([]*model.Node, error)
	DeleteNode(ctx context.Context, id string) error
	DeleteAllNodes(ctx context.Context) (int, error)
	CountNodes(ctx context.Context) (int, error)
}

// NodesDBHandler handles graph node database operations
type NodesDBHandler struct {
	db *helper.Database
}

// NewNodesDBHandler creates a new nodes database handler.
// It loads the node SQL functions and creates the graph_nodes table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNodesDBHandler(db *helper.Database, force bool) (*NodesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesDbHandler := &NodesDBHandler{
		db: db,
	}

	err := loadSql.LoadNodesSql(nodesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load nodes sql", err)
	}

	err = nodesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NodesDBHandler")

	return nodesDbHandler, nil
}

// CreateTable creates the 'graph_nodes' table if it does not exist yet.
func (h *NodesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph_nodes();`)
	if err != nil {
		log.Panicf("error initializing graph_nodes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table graph_nodes")

	return nil
}

// UpsertNode inserts a node or merges it into the existing one.
// The stored type of an existing node wins, node is updated with the stored values.
func (h *NodesDBHandler) UpsertNode(ctx context.Context, node *model.Node) error {
	if node.Attributes == nil {
		node.Attributes = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_graph_node($1, $2, $3, $4)`,
		node.ID,
		node.Type,
		node.Label,
		node.Attributes,
	)

	err := row.Scan(
		&node.ID,
		&node.Type,
		&node.Label,
		&node.Attributes,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectNode retrieves a node by id
func (h *NodesDBHandler) SelectNode(ctx context.Context, id string) (*model.Node, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_graph_node($1)`,
		id,
	)

	node := &model.Node{}
	err := row.Scan(
		&node.ID,
		&node.Type,
		&node.Label,
		&node.Attributes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNodeNotFound
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return node, nil
}

// SelectAllNodes retrieves up to limit nodes in insertion order
func (h *NodesDBHandler) SelectAllNodes(ctx context.Context, limit int) ([]*model.Node, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_all_graph_nodes($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// SelectNodesBySearch retrieves nodes whose label or title contains term
func (h *NodesDBHandler) SelectNodesBySearch(ctx context.Context, term string, limit int) ([]*model.Node, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_graph_nodes_by_search($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// DeleteNode deletes a node and its edges
func (h *NodesDBHandler) DeleteNode(ctx context.Context, id string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_graph_node($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteAllNodes deletes every node and returns the number of deleted nodes
func (h *NodesDBHandler) DeleteAllNodes(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_all_graph_nodes()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// CountNodes returns the number of stored nodes
func (h *NodesDBHandler) CountNodes(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_graph_nodes()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanNodes(rows *sql.Rows) ([]*model.Node, error) {
	nodes := []*model.Node{}
	for rows.Next() {
		node := &model.Node{}
		err := rows.Scan(
			&node.ID,
			&node.Type,
			&node.Label,
			&node.Attributes,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		nodes = append(nodes, node)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return nodes, nil
}
