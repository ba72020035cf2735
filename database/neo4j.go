package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

// Neo4jGraphHandler is a property graph store on a Neo4j database.
// Every node carries the :Node label plus its type label, attributes are kept as a JSON string.
type Neo4jGraphHandler struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// NewNeo4jGraphHandler connects to Neo4j and verifies the connection.
func NewNeo4jGraphHandler(config *helper.Neo4jConfiguration, logger *slog.Logger) (*Neo4jGraphHandler, error) {
	if config == nil {
		return nil, helper.NewError("neo4j configuration validation", fmt.Errorf("neo4j configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.User, config.Password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = config.MaxPoolSize
		cfg.SocketConnectTimeout = config.Timeout
	})
	if err != nil {
		return nil, helper.NewError("init neo4j driver", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, helper.NewError("verify neo4j connectivity", err)
	}

	h := &Neo4jGraphHandler{
		driver:   driver,
		database: config.Database,
		log:      logger.With(slog.String("handler", "Neo4jGraphHandler")),
	}

	err = h.write(ctx, `CREATE CONSTRAINT node_id_unique IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE`, nil)
	if err != nil {
		h.log.Warn("Neo4j schema init failed", slog.String("error", err.Error()))
	}

	h.log.Info("Initialized Neo4jGraphHandler")

	return h, nil
}

// Close closes the driver.
func (h *Neo4jGraphHandler) Close(ctx context.Context) error {
	if h.driver == nil {
		return nil
	}
	err := h.driver.Close(ctx)
	h.driver = nil
	return err
}

// ClearAll deletes every node and relationship.
func (h *Neo4jGraphHandler) ClearAll(ctx context.Context) error {
	if err := h.write(ctx, `MATCH (n:Node) DETACH DELETE n`, nil); err != nil {
		return helper.NewError("clear graph", err)
	}
	return nil
}

// UpsertNode merges the node by id. The type of an existing node wins,
// attributes are merged into the existing ones.
func (h *Neo4jGraphHandler) UpsertNode(ctx context.Context, node *model.Node) error {
	if !node.Type.Valid() {
		return helper.NewError("upsert node", fmt.Errorf("invalid node type: %s", node.Type))
	}

	session := h.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stored, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:Node {id: $id}) RETURN n.attrs AS attrs`, map[string]any{"id": node.ID})
		if err != nil {
			return nil, err
		}
		existing := model.Metadata{}
		if res.Next(ctx) {
			existing = decodeAttributes(res.Record(), "attrs")
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		attrs, err := existing.Merge(node.Attributes).Marshal()
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf(`
MERGE (n:Node {id: $id})
ON CREATE SET n:%s, n.type = $type, n.created = timestamp()
SET n.label = $label, n.title = $title, n.attrs = $attrs
RETURN n.id AS id, n.type AS type, n.label AS label, n.attrs AS attrs
`, node.Type)
		res, err = tx.Run(ctx, query, map[string]any{
			"id":    node.ID,
			"type":  string(node.Type),
			"label": node.Label,
			"title": node.Title(),
			"attrs": string(attrs),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return recordNode(record, ""), nil
	})
	if err != nil {
		return helper.NewError("upsert node", err)
	}

	*node = *stored.(*model.Node)
	return nil
}

// UpsertEdge merges the relationship between two existing nodes.
// It returns model.ErrDanglingEdge if one of the endpoints is missing.
func (h *Neo4jGraphHandler) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	if !edge.Relation.Valid() {
		return helper.NewError("upsert edge", fmt.Errorf("invalid relation: %s", edge.Relation))
	}

	session := h.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	merged, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
MATCH (a:Node {id: $source}), (b:Node {id: $target})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r.created = timestamp()
RETURN r.attrs AS attrs
`, edge.Relation)
		params := map[string]any{"source": edge.SourceID, "target": edge.TargetID}
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, model.ErrDanglingEdge
		}

		attrs, err := decodeAttributes(records[0], "attrs").Merge(edge.Attributes).Marshal()
		if err != nil {
			return nil, err
		}

		params["attrs"] = string(attrs)
		res, err = tx.Run(ctx, fmt.Sprintf(`
MATCH (a:Node {id: $source})-[r:%s]->(b:Node {id: $target})
SET r.attrs = $attrs
`, edge.Relation), params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		var stored model.Metadata
		err = stored.Unmarshal(attrs)
		return stored, err
	})
	if errors.Is(err, model.ErrDanglingEdge) {
		return model.ErrDanglingEdge
	}
	if err != nil {
		return helper.NewError("upsert edge", err)
	}

	edge.Attributes = merged.(model.Metadata)
	return nil
}

// MatchNeighborhood returns the nodes whose label or title contains term together
// with every directly connected node.
func (h *Neo4jGraphHandler) MatchNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error) {
	return h.readNeighbors(ctx, `
MATCH (n:Node)-[r]-(m:Node)
WHERE toLower(n.label) CONTAINS toLower($term) OR toLower(coalesce(n.title, '')) CONTAINS toLower($term)
RETURN n.id AS n_id, n.type AS n_type, n.label AS n_label, n.attrs AS n_attrs,
       startNode(r).id AS source, endNode(r).id AS target, type(r) AS relation, r.attrs AS r_attrs,
       m.id AS m_id, m.type AS m_type, m.label AS m_label, m.attrs AS m_attrs
ORDER BY n.created, n.id, relation, m.id
LIMIT $limit
`, map[string]any{"term": term, "limit": int64(limit)})
}

// Neighbors returns every relationship of a node with the node on the other end.
func (h *Neo4jGraphHandler) Neighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error) {
	return h.readNeighbors(ctx, `
MATCH (n:Node {id: $id})-[r]-(m:Node)
RETURN n.id AS n_id, n.type AS n_type, n.label AS n_label, n.attrs AS n_attrs,
       startNode(r).id AS source, endNode(r).id AS target, type(r) AS relation, r.attrs AS r_attrs,
       m.id AS m_id, m.type AS m_type, m.label AS m_label, m.attrs AS m_attrs
ORDER BY r.created, relation, m.id
`, map[string]any{"id": nodeID})
}

// SelectNode returns the node with id or model.ErrNodeNotFound.
func (h *Neo4jGraphHandler) SelectNode(ctx context.Context, id string) (*model.Node, error) {
	records, err := h.read(ctx, `
MATCH (n:Node {id: $id})
RETURN n.id AS id, n.type AS type, n.label AS label, n.attrs AS attrs
`, map[string]any{"id": id})
	if err != nil {
		return nil, helper.NewError("select node", err)
	}
	if len(records) == 0 {
		return nil, model.ErrNodeNotFound
	}
	return recordNode(records[0], ""), nil
}

// SelectNodes returns up to limit nodes in creation order.
func (h *Neo4jGraphHandler) SelectNodes(ctx context.Context, limit int) ([]*model.Node, error) {
	records, err := h.read(ctx, `
MATCH (n:Node)
RETURN n.id AS id, n.type AS type, n.label AS label, n.attrs AS attrs
ORDER BY n.created, n.id
LIMIT $limit
`, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, helper.NewError("select nodes", err)
	}

	nodes := make([]*model.Node, 0, len(records))
	for _, record := range records {
		nodes = append(nodes, recordNode(record, ""))
	}
	return nodes, nil
}

// SelectEdges returns every relationship in creation order.
func (h *Neo4jGraphHandler) SelectEdges(ctx context.Context) ([]*model.Edge, error) {
	records, err := h.read(ctx, `
MATCH (a:Node)-[r]->(b:Node)
RETURN a.id AS source, b.id AS target, type(r) AS relation, r.attrs AS r_attrs
ORDER BY r.created, a.id, b.id, relation
`, nil)
	if err != nil {
		return nil, helper.NewError("select edges", err)
	}

	edges := make([]*model.Edge, 0, len(records))
	for _, record := range records {
		edges = append(edges, recordEdge(record))
	}
	return edges, nil
}

// Count returns the number of nodes and relationships.
func (h *Neo4jGraphHandler) Count(ctx context.Context) (int, int, error) {
	records, err := h.read(ctx, `
MATCH (n:Node)
OPTIONAL MATCH (n)-[r]->(:Node)
RETURN count(DISTINCT n) AS nodes, count(r) AS edges
`, nil)
	if err != nil {
		return 0, 0, helper.NewError("count graph", err)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}
	return int(recordInt(records[0], "nodes")), int(recordInt(records[0], "edges")), nil
}

func (h *Neo4jGraphHandler) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return h.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: h.database,
	})
}

func (h *Neo4jGraphHandler) write(ctx context.Context, query string, params map[string]any) error {
	session := h.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (h *Neo4jGraphHandler) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := h.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

func (h *Neo4jGraphHandler) readNeighbors(ctx context.Context, query string, params map[string]any) ([]*model.Neighbor, error) {
	records, err := h.read(ctx, query, params)
	if err != nil {
		return nil, helper.NewError("select neighbors", err)
	}

	neighbors := make([]*model.Neighbor, 0, len(records))
	for _, record := range records {
		neighbors = append(neighbors, &model.Neighbor{
			Node:     recordNode(record, "n_"),
			Edge:     recordEdge(record),
			Adjacent: recordNode(record, "m_"),
		})
	}
	return neighbors, nil
}

func recordNode(record *neo4j.Record, prefix string) *model.Node {
	return &model.Node{
		ID:         recordString(record, prefix+"id"),
		Type:       model.NodeType(recordString(record, prefix+"type")),
		Label:      recordString(record, prefix+"label"),
		Attributes: decodeAttributes(record, prefix+"attrs"),
	}
}

func recordEdge(record *neo4j.Record) *model.Edge {
	return &model.Edge{
		SourceID:   recordString(record, "source"),
		TargetID:   recordString(record, "target"),
		Relation:   model.Relation(recordString(record, "relation")),
		Attributes: decodeAttributes(record, "r_attrs"),
	}
}

func recordString(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordInt(record *neo4j.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	i, _ := v.(int64)
	return i
}

func decodeAttributes(record *neo4j.Record, key string) model.Metadata {
	attrs := model.Metadata{}
	raw := recordString(record, key)
	if raw == "" {
		return attrs
	}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return model.Metadata{}
	}
	return attrs
}
