package graph

import (
	"context"
	"strings"
	"sync"

	"github.com/siherrmann/biolink/model"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	nodes     map[string]*model.Node
	nodeOrder []string
	edges     map[string]*model.Edge
	edgeOrder []string
}

// NewMemoryStore creates an empty graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: map[string]*model.Node{},
		edges: map[string]*model.Edge{},
	}
}

func (s *MemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = map[string]*model.Node{}
	s.nodeOrder = nil
	s.edges = map[string]*model.Edge{}
	s.edgeOrder = nil
	return nil
}

// UpsertNode keeps the type of an existing node and merges the attributes.
func (s *MemoryStore) UpsertNode(ctx context.Context, node *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodes[node.ID]; ok {
		existing.Label = node.Label
		existing.Attributes = existing.Attributes.Merge(node.Attributes)
		*node = *copyNode(existing)
		return nil
	}

	stored := copyNode(node)
	s.nodes[node.ID] = stored
	s.nodeOrder = append(s.nodeOrder, node.ID)
	return nil
}

func (s *MemoryStore) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[edge.SourceID]; !ok {
		return model.ErrDanglingEdge
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return model.ErrDanglingEdge
	}

	key := edge.Key()
	if existing, ok := s.edges[key]; ok {
		existing.Attributes = existing.Attributes.Merge(edge.Attributes)
		edge.Attributes = existing.Attributes.Copy()
		return nil
	}

	s.edges[key] = copyEdge(edge)
	s.edgeOrder = append(s.edgeOrder, key)
	return nil
}

// MatchNeighborhood matches label or title case-insensitively, without wildcards.
func (s *MemoryStore) MatchNeighborhood(ctx context.Context, term string, limit int) ([]*model.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	neighbors := []*model.Neighbor{}
	for _, id := range s.nodeOrder {
		node := s.nodes[id]
		if !strings.Contains(strings.ToLower(node.Label), term) &&
			!strings.Contains(strings.ToLower(node.Attributes.GetString("title")), term) {
			continue
		}
		for _, n := range s.neighbors(id) {
			if len(neighbors) >= limit {
				return neighbors, nil
			}
			neighbors = append(neighbors, n)
		}
	}
	return neighbors, nil
}

func (s *MemoryStore) Neighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.neighbors(nodeID), nil
}

func (s *MemoryStore) SelectNode(ctx context.Context, id string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, model.ErrNodeNotFound
	}
	return copyNode(node), nil
}

func (s *MemoryStore) SelectNodes(ctx context.Context, limit int) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := []*model.Node{}
	for _, id := range s.nodeOrder {
		if len(nodes) >= limit {
			break
		}
		nodes = append(nodes, copyNode(s.nodes[id]))
	}
	return nodes, nil
}

func (s *MemoryStore) SelectEdges(ctx context.Context) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]*model.Edge, 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		edges = append(edges, copyEdge(s.edges[key]))
	}
	return edges, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes), len(s.edges), nil
}

// neighbors expects the read lock to be held.
func (s *MemoryStore) neighbors(nodeID string) []*model.Neighbor {
	node, ok := s.nodes[nodeID]
	if !ok {
		return []*model.Neighbor{}
	}

	neighbors := []*model.Neighbor{}
	for _, key := range s.edgeOrder {
		edge := s.edges[key]
		var adjacentID string
		switch nodeID {
		case edge.SourceID:
			adjacentID = edge.TargetID
		case edge.TargetID:
			adjacentID = edge.SourceID
		default:
			continue
		}
		neighbors = append(neighbors, &model.Neighbor{
			Node:     copyNode(node),
			Edge:     copyEdge(edge),
			Adjacent: copyNode(s.nodes[adjacentID]),
		})
	}
	return neighbors
}

func copyNode(n *model.Node) *model.Node {
	return &model.Node{
		ID:         n.ID,
		Type:       n.Type,
		Label:      n.Label,
		Attributes: n.Attributes.Copy(),
	}
}

func copyEdge(e *model.Edge) *model.Edge {
	return &model.Edge{
		SourceID:   e.SourceID,
		TargetID:   e.TargetID,
		Relation:   e.Relation,
		Attributes: e.Attributes.Copy(),
	}
}
