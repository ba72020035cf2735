package graph

import (
	"context"

	"github.com/siherrmann/biolink/model"
)

// GraphReader is the read side of a Store needed for traversals.
type GraphReader interface {
	SelectNode(ctx context.Context, id string) (*model.Node, error)
	Neighbors(ctx context.Context, nodeID string) ([]*model.Neighbor, error)
}

// TraversalResult contains a node, its distance from the source and the edge it was reached by
type TraversalResult struct {
	Node     *model.Node
	Distance int
	Path     []string    // Node ids from source to this node
	Via      *model.Edge // nil for the source
}

// BFS performs breadth-first search from a source node.
// An empty relations list follows every relation, incoming edges are only followed if followIncoming is set.
func BFS(ctx context.Context, db GraphReader, sourceID string, maxHops int, relations []model.Relation, followIncoming bool) ([]*TraversalResult, error) {
	sourceNode, err := db.SelectNode(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{sourceID: true}
	queue := []*TraversalResult{{
		Node:     sourceNode,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		results = append(results, current)

		if current.Distance >= maxHops {
			continue
		}

		neighbors, err := db.Neighbors(ctx, current.Node.ID)
		if err != nil {
			return nil, err
		}

		for _, n := range neighbors {
			if !follows(n, current.Node.ID, relations, followIncoming) {
				continue
			}
			if visited[n.Adjacent.ID] {
				continue
			}
			visited[n.Adjacent.ID] = true

			newPath := make([]string, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, n.Adjacent.ID)

			queue = append(queue, &TraversalResult{
				Node:     n.Adjacent,
				Distance: current.Distance + 1,
				Path:     newPath,
				Via:      n.Edge,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source node
func DFS(ctx context.Context, db GraphReader, sourceID string, maxHops int, relations []model.Relation, followIncoming bool) ([]*TraversalResult, error) {
	sourceNode, err := db.SelectNode(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	var results []*TraversalResult
	err = dfsRecursive(ctx, db, &TraversalResult{Node: sourceNode, Path: []string{sourceID}}, maxHops, relations, followIncoming, visited, &results)
	if err != nil {
		return nil, err
	}

	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	db GraphReader,
	current *TraversalResult,
	maxHops int,
	relations []model.Relation,
	followIncoming bool,
	visited map[string]bool,
	results *[]*TraversalResult,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	visited[current.Node.ID] = true
	*results = append(*results, current)

	if current.Distance >= maxHops {
		return nil
	}

	neighbors, err := db.Neighbors(ctx, current.Node.ID)
	if err != nil {
		return err
	}

	for _, n := range neighbors {
		if !follows(n, current.Node.ID, relations, followIncoming) || visited[n.Adjacent.ID] {
			continue
		}

		newPath := make([]string, len(current.Path), len(current.Path)+1)
		copy(newPath, current.Path)
		newPath = append(newPath, n.Adjacent.ID)

		next := &TraversalResult{
			Node:     n.Adjacent,
			Distance: current.Distance + 1,
			Path:     newPath,
			Via:      n.Edge,
		}
		if err := dfsRecursive(ctx, db, next, maxHops, relations, followIncoming, visited, results); err != nil {
			return err
		}
	}
	return nil
}

// GetNeighbors retrieves the immediate neighbors (1-hop) of a node
func GetNeighbors(ctx context.Context, db GraphReader, nodeID string, relations []model.Relation, followIncoming bool) ([]*model.Node, error) {
	results, err := BFS(ctx, db, nodeID, 1, relations, followIncoming)
	if err != nil {
		return nil, err
	}

	// Skip the source node itself
	neighbors := make([]*model.Node, 0, len(results)-1)
	for _, r := range results[1:] {
		neighbors = append(neighbors, r.Node)
	}

	return neighbors, nil
}

func follows(n *model.Neighbor, fromID string, relations []model.Relation, followIncoming bool) bool {
	if n.Edge == nil || n.Adjacent == nil {
		return false
	}
	if n.Edge.SourceID != fromID && !followIncoming {
		return false
	}
	if len(relations) == 0 {
		return true
	}
	for _, r := range relations {
		if r == n.Edge.Relation {
			return true
		}
	}
	return false
}
