package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

const (
	DefaultMaxFactsPerTerm = 10
	DefaultMaxHops         = 1
)

// Querier answers free text questions with relationship facts from a Store.
type Querier struct {
	store     Store
	extractor Extractor
	log       *slog.Logger

	MaxFactsPerTerm int
	MaxHops         int
}

// NewQuerier creates a querier. The extractor is optional, without it the
// whole text is used as the only search term.
func NewQuerier(store Store, extractor Extractor, logger *slog.Logger) (*Querier, error) {
	if store == nil {
		return nil, helper.NewError("querier validation", fmt.Errorf("graph store is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Querier{
		store:           store,
		extractor:       extractor,
		log:             logger.With(slog.String("component", "graph query")),
		MaxFactsPerTerm: DefaultMaxFactsPerTerm,
		MaxHops:         DefaultMaxHops,
	}, nil
}

// Query extracts search terms from text and collects the deduplicated facts
// around every node matching a term.
func (q *Querier) Query(ctx context.Context, text string) (*model.GraphAnswer, error) {
	answer := &model.GraphAnswer{Terms: q.Terms(ctx, text), Facts: []model.Fact{}}
	seen := map[string]bool{}

	for _, term := range answer.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var facts []model.Fact
		var err error
		if q.MaxHops <= 1 {
			facts, err = q.neighborhoodFacts(ctx, term)
		} else {
			facts, err = q.traversalFacts(ctx, term)
		}
		if err != nil {
			return nil, helper.NewError("query term "+term, err)
		}

		for _, f := range facts {
			key := f.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			answer.Facts = append(answer.Facts, f)
		}
	}

	q.log.Debug("Queried graph", slog.Int("terms", len(answer.Terms)), slog.Int("facts", len(answer.Facts)))

	return answer, nil
}

// Terms returns the entity names found in text, or the trimmed text itself.
func (q *Querier) Terms(ctx context.Context, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	terms := []string{}
	if q.extractor != nil {
		if analysis := q.extractor.Analyze(ctx, text); analysis != nil {
			for _, e := range analysis.Entities {
				terms = append(terms, e.Name)
			}
		}
	}
	if len(terms) == 0 {
		terms = append(terms, text)
	}
	return terms
}

func (q *Querier) neighborhoodFacts(ctx context.Context, term string) ([]model.Fact, error) {
	neighbors, err := q.store.MatchNeighborhood(ctx, term, q.MaxFactsPerTerm)
	if err != nil {
		return nil, err
	}

	facts := make([]model.Fact, 0, len(neighbors))
	for _, n := range neighbors {
		facts = append(facts, factOf(n.Edge, n.Node, n.Adjacent))
	}
	return facts, nil
}

func (q *Querier) traversalFacts(ctx context.Context, term string) ([]model.Fact, error) {
	neighbors, err := q.store.MatchNeighborhood(ctx, term, q.MaxFactsPerTerm)
	if err != nil {
		return nil, err
	}

	facts := []model.Fact{}
	started := map[string]bool{}
	for _, n := range neighbors {
		if started[n.Node.ID] {
			continue
		}
		started[n.Node.ID] = true

		results, err := BFS(ctx, q.store, n.Node.ID, q.MaxHops, nil, true)
		if err != nil {
			return nil, err
		}

		nodes := map[string]*model.Node{}
		for _, r := range results {
			nodes[r.Node.ID] = r.Node
		}
		for _, r := range results {
			if r.Via == nil {
				continue
			}
			facts = append(facts, factOf(r.Via, nodes[r.Via.SourceID], nodes[r.Via.TargetID]))
			if len(facts) >= q.MaxFactsPerTerm {
				return facts, nil
			}
		}
	}
	return facts, nil
}

// factOf renders an edge between two nodes in its stored direction.
func factOf(edge *model.Edge, a *model.Node, b *model.Node) model.Fact {
	source, target := a, b
	if a != nil && a.ID != edge.SourceID {
		source, target = b, a
	}
	return model.Fact{
		Source:   nodeName(source),
		Relation: edge.Relation,
		Target:   nodeName(target),
	}
}

func nodeName(n *model.Node) string {
	if n == nil {
		return "Unknown"
	}
	if name := n.Title(); name != "" {
		return name
	}
	return "Unknown"
}
