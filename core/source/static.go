package source

import (
	"context"
	"strings"

	"github.com/siherrmann/biolink/model"
)

// StaticSource serves trials and papers from memory.
type StaticSource struct {
	Trials []*model.Trial
	Papers []*model.Paper
}

// NewStaticSource creates a source over the given records. Trials are normalized.
func NewStaticSource(trials []*model.Trial, papers []*model.Paper) *StaticSource {
	for _, t := range trials {
		if t != nil {
			t.Normalize()
		}
	}
	return &StaticSource{Trials: trials, Papers: papers}
}

// FetchRecruiting returns up to limit recruiting trials whose conditions,
// title or criteria contain the condition, ignoring case. A limit <= 0 returns all.
func (s *StaticSource) FetchRecruiting(ctx context.Context, condition string, limit int) ([]*model.Trial, error) {
	condition = strings.ToLower(strings.TrimSpace(condition))

	trials := []*model.Trial{}
	for _, t := range s.Trials {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(trials) >= limit {
			break
		}
		if t == nil || !IsRecruiting(t.Status) {
			continue
		}
		if matchesAny(condition, append([]string{t.Title, t.Criteria}, t.Conditions...)) {
			trials = append(trials, t)
		}
	}
	return trials, nil
}

// Fetch returns up to maxResults papers whose title, abstract, keywords or
// MeSH terms contain the query, ignoring case. A maxResults <= 0 returns all.
func (s *StaticSource) Fetch(ctx context.Context, query string, maxResults int) ([]*model.Paper, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	papers := []*model.Paper{}
	for _, p := range s.Papers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if maxResults > 0 && len(papers) >= maxResults {
			break
		}
		if p == nil {
			continue
		}
		fields := append([]string{p.Title, p.Abstract}, p.Keywords...)
		if matchesAny(query, append(fields, p.MeshTerms...)) {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// matchesAny expects term in lower case. An empty term matches everything.
func matchesAny(term string, fields []string) bool {
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
