package model

// IndexedDocument is a document stored in a similarity index.
type IndexedDocument struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
}

// ScoredDocument is a query hit of a similarity index.
type ScoredDocument struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// MatchResult is a ranked trial returned to the caller.
type MatchResult struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Title    string   `json:"title"`
	Snippet  string   `json:"snippet"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// RankStatus tells empty results apart.
type RankStatus string

const (
	RankStatusOK           RankStatus = "ok"
	RankStatusNoCandidates RankStatus = "no_candidates"
	RankStatusNoEligible   RankStatus = "no_eligible"
	RankStatusNoMatches    RankStatus = "no_matches"
)

// RankResult is the outcome of one ranking request.
type RankResult struct {
	Status     RankStatus     `json:"status"`
	Message    string         `json:"message,omitempty"`
	Candidates int            `json:"candidates"`
	Eligible   int            `json:"eligible"`
	Matches    []*MatchResult `json:"matches"`
}

// IDs returns the match ids in rank order.
func (r *RankResult) IDs() []string {
	ids := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		ids = append(ids, m.ID)
	}
	return ids
}

// Scores returns the match scores in rank order.
func (r *RankResult) Scores() []float64 {
	scores := make([]float64, 0, len(r.Matches))
	for _, m := range r.Matches {
		scores = append(scores, m.Score)
	}
	return scores
}
