package model

import (
	"sort"
	"strings"
	"time"
)

// IDSet is a set of trial identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, ignoring empty values.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EvaluationCase is one labeled patient of an evaluation dataset.
type EvaluationCase struct {
	ID          string   `json:"patient_id"`
	Condition   string   `json:"condition"`
	Description string   `json:"description"`
	Age         *int     `json:"age,omitempty"`
	Sex         *Sex     `json:"sex,omitempty"`
	Country     *string  `json:"country,omitempty"`
	GroundTruth []string `json:"ground_truth"`
}

// Query converts the case into a ranking request for the top k trials.
func (c *EvaluationCase) Query(k int) *PatientQuery {
	return &PatientQuery{
		Description: c.Description,
		Condition:   c.Condition,
		Age:         c.Age,
		Sex:         c.Sex,
		Country:     c.Country,
		Limit:       k,
	}
}

// EvaluationKs are the cutoffs every metrics record reports.
var EvaluationKs = []int{1, 3, 5, 10}

// Metrics is the aggregated retrieval quality of an evaluation run.
type Metrics struct {
	PrecisionAt1  float64 `json:"precision_at_1"`
	PrecisionAt3  float64 `json:"precision_at_3"`
	PrecisionAt5  float64 `json:"precision_at_5"`
	PrecisionAt10 float64 `json:"precision_at_10"`
	RecallAt1     float64 `json:"recall_at_1"`
	RecallAt3     float64 `json:"recall_at_3"`
	RecallAt5     float64 `json:"recall_at_5"`
	RecallAt10    float64 `json:"recall_at_10"`
	F1At1         float64 `json:"f1_at_1"`
	F1At3         float64 `json:"f1_at_3"`
	F1At5         float64 `json:"f1_at_5"`
	F1At10        float64 `json:"f1_at_10"`

	MeanReciprocalRank float64 `json:"mean_reciprocal_rank"`

	AvgScoreCorrect   float64  `json:"avg_score_correct"`
	AvgScoreIncorrect float64  `json:"avg_score_incorrect"`
	ScoreDifference   *float64 `json:"score_difference,omitempty"`

	NumCases                   int `json:"num_cases"`
	NumCasesWithMatches        int `json:"num_cases_with_matches"`
	NumCasesWithCorrectMatches int `json:"num_cases_with_correct_matches"`
}

// At returns precision, recall and F1 for one of the reported cutoffs.
func (m *Metrics) At(k int) (precision float64, recall float64, f1 float64) {
	switch k {
	case 1:
		return m.PrecisionAt1, m.RecallAt1, m.F1At1
	case 3:
		return m.PrecisionAt3, m.RecallAt3, m.F1At3
	case 5:
		return m.PrecisionAt5, m.RecallAt5, m.F1At5
	case 10:
		return m.PrecisionAt10, m.RecallAt10, m.F1At10
	}
	return 0, 0, 0
}

// SetAt stores the values of one cutoff.
func (m *Metrics) SetAt(k int, precision float64, recall float64, f1 float64) {
	switch k {
	case 1:
		m.PrecisionAt1, m.RecallAt1, m.F1At1 = precision, recall, f1
	case 3:
		m.PrecisionAt3, m.RecallAt3, m.F1At3 = precision, recall, f1
	case 5:
		m.PrecisionAt5, m.RecallAt5, m.F1At5 = precision, recall, f1
	case 10:
		m.PrecisionAt10, m.RecallAt10, m.F1At10 = precision, recall, f1
	}
}

// CaseDetail describes the ranking of a single evaluation case.
type CaseDetail struct {
	CaseID           string   `json:"patient_id"`
	Condition        string   `json:"condition"`
	GroundTruth      []string `json:"ground_truth"`
	Predicted        []string `json:"top_predictions"`
	NumGroundTruth   int      `json:"num_ground_truth"`
	NumPredictions   int      `json:"num_predictions"`
	CorrectInTopK    int      `json:"correct_in_top_k"`
	FirstCorrectRank int      `json:"first_correct_rank,omitempty"`
	TopScore         float64  `json:"top_score"`
	Error            string   `json:"error,omitempty"`
}

// EvaluationReport is the outcome of one evaluation run.
type EvaluationReport struct {
	Name      string        `json:"name,omitempty"`
	TopK      int           `json:"top_k"`
	Skipped   int           `json:"skipped"`
	Metrics   *Metrics      `json:"metrics"`
	Cases     []*CaseDetail `json:"cases"`
	CreatedAt time.Time     `json:"created_at"`
}
