package model

import (
	"regexp"
	"strings"
)

// DiscourseLabel is the coarse PICO role of a text.
type DiscourseLabel string

const (
	LabelOutcome      DiscourseLabel = "Outcome"
	LabelIntervention DiscourseLabel = "Intervention"
	LabelPopulation   DiscourseLabel = "Population"
	LabelBackground   DiscourseLabel = "Background"
)

// DiscourseLabels are the candidate labels of the classifier, the last one is neutral.
var DiscourseLabels = []DiscourseLabel{LabelOutcome, LabelIntervention, LabelPopulation, LabelBackground}

// ParseDiscourseLabel matches a classifier output case-insensitively.
func ParseDiscourseLabel(value string) (DiscourseLabel, bool) {
	for _, l := range DiscourseLabels {
		if strings.EqualFold(strings.TrimSpace(value), string(l)) {
			return l, true
		}
	}
	return LabelBackground, false
}

// Span is a raw named entity as returned by a NER model.
type Span struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// LabelScore is one ranked label of a classifier.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Entity is a filtered, typed entity.
type Entity struct {
	Name       string   `json:"name"`
	Type       NodeType `json:"type"`
	Confidence float64  `json:"confidence"`
}

// Analysis is the result of analyzing one text.
type Analysis struct {
	Label    DiscourseLabel `json:"label"`
	Entities []*Entity      `json:"entities"`
}

var whitespace = regexp.MustCompile(`\s+`)

// CanonicalName is the identity of an extracted entity: trimmed, lower case,
// inner whitespace collapsed. Names that only differ in case or spacing map to
// the same graph node, even across entity types.
func CanonicalName(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(name), " "))
}
