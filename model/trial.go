package model

import (
	"strconv"
	"strings"
)

// Sex is the sex eligibility of a trial or the sex of a patient.
type Sex string

const (
	SexAll    Sex = "ALL"
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

// NormalizeSex maps free-form input to a Sex. Unknown input returns nil,
// which disables the sex rule of the eligibility filter.
func NormalizeSex(value string) *Sex {
	var sex Sex
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "M", "MALE", "MAN", "MEN":
		sex = SexMale
	case "F", "FEMALE", "WOMAN", "WOMEN":
		sex = SexFemale
	case "ALL", "ANY", "BOTH":
		sex = SexAll
	default:
		return nil
	}
	return &sex
}

// ParseAgeYears parses registry age strings like "18 Years". The first token
// must be an integer; "N/A", "NA" and "NONE" mean no bound.
func ParseAgeYears(value string) *int {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToUpper(fields[0]) {
	case "N/A", "NA", "NONE":
		return nil
	}

	age, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	return &age
}

const (
	DefaultTrialStatus = "Unknown"
	DefaultTrialPhase  = "Not Listed"
)

// Trial is a candidate clinical trial fetched for one matching request.
type Trial struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Criteria   string   `json:"criteria"`
	MinAge     *int     `json:"min_age,omitempty"`
	MaxAge     *int     `json:"max_age,omitempty"`
	Sex        Sex      `json:"sex"`
	Countries  []string `json:"countries,omitempty"`
	Cities     []string `json:"cities,omitempty"`
	Status     string   `json:"status"`
	Phase      string   `json:"phase"`
	Conditions []string `json:"conditions,omitempty"`
}

// Normalize fills registry defaults for empty fields and canonicalizes the
// sex eligibility. Unknown sex values mean no restriction.
func (t *Trial) Normalize() {
	t.ID = strings.TrimSpace(t.ID)
	if t.Status == "" {
		t.Status = DefaultTrialStatus
	}
	if t.Phase == "" {
		t.Phase = DefaultTrialPhase
	}
	if sex := NormalizeSex(string(t.Sex)); sex != nil {
		t.Sex = *sex
	} else {
		t.Sex = SexAll
	}
}

// JoinPhases joins registry phase values, returning the default label for none.
func JoinPhases(phases []string) string {
	cleaned := make([]string, 0, len(phases))
	for _, p := range phases {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return DefaultTrialPhase
	}
	return strings.Join(cleaned, ", ")
}

// Document returns the text indexed for similarity search.
func (t *Trial) Document() string {
	return t.Title + "\n" + t.Criteria
}

// Paper is a published article.
type Paper struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Journal   string   `json:"journal"`
	Date      string   `json:"date"`
	Authors   []string `json:"authors,omitempty"`
	MeshTerms []string `json:"mesh_terms,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// PatientQuery is a single matching request.
type PatientQuery struct {
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Age         *int    `json:"age,omitempty"`
	Sex         *Sex    `json:"sex,omitempty"`
	Country     *string `json:"country,omitempty"`
	Limit       int     `json:"limit"`
}
