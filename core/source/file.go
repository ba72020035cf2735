package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	"gopkg.in/yaml.v3"
)

// TrialRecord is a trial as exported from a registry, before normalization.
type TrialRecord struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Criteria   string   `json:"criteria" yaml:"criteria"`
	MinAge     string   `json:"min_age" yaml:"min_age"`
	MaxAge     string   `json:"max_age" yaml:"max_age"`
	Sex        string   `json:"sex" yaml:"sex"`
	Countries  []string `json:"countries" yaml:"countries"`
	Cities     []string `json:"cities" yaml:"cities"`
	Status     string   `json:"status" yaml:"status"`
	Phases     []string `json:"phases" yaml:"phases"`
	Conditions []string `json:"conditions" yaml:"conditions"`
}

// PaperRecord is a paper as exported from a literature database.
type PaperRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Abstract  string   `json:"abstract" yaml:"abstract"`
	Journal   string   `json:"journal" yaml:"journal"`
	Date      string   `json:"date" yaml:"date"`
	Authors   []string `json:"authors" yaml:"authors"`
	MeshTerms []string `json:"mesh_terms" yaml:"mesh_terms"`
	Keywords  []string `json:"keywords" yaml:"keywords"`
}

// Fixture is the file layout read by FileSource.
type Fixture struct {
	Trials []TrialRecord `json:"trials" yaml:"trials"`
	Papers []PaperRecord `json:"papers" yaml:"papers"`
}

// FileSource serves trials and papers read from a JSON or YAML fixture file.
type FileSource struct {
	*StaticSource
	Path string
}

// NewFileSource reads and normalizes the fixture at path.
func NewFileSource(path string) (*FileSource, error) {
	// #nosec G304 -- path is chosen by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read fixture", err)
	}

	fixture, err := ParseFixture(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	return &FileSource{
		StaticSource: NewStaticSource(fixture.TrialsNormalized(), fixture.PapersNormalized()),
		Path:         path,
	}, nil
}

// ParseFixture decodes data as JSON for a ".json" extension, otherwise as YAML.
func ParseFixture(data []byte, ext string) (*Fixture, error) {
	fixture := &Fixture{}
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, fixture)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, fixture)
	default:
		return nil, helper.NewError("parse fixture", fmt.Errorf("unsupported fixture format %q", ext))
	}
	if err != nil {
		return nil, helper.NewError("parse fixture", err)
	}
	return fixture, nil
}

// TrialsNormalized converts the trial records into trials.
func (f *Fixture) TrialsNormalized() []*model.Trial {
	trials := make([]*model.Trial, 0, len(f.Trials))
	for _, r := range f.Trials {
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		trials = append(trials, r.Trial())
	}
	return trials
}

// PapersNormalized converts the paper records into papers.
func (f *Fixture) PapersNormalized() []*model.Paper {
	papers := make([]*model.Paper, 0, len(f.Papers))
	for _, r := range f.Papers {
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		papers = append(papers, r.Paper())
	}
	return papers
}

// Trial parses ages and sex, joins phases and cleans the text fields.
func (r TrialRecord) Trial() *model.Trial {
	sex := model.SexAll
	if s := model.NormalizeSex(r.Sex); s != nil {
		sex = *s
	}

	trial := &model.Trial{
		ID:         r.ID,
		Title:      CleanText(r.Title),
		Criteria:   CleanText(r.Criteria),
		MinAge:     model.ParseAgeYears(r.MinAge),
		MaxAge:     model.ParseAgeYears(r.MaxAge),
		Sex:        sex,
		Countries:  r.Countries,
		Cities:     r.Cities,
		Status:     strings.TrimSpace(r.Status),
		Phase:      model.JoinPhases(r.Phases),
		Conditions: r.Conditions,
	}
	trial.Normalize()
	return trial
}

// Paper cleans the title and abstract.
func (r PaperRecord) Paper() *model.Paper {
	return &model.Paper{
		ID:        strings.TrimSpace(r.ID),
		Title:     CleanText(r.Title),
		Abstract:  CleanText(r.Abstract),
		Journal:   r.Journal,
		Date:      r.Date,
		Authors:   r.Authors,
		MeshTerms: r.MeshTerms,
		Keywords:  r.Keywords,
	}
}
