package evaluation

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

// placeholderID marks ground truth entries that still have to be labeled.
const placeholderID = "REQUIRED"

type datasetFile struct {
	EvaluationCases []caseRecord `json:"evaluation_cases" yaml:"evaluation_cases"`
}

type caseRecord struct {
	PatientID          string        `json:"patient_id" yaml:"patient_id"`
	Condition          string        `json:"condition" yaml:"condition"`
	PatientDescription string        `json:"patient_description" yaml:"patient_description"`
	PatientAge         *int          `json:"patient_age" yaml:"patient_age"`
	PatientSex         string        `json:"patient_sex" yaml:"patient_sex"`
	PatientCountry     string        `json:"patient_country" yaml:"patient_country"`
	GroundTruthTrials  []trialRecord `json:"ground_truth_trials" yaml:"ground_truth_trials"`
}

type trialRecord struct {
	NctID string `json:"nct_id" yaml:"nct_id"`
}

// LoadDataset reads a labeled dataset from a JSON or YAML file.
func LoadDataset(path string) ([]*model.EvaluationCase, error) {
	// #nosec G304 -- path is chosen by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read dataset", err)
	}
	return ParseDataset(data, filepath.Ext(path))
}

// ParseDataset decodes data as JSON for a ".json" extension, otherwise as YAML.
// Empty and placeholder ground truth ids are dropped.
func ParseDataset(data []byte, ext string) ([]*model.EvaluationCase, error) {
	file := &datasetFile{}
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, file)
	default:
		return nil, helper.NewError("parse dataset", fmt.Errorf("unsupported dataset format %q", ext))
	}
	if err != nil {
		return nil, helper.NewError("parse dataset", err)
	}

	cases := make([]*model.EvaluationCase, 0, len(file.EvaluationCases))
	for _, r := range file.EvaluationCases {
		c := &model.EvaluationCase{
			ID:          r.PatientID,
			Condition:   r.Condition,
			Description: r.PatientDescription,
			Age:         r.PatientAge,
			Sex:         model.NormalizeSex(r.PatientSex),
			GroundTruth: []string{},
		}
		if country := strings.TrimSpace(r.PatientCountry); country != "" {
			c.Country = &country
		}
		for _, t := range r.GroundTruthTrials {
			id := strings.TrimSpace(t.NctID)
			if id == "" || id == placeholderID {
				continue
			}
			c.GroundTruth = append(c.GroundTruth, id)
		}
		cases = append(cases, c)
	}
	return cases, nil
}
