package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

var rule = strings.Repeat("=", 80)

// FormatMetrics renders the aggregated metrics as a text block.
func FormatMetrics(m *model.Metrics) string {
	var b strings.Builder
	b.WriteString(rule + "\nEVALUATION METRICS REPORT\n" + rule + "\n\n")

	b.WriteString("Precision@K (Fraction of top-K results that are correct):\n")
	for _, k := range model.EvaluationKs {
		p, _, _ := m.At(k)
		fmt.Fprintf(&b, "  %-13s %.4f\n", fmt.Sprintf("Precision@%d:", k), p)
	}
	b.WriteString("\nRecall@K (Fraction of correct trials found in top-K):\n")
	for _, k := range model.EvaluationKs {
		_, r, _ := m.At(k)
		fmt.Fprintf(&b, "  %-10s %.4f\n", fmt.Sprintf("Recall@%d:", k), r)
	}
	b.WriteString("\nF1@K (Harmonic mean of Precision@K and Recall@K):\n")
	for _, k := range model.EvaluationKs {
		_, _, f1 := m.At(k)
		fmt.Fprintf(&b, "  %-6s %.4f\n", fmt.Sprintf("F1@%d:", k), f1)
	}

	fmt.Fprintf(&b, "\nMean Reciprocal Rank (MRR):\n  MRR: %.4f\n", m.MeanReciprocalRank)

	var difference float64
	if m.ScoreDifference != nil {
		difference = *m.ScoreDifference
	}
	b.WriteString("\nMatch Score Analysis:\n")
	fmt.Fprintf(&b, "  Average score (correct matches):   %.4f\n", m.AvgScoreCorrect)
	fmt.Fprintf(&b, "  Average score (incorrect matches): %.4f\n", m.AvgScoreIncorrect)
	fmt.Fprintf(&b, "  Score difference:                  %.4f\n", difference)

	b.WriteString("\nCase Statistics:\n")
	fmt.Fprintf(&b, "  Total test cases:              %d\n", m.NumCases)
	fmt.Fprintf(&b, "  Cases with matches:            %d\n", m.NumCasesWithMatches)
	fmt.Fprintf(&b, "  Cases with correct matches:    %d\n", m.NumCasesWithCorrectMatches)
	fmt.Fprintf(&b, "  Cases with no matches:         %d\n", m.NumCases-m.NumCasesWithMatches)

	b.WriteString("\n" + rule)
	return b.String()
}

// FormatReport renders the configuration, the metrics and every case detail.
func FormatReport(report *model.EvaluationReport) string {
	var b strings.Builder
	b.WriteString(rule + "\nBIO-LINK EVALUATION REPORT\n" + rule + "\n\n")

	b.WriteString("Evaluation Configuration:\n")
	if report.Name != "" {
		fmt.Fprintf(&b, "  Name: %s\n", report.Name)
	}
	fmt.Fprintf(&b, "  Top-K: %d\n", report.TopK)
	fmt.Fprintf(&b, "  Test Cases: %d (%d skipped)\n", len(report.Cases)+report.Skipped, report.Skipped)
	fmt.Fprintf(&b, "  Timestamp: %s\n\n", report.CreatedAt.Format("2006-01-02T15:04:05"))

	if report.Metrics != nil {
		b.WriteString(FormatMetrics(report.Metrics) + "\n\n")
	}

	b.WriteString(rule + "\nPER-CASE DETAILS\n" + rule + "\n\n")
	for _, c := range report.Cases {
		fmt.Fprintf(&b, "Case: %s (%s)\n", c.CaseID, c.Condition)
		if c.Error != "" {
			fmt.Fprintf(&b, "  ERROR: %s\n\n", c.Error)
			continue
		}

		fmt.Fprintf(&b, "  Ground Truth Trials: %d\n", c.NumGroundTruth)
		fmt.Fprintf(&b, "  Predicted Matches: %d\n", c.NumPredictions)
		fmt.Fprintf(&b, "  Correct in Top-%d: %d\n", report.TopK, c.CorrectInTopK)
		if c.FirstCorrectRank > 0 {
			fmt.Fprintf(&b, "  First Correct Match at Rank: %d\n", c.FirstCorrectRank)
		} else {
			b.WriteString("  First Correct Match at Rank: Not found\n")
		}
		fmt.Fprintf(&b, "  Top Match Score: %.4f\n", c.TopScore)
		fmt.Fprintf(&b, "  Ground Truth IDs: %s\n", strings.Join(c.GroundTruth, ", "))
		fmt.Fprintf(&b, "  Top %d Predicted: %s\n\n", detailedRanks, strings.Join(c.Predicted, ", "))
	}

	return b.String()
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *model.EvaluationReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return helper.NewError("encode report", err)
	}
	return nil
}

// SaveReport writes the text and the JSON report into dir and returns both paths.
func SaveReport(dir string, report *model.EvaluationReport) (string, string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", "", helper.NewError("create report directory", err)
	}

	base := "evaluation_report_" + report.CreatedAt.Format("20060102_150405")
	textPath := filepath.Join(dir, base+".txt")
	jsonPath := filepath.Join(dir, base+".json")

	if err := os.WriteFile(textPath, []byte(FormatReport(report)), 0600); err != nil {
		return "", "", helper.NewError("write text report", err)
	}

	// #nosec G304 -- path is built from dir
	f, err := os.Create(jsonPath)
	if err != nil {
		return "", "", helper.NewError("create json report", err)
	}
	defer f.Close()

	if err := WriteJSON(f, report); err != nil {
		return "", "", err
	}
	return textPath, jsonPath, nil
}
