package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/siherrmann/biolink/model"
	"golang.org/x/sync/errgroup"
)

const maxParallelRuns = 4

// Configuration is a named ranker setup, e.g. one per embedding model.
// Rankers of different configurations must not share state.
type Configuration struct {
	Name   string
	Ranker Ranker
}

// Comparison is the outcome of evaluating one configuration.
type Comparison struct {
	Name   string                  `json:"name"`
	Report *model.EvaluationReport `json:"report,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Compare evaluates every configuration on the same cases, sorted by MRR with
// failed configurations last. A failing configuration doesn't stop the others.
func Compare(ctx context.Context, configurations []Configuration, cases []*model.EvaluationCase, topK int, logger *slog.Logger) ([]*Comparison, error) {
	if logger == nil {
		logger = slog.Default()
	}

	comparisons := make([]*Comparison, len(configurations))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRuns)
	for i, configuration := range configurations {
		i, configuration := i, configuration
		g.Go(func() error {
			comparison := &Comparison{Name: configuration.Name}
			comparisons[i] = comparison

			runner, err := NewRunner(configuration.Ranker, logger.With(slog.String("configuration", configuration.Name)))
			if err != nil {
				comparison.Error = err.Error()
				return nil
			}
			if topK > 0 {
				runner.TopK = topK
			}

			report, err := runner.Run(gCtx, configuration.Name, cases)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				comparison.Error = err.Error()
				return nil
			}
			comparison.Report = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if (a.Report == nil) != (b.Report == nil) {
			return a.Report != nil
		}
		if a.Report == nil {
			return false
		}
		return a.Report.Metrics.MeanReciprocalRank > b.Report.Metrics.MeanReciprocalRank
	})

	return comparisons, nil
}

// FormatComparison renders the key metrics of every configuration side by side.
func FormatComparison(comparisons []*Comparison) string {
	var b strings.Builder
	b.WriteString(rule + "\nCONFIGURATION COMPARISON REPORT\n" + rule + "\n\n")
	fmt.Fprintf(&b, "%-30s %8s %8s %8s %8s\n", "Configuration", "P@1", "P@5", "R@10", "MRR")
	for _, c := range comparisons {
		if c.Report == nil {
			fmt.Fprintf(&b, "%-30s ERROR: %s\n", c.Name, c.Error)
			continue
		}
		m := c.Report.Metrics
		fmt.Fprintf(&b, "%-30s %8.4f %8.4f %8.4f %8.4f\n", c.Name, m.PrecisionAt1, m.PrecisionAt5, m.RecallAt10, m.MeanReciprocalRank)
	}
	if len(comparisons) > 0 && comparisons[0].Report != nil {
		fmt.Fprintf(&b, "\nBest configuration by MRR: %s\n", comparisons[0].Name)
	}
	b.WriteString(rule)
	return b.String()
}
