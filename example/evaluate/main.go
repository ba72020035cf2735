package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/biolink"
	"github.com/siherrmann/biolink/core/evaluation"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/helper"
)

func main() {
	ctx := context.Background()

	src, err := source.NewFileSource("example/data/fixture.yaml")
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	cases, err := evaluation.LoadDataset("example/data/dataset.yaml")
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	// Two embedding sizes of the hashing embedder side by side
	var configurations []evaluation.Configuration
	for _, dim := range []int{384, 64} {
		config, err := helper.NewConfiguration()
		if err != nil {
			log.Fatalf("Failed to read configuration: %v", err)
		}
		config.EmbeddingDim = dim

		b, err := biolink.NewBioLink(config, src, src)
		if err != nil {
			log.Fatalf("Failed to create biolink: %v", err)
		}
		defer b.Close(ctx)

		ranker, err := b.NewSession().Ranker()
		if err != nil {
			log.Fatalf("Failed to create ranker: %v", err)
		}
		configurations = append(configurations, evaluation.Configuration{
			Name:   fmt.Sprintf("hashing-%d", dim),
			Ranker: ranker,
		})
	}

	comparisons, err := evaluation.Compare(ctx, configurations, cases, 10, nil)
	if err != nil {
		log.Fatalf("Failed to compare configurations: %v", err)
	}
	fmt.Println(evaluation.FormatComparison(comparisons))

	best := comparisons[0]
	if best.Report == nil {
		log.Fatalf("No configuration finished: %s", best.Error)
	}
	fmt.Println(evaluation.FormatReport(best.Report))

	textPath, jsonPath, err := evaluation.SaveReport("reports", best.Report)
	if err != nil {
		log.Fatalf("Failed to save report: %v", err)
	}
	fmt.Printf("Saved %s and %s\n", textPath, jsonPath)
}
