package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/biolink"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/model"
)

func main() {
	// Trials and papers from the bundled fixture, run from the repository root
	src, err := source.NewFileSource("example/data/fixture.yaml")
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	// Configuration from the environment, memory backends by default
	b, err := biolink.NewBioLink(nil, src, src)
	if err != nil {
		log.Fatalf("Failed to create biolink: %v", err)
	}
	defer b.Close(context.Background())

	age := 58
	country := "Germany"
	query := &model.PatientQuery{
		Description: "58 year old man with type 2 diabetes, HbA1c 8.2%, metformin naive",
		Condition:   "type 2 diabetes",
		Age:         &age,
		Sex:         model.NormalizeSex("male"),
		Country:     &country,
		Limit:       3,
	}

	result, err := b.NewSession().MatchTrials(context.Background(), query)
	if err != nil {
		log.Fatalf("Failed to match trials: %v", err)
	}

	fmt.Printf("Candidates: %d, eligible: %d, status: %s\n", result.Candidates, result.Eligible, result.Status)
	if result.Status != model.RankStatusOK {
		fmt.Println(result.Message)
		return
	}

	for i, m := range result.Matches {
		fmt.Printf("\n%d. %s (score %.3f)\n", i+1, m.Title, m.Score)
		fmt.Printf("   ID: %s, phase: %s\n", m.ID, m.Metadata.GetString("phase"))
		fmt.Printf("   %s\n", m.Snippet)
	}
}
