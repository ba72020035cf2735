package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/biolink"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/helper"
)

func main() {
	// Start a test PostgreSQL container for the graph tables
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	config, err := helper.NewConfiguration()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	config.GraphBackend = helper.GraphBackendPostgres
	config.Database = helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	src, err := source.NewFileSource("example/data/fixture.yaml")
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	b, err := biolink.NewBioLink(config, src, src)
	if err != nil {
		log.Fatalf("Failed to create biolink: %v", err)
	}
	defer b.Close(context.Background())

	// NER and discourse classification need the hugot models
	if err := b.UseDefaultModels(); err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}

	ctx := context.Background()
	session := b.NewSession()

	summary, err := session.BuildGraph(ctx, "diabetes", true)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	fmt.Printf("Built graph for %q (%s): %d papers, %d trials, %d entities, %d edges\n",
		summary.Topic, summary.Mode, summary.PapersIngested, summary.TrialsIngested, summary.EntityNodes, summary.Edges)

	for _, question := range []string{
		"What is known about metformin?",
		"Which trials recruit for type 2 diabetes?",
	} {
		answer, err := session.QueryGraph(ctx, question)
		if err != nil {
			log.Fatalf("Failed to query graph: %v", err)
		}
		fmt.Printf("\n%s\n%s\n", question, answer.String())
	}

	vis, err := session.Visualize(ctx)
	if err != nil {
		log.Fatalf("Failed to visualize graph: %v", err)
	}

	data, err := json.MarshalIndent(vis, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode visualization: %v", err)
	}
	if err := os.WriteFile("graph.json", data, 0o600); err != nil {
		log.Fatalf("Failed to write visualization: %v", err)
	}
	fmt.Printf("\nWrote %d nodes and %d edges to graph.json\n", len(vis.Nodes), len(vis.Edges))
}
