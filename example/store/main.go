package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/annomerge"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

const sampleText = `Angela Merkel met Barack Obama in Berlin. Obama praised Angela Merkel.

Later Barack Obama flew back to Washington.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	m, err := annomerge.NewMerger(dbConfig, model.DefaultMergeConfig(), 384)
	if err != nil {
		log.Fatalf("Failed to create merger: %v", err)
	}
	defer m.Close()

	// Rule based annotation, hugot NER and all-MiniLM-L6-v2 name embeddings
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	doc := &model.Document{
		DocID:    "meeting",
		Title:    "A Meeting",
		Source:   "store_example",
		Text:     sampleText,
		Sections: model.SectionsFromParagraphs(sampleText),
		Metadata: model.Metadata{"topic": "politics"},
	}

	fmt.Println("Merging and storing document...")
	merged, err := m.ProcessAndInsertDocument(context.Background(), doc)
	if err != nil {
		log.Fatalf("Failed to process and insert document: %v", err)
	}
	fmt.Printf("Document stored with RID: %s\n", merged.RID)

	_, entities, err := m.SelectDocument(merged.RID)
	if err != nil {
		log.Fatalf("Failed to load document: %v", err)
	}
	fmt.Printf("\nStored %d entities:\n", len(entities))
	for _, entity := range entities {
		fmt.Printf("- %s (%s), %d mentions\n", entity.CanonicalName, entity.Type, len(entity.MentionIDs))
	}

	query := "Chancellor Merkel"
	results, err := m.SearchEntities(query, 3, 0.3, nil)
	if err != nil {
		log.Fatalf("Failed to search entities: %v", err)
	}
	fmt.Printf("\nEntities similar to %q:\n", query)
	for _, result := range results {
		fmt.Printf("- %s (similarity %.4f)\n", result.CanonicalName, result.Similarity)
	}

	fmt.Println("\nStore example completed successfully!")
}
