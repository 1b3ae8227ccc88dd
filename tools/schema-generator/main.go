// Command schema-generator writes the JSON schema of gcpd.yml so editors
// can validate configuration files.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/gcpd/config"
)

func main() {
	schemaBytes, err := config.SchemaJSON()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	outputDir := "schema"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	outputPath := filepath.Join(outputDir, "gcpd.schema.json")
	if err := os.WriteFile(outputPath, append(schemaBytes, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated schema at %s", outputPath)
}
