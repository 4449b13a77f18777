package main

import (
	"flag"
	"fmt"
	"interview-intel/cmd/seedgen/engine"
	"os"
	"time"
)

func main() {
	scenario := flag.String("scenario", "rich", "Scenario to generate: sparse, rich, trending")
	company := flag.String("company", "Amazon", "Company name for the fixture corpus")
	outDir := flag.String("out", "./.cache", "Output directory for fixture files")
	count := flag.Int("count", 25, "Number of experiences to generate")
	seed := flag.Int64("seed", 1, "Random seed, same seed yields the same corpus")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Company:  *company,
		Count:    *count,
		Seed:     *seed,
		Now:      time.Now().UTC(),
	}

	fmt.Printf("Generating scenario '%s' for %s (Count: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Company, cfg.Count, cfg.Seed, *outDir)

	exps, manifest := engine.Generate(cfg)

	if err := engine.Save(*outDir, exps, manifest); err != nil {
		fmt.Printf("Failed to save fixture data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
