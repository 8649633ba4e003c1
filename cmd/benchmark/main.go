// ABOUTME: Command-line runner for the context budget ladder benchmark
// ABOUTME: Fits synthetic corpora to budgets and writes JSON results

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/harper/worldcafe/benchmarks/ladder"
	"github.com/harper/worldcafe/internal/logging"
)

func main() {
	scenarioID := flag.String("scenario", "", "Run one scenario (full, truncated, summarized, minimal, refused). If empty, runs all.")
	outputPath := flag.String("output", "ladder_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Prefix: "ladder"})

	scenarios := ladder.GetScenarios()
	if *scenarioID != "" {
		var picked []ladder.Scenario
		for _, s := range scenarios {
			if s.ID == *scenarioID {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			logger.Fatal("unknown scenario", "id", *scenarioID)
		}
		scenarios = picked
	}

	fmt.Println("========================================")
	fmt.Println("Context Budget Ladder")
	fmt.Println("========================================")

	results := ladder.NewRunner(nil, logger).RunAll(scenarios)

	failed := 0
	for _, r := range results {
		fmt.Printf("\n%s: %s\n", r.ID, r.Name)
		fmt.Printf("  Corpus: %d tokens, available: %d\n", r.CorpusTokens, r.AvailableTokens)
		fmt.Printf("  Level: %s (expected %s)\n", r.Level, r.ExpectedLevel)
		fmt.Printf("  Sent: %d tokens, kept ratio %.3f\n", r.SentTokens, r.KeptRatio)
		fmt.Printf("  Status: %s\n", r.Status)
		if r.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", r.ErrorMessage)
		}
		if r.Status != "PASS" {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total: %d  Passed: %d  Failed: %d\n", len(results), len(results)-failed, failed)
	fmt.Println("========================================")

	if err := ladder.ExportResults(results, *outputPath); err != nil {
		logger.Fatal("failed to export results", "err", err)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
