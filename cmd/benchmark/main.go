// ABOUTME: Command-line ROUGE evaluation of generated summaries
// ABOUTME: Compares a result file with the dataset's reference summaries and exports JSON scores

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/harper/storybrief/benchmarks/rouge"
	"github.com/harper/storybrief/internal/dataset"
	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	resultsPath := flag.String("results", "output/results/result.json", "Generated result file ([{id, summary}])")
	datasetPath := flag.String("dataset", "data/valid.json", "Dataset with reference summaries")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON scores")
	minF1 := flag.Float64("min-f1", 0, "Exit non-zero when average ROUGE-L F1 is below this value")
	verbose := flag.Bool("verbose", false, "Print per-story scores")
	flag.Parse()

	if err := godotenv.Load(); err != nil && *verbose {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	fmt.Println("========================================")
	fmt.Println("storybrief ROUGE Evaluation")
	fmt.Println("========================================")
	fmt.Println()

	results, err := loadResults(*resultsPath)
	if err != nil {
		log.Fatalf("Failed to load results: %v", err)
	}
	stories, err := dataset.LoadStories(*datasetPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	fmt.Printf("Found %d generated summaries, %d reference stories.\n", len(results), len(stories))

	tokenize, err := rouge.Segmenter()
	if err != nil {
		log.Fatalf("Failed to prepare segmenter: %v", err)
	}

	eval := rouge.Evaluate(tokenize, results, stories)

	if len(eval.MissingIDs) > 0 {
		fmt.Printf("Warning: %d ids in results not found in dataset.\n", len(eval.MissingIDs))
	}
	if len(eval.EmptyIDs) > 0 {
		fmt.Printf("Warning: %d generated summaries are empty.\n", len(eval.EmptyIDs))
	}
	if eval.Pairs == 0 {
		fmt.Println("No valid pairs found for evaluation.")
		os.Exit(1)
	}

	if *verbose {
		refs := make(map[string]string, len(stories))
		for _, s := range stories {
			refs[s.ID] = s.Reference
		}
		for _, r := range results {
			ref, ok := refs[r.ID]
			if !ok {
				continue
			}
			s := rouge.Compare(tokenize, r.Summary, ref)
			fmt.Printf("  %s: R1=%.4f R2=%.4f RL=%.4f\n", r.ID, s.Rouge1.F1, s.Rouge2.F1, s.RougeL.F1)
		}
	}

	fmt.Printf("\nEvaluated %d pairs\n", eval.Pairs)
	fmt.Println("\n========================================")
	fmt.Println("ROUGE-L")
	fmt.Println("========================================")
	fmt.Printf("F1 Score:  %.4f\n", eval.Average.RougeL.F1)
	fmt.Printf("Precision: %.4f\n", eval.Average.RougeL.Precision)
	fmt.Printf("Recall:    %.4f\n", eval.Average.RougeL.Recall)
	fmt.Println("----------------------------------------")
	fmt.Printf("ROUGE-1 F1: %.4f\n", eval.Average.Rouge1.F1)
	fmt.Printf("ROUGE-2 F1: %.4f\n", eval.Average.Rouge2.F1)
	fmt.Println("========================================")

	export := struct {
		Timestamp string `json:"timestamp"`
		Results   string `json:"results_file"`
		Dataset   string `json:"dataset_file"`
		rouge.Evaluation `yaml:",inline"`
	}{
		Timestamp:  time.Now().Format(time.RFC3339),
		Results:    *resultsPath,
		Dataset:    *datasetPath,
		Evaluation: eval,
	}
	if err := pipeline.WriteFile(*outputPath, export); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}
	fmt.Printf("✓ Results exported to: %s\n", *outputPath)

	if eval.Average.RougeL.F1 < *minF1 {
		os.Exit(1)
	}
}

// loadResults reads the batch output; a bare array and the {results: [...]} form are both accepted
func loadResults(path string) ([]models.StoryResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []models.StoryResult
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var batch models.BatchResult
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("result file is neither a list nor a batch object: %w", err)
	}
	return batch.Results, nil
}
