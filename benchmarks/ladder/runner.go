// ABOUTME: Runs ladder scenarios through the budget manager and collects results
// ABOUTME: A scenario passes when it lands on the expected level within budget
package ladder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/logging"
)

// Result is the outcome of one scenario
type Result struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	CorpusTokens    int           `json:"corpus_tokens"`
	AvailableTokens int           `json:"available_tokens"`
	SentTokens      int           `json:"sent_tokens"`
	Level           string        `json:"level"`
	ExpectedLevel   string        `json:"expected_level"`
	KeptRatio       float64       `json:"kept_ratio"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	Status          string        `json:"status"`
	ErrorMessage    string        `json:"error,omitempty"`
}

// Runner executes scenarios against one budget manager
type Runner struct {
	manager *core.BudgetManager
	logger  *log.Logger
}

// NewRunner creates a runner; a nil manager uses the defaults
func NewRunner(manager *core.BudgetManager, logger *log.Logger) *Runner {
	if manager == nil {
		manager = core.NewBudgetManager()
	}
	return &Runner{manager: manager, logger: logging.OrDiscard(logger)}
}

// Run fits one scenario's corpus and checks the outcome
func (r *Runner) Run(s Scenario) Result {
	corpus := s.Corpus()
	budget := core.Budget{
		CapabilityID:      "benchmark",
		MaxContextTokens:  s.MaxContextTokens,
		MaxResponseTokens: s.MaxResponseTokens,
	}

	start := time.Now()
	outcome := r.manager.Fit(corpus, budget)
	elapsed := time.Since(start)

	res := Result{
		ID:              s.ID,
		Name:            s.Name,
		CorpusTokens:    core.EstimateTokens(core.RenderSections(corpus.Sections)),
		AvailableTokens: outcome.AvailableTokens,
		Level:           outcome.Level.String(),
		ExpectedLevel:   s.ExpectLevel.String(),
		KeptRatio:       outcome.KeptRatio,
		Elapsed:         elapsed,
		Status:          "PASS",
	}
	if !outcome.Refused() {
		res.SentTokens = core.EstimateTokens(outcome.Text)
	}

	switch {
	case outcome.Level != s.ExpectLevel:
		res.Status = "FAIL"
		res.ErrorMessage = fmt.Sprintf("landed on %s, expected %s", outcome.Level, s.ExpectLevel)
	case !outcome.Refused() && res.SentTokens > outcome.AvailableTokens:
		res.Status = "FAIL"
		res.ErrorMessage = fmt.Sprintf("sent %d tokens with %d available", res.SentTokens, outcome.AvailableTokens)
	case outcome.Refused() && (outcome.Refusal == nil || len(outcome.Refusal.Suggestions) == 0):
		res.Status = "FAIL"
		res.ErrorMessage = "refusal carried no suggestions"
	}

	r.logger.Debug("scenario finished", "id", s.ID, "level", res.Level, "status", res.Status, "elapsed", elapsed)
	return res
}

// RunAll runs every scenario in order
func (r *Runner) RunAll(scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		results = append(results, r.Run(s))
	}
	return results
}

// ExportResults writes results plus pass/fail totals as JSON
func ExportResults(results []Result, outputPath string) error {
	summary := struct {
		Timestamp string   `json:"timestamp"`
		Total     int      `json:"total"`
		Passed    int      `json:"passed"`
		Failed    int      `json:"failed"`
		Results   []Result `json:"results"`
	}{
		Timestamp: time.Now().Format(time.RFC3339),
		Total:     len(results),
		Results:   results,
	}
	for _, res := range results {
		if res.Status == "PASS" {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
