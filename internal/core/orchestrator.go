// ABOUTME: AnalysisOrchestrator runs every requested facet concurrently against the capability
// ABOUTME: A failing facet degrades to an empty result without affecting the others
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/worldcafe/internal/config"
	"github.com/harper/worldcafe/internal/llm"
	"github.com/harper/worldcafe/internal/logging"
	"github.com/harper/worldcafe/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultFacetTimeout bounds one facet's capability call
const DefaultFacetTimeout = 90 * time.Second

// TranscriptSource reads the transcripts analysis is built from
type TranscriptSource interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Transcript, error)
	ListByTable(ctx context.Context, tableID string) ([]models.Transcript, error)
}

// AnalysisStore persists analysis results by key
type AnalysisStore interface {
	Upsert(ctx context.Context, rec *models.AnalysisRecord) error
	Get(ctx context.Context, key models.AnalysisKey) (*models.AnalysisRecord, error)
}

// Options configures the orchestrator and chat cache
type Options struct {
	Prompts       *config.Prompts
	CapabilityID  string
	FacetTimeout  time.Duration
	BudgetManager *BudgetManager
	Logger        *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Prompts == nil {
		o.Prompts = config.DefaultPrompts()
	}
	if o.FacetTimeout <= 0 {
		o.FacetTimeout = DefaultFacetTimeout
	}
	if o.BudgetManager == nil {
		o.BudgetManager = NewBudgetManager()
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}

// FacetResult is the outcome of one facet
type FacetResult struct {
	Facet    models.FacetType `json:"facet"`
	Payload  interface{}      `json:"payload"`
	Degraded bool             `json:"degraded"`
	Note     string           `json:"note,omitempty"`
	Level    string           `json:"level,omitempty"`
	Refusal  *Refusal         `json:"refusal,omitempty"`
}

// AnalysisReport combines facet results with locally computed statistics
type AnalysisReport struct {
	Scope         models.Scope            `json:"scope"`
	SessionID     string                  `json:"session_id"`
	TableID       string                  `json:"table_id,omitempty"`
	Facets        []FacetResult           `json:"facets"`
	Participation ParticipationStats      `json:"participation"`
	Comparison    []TableComparison       `json:"comparison"`
	GeneratedAt   time.Time               `json:"generated_at"`
	NoData        bool                    `json:"no_data"`
	Records       []models.AnalysisRecord `json:"-"`
}

// Facet returns the result for one facet, or nil when it was not requested
func (r *AnalysisReport) Facet(f models.FacetType) *FacetResult {
	for i := range r.Facets {
		if r.Facets[i].Facet == f {
			return &r.Facets[i]
		}
	}
	return nil
}

// Orchestrator produces multi-facet analysis for a session or a table
type Orchestrator struct {
	source     TranscriptSource
	store      AnalysisStore
	capability llm.Capability
	aggregator *TranscriptAggregator
	opts       Options
	now        func() time.Time
}

// NewOrchestrator wires the orchestrator to its collaborators
func NewOrchestrator(source TranscriptSource, store AnalysisStore, capability llm.Capability, opts Options) *Orchestrator {
	return &Orchestrator{
		source:     source,
		store:      store,
		capability: capability,
		aggregator: NewTranscriptAggregator(),
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

// GenerateSessionAnalysis analyzes every table of a session together.
// A persistence failure is returned alongside the otherwise complete report.
func (o *Orchestrator) GenerateSessionAnalysis(ctx context.Context, sessionID string, facets []models.FacetType) (*AnalysisReport, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	facets, err := o.resolveFacets(facets)
	if err != nil {
		return nil, err
	}

	transcripts, err := o.source.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session transcripts: %w", err)
	}

	report := o.newReport(models.ScopeSession, sessionID, "")
	if len(transcripts) == 0 {
		report.NoData = true
		o.opts.Logger.Info("no transcripts for session", "session", sessionID)
		return report, nil
	}

	ids, groups := GroupByTable(transcripts)
	sections := make([]Section, 0, len(ids))
	for _, id := range ids {
		texts := make([]string, 0, len(groups[id]))
		for _, t := range SortChronological(groups[id]) {
			texts = append(texts, strings.TrimSpace(t.Text))
		}
		sections = append(sections, Section{Label: tableLabel(id), Content: strings.Join(texts, "\n")})
	}
	corpus := Corpus{Sections: sections, TableCount: len(ids), TranscriptCount: len(transcripts)}

	return o.run(ctx, report, facets, corpus, transcripts)
}

// GenerateTableAnalysis analyzes one table's merged recordings.
// The session is taken from the table's transcripts.
func (o *Orchestrator) GenerateTableAnalysis(ctx context.Context, tableID string, facets []models.FacetType) (*AnalysisReport, error) {
	if tableID == "" {
		return nil, errors.New("table ID is required")
	}
	facets, err := o.resolveFacets(facets)
	if err != nil {
		return nil, err
	}

	transcripts, err := o.source.ListByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load table transcripts: %w", err)
	}

	if len(transcripts) == 0 {
		report := o.newReport(models.ScopeTable, "", tableID)
		report.NoData = true
		o.opts.Logger.Info("no transcripts for table", "table", tableID)
		return report, nil
	}

	report := o.newReport(models.ScopeTable, transcripts[0].SessionID, tableID)
	agg := o.aggregator.Aggregate(transcripts)
	corpus := Corpus{
		Sections:        []Section{{Label: tableLabel(tableID), Content: agg.Text}},
		TableCount:      1,
		TranscriptCount: len(transcripts),
	}

	return o.run(ctx, report, facets, corpus, transcripts)
}

func (o *Orchestrator) resolveFacets(facets []models.FacetType) ([]models.FacetType, error) {
	if len(facets) == 0 {
		return append([]models.FacetType(nil), models.AnalysisFacets...), nil
	}
	names := make([]string, len(facets))
	for i, f := range facets {
		names[i] = string(f)
	}
	return models.ParseFacets(names)
}

func (o *Orchestrator) newReport(scope models.Scope, sessionID, tableID string) *AnalysisReport {
	return &AnalysisReport{
		Scope:       scope,
		SessionID:   sessionID,
		TableID:     tableID,
		Facets:      []FacetResult{},
		Comparison:  []TableComparison{},
		GeneratedAt: o.now().UTC(),
		Participation: ParticipationStats{
			Speakers: []TableSpeakerStats{},
		},
	}
}

func (o *Orchestrator) run(ctx context.Context, report *AnalysisReport, facets []models.FacetType, corpus Corpus, transcripts []models.Transcript) (*AnalysisReport, error) {
	results := make([]FacetResult, len(facets))

	g, gctx := errgroup.WithContext(ctx)
	for i, facet := range facets {
		i, facet := i, facet
		g.Go(func() error {
			results[i] = o.runFacet(gctx, report.Scope, facet, corpus)
			return nil
		})
	}
	_ = g.Wait()

	stats := ComputeStats(o.aggregator, transcripts)
	report.Facets = results
	report.Participation = stats.Participation
	report.Comparison = stats.Comparison

	return report, o.persist(ctx, report, stats, len(transcripts))
}

func (o *Orchestrator) runFacet(ctx context.Context, scope models.Scope, facet models.FacetType, corpus Corpus) FacetResult {
	logger := o.opts.Logger.With("facet", facet, "scope", scope)

	result, err := o.generateFacet(ctx, scope, facet, corpus)
	if err != nil {
		logger.Warn("facet degraded", "err", err)
		fallback := FacetResult{
			Facet:    facet,
			Payload:  models.EmptyFacetPayload(facet),
			Degraded: true,
			Note:     err.Error(),
			Level:    result.Level,
		}
		var overflow *OverflowError
		if errors.As(err, &overflow) {
			r := overflow.Refusal
			fallback.Refusal = &r
		}
		return fallback
	}
	return result
}

func (o *Orchestrator) generateFacet(ctx context.Context, scope models.Scope, facet models.FacetType, corpus Corpus) (FacetResult, error) {
	prompts := o.opts.Prompts
	tmpl, err := prompts.FacetTemplate(string(facet))
	if err != nil {
		return FacetResult{}, err
	}

	capBudget := prompts.BudgetFor(o.opts.CapabilityID)
	budget := Budget{
		CapabilityID:      o.opts.CapabilityID,
		MaxContextTokens:  capBudget.MaxContextTokens,
		MaxResponseTokens: capBudget.MaxResponseTokens,
		SystemPrompt:      prompts.AnalysisSystem,
		PromptFrame:       config.Render(tmpl, map[string]string{"scope": string(scope), "corpus": ""}),
	}

	outcome := o.opts.BudgetManager.Fit(corpus, budget)
	o.opts.Logger.Debug("ladder decision", "facet", facet, "level", outcome.Level,
		"estimated", outcome.EstimatedTokens, "available", outcome.AvailableTokens)
	if outcome.Refused() {
		return FacetResult{Level: outcome.Level.String()}, &OverflowError{Refusal: *outcome.Refusal}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.FacetTimeout)
	defer cancel()

	raw, err := o.capability.Submit(callCtx, llm.Request{
		SystemPrompt:      prompts.AnalysisSystem,
		UserPrompt:        config.Render(tmpl, map[string]string{"scope": string(scope), "corpus": outcome.Text}),
		CapabilityID:      o.opts.CapabilityID,
		MaxResponseTokens: budget.MaxResponseTokens,
		JSON:              true,
	})
	if err != nil {
		return FacetResult{Level: outcome.Level.String()}, fmt.Errorf("capability call failed: %w", err)
	}

	payload, ok := models.EmptyFacetPayload(facet).(interface{ Normalize() })
	if !ok {
		return FacetResult{Level: outcome.Level.String()}, fmt.Errorf("facet %s has no result shape", facet)
	}
	if err := llm.DecodeJSON(raw, payload); err != nil {
		return FacetResult{Level: outcome.Level.String()}, fmt.Errorf("malformed %s response: %w", facet, err)
	}
	payload.Normalize()

	res := FacetResult{Facet: facet, Payload: payload, Level: outcome.Level.String()}
	if outcome.Level != LevelFull {
		res.Note = fmt.Sprintf("input reduced to %s level to fit the context window", outcome.Level)
	}
	return res, nil
}

// persist stores every non-degraded facet plus the statistics.
// Degraded facets are skipped so an earlier good result is not overwritten.
func (o *Orchestrator) persist(ctx context.Context, report *AnalysisReport, stats StatsSummary, transcriptCount int) error {
	if o.store == nil {
		return nil
	}
	meta := models.GenerationMetadata{
		InputTranscriptCount: transcriptCount,
		GeneratedAt:          report.GeneratedAt,
		SchemaVersion:        models.SchemaVersion,
		CapabilityID:         o.opts.CapabilityID,
	}

	save := func(facet models.FacetType, payload interface{}, level, note string) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", facet, err)
		}
		m := meta
		m.Level = level
		m.Note = note
		rec := &models.AnalysisRecord{
			Key:      o.key(report, facet),
			Payload:  data,
			Metadata: m,
		}
		if err := o.store.Upsert(ctx, rec); err != nil {
			return err
		}
		report.Records = append(report.Records, *rec)
		return nil
	}

	for _, fr := range report.Facets {
		if fr.Degraded {
			continue
		}
		if err := save(fr.Facet, fr.Payload, fr.Level, fr.Note); err != nil {
			return err
		}
	}
	return save(models.FacetSummary, stats, "", "")
}

func (o *Orchestrator) key(report *AnalysisReport, facet models.FacetType) models.AnalysisKey {
	k := models.AnalysisKey{SessionID: report.SessionID, Facet: facet, Scope: report.Scope}
	if report.Scope == models.ScopeTable {
		k.TableID = report.TableID
	}
	return k
}

func tableLabel(id string) string {
	return "Table " + id
}
