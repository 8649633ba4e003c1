// ABOUTME: ChatContextCache answers questions about a session from a cached digest
// ABOUTME: The digest is built from raw transcripts once and reused on every turn
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/harper/worldcafe/internal/config"
	"github.com/harper/worldcafe/internal/llm"
	"github.com/harper/worldcafe/internal/models"
)

// Chat digest limits
const (
	ChatExcerptChars = 200
	ChatKeywords     = 6
	ChatSectionChars = 400
	ChatDigestChars  = 4000
)

// ChatReply is either a response, a refusal or an explicit no-data answer
type ChatReply struct {
	SessionID string   `json:"session_id"`
	Response  string   `json:"response,omitempty"`
	Refused   bool     `json:"refused,omitempty"`
	Refusal   *Refusal `json:"details,omitempty"`
	// Suggestions repeats the refusal's narrowing hints at the top level
	Suggestions []string `json:"suggestions,omitempty"`
	NoData      bool     `json:"no_data,omitempty"`
	CacheHit    bool     `json:"cache_hit"`
	Truncated   bool     `json:"truncated,omitempty"`
}

// ChatContextCache builds and reuses condensed session digests
type ChatContextCache struct {
	source     TranscriptSource
	store      AnalysisStore
	capability llm.Capability
	aggregator *TranscriptAggregator
	opts       Options
	now        func() time.Time
}

// NewChatContextCache wires the cache to its collaborators
func NewChatContextCache(source TranscriptSource, store AnalysisStore, capability llm.Capability, opts Options) *ChatContextCache {
	return &ChatContextCache{
		source:     source,
		store:      store,
		capability: capability,
		aggregator: NewTranscriptAggregator(),
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

func chatKey(sessionID string) models.AnalysisKey {
	return models.AnalysisKey{SessionID: sessionID, Facet: models.FacetChatSummary, Scope: models.ScopeSession}
}

// Chat answers message using the session digest, building it on first use.
// The digest is never invalidated automatically; call Rebuild after new transcripts arrive.
func (c *ChatContextCache) Chat(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	reply := &ChatReply{SessionID: sessionID}

	summary, hit, err := c.digest(ctx, sessionID)
	if errors.Is(err, ErrNoData) {
		reply.NoData = true
		reply.Response = "There are no transcripts for this session yet."
		return reply, nil
	}
	if err != nil {
		return nil, err
	}
	reply.CacheHit = hit

	prompts := c.opts.Prompts
	capBudget := prompts.BudgetFor(c.opts.CapabilityID)
	budget := Budget{
		CapabilityID:      c.opts.CapabilityID,
		MaxContextTokens:  capBudget.MaxContextTokens,
		MaxResponseTokens: capBudget.MaxResponseTokens,
		SystemPrompt:      prompts.ChatSystem,
		PromptFrame:       config.Render(prompts.ChatTemplate, map[string]string{"digest": "", "message": message}),
	}

	digestText, err := fitDigest(summary, budget)
	if err != nil {
		var overflow *OverflowError
		if errors.As(err, &overflow) {
			c.opts.Logger.Warn("chat refused", "session", sessionID, "estimated", overflow.Refusal.Estimated,
				"available", overflow.Refusal.Available)
			reply.Refused = true
			reply.Refusal = &overflow.Refusal
			reply.Suggestions = overflow.Refusal.Suggestions
			return reply, nil
		}
		return nil, err
	}
	reply.Truncated = digestText != summary.Digest

	callCtx, cancel := context.WithTimeout(ctx, c.opts.FacetTimeout)
	defer cancel()

	response, err := c.capability.Submit(callCtx, llm.Request{
		SystemPrompt:      prompts.ChatSystem,
		UserPrompt:        config.Render(prompts.ChatTemplate, map[string]string{"digest": digestText, "message": message}),
		CapabilityID:      c.opts.CapabilityID,
		MaxResponseTokens: budget.MaxResponseTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}
	reply.Response = response
	return reply, nil
}

// fitDigest returns the digest as-is when it fits, otherwise one aggressive
// head-only truncation. When that still cannot fit it returns an OverflowError.
func fitDigest(summary models.ChatSummaryPayload, budget Budget) (string, error) {
	available := budget.Available()
	estimate := EstimateTokens(summary.Digest)
	if estimate <= available {
		return summary.Digest, nil
	}

	keep := available*4 - utf8.RuneCountInString(TruncationMarker) - 1
	if keep > 0 {
		text := cutRunes(summary.Digest, keep) + "\n" + TruncationMarker
		if EstimateTokens(text) <= available {
			return text, nil
		}
	}
	return "", &OverflowError{Refusal: NewRefusal(estimate, available, budget, summary.TableCount)}
}

// digest loads the cached summary or builds and stores a new one
func (c *ChatContextCache) digest(ctx context.Context, sessionID string) (models.ChatSummaryPayload, bool, error) {
	rec, err := c.store.Get(ctx, chatKey(sessionID))
	if err != nil {
		return models.ChatSummaryPayload{}, false, fmt.Errorf("failed to load chat summary: %w", err)
	}
	if rec != nil {
		var summary models.ChatSummaryPayload
		if err := rec.DecodePayload(&summary); err == nil {
			return summary, true, nil
		}
		c.opts.Logger.Warn("cached chat summary unreadable, rebuilding", "session", sessionID)
	}

	rec, err = c.Rebuild(ctx, sessionID)
	if err != nil {
		return models.ChatSummaryPayload{}, false, err
	}
	var summary models.ChatSummaryPayload
	if err := rec.DecodePayload(&summary); err != nil {
		return models.ChatSummaryPayload{}, false, fmt.Errorf("failed to decode chat summary: %w", err)
	}
	return summary, false, nil
}

// Rebuild regenerates the session digest from raw transcripts and stores it.
// Returns ErrNoData when the session has no transcripts.
func (c *ChatContextCache) Rebuild(ctx context.Context, sessionID string) (*models.AnalysisRecord, error) {
	transcripts, err := c.source.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session transcripts: %w", err)
	}
	if len(transcripts) == 0 {
		return nil, ErrNoData
	}

	ids, groups := GroupByTable(transcripts)
	digests := make([]string, 0, len(ids))
	for _, id := range ids {
		agg := c.aggregator.Aggregate(groups[id])
		digests = append(digests, SectionDigest(
			Section{Label: tableLabel(id), Content: agg.Text},
			ChatExcerptChars, ChatKeywords, ChatSectionChars,
		))
	}

	summary := models.ChatSummaryPayload{
		Digest:          JoinDigests(digests, ChatDigestChars),
		TableCount:      len(ids),
		TranscriptCount: len(transcripts),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat summary: %w", err)
	}

	rec := &models.AnalysisRecord{
		Key:     chatKey(sessionID),
		Payload: payload,
		Metadata: models.GenerationMetadata{
			InputTranscriptCount: len(transcripts),
			GeneratedAt:          c.now().UTC(),
			SchemaVersion:        models.SchemaVersion,
			Level:                LevelSummarized.String(),
		},
	}
	if err := c.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	c.opts.Logger.Info("chat summary built", "session", sessionID, "tables", len(ids), "chars", utf8.RuneCountInString(summary.Digest))
	return rec, nil
}
