// ABOUTME: In-package fakes for transcript sources, stores and capabilities
// ABOUTME: Count calls so tests can assert what was and was not invoked
package core

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/harper/worldcafe/internal/llm"
	"github.com/harper/worldcafe/internal/models"
)

type fakeSource struct {
	mu           sync.Mutex
	transcripts  []models.Transcript
	sessionCalls int
	tableCalls   int
}

func (f *fakeSource) add(ts ...models.Transcript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, ts...)
}

func (f *fakeSource) ListBySession(_ context.Context, sessionID string) ([]models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	var out []models.Transcript
	for _, t := range f.transcripts {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) ListByTable(_ context.Context, tableID string) ([]models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableCalls++
	var out []models.Transcript
	for _, t := range f.transcripts {
		if t.TableID == tableID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	records map[models.AnalysisKey]models.AnalysisRecord
	failErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[models.AnalysisKey]models.AnalysisRecord)}
}

func (m *memStore) Upsert(_ context.Context, rec *models.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	m.records[rec.Key] = *rec
	return nil
}

func (m *memStore) Get(_ context.Context, key models.AnalysisKey) (*models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeCapability routes each request through respond and counts calls
type fakeCapability struct {
	calls   int32
	respond func(ctx context.Context, req llm.Request) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCapability) Submit(ctx context.Context, req llm.Request) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.prompts = append(f.prompts, req.UserPrompt)
	f.mu.Unlock()
	return f.respond(ctx, req)
}

func (f *fakeCapability) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// facetOf recovers which facet a default prompt template asks for
func facetOf(prompt string) models.FacetType {
	switch {
	case strings.Contains(prompt, "points of disagreement"):
		return models.FacetConflicts
	case strings.Contains(prompt, "points of consensus"):
		return models.FacetAgreements
	case strings.Contains(prompt, "recurring themes"):
		return models.FacetThemes
	case strings.Contains(prompt, "Assess the sentiment"):
		return models.FacetSentiment
	}
	return ""
}

var goodResponses = map[models.FacetType]string{
	models.FacetConflicts:  `{"conflicts":[{"location":"Table t1","quote":"no more cars","severity":0.7,"description":"traffic"}]}`,
	models.FacetAgreements: "```json\n{\"agreements\":[{\"location\":\"Table t2\",\"quote\":\"yes\",\"strength\":0.9,\"description\":\"parks\"}]}\n```",
	models.FacetThemes:     `{"themes":[{"label":"Transit","frequency":3,"locations":["Table t1"],"sentiment":0.2}]}`,
	models.FacetSentiment:  `{"overall":0.4,"breakdown":[{"location":"Table t1","score":0.5}],"interpretation":"hopeful"}`,
}

func goodCapability() *fakeCapability {
	return &fakeCapability{respond: func(_ context.Context, req llm.Request) (string, error) {
		if resp, ok := goodResponses[facetOf(req.UserPrompt)]; ok {
			return resp, nil
		}
		return "A helpful answer.", nil
	}}
}
