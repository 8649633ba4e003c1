// ABOUTME: MCP tool handler implementations for the worldcafe server
// ABOUTME: Every failure becomes a tool error result, never a protocol error
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/models"
	"github.com/harper/worldcafe/internal/storage/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage      *sqlite.Storage
	orchestrator *core.Orchestrator
	chat         *core.ChatContextCache
	logger       *log.Logger
}

// GenerateSessionAnalysis handles the generate_session_analysis tool
func (h *Handlers) GenerateSessionAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	facets, err := facetsArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := h.orchestrator.GenerateSessionAnalysis(ctx, sessionID, facets)
	return h.reportResult(report, err)
}

// GenerateTableAnalysis handles the generate_table_analysis tool
func (h *Handlers) GenerateTableAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, err := request.RequireString("table_id")
	if err != nil {
		return mcp.NewToolResultError("table_id argument is required and must be a string"), nil
	}
	facets, err := facetsArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := h.orchestrator.GenerateTableAnalysis(ctx, tableID, facets)
	return h.reportResult(report, err)
}

// reportResult returns the report even when only persistence failed,
// flagging the failure in the payload
func (h *Handlers) reportResult(report *core.AnalysisReport, err error) (*mcp.CallToolResult, error) {
	if report == nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	response := map[string]interface{}{"report": report}
	if err != nil {
		h.logger.Error("analysis not persisted", "err", err)
		response["persistence_error"] = err.Error()
	}
	return jsonResult(response)
}

// Chat handles the chat tool
func (h *Handlers) Chat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}

	reply, err := h.chat.Chat(ctx, sessionID, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}
	return jsonResult(reply)
}

// GetAnalysis handles the get_analysis tool
func (h *Handlers) GetAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	q := models.AnalysisQuery{
		SessionID: sessionID,
		TableID:   request.GetString("table_id", ""),
		Facet:     models.FacetType(request.GetString("facet", "")),
		Scope:     models.Scope(request.GetString("scope", "")),
	}
	if q.Facet != "" && !q.Facet.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown facet %q", q.Facet)), nil
	}
	if q.Scope != "" && !q.Scope.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown scope %q", q.Scope)), nil
	}

	records, err := h.storage.Analyses.Find(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// RebuildChatSummary handles the rebuild_chat_summary tool
func (h *Handlers) RebuildChatSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	rec, err := h.chat.Rebuild(ctx, sessionID)
	if errors.Is(err, core.ErrNoData) {
		return jsonResult(map[string]interface{}{"session_id": sessionID, "no_data": true})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rebuild failed: %v", err)), nil
	}

	var summary models.ChatSummaryPayload
	if err := rec.DecodePayload(&summary); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to decode summary: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"session_id":       sessionID,
		"table_count":      summary.TableCount,
		"transcript_count": summary.TranscriptCount,
		"updated_at":       rec.UpdatedAt.Format(time.RFC3339Nano),
	})
}

// IngestTranscript handles the ingest_transcript tool
func (h *Handlers) IngestTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	tableID, err := request.RequireString("table_id")
	if err != nil {
		return mcp.NewToolResultError("table_id argument is required and must be a string"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	createdAt := time.Now().UTC()
	if raw := request.GetString("created_at", ""); raw != "" {
		createdAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("created_at must be RFC3339: %v", err)), nil
		}
	}

	segments, err := segmentsArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t := &models.Transcript{
		ID:              request.GetString("id", ""),
		RecordingID:     request.GetString("recording_id", ""),
		SessionID:       sessionID,
		TableID:         tableID,
		Text:            text,
		SpeakerSegments: segments,
		ConfidenceScore: request.GetFloat("confidence_score", 0),
		Language:        request.GetString("language", ""),
		DurationSeconds: request.GetFloat("duration", 0),
		CreatedAt:       createdAt,
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	inserted, err := h.storage.Transcripts.SaveTranscript(ctx, t)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store transcript: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"id":       t.ID,
		"inserted": inserted,
	})
}

// segmentsArg reads the optional speaker_segments array
func segmentsArg(request mcp.CallToolRequest) ([]models.SpeakerSegment, error) {
	raw, exists := request.GetArguments()["speaker_segments"]
	if !exists || raw == nil {
		return nil, nil
	}
	if _, ok := raw.([]interface{}); !ok {
		return nil, errors.New("speaker_segments must be an array of objects")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("speaker_segments: %w", err)
	}
	var segments []models.SpeakerSegment
	if err := json.Unmarshal(encoded, &segments); err != nil {
		return nil, fmt.Errorf("speaker_segments must be an array of {speaker, text, start, end, confidence} objects: %v", err)
	}
	return segments, nil
}

// facetsArg reads the optional facets array
func facetsArg(request mcp.CallToolRequest) ([]models.FacetType, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, exists := args["facets"]
	if !exists || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("facets must be an array of strings")
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, errors.New("facets must be an array of strings")
		}
		names = append(names, name)
	}
	return models.ParseFacets(names)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
