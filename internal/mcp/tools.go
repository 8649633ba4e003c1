// ABOUTME: MCP tool definitions and registration for the worldcafe server
// ABOUTME: Declares JSON schemas for the analysis, chat, lookup and ingest tools
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/logging"
	"github.com/harper/worldcafe/internal/storage/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var facetsProperty = map[string]interface{}{
	"type":        "array",
	"items":       map[string]interface{}{"type": "string", "enum": []string{"conflicts", "agreements", "themes", "sentiment"}},
	"description": "Facets to generate (default: all four)",
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store *sqlite.Storage, orchestrator *core.Orchestrator, chat *core.ChatContextCache, logger *log.Logger) *Handlers {
	handlers := NewHandlers(store, orchestrator, chat, logger)

	// 1. generate_session_analysis
	server.AddTool(mcp.Tool{
		Name:        "generate_session_analysis",
		Description: "Analyze every table of a World Café session together: conflicts, agreements, themes and sentiment plus participation statistics.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to analyze",
				},
				"facets": facetsProperty,
			},
			Required: []string{"session_id"},
		},
	}, handlers.GenerateSessionAnalysis)

	// 2. generate_table_analysis
	server.AddTool(mcp.Tool{
		Name:        "generate_table_analysis",
		Description: "Analyze one table's merged recordings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table to analyze",
				},
				"facets": facetsProperty,
			},
			Required: []string{"table_id"},
		},
	}, handlers.GenerateTableAnalysis)

	// 3. chat
	server.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Ask a question about a session. Answers come from a cached digest of all tables.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the question is about",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The question",
				},
			},
			Required: []string{"session_id", "message"},
		},
	}, handlers.Chat)

	// 4. get_analysis
	server.AddTool(mcp.Tool{
		Name:        "get_analysis",
		Description: "Look up stored analysis results without regenerating them.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the results belong to",
				},
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Only results for this table",
				},
				"facet": map[string]interface{}{
					"type":        "string",
					"description": "Only this facet (summary, themes, sentiment, conflicts, agreements, chat_summary)",
				},
				"scope": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"session", "table"},
					"description": "Only this scope",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.GetAnalysis)

	// 5. rebuild_chat_summary
	server.AddTool(mcp.Tool{
		Name:        "rebuild_chat_summary",
		Description: "Rebuild a session's chat digest after new transcripts arrive. Chat never refreshes it on its own.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session whose digest to rebuild",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.RebuildChatSummary)

	// 6. ingest_transcript
	server.AddTool(mcp.Tool{
		Name:        "ingest_transcript",
		Description: "Store a finished transcript for a table. Re-sending the same id is a no-op.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the recording belongs to",
				},
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table the recording was made at",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Transcript text",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Transcript id (generated when omitted)",
				},
				"recording_id": map[string]interface{}{
					"type":        "string",
					"description": "Recording id (defaults to the transcript id)",
				},
				"created_at": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 time the recording finished (default: now)",
				},
				"speaker_segments": map[string]interface{}{
					"type":        "array",
					"description": "Diarized segments; turns are attributed by speaker when present",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"speaker":    map[string]interface{}{"type": "string"},
							"text":       map[string]interface{}{"type": "string"},
							"start":      map[string]interface{}{"type": "number"},
							"end":        map[string]interface{}{"type": "number"},
							"confidence": map[string]interface{}{"type": "number"},
						},
						"required": []string{"speaker", "text"},
					},
				},
				"confidence_score": map[string]interface{}{
					"type":        "number",
					"description": "Transcription confidence between 0 and 1",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language code of the transcript",
				},
				"duration": map[string]interface{}{
					"type":        "number",
					"description": "Recording length in seconds",
				},
			},
			Required: []string{"session_id", "table_id", "text"},
		},
	}, handlers.IngestTranscript)

	return handlers
}

// NewHandlers builds handlers without registering them
func NewHandlers(store *sqlite.Storage, orchestrator *core.Orchestrator, chat *core.ChatContextCache, logger *log.Logger) *Handlers {
	return &Handlers{
		storage:      store,
		orchestrator: orchestrator,
		chat:         chat,
		logger:       logging.OrDiscard(logger),
	}
}
