// ABOUTME: MCP tool definitions and registration for the storybrief server
// ABOUTME: Exposes index building, evidence retrieval and report generation to agents
package mcp

import (
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/pipeline"
)

// Deps are the components the tools call into
type Deps struct {
	Builder      pipeline.IndexBuilder
	Orchestrator *core.Orchestrator
	Generator    pipeline.ReportGenerator // nil disables generate_report
	Stories      map[string]models.Story  // optional dataset for id-only calls
	RetrievalK   int
	Logger       *slog.Logger
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	if deps.RetrievalK <= 0 {
		deps.RetrievalK = core.DefaultRetrievalK
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Stories == nil {
		deps.Stories = map[string]models.Story{}
	}
	handlers := &Handlers{deps: deps, inflight: &sync.WaitGroup{}}

	// 1. build_index - index a story's documents
	server.AddTool(mcp.Tool{
		Name:        "build_index",
		Description: "Build the vector index for a news story. Uses the supplied documents, or the loaded dataset when none are given. Existing indexes are kept unless force is true.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"story_id": map[string]interface{}{
					"type":        "string",
					"description": "Story identifier",
				},
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Articles of the story",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"doc_id": map[string]interface{}{"type": "string"},
							"text":   map[string]interface{}{"type": "string"},
						},
						"required": []string{"doc_id", "text"},
					},
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Rebuild even if an index exists (default: false)",
					"default":     false,
				},
			},
			Required: []string{"story_id"},
		},
	}, handlers.BuildIndex)

	// 2. retrieve_evidence - orchestrated, time-ordered retrieval
	server.AddTool(mcp.Tool{
		Name:        "retrieve_evidence",
		Description: "Retrieve deduplicated, reranked evidence for one or more queries from a story index, merged per source document and ordered by earliest date.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"story_id": map[string]interface{}{
					"type":        "string",
					"description": "Story identifier",
				},
				"queries": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Query variants",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Results per query before reranking (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"story_id", "queries"},
		},
	}, handlers.RetrieveEvidence)

	// 3. generate_report - topic, summary and influence for a story
	server.AddTool(mcp.Tool{
		Name:        "generate_report",
		Description: "Generate a chronological event summary and influence analysis for a story, building its index first when the dataset has it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"story_id": map[string]interface{}{
					"type":        "string",
					"description": "Story identifier",
				},
			},
			Required: []string{"story_id"},
		},
	}, handlers.GenerateReport)

	// 4. list_stories - dataset contents
	server.AddTool(mcp.Tool{
		Name:        "list_stories",
		Description: "List the story ids of the loaded dataset with their document counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListStories)

	return handlers
}
