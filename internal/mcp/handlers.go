// ABOUTME: MCP tool handler implementations for the storybrief server
// ABOUTME: Tool failures are returned as tool errors so the agent can react to them
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/models"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	deps     Deps
	inflight *sync.WaitGroup // Track running tool calls for shutdown
}

func (h *Handlers) track() func() {
	h.inflight.Add(1)
	return h.inflight.Done
}

// BuildIndex handles the build_index tool
func (h *Handlers) BuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defer h.track()()

	storyID, err := request.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError("story_id argument is required and must be a string"), nil
	}
	force := request.GetBool("force", false)

	docs, err := documentsArg(request.GetArguments()["documents"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		story, ok := h.deps.Stories[storyID]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no documents given and story %q is not in the dataset", storyID)), nil
		}
		docs = story.Documents
	}

	built, err := h.deps.Builder.EnsureBuilt(ctx, storyID, docs, force)
	if err != nil {
		return toolError("index build failed", err), nil
	}

	return jsonResult(map[string]interface{}{
		"story_id":  storyID,
		"built":     built,
		"documents": len(docs),
	})
}

// RetrieveEvidence handles the retrieve_evidence tool
func (h *Handlers) RetrieveEvidence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defer h.track()()

	storyID, err := request.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError("story_id argument is required and must be a string"), nil
	}
	queries := stringsArg(request.GetArguments()["queries"])
	if len(queries) == 0 {
		return mcp.NewToolResultError("queries argument must be a non-empty array of strings"), nil
	}
	k := request.GetInt("k", h.deps.RetrievalK)

	docs, err := h.deps.Orchestrator.Orchestrate(ctx, storyID, queries, k)
	if err != nil {
		return toolError("retrieval failed", err), nil
	}
	if docs == nil {
		docs = []models.MergedDocument{}
	}

	return jsonResult(map[string]interface{}{
		"story_id":        storyID,
		"documents":       docs,
		"time_statistics": core.Statistics(docs),
	})
}

// GenerateReport handles the generate_report tool
func (h *Handlers) GenerateReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defer h.track()()

	storyID, err := request.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError("story_id argument is required and must be a string"), nil
	}
	if h.deps.Generator == nil {
		return mcp.NewToolResultError("report generation is disabled: LLM_API_KEY is not set"), nil
	}

	if story, ok := h.deps.Stories[storyID]; ok {
		if _, err := h.deps.Builder.EnsureBuilt(ctx, storyID, story.Documents, false); err != nil {
			return toolError("index build failed", err), nil
		}
	}

	rep, err := h.deps.Generator.Generate(ctx, storyID)
	if err != nil {
		h.deps.Logger.Error("report failed", "story_id", storyID, "error", err.Error())
		return toolError("report generation failed", err), nil
	}
	return jsonResult(rep)
}

// ListStories handles the list_stories tool
func (h *Handlers) ListStories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		ID        string `json:"id"`
		Documents int    `json:"documents"`
	}
	out := make([]entry, 0, len(h.deps.Stories))
	for id, s := range h.deps.Stories {
		out = append(out, entry{ID: id, Documents: len(s.Documents)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return jsonResult(map[string]interface{}{
		"stories": out,
		"count":   len(out),
	})
}

// Shutdown waits for running tool calls to finish
func (h *Handlers) Shutdown() {
	h.inflight.Wait()
}

func toolError(msg string, err error) *mcp.CallToolResult {
	kind := models.KindOf(err)
	if kind == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s [%s]: %v", msg, kind, err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// stringsArg reads a JSON array of strings, skipping blanks and non-strings
func stringsArg(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// documentsArg reads an optional array of {doc_id, text} objects
func documentsArg(v interface{}) ([]models.Document, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("documents must be an array")
	}
	docs := make([]models.Document, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("documents[%d] must be an object", i)
		}
		docID, _ := m["doc_id"].(string)
		text, _ := m["text"].(string)
		docs = append(docs, models.Document{DocID: docID, Text: text})
	}
	return docs, nil
}
