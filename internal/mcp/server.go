// ABOUTME: Builds the storybrief MCP server from a wired runtime
// ABOUTME: Shared by the mcp subcommand and the standalone server binary
package mcp

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/storybrief/internal/app"
	"github.com/harper/storybrief/internal/dataset"
	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/pipeline"
)

// ServerName is the name reported to MCP clients
const ServerName = "storybrief"

// NewServer builds the MCP server over rt, loading datasetPath when set
func NewServer(rt *app.Runtime, datasetPath, version string) (*mcpserver.MCPServer, *Handlers, error) {
	var stories map[string]models.Story
	if datasetPath != "" {
		list, err := dataset.LoadStories(datasetPath)
		if err != nil {
			return nil, nil, err
		}
		stories = dataset.ByID(list)
	}

	deps := Deps{
		Builder:      rt.Builder,
		Orchestrator: rt.Orchestrator,
		Stories:      stories,
		RetrievalK:   rt.Config.RetrievalK,
		Logger:       rt.Logger,
	}
	// Keep the interface nil when generation is unavailable
	var gen pipeline.ReportGenerator
	if rt.Generator != nil {
		gen = rt.Generator
	}
	deps.Generator = gen

	server := mcpserver.NewMCPServer(ServerName, version)
	handlers := RegisterTools(server, deps)
	return server, handlers, nil
}
