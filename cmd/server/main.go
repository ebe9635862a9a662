// ABOUTME: Main entry point for the storybrief MCP server with stdio transport
// ABOUTME: Loads configuration, wires the runtime and serves the MCP tools
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/storybrief/internal/app"
	"github.com/harper/storybrief/internal/config"
	"github.com/harper/storybrief/internal/logging"
	"github.com/harper/storybrief/internal/mcp"
)

var version = "dev"

func main() {
	datasetPath := flag.String("dataset", "", "Dataset file for id-only tool calls")
	flag.Parse()

	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// stdout carries the protocol, so logs go to stderr
	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: os.Stderr,
	})
	logging.SetDefault(logger)

	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY not set - generate_report will be unavailable")
	}

	ctx := logging.With(context.Background(), logger)
	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	server, _, err := mcp.NewServer(rt, *datasetPath, version)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	logger.Info("storybrief MCP server starting on stdio...")
	if err := mcpserver.ServeStdio(server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
