package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/qstem/doxsearch-mcp/internal/config"
	"github.com/qstem/doxsearch-mcp/tools"
)

const (
	version     = "0.3.0"
	serverName  = "doxsearch-mcp"
	description = "MCP server for looking up symbols in Doxygen-generated documentation"
)

func main() {
	showVersion := flag.Bool("version", false, "print the version and exit")
	configPath := flag.String("config", os.Getenv(config.EnvConfigFile), "path to a YAML config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// Set up logging to stderr (MCP uses stdout for protocol)
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", serverName, version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	tools.Configure(cfg)

	server := createMCPServer()

	if err := registerTools(server); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	// Set up cleanup on shutdown
	defer func() {
		if err := tools.CloseDocSearch(); err != nil {
			log.Printf("Error closing symbol search: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run server with stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Printf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: description,
		},
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server) error {
	toolCount := 0

	// Exact lookups (3 tools)
	if err := tools.RegisterSymbolTools(server); err != nil {
		return fmt.Errorf("failed to register symbol tools: %w", err)
	}
	toolCount += 3

	// Full-text search (2 tools)
	if err := tools.RegisterDocSearchTools(server); err != nil {
		log.Printf("Warning: Failed to register search tools: %v", err)
		log.Printf("Symbol search will be unavailable")
	} else {
		toolCount += 2
	}

	log.Printf("✓ All tools registered: %d tools (lookup + search)", toolCount)
	return nil
}
