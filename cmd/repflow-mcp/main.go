// Command repflow-mcp exposes a running RepFlow server to MCP clients over
// stdio. It holds no session state itself; every tool call is proxied to the
// runner's REST API, typically across a tailnet.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/repflow/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	baseURL := flag.String("url", os.Getenv("REPFLOW_URL"), "base URL of the RepFlow server")
	apiKey := flag.String("api-key", os.Getenv("REPFLOW_API_KEY"), "API key for the RepFlow server")
	flag.Parse()

	// stdout belongs to the stdio transport; all logging goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *baseURL == "" {
		log.Error("no server URL: set -url or REPFLOW_URL")
		os.Exit(1)
	}

	ds := mcp.NewHTTPClient(*baseURL, *apiKey)
	srv := mcp.New(ds, Version, log)

	log.Info("repflow-mcp starting", "url", *baseURL, "version", Version)
	if err := server.ServeStdio(srv); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
