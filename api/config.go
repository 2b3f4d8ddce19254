// Package api provides the HTTP API server for querying the Stacks index.
package api

import (
	"net/http"

	"github.com/bookbinderco/stacks/pkg/retriever"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Retriever runs the diversity-aware retrieval behind /v1/retrieve.
	// When nil the endpoint responds with 503.
	Retriever *retriever.Retriever

	// MCPHandler is the MCP server's HTTP handler, mounted at /mcp.
	// When nil the MCP surface is disabled.
	MCPHandler http.Handler
}
