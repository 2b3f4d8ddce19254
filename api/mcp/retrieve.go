package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	apiretrieve "github.com/bookbinderco/stacks/api/retrieve"
)

var (
	retrieveToolName    = "retrieve"
	retrieveDescription = "Retrieve the most relevant indexed passages for a query using semantic search with per-source diversity. Returns scored passages and a formatted context string ready for prompt injection."
)

// RetrieveInput represents the input arguments for the retrieve tool.
type RetrieveInput struct {
	Query      string  `json:"query" jsonschema:"the query text to find relevant passages"`
	TopK       int     `json:"top_k,omitempty" jsonschema:"number of passages to return (default: 5)"`
	ScoreFloor float32 `json:"score_floor,omitempty" jsonschema:"minimum similarity for a passage (default: 0)"`
}

// handleRetrieve processes a retrieve request.
func (s *Server) handleRetrieve(ctx context.Context, req *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, apiretrieve.RetrieveOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP retrieve request",
		zap.String("query", input.Query),
		zap.Int("topK", input.TopK),
		zap.Float32("scoreFloor", input.ScoreFloor),
	)

	output, err := apiretrieve.Retrieve(ctx, apiretrieve.RetrieveInput{
		Query:      input.Query,
		TopK:       input.TopK,
		ScoreFloor: input.ScoreFloor,
	}, s.config.Retriever, logger)
	if err != nil {
		logger.Error("failed to retrieve passages", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to retrieve passages: %v", err)},
			},
		}, apiretrieve.RetrieveOutput{}, nil
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal retrieve output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, apiretrieve.RetrieveOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
