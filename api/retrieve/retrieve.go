// Package retrieve provides shared types and logic for passage retrieval
// requests. It is used by both the REST API endpoint and the MCP server tool.
package retrieve

import (
	"context"

	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/retriever"
)

// RetrieveInput represents the input arguments for a retrieval request.
type RetrieveInput struct {
	Query      string  `json:"query"`
	TopK       int     `json:"top_k,omitempty"`
	ScoreFloor float32 `json:"score_floor,omitempty"`
}

// RetrievedPassage represents a single passage in a retrieval response.
type RetrievedPassage struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Page       *int    `json:"page,omitempty"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// RetrieveOutput represents the output of a retrieval operation.
type RetrieveOutput struct {
	Query    string             `json:"query"`
	Passages []RetrievedPassage `json:"passages"`

	// Context is the delimiter-joined context string ready for prompt injection.
	Context string `json:"context"`
	Count   int    `json:"count"`
}

// Retrieve runs the diversity-aware retrieval for a query and packages the
// result for transport, including the formatted context string.
func Retrieve(
	ctx context.Context,
	input RetrieveInput,
	r *retriever.Retriever,
	logger *zap.Logger,
) (*RetrieveOutput, error) {
	candidates, err := r.Fetch(ctx, input.Query, input.TopK, input.ScoreFloor)
	if err != nil {
		return nil, err
	}

	passages := make([]RetrievedPassage, 0, len(candidates))
	for _, c := range candidates {
		passages = append(passages, RetrievedPassage{
			ID:         c.ID,
			Source:     c.Source,
			Page:       c.Page,
			Text:       c.Text,
			Similarity: c.Similarity,
		})
	}

	output := &RetrieveOutput{
		Query:    input.Query,
		Passages: passages,
		Context:  retriever.FormatContext(candidates),
		Count:    len(passages),
	}

	logger.Debug("retrieval request served",
		zap.String("query", input.Query),
		zap.Int("count", output.Count),
	)

	return output, nil
}
