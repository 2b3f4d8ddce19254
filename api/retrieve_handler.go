package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	apiretrieve "github.com/bookbinderco/stacks/api/retrieve"
	"github.com/bookbinderco/stacks/pkg/retriever"
)

// handleRetrieveEndpoint handles GET /v1/retrieve requests.
// Query parameters:
//   - query (required): the query text
//   - top_k (optional, default 5): number of passages to return
//   - score_floor (optional, default 0): minimum similarity for a passage
func (s *Server) handleRetrieveEndpoint(c *fiber.Ctx) error {
	// Verify retrieval is configured
	if s.config.Retriever == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "retrieval is not configured: embedder and vector index are required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	var scoreFloor float32
	if floorStr := c.Query("score_floor"); floorStr != "" {
		parsed, err := strconv.ParseFloat(floorStr, 32)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "score_floor must be a non-negative number",
			})
		}
		scoreFloor = float32(parsed)
	}

	output, err := apiretrieve.Retrieve(
		c.Context(),
		apiretrieve.RetrieveInput{
			Query:      query,
			TopK:       topK,
			ScoreFloor: scoreFloor,
		},
		s.config.Retriever,
		s.logger,
	)
	if err != nil {
		if errors.Is(err, retriever.ErrInvalidQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}
