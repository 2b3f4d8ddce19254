package vector

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex is returned when a vector index operation fails.
	ErrIndex = errors.New("vector index failed")
)
