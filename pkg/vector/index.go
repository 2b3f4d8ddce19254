// Package vector provides the canonical passage types and the vector index
// interface implemented by the sqlitevec, qdrant, and pgvector adapters.
package vector

import "context"

// UnknownSource is the source name adapters fall back to when a stored
// passage carries no usable origin metadata.
const UnknownSource = "Unknown Source"

// Passage is an immutable unit of retrievable text.
type Passage struct {
	// ID is an opaque unique identifier for the passage.
	ID string

	// Source is the human-readable origin of the passage (file name or URL).
	// Adapters normalize missing values to UnknownSource, so it is never empty.
	Source string

	// Text is the passage's literal content.
	Text string

	// Page is the page number within the source, when the source is paginated.
	Page *int
}

// Candidate is a passage scored against a query at search time.
type Candidate struct {
	Passage

	// Similarity is the cosine similarity against the query embedding
	// (higher = more relevant). Computed per query, never stored.
	Similarity float32
}

// Document is a passage paired with its embedding for indexing.
type Document struct {
	Passage

	// Embedding is the vector representation of the passage text.
	Embedding []float32
}

// Index handles storage and similarity search of embedded passages.
type Index interface {
	// Add stores documents with their embeddings. Implementers update
	// documents whose ID already exists.
	Add(ctx context.Context, docs []Document) error

	// Search returns up to limit candidates ranked by similarity descending,
	// excluding candidates whose similarity falls below scoreFloor.
	// An empty result is a normal outcome, not an error.
	Search(ctx context.Context, embedding []float32, limit int, scoreFloor float32) ([]Candidate, error)

	// Delete removes passages by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the index.
	Close() error
}
