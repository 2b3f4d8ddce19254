package testutils

import (
	"context"
	"fmt"

	"github.com/bookbinderco/stacks/pkg/vector"
)

// MockIndex is a test vector index with configurable search results.
type MockIndex struct {
	// Candidates is returned by Search (capped at the requested limit).
	// The mock does not apply the score floor itself so tests can exercise
	// the retriever's own floor filtering.
	Candidates []vector.Candidate

	// Documents accumulates everything passed to Add.
	Documents []vector.Document

	// Deleted accumulates IDs passed to Delete.
	Deleted []string

	// FailSearch causes Search to return an error.
	FailSearch bool

	// LastLimit and LastFloor record the arguments of the latest Search call.
	LastLimit int
	LastFloor float32
}

func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

func (m *MockIndex) Add(_ context.Context, docs []vector.Document) error {
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockIndex) Search(_ context.Context, _ []float32, limit int, scoreFloor float32) ([]vector.Candidate, error) {
	m.LastLimit = limit
	m.LastFloor = scoreFloor

	if m.FailSearch {
		return nil, fmt.Errorf("%w: mock search failure", vector.ErrIndex)
	}

	if len(m.Candidates) > limit {
		return m.Candidates[:limit], nil
	}
	return m.Candidates, nil
}

func (m *MockIndex) Delete(_ context.Context, ids []string) error {
	m.Deleted = append(m.Deleted, ids...)
	return nil
}

func (m *MockIndex) Close() error {
	return nil
}
