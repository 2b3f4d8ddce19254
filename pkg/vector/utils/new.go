package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/vector"
	"github.com/bookbinderco/stacks/pkg/vector/pgvector"
	"github.com/bookbinderco/stacks/pkg/vector/qdrant"
	"github.com/bookbinderco/stacks/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	// ProviderType selects the adapter: "sqlitevec", "qdrant", or "pgvector".
	ProviderType string

	// Target is provider-specific: a file path for sqlitevec, a host:port
	// for qdrant, a connection string for pgvector.
	Target string

	// Collection is the collection or table name holding the passages.
	Collection string

	// Dimensions is the embedding vector width.
	Dimensions uint

	Logger *zap.Logger
}

// NewIndex constructs the vector index adapter selected by ProviderType.
func NewIndex(ctx context.Context, o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewQdrantIndex(qdrant.Config{
			Target:         o.Target,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewPgvectorIndex(ctx, pgvector.Config{
			DSN:        o.Target,
			TableName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
