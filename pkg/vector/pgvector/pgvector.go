// Package pgvector provides a Postgres-backed vector index using the
// pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/vector"
)

// DefaultTableName is the default table name for storing passages.
const DefaultTableName = "passages"

// tableNamePattern restricts table names to plain identifiers since the
// table name is interpolated into DDL and queries.
var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PgvectorIndex implements vector.Index against Postgres with pgvector.
type PgvectorIndex struct {
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

// Config holds configuration for the pgvector index.
type Config struct {
	// DSN is the Postgres connection string.
	DSN string

	// TableName is the table holding the passages.
	// Defaults to DefaultTableName if empty.
	TableName string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewPgvectorIndex connects to Postgres, enables the vector extension, and
// ensures the passages table exists.
func NewPgvectorIndex(ctx context.Context, c Config, logger *zap.Logger) (*PgvectorIndex, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", vector.ErrIndex)
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: pgvector embedding dimensions cannot be 0, must be configured", vector.ErrIndex)
	}

	table := c.TableName
	if table == "" {
		table = DefaultTableName
	}

	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", vector.ErrIndex, table)
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %v", vector.ErrIndex, err)
	}

	x := &PgvectorIndex{
		pool:   pool,
		table:  table,
		logger: logger,
	}

	if err := x.ensureTable(ctx, c.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres with pgvector",
		zap.String("table", table),
		zap.Uint("dimensions", c.Dimensions),
	)

	return x, nil
}

// ensureTable enables the vector extension and creates the passages table.
func (x *PgvectorIndex) ensureTable(ctx context.Context, dimensions uint) error {
	if _, err := x.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: enabling vector extension: %v", vector.ErrIndex, err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			page INTEGER,
			embedding vector(%d) NOT NULL
		)
	`, x.table, dimensions)
	if _, err := x.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating table %s: %v", vector.ErrIndex, x.table, err)
	}

	return nil
}

// Add upserts documents keyed by their passage ID.
func (x *PgvectorIndex) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrIndex, err)
	}
	defer tx.Rollback(ctx)

	upsert := fmt.Sprintf(`
		INSERT INTO %s (id, source, content, page, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			content = EXCLUDED.content,
			page = EXCLUDED.page,
			embedding = EXCLUDED.embedding
	`, x.table)

	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = vector.UnknownSource
		}

		_, err := tx.Exec(ctx, upsert,
			doc.ID, source, doc.Text, doc.Page, pgvector.NewVector(doc.Embedding),
		)
		if err != nil {
			return fmt.Errorf("%w: upserting passage %s: %v", vector.ErrIndex, doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("added passages to pgvector",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Search ranks passages by cosine similarity and filters by the score floor
// in the query itself.
func (x *PgvectorIndex) Search(ctx context.Context, embedding []float32, limit int, scoreFloor float32) ([]vector.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT id, source, content, page, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, x.table)

	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(embedding), scoreFloor, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying passages: %v", vector.ErrIndex, err)
	}
	defer rows.Close()

	var candidates []vector.Candidate
	for rows.Next() {
		var candidate vector.Candidate
		var similarity float64
		if err := rows.Scan(
			&candidate.ID, &candidate.Source, &candidate.Text, &candidate.Page, &similarity,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning search result: %v", vector.ErrIndex, err)
		}

		candidate.Similarity = float32(similarity)
		if candidate.Source == "" {
			candidate.Source = vector.UnknownSource
		}

		candidates = append(candidates, candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating search results: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("searched pgvector",
		zap.Int("candidates", len(candidates)),
	)

	return candidates, nil
}

// Delete removes passages by their IDs.
func (x *PgvectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, x.table)
	if _, err := x.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("%w: deleting passages: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("deleted passages from pgvector",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Close closes the connection pool.
func (x *PgvectorIndex) Close() error {
	x.pool.Close()
	return nil
}
