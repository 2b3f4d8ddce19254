// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/vector"
)

// SQLiteVecIndex implements vector.Index using SQLite with sqlite-vec.
type SQLiteVecIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecIndex creates a new SQLite vector index backed by sqlite-vec.
func NewSQLiteVecIndex(c Config, logger *zap.Logger) (*SQLiteVecIndex, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", vector.ErrIndex)
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: sqlite-vec embedding dimensions cannot be 0, must be configured", vector.ErrIndex)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrIndex, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrIndex, err)
	}

	// Create the passage mapping table.
	// vec0 virtual tables use integer rowids, so we need a mapping from
	// string passage IDs to integer rowids. Passage metadata lives here too.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			passage_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			page INTEGER
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating passages table: %v", vector.ErrIndex, err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %v", vector.ErrIndex, err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &SQLiteVecIndex{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores documents with their embeddings.
// If a document with the same ID already exists, it is updated.
func (x *SQLiteVecIndex) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrIndex, err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		embBlob := serializeFloat32(doc.Embedding)

		source := doc.Source
		if source == "" {
			source = vector.UnknownSource
		}

		var page any
		if doc.Page != nil {
			page = *doc.Page
		}

		// Check if the passage already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_passages WHERE passage_id = ?`, doc.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_passages SET source = ?, content = ?, page = ? WHERE rowid = ?`,
				source, doc.Text, page, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: updating passage %s: %v", vector.ErrIndex, doc.ID, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for passage %s: %v", vector.ErrIndex, doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: re-inserting embedding for passage %s: %v", vector.ErrIndex, doc.ID, err)
			}
		case sql.ErrNoRows:
			// New passage — insert into mapping table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_passages(passage_id, source, content, page) VALUES (?, ?, ?, ?)`,
				doc.ID, source, doc.Text, page,
			)
			if err != nil {
				return fmt.Errorf("%w: inserting passage %s: %v", vector.ErrIndex, doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for passage %s: %v", vector.ErrIndex, doc.ID, err)
			}

			// Insert embedding into vec0 table with matching rowid
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: inserting embedding for passage %s: %v", vector.ErrIndex, doc.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing passage %s: %v", vector.ErrIndex, doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("added passages to sqlite-vec",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Search finds up to limit candidates similar to the given embedding,
// excluding any whose similarity falls below scoreFloor.
func (x *SQLiteVecIndex) Search(ctx context.Context, embedding []float32, limit int, scoreFloor float32) ([]vector.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	queryBlob := serializeFloat32(embedding)

	// Use KNN query via vec0 MATCH, then JOIN back to get the passage metadata.
	rows, err := x.db.QueryContext(ctx, `
		SELECT
			p.passage_id,
			p.source,
			p.content,
			p.page,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_passages p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrIndex, err)
	}
	defer rows.Close()

	var candidates []vector.Candidate
	for rows.Next() {
		var passageID, source, content string
		var page sql.NullInt64
		var distance float64
		if err := rows.Scan(&passageID, &source, &content, &page, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning search result: %v", vector.ErrIndex, err)
		}

		// Convert distance to similarity: lower distance = higher similarity
		similarity := float32(1.0 / (1.0 + distance))
		if similarity < scoreFloor {
			continue
		}

		if source == "" {
			source = vector.UnknownSource
		}

		candidate := vector.Candidate{
			Passage: vector.Passage{
				ID:     passageID,
				Source: source,
				Text:   content,
			},
			Similarity: similarity,
		}
		if page.Valid {
			p := int(page.Int64)
			candidate.Page = &p
		}

		candidates = append(candidates, candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating search results: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("searched sqlite-vec",
		zap.Int("candidates", len(candidates)),
	)

	return candidates, nil
}

// Delete removes passages by their IDs.
func (x *SQLiteVecIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrIndex, err)
	}
	defer tx.Rollback()

	// Build placeholders for IN clause
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	// First, get the rowids for the passages to delete from vec0
	query := fmt.Sprintf(
		`SELECT rowid FROM vec_passages WHERE passage_id IN (%s)`, inClause,
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: querying rowids for deletion: %v", vector.ErrIndex, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scanning rowid: %v", vector.ErrIndex, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterating rowids: %v", vector.ErrIndex, err)
	}

	// Delete embeddings from vec0 table
	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("%w: deleting embedding rowid %d: %v", vector.ErrIndex, rowID, err)
		}
	}

	// Delete from mapping table
	deleteQuery := fmt.Sprintf(
		`DELETE FROM vec_passages WHERE passage_id IN (%s)`, inClause,
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("%w: deleting passages: %v", vector.ErrIndex, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("deleted passages from sqlite-vec",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Close releases resources held by the index.
func (x *SQLiteVecIndex) Close() error {
	return x.db.Close()
}
