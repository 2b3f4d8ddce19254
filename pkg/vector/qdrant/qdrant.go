// Package qdrant provides a Qdrant-backed vector index using the official
// gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing passages.
	DefaultCollectionName = "passages"

	payloadSource  = "source"
	payloadContent = "content"
	payloadPage    = "page"
)

// QdrantIndex implements vector.Index against a Qdrant server.
//
// Passage IDs must be UUIDs: Qdrant only accepts UUID or integer point IDs,
// and the ingest pipeline assigns UUIDs.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant index.
type Config struct {
	// Target is the Qdrant gRPC address as "host:port".
	Target string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Used when the collection has to be created.
	Dimensions uint
}

// NewQdrantIndex connects to a Qdrant server and ensures the collection exists.
func NewQdrantIndex(c Config, logger *zap.Logger) (*QdrantIndex, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("%w: qdrant target is required", vector.ErrIndex)
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: qdrant embedding dimensions cannot be 0, must be configured", vector.ErrIndex)
	}

	host, portStr, err := net.SplitHostPort(c.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing qdrant target %q: %v", vector.ErrIndex, c.Target, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing qdrant port %q: %v", vector.ErrIndex, portStr, err)
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrIndex, err)
	}

	x := &QdrantIndex{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	if err := x.ensureCollection(context.Background(), uint64(c.Dimensions)); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to qdrant",
		zap.String("target", c.Target),
		zap.String("collection", collection),
	)

	return x, nil
}

// ensureCollection creates the collection with cosine distance if it does not exist.
func (x *QdrantIndex) ensureCollection(ctx context.Context, dimensions uint64) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrIndex, x.collection, err)
	}

	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrIndex, x.collection, err)
	}

	return nil
}

// Add upserts documents as points keyed by their passage UUID.
func (x *QdrantIndex) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = vector.UnknownSource
		}

		payload := map[string]any{
			payloadSource:  source,
			payloadContent: doc.Text,
		}
		if doc.Page != nil {
			payload[payloadPage] = *doc.Page
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("added passages to qdrant",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Search queries the collection for the closest points, letting the server
// apply the similarity threshold.
func (x *QdrantIndex) Search(ctx context.Context, embedding []float32, limit int, scoreFloor float32) ([]vector.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	query := &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreFloor > 0 {
		query.ScoreThreshold = qdrant.PtrOf(scoreFloor)
	}

	points, err := x.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", vector.ErrIndex, err)
	}

	candidates := make([]vector.Candidate, 0, len(points))
	for _, point := range points {
		candidates = append(candidates, x.toCandidate(point))
	}

	x.logger.Debug("searched qdrant",
		zap.Int("candidates", len(candidates)),
	)

	return candidates, nil
}

// toCandidate converts a scored point back into a candidate passage.
func (x *QdrantIndex) toCandidate(point *qdrant.ScoredPoint) vector.Candidate {
	candidate := vector.Candidate{
		Passage: vector.Passage{
			ID:     point.GetId().GetUuid(),
			Source: vector.UnknownSource,
		},
		Similarity: point.GetScore(),
	}

	payload := point.GetPayload()
	if payload == nil {
		return candidate
	}

	if source := payload[payloadSource].GetStringValue(); source != "" {
		candidate.Source = source
	}
	candidate.Text = payload[payloadContent].GetStringValue()

	if pageValue, ok := payload[payloadPage]; ok {
		if _, isInt := pageValue.GetKind().(*qdrant.Value_IntegerValue); isInt {
			page := int(pageValue.GetIntegerValue())
			candidate.Page = &page
		}
	}

	return candidate
}

// Delete removes points by their passage UUIDs.
func (x *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %v", vector.ErrIndex, err)
	}

	x.logger.Debug("deleted passages from qdrant",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Close closes the underlying gRPC connection.
func (x *QdrantIndex) Close() error {
	return x.client.Close()
}
