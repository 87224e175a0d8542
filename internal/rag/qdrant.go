package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// contentKey is the payload field holding the chunk text.
const contentKey = "page_content"

// pointNamespace seeds deterministic point IDs.
var pointNamespace = uuid.MustParse("8f6f1c1e-6a0e-4c55-9d0b-3f2b8c1d9e47")

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of the embeddings stored in every
	// collection this store creates.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Reader, Writer and Admin over one Qdrant instance.
// It serves every tenant; the collection is named per call.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// embedder embeds documents on the write path.
	embedder Embedder

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant. embedder is used by AddDocuments and may
// be nil for read-only use.
func NewQdrantStore(cfg *QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 384
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, embedder: embedder, cfg: cfg}, nil
}

// CollectionExists reports whether the collection has been created.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("qdrant: check collection %q: %w", collection, err)
	}
	return exists, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx, collection)
}

// RecreateCollection drops the collection if present and creates it empty.
// Used when a bot's documents are replaced wholesale.
func (s *QdrantStore) RecreateCollection(ctx context.Context, collection string) error {
	if err := s.DeleteCollection(ctx, collection); err != nil {
		return err
	}
	return s.createCollection(ctx, collection)
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("qdrant: delete collection %q: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) createCollection(ctx context.Context, collection string) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", collection, err)
	}
	return nil
}

// AddDocuments embeds docs and upserts them, waiting for the write to be
// applied before returning.
func (s *QdrantStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if s.embedder == nil {
		return fmt.Errorf("qdrant: store opened without an embedder")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("qdrant: embed batch: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("qdrant: embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]any{contentKey: doc.Content}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(collection, doc)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %q failed: %w", collection, mapNotFound(err))
	}
	return nil
}

// SimilaritySearch runs a cosine query limited to k results at or above floor.
func (s *QdrantStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, k int, floor float32) ([]Passage, error) {
	limit := uint64(k) //nolint:gosec // k is a small positive constant
	threshold := floor
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %q failed: %w", collection, mapNotFound(err))
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		p := Passage{Score: r.Score, Metadata: make(map[string]string)}
		for key, v := range r.Payload {
			if key == contentKey {
				p.Content = v.GetStringValue()
				continue
			}
			p.Metadata[key] = v.GetStringValue()
		}
		passages = append(passages, p)
	}
	return passages, nil
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointID returns doc.ID when set, otherwise a UUIDv5 over the collection,
// the source metadata and the content.
func pointID(collection string, doc Document) string {
	if doc.ID != "" {
		if _, err := uuid.Parse(doc.ID); err == nil {
			return doc.ID
		}
		return uuid.NewSHA1(pointNamespace, []byte(collection+"\x00"+doc.ID)).String()
	}
	name := collection + "\x00" + doc.Metadata["source"] + "\x00" + strconv.Itoa(len(doc.Content)) + "\x00" + doc.Content
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// mapNotFound converts a gRPC NotFound status into ErrCollectionNotFound.
func mapNotFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return errors.Join(ErrCollectionNotFound, err)
	}
	return err
}
