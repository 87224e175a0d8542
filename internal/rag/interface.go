// Package rag defines the retrieval gateway the answer pipelines read from
// and the ingestion pipeline writes to, plus its Qdrant implementation.
// Each chatbot owns one collection; the gateway is shared across tenants and
// every call names the collection it targets.
package rag

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when a call targets a collection that
// does not exist.
var ErrCollectionNotFound = errors.New("rag: collection not found")

// Passage is one retrieved chunk. Search results are ordered by descending
// Score.
type Passage struct {
	// Content is the chunk text.
	Content string
	// Score is the similarity to the query vector (cosine, 0.0–1.0).
	Score float32
	// Metadata is the origin information stored with the chunk
	// (source file, URL, page).
	Metadata map[string]string
}

// Document is one chunk submitted for storage.
type Document struct {
	// ID optionally fixes the point ID. When empty an ID is derived from the
	// collection and content so re-ingesting identical text overwrites.
	ID string
	// Content is the chunk text that is embedded and returned on retrieval.
	Content string
	// Metadata is stored alongside the vector.
	Metadata map[string]string
}

// Reader is the read side of the retrieval gateway.
// Implementations must be safe to call from multiple goroutines.
type Reader interface {
	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// SimilaritySearch returns at most k passages whose score is at or above
	// floor, ordered by descending score.
	SimilaritySearch(ctx context.Context, collection string, vector []float32, k int, floor float32) ([]Passage, error)
}

// Writer is the write side of the retrieval gateway. A call is not
// idempotent unless the documents carry stable IDs.
type Writer interface {
	// AddDocuments embeds and stores a batch of documents.
	AddDocuments(ctx context.Context, collection string, docs []Document) error
}

// Admin manages collection lifecycle.
type Admin interface {
	// EnsureCollection creates the collection if it is missing.
	EnsureCollection(ctx context.Context, collection string) error
	// RecreateCollection drops the collection if present and creates it empty.
	RecreateCollection(ctx context.Context, collection string) error
	// DeleteCollection drops the collection. Missing collections are not an error.
	DeleteCollection(ctx context.Context, collection string) error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be deterministic for identical input, return vectors
// of a fixed size, and be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level read path used by the chatbot pipeline: it
// embeds the question text and runs the similarity search.
type Retriever interface {
	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)
	// Retrieve returns at most k passages scoring at or above floor.
	Retrieve(ctx context.Context, collection, query string, k int, floor float32) ([]Passage, error)
}
