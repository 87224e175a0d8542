package rag

import (
	"context"
	"fmt"
)

// DefaultRetriever implements Retriever by combining an Embedder and a
// Reader. It embeds the query at retrieval time and re-applies the score
// floor to whatever the reader returns.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// reader performs the vector similarity search.
	reader Reader
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and Reader.
func NewRetriever(embedder Embedder, reader Reader) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("rag: reader must not be nil")
	}
	return &DefaultRetriever{embedder: embedder, reader: reader}, nil
}

// CollectionExists delegates to the reader.
func (r *DefaultRetriever) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return r.reader.CollectionExists(ctx, collection)
}

// Retrieve embeds the query and returns up to k passages scoring at or above
// floor, in the order the reader returned them.
func (r *DefaultRetriever) Retrieve(ctx context.Context, collection, query string, k int, floor float32) ([]Passage, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	passages, err := r.reader.SimilaritySearch(ctx, collection, embeddings[0], k, floor)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	kept := make([]Passage, 0, len(passages))
	for _, p := range passages {
		if p.Score < floor {
			continue
		}
		kept = append(kept, p)
		if k > 0 && len(kept) == k {
			break
		}
	}
	return kept, nil
}
