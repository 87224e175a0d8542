package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeReader struct {
	passages []Passage
	err      error
	gotK     int
	gotFloor float32
}

func (f *fakeReader) CollectionExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeReader) SimilaritySearch(_ context.Context, _ string, _ []float32, k int, floor float32) ([]Passage, error) {
	f.gotK, f.gotFloor = k, floor
	return f.passages, f.err
}

func TestDefaultRetriever_AppliesFloorInOrder(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{passages: []Passage{
		{Content: "first", Score: 0.9},
		{Content: "low", Score: 0.4},
		{Content: "second", Score: 0.6},
	}}
	r, err := NewRetriever(&fakeEmbedder{}, reader)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "chatbot_42", "question", 3, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("unexpected passages: %+v", got)
	}
	if reader.gotK != 3 || reader.gotFloor != 0.5 {
		t.Errorf("reader called with k=%d floor=%v", reader.gotK, reader.gotFloor)
	}
}

func TestDefaultRetriever_ScoreAtFloorKept(t *testing.T) {
	t.Parallel()

	r, _ := NewRetriever(&fakeEmbedder{}, &fakeReader{passages: []Passage{{Content: "edge", Score: 0.5}}})
	got, err := r.Retrieve(context.Background(), "c", "q", 3, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("passage at the floor should be kept, got %+v", got)
	}
}

func TestDefaultRetriever_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name   string
		emb    *fakeEmbedder
		reader *fakeReader
	}{
		{"embed error", &fakeEmbedder{err: boom}, &fakeReader{}},
		{"search error", &fakeEmbedder{}, &fakeReader{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, _ := NewRetriever(tt.emb, tt.reader)
			if _, err := r.Retrieve(context.Background(), "c", "q", 3, 0.5); !errors.Is(err, boom) {
				t.Errorf("expected wrapped boom, got %v", err)
			}
		})
	}
}

func TestNewRetriever_NilDeps(t *testing.T) {
	t.Parallel()
	if _, err := NewRetriever(nil, &fakeReader{}); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil); err == nil {
		t.Error("expected error for nil reader")
	}
}

func TestPointID(t *testing.T) {
	t.Parallel()

	doc := Document{Content: "Breakfast is served from 7am.", Metadata: map[string]string{"source": "faq.pdf"}}
	a := pointID("chatbot_1", doc)
	if a != pointID("chatbot_1", doc) {
		t.Error("point ID is not deterministic")
	}
	if a == pointID("chatbot_2", doc) {
		t.Error("point ID should differ across collections")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("point ID is not a UUID: %v", err)
	}

	fixed := uuid.NewString()
	if got := pointID("chatbot_1", Document{ID: fixed}); got != fixed {
		t.Errorf("explicit UUID not preserved: got %s", got)
	}
	if _, err := uuid.Parse(pointID("chatbot_1", Document{ID: "faq.pdf#3"})); err != nil {
		t.Errorf("non-UUID ID not converted: %v", err)
	}
}

func TestMapNotFound(t *testing.T) {
	t.Parallel()

	nf := status.Error(codes.NotFound, "Collection `chatbot_9` doesn't exist!")
	if err := mapNotFound(nf); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("NotFound not mapped: %v", err)
	}
	other := status.Error(codes.Unavailable, "down")
	if err := mapNotFound(other); errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Unavailable should not map to not found")
	}
}
