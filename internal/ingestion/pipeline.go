// Package ingestion writes a chatbot's documents into its vector collection
// in small batches. Ingestion is best-effort: a failed batch is logged and
// recorded in the Report, and the remaining batches still run.
// This pipeline backs the `plugmind ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/rag"
)

// DefaultBatchSize is the number of documents sent per write.
const DefaultBatchSize = 5

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// BatchSize is the number of documents per write. Defaults to 5.
	BatchSize int

	// BatchTimeout bounds each write independently. Defaults to 60s.
	BatchTimeout time.Duration
}

// Store is the part of the retrieval gateway ingestion needs.
type Store interface {
	rag.Writer
	rag.Admin
}

// pipelineMetrics holds the Prometheus collectors owned by a Pipeline.
type pipelineMetrics struct {
	// batches counts submitted batches partitioned by result: "ok" or "error".
	batches *prometheus.CounterVec
	// documents counts documents written successfully.
	documents prometheus.Counter
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	factory := promauto.With(reg)
	return &pipelineMetrics{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "ingestion",
			Name:      "batches_total",
			Help:      "Total number of ingestion batches submitted, partitioned by result.",
		}, []string{"result"}),
		documents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "ingestion",
			Name:      "documents_total",
			Help:      "Total number of documents written to vector collections.",
		}),
	}
}

// Pipeline partitions documents into batches and writes them in order.
type Pipeline struct {
	// store is the vector collection gateway.
	store Store

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// metrics is never nil; it may be backed by no registry.
	metrics *pipelineMetrics
}

// NewPipeline constructs a Pipeline. reg may be nil to skip metric
// registration.
func NewPipeline(store Store, cfg *Config, reg prometheus.Registerer) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 60 * time.Second
	}
	return &Pipeline{store: store, cfg: cfg, metrics: newPipelineMetrics(reg)}, nil
}

// Ingest adds docs to collection, creating the collection if needed.
// Progress is reported via the optional progress callback.
//
// The returned error covers collection setup and cancellation only. Batch
// failures are reported in the Report.
func (p *Pipeline) Ingest(ctx context.Context, collection string, docs []rag.Document, progress func(msg string)) (*Report, error) {
	if err := p.store.EnsureCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("ingestion: prepare collection %q: %w", collection, err)
	}
	return p.write(ctx, collection, docs, progress)
}

// Replace drops collection, recreates it empty and writes docs. Used when a
// bot's sources change.
func (p *Pipeline) Replace(ctx context.Context, collection string, docs []rag.Document, progress func(msg string)) (*Report, error) {
	if err := p.store.RecreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("ingestion: recreate collection %q: %w", collection, err)
	}
	return p.write(ctx, collection, docs, progress)
}

func (p *Pipeline) write(ctx context.Context, collection string, docs []rag.Document, progress func(msg string)) (*Report, error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := logging.FromContext(ctx).With("collection", collection)

	batches := Partition(docs, p.cfg.BatchSize)
	report := &Report{Collection: collection, Documents: len(docs)}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingestion: cancelled after %d of %d batches: %w", i, len(batches), err)
		}

		progress(fmt.Sprintf("batch %d/%d (%d documents)", i+1, len(batches), len(batch)))
		err := p.writeBatch(ctx, collection, batch)
		report.Batches = append(report.Batches, BatchResult{Index: i, Size: len(batch), Err: err})

		if err != nil {
			p.metrics.batches.WithLabelValues("error").Inc()
			log.Warn("ingestion: batch failed, continuing", "batch", i+1, "of", len(batches), "error", err)
			progress(fmt.Sprintf("batch %d failed: %v", i+1, err))
			continue
		}
		p.metrics.batches.WithLabelValues("ok").Inc()
		p.metrics.documents.Add(float64(len(batch)))
	}

	log.Info("ingestion: finished", "documents", len(docs), "batches", len(batches), "failed", report.Failed())
	return report, nil
}

func (p *Pipeline) writeBatch(ctx context.Context, collection string, batch []rag.Document) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()
	return p.store.AddDocuments(ctx, collection, batch)
}

// Partition splits docs into consecutive batches of at most size elements,
// preserving order. The batches share docs' backing array.
func Partition(docs []rag.Document, size int) [][]rag.Document {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]rag.Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end:end])
	}
	return out
}
