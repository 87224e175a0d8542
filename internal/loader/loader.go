// Package loader turns bot knowledge sources (PDF files, XML files and
// websites) into documents ready for batched ingestion.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/54b3r/plugmind-go/internal/rag"
)

// MaxFileSize is the largest file Load will read.
const MaxFileSize = 50 * 1024 * 1024

// Load reads source and returns its documents. http(s) URLs are crawled;
// files are dispatched on their extension (.pdf, .xml).
func Load(ctx context.Context, source string) ([]rag.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewCrawler(CrawlConfig{}).Crawl(ctx, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("loader: %s exceeds the %d MB limit", source, MaxFileSize>>20)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".pdf":
		return LoadPDF(source, Chunker{})
	case ".xml":
		return LoadXML(source)
	}
	return nil, fmt.Errorf("loader: unsupported source %q", source)
}

// LoadAll loads every source in order and concatenates the documents. The
// first failing source aborts the load.
func LoadAll(ctx context.Context, sources []string) ([]rag.Document, error) {
	var docs []rag.Document
	for _, src := range sources {
		d, err := Load(ctx, src)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	return docs, nil
}
