package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dslipak/pdf"

	"github.com/54b3r/plugmind-go/internal/rag"
)

// LoadPDF extracts the text of the PDF at path and splits it with c. Each
// chunk records the file's base name as its source.
func LoadPDF(path string, c Chunker) ([]rag.Document, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open pdf %s: %w", path, err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("loader: read pdf text %s: %w", path, err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("loader: read pdf text %s: %w", path, err)
	}

	return chunkDocuments(string(text), filepath.Base(path), c), nil
}

func chunkDocuments(text, source string, c Chunker) []rag.Document {
	chunks := c.Split(text)
	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, rag.Document{
			Content: chunk,
			Metadata: map[string]string{
				"source":      source,
				"chunk_index": strconv.Itoa(i),
			},
		})
	}
	return docs
}
