package loader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/54b3r/plugmind-go/internal/rag"
)

// LoadXML returns one document per element whose leading text is not
// blank, in document order. Product feeds and sitemaps are usually shaped
// this way: each leaf holds one fact.
func LoadXML(path string) ([]rag.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open xml %s: %w", path, err)
	}
	defer f.Close()

	docs, err := parseXML(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("loader: parse xml %s: %w", path, err)
	}
	return docs, nil
}

// parseXML streams tokens from r. Only the character data directly after
// an element's start tag counts as that element's text.
func parseXML(r io.Reader, source string) ([]rag.Document, error) {
	dec := xml.NewDecoder(r)
	var docs []rag.Document
	var leading *strings.Builder

	flush := func() {
		if leading == nil {
			return
		}
		if text := strings.TrimSpace(leading.String()); text != "" {
			docs = append(docs, rag.Document{
				Content:  text,
				Metadata: map[string]string{"source": source},
			})
		}
		leading = nil
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			leading = &strings.Builder{}
		case xml.CharData:
			if leading != nil {
				leading.Write(t)
			}
		case xml.EndElement:
			flush()
		}
	}
	flush()
	return docs, nil
}
