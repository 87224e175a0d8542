package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_Split(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "blank", text: "  \n ", size: 10, overlap: 2, want: nil},
		{name: "short", text: "hello world", size: 100, overlap: 10, want: []string{"hello world"}},
		{
			name:    "breaks on whitespace with overlap",
			text:    "alpha beta gamma delta",
			size:    12,
			overlap: 5,
			want:    []string{"alpha beta", "beta gamma", "gamma delta"},
		},
		{
			name:    "no whitespace cuts hard",
			text:    "abcdefghij",
			size:    4,
			overlap: 1,
			want:    []string{"abcd", "defg", "ghij"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Chunker{Size: tt.size, Overlap: tt.overlap}.Split(tt.text)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunker_DefaultsKeepRunesIntact(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("مرحبا بكم في فندقنا ", 200)
	chunks := Chunker{}.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > DefaultChunkSize {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
}

func TestParseXML(t *testing.T) {
	t.Parallel()

	const feed = `<?xml version="1.0"?>
<catalog>
  <hotel>
    <name>Riad Atlas</name>
    <city>Marrakech</city>
    <description>  Breakfast served on the roof terrace.  </description>
    <empty>   </empty>
  </hotel>
</catalog>`

	docs, err := parseXML(strings.NewReader(feed), "feed.xml")
	if err != nil {
		t.Fatalf("parseXML: %v", err)
	}
	var got []string
	for _, d := range docs {
		got = append(got, d.Content)
		if d.Metadata["source"] != "feed.xml" {
			t.Errorf("source = %q", d.Metadata["source"])
		}
	}
	want := "Riad Atlas|Marrakech|Breakfast served on the roof terrace."
	if strings.Join(got, "|") != want {
		t.Errorf("contents = %q, want %q", got, want)
	}
}

func TestParseXML_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := parseXML(strings.NewReader("<a><b>text</a>"), "bad.xml"); err == nil {
		t.Error("expected error for malformed xml")
	}
}

func TestLoad_Dispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "faq.XML")
	if err := os.WriteFile(xmlPath, []byte("<faq><q>Is parking free?</q></faq>"), 0o600); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	badPDF := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(badPDF, []byte("not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	docs, err := Load(context.Background(), xmlPath)
	if err != nil || len(docs) != 1 || docs[0].Content != "Is parking free?" {
		t.Errorf("xml load: docs=%v err=%v", docs, err)
	}
	if _, err := Load(context.Background(), txtPath); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := Load(context.Background(), filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(context.Background(), badPDF); err == nil {
		t.Error("expected error for an invalid pdf")
	}
}

func TestChunkDocuments_Metadata(t *testing.T) {
	t.Parallel()

	docs := chunkDocuments("one two three four", "guide.pdf", Chunker{Size: 9, Overlap: 0})
	if len(docs) < 2 {
		t.Fatalf("docs = %v", docs)
	}
	for i, d := range docs {
		if d.Metadata["source"] != "guide.pdf" || d.Metadata["chunk_index"] != fmt.Sprint(i) {
			t.Errorf("doc %d metadata = %v", i, d.Metadata)
		}
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Acme</title><script>var x = 1;</script></head>
<body><h1>Welcome to Acme</h1>
<a href="/rooms">Rooms</a> <a href="/rooms#top">Rooms again</a>
<a href="https://elsewhere.example.org/">Partner</a> <a href="/missing">Broken</a>
<a href="mailto:hello@acme.test">Mail</a></body></html>`)
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body><p>%s</p><a href="/">Home</a></body></html>`, strings.Repeat("Suite ", 400))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawler_StaysOnSite(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	docs, err := NewCrawler(CrawlConfig{}).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("want 2 pages, got %d: %+v", len(docs), docs)
	}

	home := docs[0]
	if home.Metadata["source"] != "web" || home.Metadata["url"] != srv.URL+"/" {
		t.Errorf("home metadata = %v", home.Metadata)
	}
	if !strings.Contains(home.Content, "Welcome to Acme") || strings.Contains(home.Content, "var x") {
		t.Errorf("home text = %q", home.Content)
	}
	if docs[1].Metadata["url"] != srv.URL+"/rooms" {
		t.Errorf("second page = %v", docs[1].Metadata)
	}
	if n := utf8.RuneCountInString(docs[1].Content); n != DefaultPageChars {
		t.Errorf("rooms text has %d runes, want %d", n, DefaultPageChars)
	}
}

func TestCrawler_PageLimit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		for i := range 5 {
			fmt.Fprintf(&sb, `<a href="%s/%d">next</a>`, strings.TrimSuffix(r.URL.Path, "/"), i)
		}
		fmt.Fprintf(w, "<html><body>page %s %s</body></html>", r.URL.Path, sb.String())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	docs, err := NewCrawler(CrawlConfig{MaxPages: 4}).Crawl(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(docs) != 4 {
		t.Errorf("want 4 pages, got %d", len(docs))
	}
}

func TestCrawler_InvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewCrawler(CrawlConfig{}).Crawl(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for a url without host")
	}
}
