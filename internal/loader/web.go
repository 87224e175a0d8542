package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/rag"
)

// Crawl defaults.
const (
	DefaultMaxPages    = 10
	DefaultPageTimeout = 5 * time.Second
	DefaultPageChars   = 1000
	maxPageBytes       = 5 << 20
)

// CrawlConfig bounds a site crawl. Zero values select the defaults.
type CrawlConfig struct {
	// MaxPages caps the number of pages fetched. Defaults to 10.
	MaxPages int
	// PageTimeout bounds each page fetch. Defaults to 5s.
	PageTimeout time.Duration
	// PageChars is the number of leading text runes kept per page.
	// Defaults to 1000.
	PageChars int
	// UserAgent is sent with every request.
	UserAgent string
}

// Crawler walks a website breadth-first, staying under the starting URL.
type Crawler struct {
	cfg    CrawlConfig
	client *http.Client
}

// NewCrawler returns a Crawler with cfg's defaults applied.
func NewCrawler(cfg CrawlConfig) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	if cfg.PageChars <= 0 {
		cfg.PageChars = DefaultPageChars
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "plugmind-go/1.0 (site indexer)"
	}
	return &Crawler{cfg: cfg, client: &http.Client{Timeout: cfg.PageTimeout}}
}

// Crawl fetches up to MaxPages pages reachable from base and returns one
// document per page holding the start of its visible text. Pages that fail
// to load are skipped.
func (c *Crawler) Crawl(ctx context.Context, base string) ([]rag.Document, error) {
	root, err := url.Parse(base)
	if err != nil || root.Host == "" {
		return nil, fmt.Errorf("loader: invalid site url %q", base)
	}
	log := logging.FromContext(ctx)

	start := canonical(root)
	queue := []string{start}
	seen := map[string]bool{start: true}
	var docs []rag.Document

	for len(queue) > 0 && len(docs) < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		page := queue[0]
		queue = queue[1:]

		text, links, err := c.fetch(ctx, page)
		if err != nil {
			log.Debug("loader: skipping page", "url", page, "error", err)
			continue
		}

		for _, link := range links {
			key := canonical(link)
			if within(root, link) && !seen[key] {
				seen[key] = true
				queue = append(queue, key)
			}
		}

		docs = append(docs, rag.Document{
			Content:  truncateRunes(text, c.cfg.PageChars),
			Metadata: map[string]string{"source": "web", "url": page},
		})
	}
	return docs, nil
}

// fetch downloads page and returns its visible text and absolute links.
func (c *Crawler) fetch(ctx context.Context, page string) (string, []*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", nil, err
	}

	pageURL := resp.Request.URL
	var words []string
	var links []*url.URL
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "a":
				for _, a := range n.Attr {
					if a.Key != "href" {
						continue
					}
					if ref, err := pageURL.Parse(a.Val); err == nil && (ref.Scheme == "http" || ref.Scheme == "https") {
						links = append(links, ref)
					}
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				words = append(words, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return strings.Join(words, " "), links, nil
}

// within reports whether link is on root's host and under root's path.
func within(root, link *url.URL) bool {
	return strings.EqualFold(link.Host, root.Host) && strings.HasPrefix(link.Path, strings.TrimSuffix(root.Path, "/"))
}

// canonical drops the fragment so in-page anchors do not count as pages,
// and spells the site root as "/".
func canonical(u *url.URL) string {
	c := *u
	if c.Path == "" {
		c.Path = "/"
	}
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
