// Package pagemeta fetches a page and reads its title, summary and, for
// YouTube watch pages, the channel name.
package pagemeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"knowledge-weaver/backend/pkg/logger"
)

const maxBody = 2 << 20

// Page is what a fetch could learn about a URL
type Page struct {
	Title       string
	Summary     string
	ChannelName string
}

// Fetcher reads page metadata over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewFetcher creates a fetcher with the given request timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "Mozilla/5.0 (compatible; KnowledgeWeaver/1.0)",
		logger:     logger.Named("pagemeta"),
	}
}

// Fetch downloads rawURL and extracts its metadata
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("failed to fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	page, err := Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Page{}, err
	}
	f.logger.Debug("Fetched page metadata",
		zap.String("url", rawURL),
		zap.String("title", page.Title),
	)
	return page, nil
}

// Parse extracts metadata from an HTML document
func Parse(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse html: %w", err)
	}

	title := first(
		meta(doc, `meta[property="og:title"]`),
		meta(doc, `meta[name="twitter:title"]`),
		doc.Find("title").First().Text(),
	)
	summary := first(
		meta(doc, `meta[name="description"]`),
		meta(doc, `meta[property="og:description"]`),
		meta(doc, `meta[name="twitter:description"]`),
	)
	channel := first(
		attr(doc, `span[itemprop="author"] link[itemprop="name"]`, "content"),
		doc.Find("ytd-channel-name a").First().Text(),
		meta(doc, `meta[name="author"]`),
	)

	return Page{
		Title:       clean(title),
		Summary:     clean(summary),
		ChannelName: clean(channel),
	}, nil
}

func meta(doc *goquery.Document, selector string) string {
	return attr(doc, selector, "content")
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return v
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// clean collapses runs of whitespace
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
