// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"bytes"
	"net/http"
	"net/url"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"lukechampine.com/blake3"
)

// PageToCrawl is a single unit of work handed from the Scheduler to a
// worker. Ownership transfers from the scheduler to the worker that
// dequeues it and is discarded when the per-page pipeline ends.
type PageToCrawl struct {
	// URI is the target address to fetch
	URI *url.URL
	// RootURI is the seed address the whole crawl started from
	RootURI *url.URL
	// ParentURI is the page this link was discovered on, or URI itself
	// for the seed page
	ParentURI *url.URL
	// IsInternal is true iff URI shares the root's authority, computed
	// once at enqueue time
	IsInternal bool
	// IsRetry is reserved for a future retry extension; the engine never
	// sets it
	IsRetry bool
}

// isExternal is the mirror of IsInternal, spelled the way the
// DecisionMaker rules read most naturally
func (p *PageToCrawl) isExternal() bool {
	return !p.IsInternal
}

// CrawledPage extends a PageToCrawl with the results of a PageRequester
// call: the raw body, response metadata and any transport error.
type CrawledPage struct {
	PageToCrawl

	// Content is the raw response body, if it was downloaded
	Content []byte
	// HTTPStatusCode is the status of the response, or 0 when no
	// response was obtained (transport failure)
	HTTPStatusCode int
	// Header carries the response headers, nil when no response was
	// obtained
	Header http.Header
	// HasHTTPResponse is false when the transport failed before headers
	// were available
	HasHTTPResponse bool
	// RequestError is the transport error, if any
	RequestError error
	// PageSizeInBytes is measured from the body actually read, not from
	// the Content-Length header
	PageSizeInBytes int

	once     sync.Once
	hash     [32]byte
	mdOnce   sync.Once
	markdown string
}

// NewCrawledPage wraps a PageToCrawl as the base of a CrawledPage, the
// shape PageRequester builds incrementally as the response arrives.
func NewCrawledPage(page PageToCrawl) *CrawledPage {
	return &CrawledPage{PageToCrawl: page}
}

// HasContent reports whether the body is non-empty and not merely
// whitespace, matching the DecisionMaker's "Page has no content" rule.
func (c *CrawledPage) HasContent() bool {
	for _, b := range c.Content {
		switch b {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			return true
		}
	}
	return false
}

// ContentHash lazily computes and memoizes a blake3 digest of the body.
// It is an opaque, core-agnostic convenience for embedders; no gate or
// invariant in the engine depends on it.
func (c *CrawledPage) ContentHash() [32]byte {
	c.once.Do(func() {
		c.hash = blake3.Sum256(c.Content)
	})
	return c.hash
}

// Markdown lazily renders the body as Markdown, memoizing the result.
// It returns the empty string when the body isn't parseable HTML or is
// empty. Like ContentHash, this is an opaque convenience: it is never
// consulted by the DecisionMaker or the control loop.
func (c *CrawledPage) Markdown() string {
	c.mdOnce.Do(func() {
		if len(c.Content) == 0 {
			return
		}
		doc, err := html.Parse(bytes.NewReader(c.Content))
		if err != nil {
			return
		}
		conv := converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
		md, err := conv.ConvertNode(doc)
		if err != nil {
			return
		}
		c.markdown = md
	})
	return c.markdown
}
