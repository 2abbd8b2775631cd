// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

// ShouldDownloadPredicate is the pure, fast predicate PageRequester
// consults once response headers are available, before it reads the
// body. It is expected to be DecisionMaker.shouldDownloadPageContent bound
// to a particular CrawlContext.
type ShouldDownloadPredicate func(*CrawledPage) CrawlDecision

// PageRequester executes an HTTP GET and, guided by a caller-supplied
// predicate, decides whether to drain the response body. It never
// retries at the application level (there is no retry logic in this
// core); any retrying happens transparently inside the transport, which
// is an orthogonal, transport-level concern.
type PageRequester interface {
	MakeRequest(uri *url.URL, shouldDownload ShouldDownloadPredicate) *CrawledPage
}

// httpPageRequester is the PageRequester backed by net/http, generalizing
// the teacher's rehttp-wrapped transport (fetcher.New in the original
// repo) from a link-fetching helper into the engine's core I/O step.
type httpPageRequester struct {
	userAgent string
	client    *http.Client
}

// NewPageRequester builds a PageRequester with the given User-Agent and
// per-request timeout. The transport retries transient failures
// (temporary network errors) with exponential jittered backoff, exactly
// the teacher's policy, capped at 3 retries after the first attempt.
func NewPageRequester(userAgent string, timeout time.Duration) PageRequester {
	transport := rehttp.NewTransport(
		&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		},
		rehttp.RetryAll(rehttp.RetryMaxRetries(3), rehttp.RetryTemporaryErr()),
		rehttp.ExpJitterDelay(1, 10*time.Second),
	)
	return &httpPageRequester{
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

// MakeRequest implements the six steps of spec §4.3: issue the GET,
// surface transport failures without a response, consult the predicate
// on headers-only, drain the body only when allowed, and always close
// the response before returning.
func (f *httpPageRequester) MakeRequest(uri *url.URL, shouldDownload ShouldDownloadPredicate) *CrawledPage {
	page := NewCrawledPage(PageToCrawl{URI: uri})

	req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
	if err != nil {
		page.RequestError = err
		return page
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		page.RequestError = err
		return page
	}
	defer resp.Body.Close()

	page.HasHTTPResponse = true
	page.HTTPStatusCode = resp.StatusCode
	page.Header = resp.Header

	decision := shouldDownload(page)
	if !decision.Allowed {
		return page
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		page.RequestError = err
		return page
	}
	page.Content = body
	page.PageSizeInBytes = len(body)
	return page
}
