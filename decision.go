// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"fmt"
	"strings"
)

// CrawlDecision is the verdict returned by every DecisionMaker gate. The
// Reason vocabulary below is part of the public contract: embedders and
// tests match on it verbatim.
type CrawlDecision struct {
	Allowed bool
	Reason  string
}

func allow() CrawlDecision {
	return CrawlDecision{Allowed: true}
}

func deny(reason string) CrawlDecision {
	return CrawlDecision{Allowed: false, Reason: reason}
}

// Reason strings, fixed across the whole decision surface.
const (
	reasonNullPage          = "Null page to crawl"
	reasonNullContext       = "Null crawl context"
	reasonNullCrawledPage   = "Null crawled page"
	reasonNonHTTPScheme     = "Scheme does not begin with http"
	reasonAlreadyCrawled    = "Link already crawled"
	reasonExternalLink      = "Link is external"
	reasonNoContent         = "Page has no content"
	reasonNullHTTPResponse  = "Null HttpWebResponse"
	reasonNot200            = "HttpStatusCode is not 200"
	reasonNotHTMLFmt        = "Content type is not any of the following: text/html"
	reasonMaxPagesFmt       = "MaxPagesToCrawl limit of [%d] has been reached"
	reasonTimeoutFmt        = "Crawl timeout of [%d] seconds has been reached"
	reasonMaxPerDomainFmt   = "MaxPagesToCrawlPerDomain limit of [%d] has been reached for domain [%s]"
)

// decisionMaker evaluates the three admission/continuation gates of the
// crawl. It is deliberately stateless: every method is a pure function of
// its arguments, no I/O, no mutation, so it can be called from any
// goroutine without synchronization.
type decisionMaker struct{}

// newDecisionMaker returns the (stateless) DecisionMaker implementation.
func newDecisionMaker() decisionMaker {
	return decisionMaker{}
}

// shouldCrawlPage evaluates, in order, whether page should be admitted
// into the crawl. The first failing rule wins.
func (decisionMaker) shouldCrawlPage(page *PageToCrawl, ctx *CrawlContext) CrawlDecision {
	if page == nil {
		return deny(reasonNullPage)
	}
	if ctx == nil {
		return deny(reasonNullContext)
	}
	if page.URI == nil || (page.URI.Scheme != "http" && page.URI.Scheme != "https") {
		return deny(reasonNonHTTPScheme)
	}
	if ctx.seen.contains(page.URI.String()) {
		return deny(reasonAlreadyCrawled)
	}
	// Unlike CrawlTimeoutSeconds, 0 is not "unlimited" here: it is the Go
	// zero value for "no pages allowed", matching the source behavior
	// spec §9 calls out ("the source behavior treats 0 as a cap of
	// zero... the test suite depends on it"). There is no ">0" guard.
	if ctx.crawledCount() >= ctx.Config.MaxPagesToCrawl {
		return deny(fmt.Sprintf(reasonMaxPagesFmt, ctx.Config.MaxPagesToCrawl))
	}
	if ctx.Config.CrawlTimeoutSeconds > 0 {
		elapsed := ctx.Clock().Now().Sub(ctx.StartedAt)
		if elapsed >= timeoutDuration(ctx.Config.CrawlTimeoutSeconds) {
			return deny(fmt.Sprintf(reasonTimeoutFmt, ctx.Config.CrawlTimeoutSeconds))
		}
	}
	if page.isExternal() && !ctx.Config.IsExternalPageCrawlingEnabled {
		return deny(reasonExternalLink)
	}
	// Same zero-means-zero asymmetry as MaxPagesToCrawl above.
	host := page.URI.Host
	if ctx.domainCount(host) >= ctx.Config.MaxPagesToCrawlPerDomain {
		return deny(fmt.Sprintf(reasonMaxPerDomainFmt, ctx.Config.MaxPagesToCrawlPerDomain, host))
	}
	return allow()
}

// shouldDownloadPageContent is called after response headers are
// available, before the body is read.
func (decisionMaker) shouldDownloadPageContent(page *CrawledPage, ctx *CrawlContext) CrawlDecision {
	if page == nil {
		return deny(reasonNullCrawledPage)
	}
	if ctx == nil {
		return deny(reasonNullContext)
	}
	if !page.HasHTTPResponse {
		return deny(reasonNullHTTPResponse)
	}
	if page.HTTPStatusCode != 200 {
		return deny(reasonNot200)
	}
	if !isHTMLContentType(page.Header.Get("Content-Type")) {
		return deny(reasonNotHTMLFmt)
	}
	return allow()
}

// shouldCrawlPageLinks is called after the body has been read.
func (decisionMaker) shouldCrawlPageLinks(page *CrawledPage, ctx *CrawlContext) CrawlDecision {
	if page == nil {
		return deny(reasonNullCrawledPage)
	}
	if ctx == nil {
		return deny(reasonNullContext)
	}
	if !page.HasContent() {
		return deny(reasonNoContent)
	}
	if page.isExternal() && !ctx.Config.IsExternalPageLinksCrawlingEnabled {
		return deny(reasonExternalLink)
	}
	return allow()
}

// isHTMLContentType performs a case-insensitive prefix match against
// "text/html", ignoring any ";"-separated parameters such as charset.
func isHTMLContentType(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	return strings.HasPrefix(strings.ToLower(contentType), "text/html")
}
