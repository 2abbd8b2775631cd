package crawler

import (
	"net/url"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func freshContext(config CrawlConfiguration) *CrawlContext {
	mock := clock.NewMock()
	config.Clock = mock
	root, _ := url.Parse("http://a.com/")
	return NewCrawlContext(root, config)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

func TestShouldCrawlPageNullGuards(t *testing.T) {
	dm := newDecisionMaker()
	ctx := freshContext(DefaultConfiguration())

	if d := dm.shouldCrawlPage(nil, ctx); d.Allowed || d.Reason != reasonNullPage {
		t.Errorf("expected %q, got %+v", reasonNullPage, d)
	}
	page := &PageToCrawl{URI: mustParse(t, "http://a.com/")}
	if d := dm.shouldCrawlPage(page, nil); d.Allowed || d.Reason != reasonNullContext {
		t.Errorf("expected %q, got %+v", reasonNullContext, d)
	}
}

func TestShouldCrawlPageSchemeFilter(t *testing.T) {
	dm := newDecisionMaker()
	ctx := freshContext(DefaultConfiguration())

	for _, raw := range []string{"mailto:u@x", "file:///C:/Users/", "ftp://host/path", "callto:+1", "tel:+1"} {
		page := &PageToCrawl{URI: mustParse(t, raw)}
		if d := dm.shouldCrawlPage(page, ctx); d.Allowed || d.Reason != reasonNonHTTPScheme {
			t.Errorf("%s: expected %q, got %+v", raw, reasonNonHTTPScheme, d)
		}
	}
}

func TestShouldCrawlPageDuplicateSuppression(t *testing.T) {
	dm := newDecisionMaker()
	ctx := freshContext(DefaultConfiguration())
	target := mustParse(t, "http://a.com/")
	if !ctx.seen.insertIfAbsent(target.String()) {
		t.Fatal("setup: expected first insert to succeed")
	}

	page := &PageToCrawl{URI: target}
	if d := dm.shouldCrawlPage(page, ctx); d.Allowed || d.Reason != reasonAlreadyCrawled {
		t.Errorf("expected %q, got %+v", reasonAlreadyCrawled, d)
	}
}

func TestShouldCrawlPageMaxPagesReached(t *testing.T) {
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	config.MaxPagesToCrawl = 1
	ctx := freshContext(config)
	ctx.seen.insertIfAbsent("http://a.com/already")
	ctx.domains.increment("a.com")

	page := &PageToCrawl{URI: mustParse(t, "http://a.com/next")}
	d := dm.shouldCrawlPage(page, ctx)
	if d.Allowed {
		t.Errorf("expected denial once MaxPagesToCrawl is reached, got %+v", d)
	}
}

func TestShouldCrawlPageMaxPagesZeroSentinel(t *testing.T) {
	// Unlike CrawlTimeoutSeconds, MaxPagesToCrawl's zero value is not
	// "unlimited": it means "crawl zero pages", so every call must deny
	// (spec §8 scenario 4, §9 sentinel asymmetry).
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	config.MaxPagesToCrawl = 0
	ctx := freshContext(config)

	page := &PageToCrawl{URI: mustParse(t, "http://a.com/next")}
	d := dm.shouldCrawlPage(page, ctx)
	want := "MaxPagesToCrawl limit of [0] has been reached"
	if d.Allowed || d.Reason != want {
		t.Errorf("expected %q, got %+v", want, d)
	}
}

func TestShouldCrawlPageMaxPagesPerDomainZeroSentinel(t *testing.T) {
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	config.MaxPagesToCrawlPerDomain = 0
	ctx := freshContext(config)

	page := &PageToCrawl{URI: mustParse(t, "http://a.com/next"), IsInternal: true}
	d := dm.shouldCrawlPage(page, ctx)
	want := "MaxPagesToCrawlPerDomain limit of [0] has been reached for domain [a.com]"
	if d.Allowed || d.Reason != want {
		t.Errorf("expected %q, got %+v", want, d)
	}
}

func TestShouldCrawlPageTimeout(t *testing.T) {
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	config.CrawlTimeoutSeconds = 99
	mock := clock.NewMock()
	config.Clock = mock
	root := mustParse(t, "http://a.com/")
	ctx := NewCrawlContext(root, config)
	mock.Add(100 * time.Second)

	page := &PageToCrawl{URI: mustParse(t, "http://a.com/x"), IsInternal: true}
	d := dm.shouldCrawlPage(page, ctx)
	if d.Allowed || d.Reason != "Crawl timeout of [99] seconds has been reached" {
		t.Errorf("expected timeout denial, got %+v", d)
	}

	config.CrawlTimeoutSeconds = 0
	ctx2 := NewCrawlContext(root, config)
	mock.Add(100 * time.Second)
	if d := dm.shouldCrawlPage(page, ctx2); !d.Allowed {
		t.Errorf("expected allowed with unlimited timeout, got %+v", d)
	}
}

func TestShouldCrawlPageExternal(t *testing.T) {
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	ctx := freshContext(config)
	page := &PageToCrawl{URI: mustParse(t, "http://other.com/"), IsInternal: false}

	if d := dm.shouldCrawlPage(page, ctx); d.Allowed || d.Reason != reasonExternalLink {
		t.Errorf("expected %q, got %+v", reasonExternalLink, d)
	}

	config.IsExternalPageCrawlingEnabled = true
	ctx2 := freshContext(config)
	if d := dm.shouldCrawlPage(page, ctx2); !d.Allowed {
		t.Errorf("expected allowed when external crawling enabled, got %+v", d)
	}
}

func TestShouldCrawlPagePerDomainCap(t *testing.T) {
	dm := newDecisionMaker()
	config := DefaultConfiguration()
	config.MaxPagesToCrawlPerDomain = 100
	ctx := freshContext(config)
	for i := 0; i < 100; i++ {
		ctx.domains.increment("a.com")
	}

	page := &PageToCrawl{URI: mustParse(t, "http://a.com/more"), IsInternal: true}
	d := dm.shouldCrawlPage(page, ctx)
	want := "MaxPagesToCrawlPerDomain limit of [100] has been reached for domain [a.com]"
	if d.Allowed || d.Reason != want {
		t.Errorf("expected %q, got %+v", want, d)
	}
}

func TestShouldDownloadPageContent(t *testing.T) {
	dm := newDecisionMaker()
	ctx := freshContext(DefaultConfiguration())

	if d := dm.shouldDownloadPageContent(nil, ctx); d.Allowed || d.Reason != reasonNullCrawledPage {
		t.Errorf("expected %q, got %+v", reasonNullCrawledPage, d)
	}

	noResponse := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/")})
	if d := dm.shouldDownloadPageContent(noResponse, ctx); d.Allowed || d.Reason != reasonNullHTTPResponse {
		t.Errorf("expected %q, got %+v", reasonNullHTTPResponse, d)
	}

	forbidden := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/")})
	forbidden.HasHTTPResponse = true
	forbidden.HTTPStatusCode = 403
	if d := dm.shouldDownloadPageContent(forbidden, ctx); d.Allowed || d.Reason != reasonNot200 {
		t.Errorf("expected %q, got %+v", reasonNot200, d)
	}

	wrongType := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/")})
	wrongType.HasHTTPResponse = true
	wrongType.HTTPStatusCode = 200
	wrongType.Header = map[string][]string{"Content-Type": {"image/png"}}
	if d := dm.shouldDownloadPageContent(wrongType, ctx); d.Allowed || d.Reason != reasonNotHTMLFmt {
		t.Errorf("expected %q, got %+v", reasonNotHTMLFmt, d)
	}

	ok := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/")})
	ok.HasHTTPResponse = true
	ok.HTTPStatusCode = 200
	ok.Header = map[string][]string{"Content-Type": {"text/html; charset=utf-8"}}
	if d := dm.shouldDownloadPageContent(ok, ctx); !d.Allowed {
		t.Errorf("expected allowed, got %+v", d)
	}
}

func TestShouldCrawlPageLinksContentCheck(t *testing.T) {
	dm := newDecisionMaker()
	ctx := freshContext(DefaultConfiguration())

	for _, body := range [][]byte{nil, []byte(""), []byte(" ")} {
		page := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/"), IsInternal: true})
		page.Content = body
		if d := dm.shouldCrawlPageLinks(page, ctx); d.Allowed || d.Reason != reasonNoContent {
			t.Errorf("body %q: expected %q, got %+v", body, reasonNoContent, d)
		}
	}

	page := NewCrawledPage(PageToCrawl{URI: mustParse(t, "http://a.com/"), IsInternal: true})
	page.Content = []byte("aaaa")
	if d := dm.shouldCrawlPageLinks(page, ctx); !d.Allowed {
		t.Errorf("expected allowed, got %+v", d)
	}
}

func TestIsHTMLContentType(t *testing.T) {
	cases := map[string]bool{
		"text/html":                true,
		"TEXT/HTML":                true,
		"text/html; charset=utf-8": true,
		"  text/html ":             true,
		"application/json":         false,
		"image/png":                false,
		"":                         false,
	}
	for in, want := range cases {
		assert.Equal(t, want, isHTMLContentType(in), "isHTMLContentType(%q)", in)
	}
}
