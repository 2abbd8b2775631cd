// Package fetcher provides the HyperLinkParser collaborator: HTML-to-links
// extraction that the crawl engine consumes but does not implement
// itself. It is explicitly out of the engine's core scope and depends on
// none of the engine's types, only on plain URLs and strings, so it can
// be swapped for any other DOM/parse facade without the engine noticing.
package fetcher

import (
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryParser is the default HyperLinkParser, generalized from the
// teacher's fetcher.GoqueryParser: it extracts every <a href> and
// <link rel="canonical"> target, resolving relative URLs against a base.
type GoqueryParser struct {
	excludedExts map[string]bool
	seen         *sync.Map
}

// NewGoqueryParser creates a parser with goquery as backend.
func NewGoqueryParser() *GoqueryParser {
	return &GoqueryParser{
		excludedExts: make(map[string]bool),
		seen:         new(sync.Map),
	}
}

// ExcludeExtensions adds extensions to the exclusion set (empty for a
// freshly created parser) so
// links to e.g. images or archives are never surfaced as crawl targets.
func (p *GoqueryParser) ExcludeExtensions(exts ...string) {
	for _, ext := range exts {
		p.excludedExts[ext] = true
	}
}

// GetLinks implements the get_links(base_uri, html_text) -> []URI
// contract the engine expects from its link extractor.
func (p *GoqueryParser) GetLinks(base *url.URL, htmlText string) ([]*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	return p.extractLinks(doc, base), nil
}

func (p *GoqueryParser) extractLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	if doc == nil {
		return nil
	}
	var found []*url.URL
	doc.Find("a,link").FilterFunction(func(i int, element *goquery.Selection) bool {
		hrefLink, hrefExists := element.Attr("href")
		linkType, linkExists := element.Attr("rel")
		tag := goquery.NodeName(element)
		anchorOk := tag == "a" && hrefExists && !p.excludedExts[extOf(hrefLink)]
		linkOk := tag == "link" && hrefExists && linkExists && linkType == "canonical" && !p.excludedExts[extOf(hrefLink)]
		return anchorOk || linkOk
	}).Each(func(i int, element *goquery.Selection) {
		href, _ := element.Attr("href")
		link, ok := resolveRelativeURL(base, href)
		if !ok {
			return
		}
		key := link.String()
		if present, _ := p.seen.LoadOrStore(key, false); !present.(bool) {
			found = append(found, link)
			p.seen.Store(key, true)
		}
	})
	return found
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}

// resolveRelativeURL joins a base URL to a (possibly relative) href,
// producing an absolute URL to enqueue.
func resolveRelativeURL(base *url.URL, href string) (*url.URL, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if u.Hostname() != "" {
		return u, true
	}
	if base == nil {
		return nil, false
	}
	return base.ResolveReference(u), true
}
