// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// CrawlConfiguration is the full set of recognized crawl options. Zero
// values are meaningful: see the per-field comment for the sentinel
// semantics of each cap (spec §9 — the asymmetry between the timeout
// sentinel and the two page-count sentinels is intentional).
type CrawlConfiguration struct {
	// MaxPagesToCrawl is a hard cap on admitted pages. 0 means "crawl
	// zero pages" (not unlimited): every shouldCrawlPage call denies.
	MaxPagesToCrawl int
	// MaxPagesToCrawlPerDomain is a per-host cap keyed by authority. 0
	// means "zero pages per domain" (not unlimited), same asymmetry as
	// MaxPagesToCrawl.
	MaxPagesToCrawlPerDomain int
	// CrawlTimeoutSeconds is the wall-clock budget from crawl start. 0
	// means unlimited.
	CrawlTimeoutSeconds int
	// MaxConcurrentThreads sizes the worker pool. Must be >= 1.
	MaxConcurrentThreads int
	// IsExternalPageCrawlingEnabled admits pages whose authority differs
	// from the root's.
	IsExternalPageCrawlingEnabled bool
	// IsExternalPageLinksCrawlingEnabled allows parsing links out of
	// pages whose authority differs from the root's.
	IsExternalPageLinksCrawlingEnabled bool
	// UserAgentString is sent as the User-Agent request header.
	UserAgentString string
	// Clock is the time source used for elapsed-time and timeout
	// computations. Defaults to the real wall clock; tests substitute a
	// clock.Mock so timeout scenarios never sleep.
	Clock clock.Clock
}

// unboundedPageCap stands in for "effectively unlimited" on the two page
// caps, whose zero value means "crawl zero pages" rather than "unlimited"
// (spec §9). DefaultConfiguration picks this so the out-of-the-box
// behavior is still "crawl everything reachable".
const unboundedPageCap = math.MaxInt32

// DefaultConfiguration returns sane, fully-populated defaults: effectively
// unlimited page caps, a modest worker pool, external crawling disabled,
// matching the teacher's own conservative defaults in its CrawlerSettings.
func DefaultConfiguration() CrawlConfiguration {
	return CrawlConfiguration{
		MaxPagesToCrawl:          unboundedPageCap,
		MaxPagesToCrawlPerDomain: unboundedPageCap,
		MaxConcurrentThreads:     8,
		UserAgentString:          "Mozilla/5.0 (compatible; crawlcore/1.0)",
		Clock:                    clock.New(),
	}
}

func timeoutDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// CrawlContext is the per-crawl shared state observed by the
// DecisionMaker and mutated by workers. Only the seen-set and the
// per-domain counters are written after crawl start; every other field
// is written once and only read afterward.
type CrawlContext struct {
	RootURI   *url.URL
	Config    CrawlConfiguration
	StartedAt time.Time

	seen    *seenSet
	domains *domainCounters
}

// NewCrawlContext initializes a fresh context for a crawl rooted at
// rootURI, stamping StartedAt from the configured clock so elapsed time
// is always measured on a monotonic-capable source.
func NewCrawlContext(rootURI *url.URL, config CrawlConfiguration) *CrawlContext {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &CrawlContext{
		RootURI:   rootURI,
		Config:    config,
		StartedAt: config.Clock.Now(),
		seen:      newSeenSet(),
		domains:   newDomainCounters(),
	}
}

// Clock exposes the context's time source to the DecisionMaker.
func (c *CrawlContext) Clock() clock.Clock { return c.Config.Clock }

// crawledCount is the number of pages admitted so far, across every
// domain; it backs the MaxPagesToCrawl gate.
func (c *CrawlContext) crawledCount() int {
	return c.seen.count()
}

// domainCount is the number of pages admitted so far for host.
func (c *CrawlContext) domainCount(host string) int {
	return c.domains.get(host)
}

// admit performs the atomic "insert-if-absent" the engine needs to close
// the admission race called out in spec §5/§9: the seen-set insertion and
// the duplicate check are fused into one step, and the per-domain counter
// is incremented only when the insertion actually succeeds. It returns
// false when uri was already present, in which case the caller must
// downgrade to a "Link already crawled" denial.
func (c *CrawlContext) admit(uri *url.URL) bool {
	if !c.seen.insertIfAbsent(uri.String()) {
		return false
	}
	c.domains.increment(uri.Host)
	return true
}

// seenSet is a thread-safe set of URIs admitted so far in the current
// crawl, generalized from the teacher's memoryCache (cache.go) into a
// single-namespace set with an atomic insert-if-absent operation.
type seenSet struct {
	mutex sync.Mutex
	items map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{items: make(map[string]struct{})}
}

func (s *seenSet) contains(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.items[key]
	return ok
}

// insertIfAbsent adds key to the set and reports true, or reports false
// without mutating the set if key was already present. This single
// critical section is what makes duplicate suppression race-free under
// concurrent workers.
func (s *seenSet) insertIfAbsent(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = struct{}{}
	return true
}

func (s *seenSet) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.items)
}

// domainCounters maps a host authority to the count of pages admitted so
// far for that host, guarded the same way as seenSet.
type domainCounters struct {
	mutex  sync.Mutex
	counts map[string]int
}

func newDomainCounters() *domainCounters {
	return &domainCounters{counts: make(map[string]int)}
}

func (d *domainCounters) increment(host string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.counts[host]++
}

func (d *domainCounters) get(host string) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.counts[host]
}
