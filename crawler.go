// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"errors"
	"net/url"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/codepr/crawlcore/workerpool"
)

// Default fetcher timeout before giving up on a single page
const defaultFetchTimeout time.Duration = 10 * time.Second

// defaultBackoffDelay is the fixed sleep the control loop takes when the
// scheduler is momentarily empty but the pool still has work in flight
// (spec §4.5 step 3, §9 "Control-loop backoff").
const defaultBackoffDelay time.Duration = 2500 * time.Millisecond

// ErrEmptySeed is returned by Crawl when the seed URI is empty.
var ErrEmptySeed = errors.New("crawler: seed uri is empty")

// CrawlResult carries the root URI and the elapsed wall-clock time of a
// finished crawl.
type CrawlResult struct {
	RootURI *url.URL
	Elapsed time.Duration
}

// LinkExtractor is the HyperLinkParser contract the engine consumes but
// does not implement (spec §6, "Interfaces consumed"). Any pure
// implementation — goquery-backed, a DOM facade, a regex scraper — can
// satisfy it.
type LinkExtractor interface {
	GetLinks(base *url.URL, htmlText string) ([]*url.URL, error)
}

// Option configures a CrawlEngine at construction time.
type Option func(*CrawlEngine)

// WithConfiguration overrides the crawl's CrawlConfiguration.
func WithConfiguration(config CrawlConfiguration) Option {
	return func(e *CrawlEngine) { e.config = config }
}

// WithLogger overrides the default stderr zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *CrawlEngine) { e.logger = logger }
}

// WithScheduler overrides the default FIFO Scheduler, the core's one
// polymorphism point (spec §9 "Scheduler polymorphism").
func WithScheduler(scheduler Scheduler) Option {
	return func(e *CrawlEngine) { e.scheduler = scheduler }
}

// WithPageRequester overrides the default rehttp-backed PageRequester,
// mainly useful for tests that want to stub transport behavior directly.
func WithPageRequester(requester PageRequester) Option {
	return func(e *CrawlEngine) { e.requester = requester }
}

// CrawlEngine wires the Scheduler, the WorkerPool, the DecisionMaker and
// the PageRequester into the control loop specified in spec §4.5.
type CrawlEngine struct {
	config    CrawlConfiguration
	logger    zerolog.Logger
	scheduler Scheduler
	requester PageRequester
	extractor LinkExtractor
	decision  decisionMaker
	dispatch  *dispatcher
	pool      *workerpool.Pool
}

// New creates a CrawlEngine. extractor is the only mandatory collaborator
// since it is explicitly external to the core (spec §1); everything else
// has a sensible default the options can override.
func New(extractor LinkExtractor, opts ...Option) *CrawlEngine {
	engine := &CrawlEngine{
		config:    DefaultConfiguration(),
		logger:    zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
		scheduler: NewScheduler(),
		extractor: extractor,
		decision:  newDecisionMaker(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.requester == nil {
		engine.requester = NewPageRequester(engine.config.UserAgentString, defaultFetchTimeout)
	}
	engine.dispatch = newDispatcher(engine.logger)
	engine.pool = workerpool.New(engine.config.MaxConcurrentThreads, engine.logger)
	return engine
}

// OnPageCrawlStarting registers a subscriber invoked once a page is
// admitted, before it is fetched.
func (e *CrawlEngine) OnPageCrawlStarting(fn func(PageCrawlStartingEvent)) {
	e.dispatch.OnPageCrawlStarting(fn)
}

// OnPageCrawlCompleted registers a subscriber invoked after every fetch
// attempt, regardless of outcome.
func (e *CrawlEngine) OnPageCrawlCompleted(fn func(PageCrawlCompletedEvent)) {
	e.dispatch.OnPageCrawlCompleted(fn)
}

// OnPageCrawlDisallowed registers a subscriber invoked when a page is
// denied admission.
func (e *CrawlEngine) OnPageCrawlDisallowed(fn func(PageCrawlDisallowedEvent)) {
	e.dispatch.OnPageCrawlDisallowed(fn)
}

// OnPageLinksCrawlDisallowed registers a subscriber invoked when link
// extraction is denied for a completed page.
func (e *CrawlEngine) OnPageLinksCrawlDisallowed(fn func(PageLinksCrawlDisallowedEvent)) {
	e.dispatch.OnPageLinksCrawlDisallowed(fn)
}

// Crawl runs the control loop to completion and returns the result. It
// enqueues the seed, then alternates between dispatching queued pages to
// the worker pool and checking for termination until the scheduler is
// empty and the pool reports no running work (spec §4.5, §5
// "Termination").
func (e *CrawlEngine) Crawl(seedURI string) (*CrawlResult, error) {
	if seedURI == "" {
		return nil, ErrEmptySeed
	}
	root, err := url.Parse(seedURI)
	if err != nil {
		return nil, err
	}

	ctx := NewCrawlContext(root, e.config)
	seed := &PageToCrawl{
		URI:        root,
		RootURI:    root,
		ParentURI:  root,
		IsInternal: true,
	}
	if err := e.scheduler.Add(seed); err != nil {
		return nil, err
	}

	for {
		if e.scheduler.Count() > 0 {
			page := e.scheduler.GetNext()
			if page == nil {
				continue
			}
			e.pool.DoWork(func() { e.process(page, ctx) })
			continue
		}
		if !e.pool.HasRunningWork() {
			break
		}
		ctx.Clock().Sleep(defaultBackoffDelay)
	}
	e.pool.Shutdown()
	e.dispatch.wait()

	return &CrawlResult{
		RootURI: root,
		Elapsed: ctx.Clock().Now().Sub(ctx.StartedAt),
	}, nil
}

// process is the per-page pipeline of spec §4.5: gate, fetch, complete
// event, gate, parse links, enqueue.
func (e *CrawlEngine) process(page *PageToCrawl, ctx *CrawlContext) {
	decision := e.decision.shouldCrawlPage(page, ctx)
	if !decision.Allowed {
		e.dispatch.firePageDisallowed(PageCrawlDisallowedEvent{Page: page, Reason: decision.Reason})
		return
	}
	// Close the admission race (spec §5/§9): fuse the duplicate check
	// with the insertion so two workers racing on the same URI can never
	// both admit it.
	if !ctx.admit(page.URI) {
		e.dispatch.firePageDisallowed(PageCrawlDisallowedEvent{Page: page, Reason: reasonAlreadyCrawled})
		return
	}

	e.dispatch.fireStarting(PageCrawlStartingEvent{Page: page})

	crawled := e.requester.MakeRequest(page.URI, func(partial *CrawledPage) CrawlDecision {
		return e.decision.shouldDownloadPageContent(partial, ctx)
	})
	crawled.RootURI = page.RootURI
	crawled.ParentURI = page.ParentURI
	crawled.IsInternal = page.IsInternal
	crawled.IsRetry = page.IsRetry

	e.dispatch.fireCompleted(PageCrawlCompletedEvent{Page: crawled})
	e.logger.Debug().
		Str("uri", crawled.URI.String()).
		Int("status", crawled.HTTPStatusCode).
		Str("size", humanize.Bytes(uint64(crawled.PageSizeInBytes))).
		Msg("page crawl completed")

	linksDecision := e.decision.shouldCrawlPageLinks(crawled, ctx)
	if !linksDecision.Allowed {
		e.dispatch.fireLinksDisallowed(PageLinksCrawlDisallowedEvent{Page: crawled, Reason: linksDecision.Reason})
		return
	}

	links, err := e.extractor.GetLinks(page.URI, string(crawled.Content))
	if err != nil {
		e.logger.Warn().Err(err).Str("uri", page.URI.String()).Msg("link extraction failed")
		return
	}
	for _, link := range links {
		child := &PageToCrawl{
			URI:        link,
			RootURI:    ctx.RootURI,
			ParentURI:  page.URI,
			IsInternal: link.Host == ctx.RootURI.Host,
		}
		if err := e.scheduler.Add(child); err != nil {
			e.logger.Warn().Err(err).Msg("failed to enqueue discovered link")
		}
	}
}
