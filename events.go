// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"sync"

	"github.com/rs/zerolog"
)

// PageCrawlStartingEvent fires once shouldCrawlPage has admitted a page,
// right before the PageRequester call.
type PageCrawlStartingEvent struct {
	Page *PageToCrawl
}

// PageCrawlCompletedEvent fires after every PageRequester call,
// regardless of success, HTTP status, or body emptiness.
type PageCrawlCompletedEvent struct {
	Page *CrawledPage
}

// PageCrawlDisallowedEvent fires when shouldCrawlPage denies admission.
type PageCrawlDisallowedEvent struct {
	Page   *PageToCrawl
	Reason string
}

// PageLinksCrawlDisallowedEvent fires when shouldCrawlPageLinks denies
// link extraction for an otherwise-completed page.
type PageLinksCrawlDisallowedEvent struct {
	Page   *CrawledPage
	Reason string
}

// dispatcher is the small internal fan-out facility spec §9 calls for: for
// each event it iterates the subscriber list and hands each invocation to
// a fire-and-forget goroutine, isolating subscriber panics from the
// worker that produced the event.
type dispatcher struct {
	logger zerolog.Logger

	mutex             sync.RWMutex
	onStarting        []func(PageCrawlStartingEvent)
	onCompleted       []func(PageCrawlCompletedEvent)
	onPageDisallowed  []func(PageCrawlDisallowedEvent)
	onLinksDisallowed []func(PageLinksCrawlDisallowedEvent)
	wg                sync.WaitGroup
}

func newDispatcher(logger zerolog.Logger) *dispatcher {
	return &dispatcher{logger: logger}
}

// OnPageCrawlStarting registers a subscriber for PageCrawlStarting.
func (d *dispatcher) OnPageCrawlStarting(fn func(PageCrawlStartingEvent)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onStarting = append(d.onStarting, fn)
}

// OnPageCrawlCompleted registers a subscriber for PageCrawlCompleted.
func (d *dispatcher) OnPageCrawlCompleted(fn func(PageCrawlCompletedEvent)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onCompleted = append(d.onCompleted, fn)
}

// OnPageCrawlDisallowed registers a subscriber for PageCrawlDisallowed.
func (d *dispatcher) OnPageCrawlDisallowed(fn func(PageCrawlDisallowedEvent)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onPageDisallowed = append(d.onPageDisallowed, fn)
}

// OnPageLinksCrawlDisallowed registers a subscriber for
// PageLinksCrawlDisallowed.
func (d *dispatcher) OnPageLinksCrawlDisallowed(fn func(PageLinksCrawlDisallowedEvent)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onLinksDisallowed = append(d.onLinksDisallowed, fn)
}

func (d *dispatcher) fireStarting(ev PageCrawlStartingEvent) {
	d.mutex.RLock()
	subs := append([]func(PageCrawlStartingEvent){}, d.onStarting...)
	d.mutex.RUnlock()
	for _, fn := range subs {
		d.fire(func() { fn(ev) })
	}
}

func (d *dispatcher) fireCompleted(ev PageCrawlCompletedEvent) {
	d.mutex.RLock()
	subs := append([]func(PageCrawlCompletedEvent){}, d.onCompleted...)
	d.mutex.RUnlock()
	for _, fn := range subs {
		d.fire(func() { fn(ev) })
	}
}

func (d *dispatcher) firePageDisallowed(ev PageCrawlDisallowedEvent) {
	d.mutex.RLock()
	subs := append([]func(PageCrawlDisallowedEvent){}, d.onPageDisallowed...)
	d.mutex.RUnlock()
	for _, fn := range subs {
		d.fire(func() { fn(ev) })
	}
}

func (d *dispatcher) fireLinksDisallowed(ev PageLinksCrawlDisallowedEvent) {
	d.mutex.RLock()
	subs := append([]func(PageLinksCrawlDisallowedEvent){}, d.onLinksDisallowed...)
	d.mutex.RUnlock()
	for _, fn := range subs {
		d.fire(func() { fn(ev) })
	}
}

// fire hands a single subscriber invocation to its own goroutine,
// recovering any panic so a misbehaving subscriber can never affect the
// engine's control flow.
func (d *dispatcher) fire(invoke func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().Interface("panic", r).Msg("crawl event subscriber panicked")
			}
		}()
		invoke()
	}()
}

// wait blocks until every fired subscriber invocation has returned. It
// exists for tests and for callers that want to drain events before
// reporting a CrawlResult; the engine's own termination condition never
// depends on it.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
