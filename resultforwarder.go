// Package crawler containing the crawling logics and utilities to scrape
// remote resources on the web
package crawler

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/codepr/crawlcore/messaging"
)

// CrawlResultMessage is the wire shape a ResultForwarder serializes every
// completed page into. It is deliberately flat and JSON-friendly, unlike
// CrawledPage itself which carries unexported memoization state.
type CrawlResultMessage struct {
	URI        string `json:"uri"`
	StatusCode int    `json:"status_code"`
	SizeBytes  int    `json:"size_bytes"`
	IsInternal bool   `json:"is_internal"`
	Error      string `json:"error,omitempty"`
}

// ResultForwarder bridges the engine's in-process PageCrawlCompletedEvent
// to an external sink through a messaging.ProducerConsumerCloser typed
// over CrawlResultMessage, the way the teacher's enqueueResults forwarded
// ParsedResult payloads onto a message queue. The core's typed dispatcher
// stays byte-free; only Forward serializes, and only at the point where
// bytes actually need to leave the process.
type ResultForwarder struct {
	queue messaging.ProducerConsumerCloser[CrawlResultMessage]
}

// NewResultForwarder creates a forwarder backed by an in-memory
// messaging.ChannelQueue.
func NewResultForwarder() *ResultForwarder {
	queue := messaging.NewChannelQueue[CrawlResultMessage]()
	return &ResultForwarder{queue: &queue}
}

// Subscribe registers the forwarder against an engine's completed-page
// event so every finished fetch is produced onto the queue.
func (f *ResultForwarder) Subscribe(engine *CrawlEngine) {
	engine.OnPageCrawlCompleted(func(ev PageCrawlCompletedEvent) {
		msg := CrawlResultMessage{
			URI:        ev.Page.URI.String(),
			StatusCode: ev.Page.HTTPStatusCode,
			SizeBytes:  ev.Page.PageSizeInBytes,
			IsInternal: ev.Page.IsInternal,
		}
		if ev.Page.RequestError != nil {
			msg.Error = ev.Page.RequestError.Error()
		}
		_ = f.queue.Produce(msg)
	})
}

// Forward drains the queue, writing one JSON object per line to w, until
// Close is called on the underlying queue. It blocks, so callers run it in
// its own goroutine and arrange for Close to unblock it once a crawl ends.
func (f *ResultForwarder) Forward(w io.Writer) error {
	events := make(chan CrawlResultMessage)
	done := make(chan error, 1)
	go func() { done <- f.queue.Consume(events) }()

	writer := bufio.NewWriter(w)
	defer writer.Flush()
	for msg := range events {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		writer.Write(data)
		writer.WriteByte('\n')
	}
	return <-done
}

// Close stops the underlying queue, unblocking any in-flight Forward call.
func (f *ResultForwarder) Close() {
	f.queue.Close()
}
