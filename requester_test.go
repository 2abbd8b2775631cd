package crawler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func htmlServerMock() *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/foo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	handler.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	})
	handler.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	return httptest.NewServer(handler)
}

func alwaysDownload(*CrawledPage) CrawlDecision { return allow() }
func neverDownload(*CrawledPage) CrawlDecision  { return deny("test: disallowed") }

func TestPageRequesterMakeRequestDownloadsAllowedBody(t *testing.T) {
	server := htmlServerMock()
	defer server.Close()

	requester := NewPageRequester("test-agent", 10*time.Second)
	target, _ := url.Parse(server.URL + "/foo")
	page := requester.MakeRequest(target, alwaysDownload)

	if page.RequestError != nil {
		t.Fatalf("PageRequester#MakeRequest failed: %v", page.RequestError)
	}
	if page.HTTPStatusCode != 200 {
		t.Errorf("PageRequester#MakeRequest failed: expected 200 got %d", page.HTTPStatusCode)
	}
	if string(page.Content) != "<html><body>hello</body></html>" {
		t.Errorf("PageRequester#MakeRequest failed: unexpected body %q", page.Content)
	}
	if page.PageSizeInBytes != len(page.Content) {
		t.Errorf("PageRequester#MakeRequest failed: size mismatch, got %d", page.PageSizeInBytes)
	}
}

func TestPageRequesterMakeRequestSkipsDisallowedBody(t *testing.T) {
	server := htmlServerMock()
	defer server.Close()

	requester := NewPageRequester("test-agent", 10*time.Second)
	target, _ := url.Parse(server.URL + "/foo")
	page := requester.MakeRequest(target, neverDownload)

	if len(page.Content) != 0 {
		t.Errorf("PageRequester#MakeRequest failed: expected empty body, got %q", page.Content)
	}
	if page.HTTPStatusCode != 200 {
		t.Errorf("PageRequester#MakeRequest failed: expected headers to still be captured")
	}
}

func TestPageRequesterMakeRequestCapturesTransportFailure(t *testing.T) {
	requester := NewPageRequester("test-agent", 200*time.Millisecond)
	target, _ := url.Parse("http://127.0.0.1:1")
	page := requester.MakeRequest(target, alwaysDownload)

	if page.RequestError == nil {
		t.Errorf("PageRequester#MakeRequest failed: expected a transport error")
	}
	if page.HasHTTPResponse {
		t.Errorf("PageRequester#MakeRequest failed: expected no HTTP response on transport failure")
	}
}
