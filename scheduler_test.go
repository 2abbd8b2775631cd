package crawler

import (
	"net/url"
	"testing"
)

func TestFIFOSchedulerOrdering(t *testing.T) {
	scheduler := NewScheduler()
	paths := []string{"/1", "/2", "/3"}
	for _, p := range paths {
		u, _ := url.Parse("http://a.com" + p)
		if err := scheduler.Add(&PageToCrawl{URI: u}); err != nil {
			t.Fatalf("Scheduler#Add failed: %v", err)
		}
	}
	if got := scheduler.Count(); got != 3 {
		t.Fatalf("Scheduler#Count failed: expected 3 got %d", got)
	}
	for _, want := range paths {
		page := scheduler.GetNext()
		if page == nil || page.URI.Path != want {
			t.Errorf("Scheduler#GetNext failed: expected %s got %v", want, page)
		}
	}
	if scheduler.Count() != 0 {
		t.Errorf("Scheduler#Count failed: expected 0 got %d", scheduler.Count())
	}
	if page := scheduler.GetNext(); page != nil {
		t.Errorf("Scheduler#GetNext failed: expected nil on empty queue, got %v", page)
	}
}

func TestFIFOSchedulerAddInvalid(t *testing.T) {
	scheduler := NewScheduler()
	if err := scheduler.Add(nil); err != ErrInvalidPage {
		t.Errorf("Scheduler#Add failed: expected ErrInvalidPage got %v", err)
	}
	if err := scheduler.Add(&PageToCrawl{}); err != ErrInvalidPage {
		t.Errorf("Scheduler#Add failed: expected ErrInvalidPage for nil uri, got %v", err)
	}
}
