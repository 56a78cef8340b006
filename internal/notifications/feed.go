package notifications

import (
	"context"
	"sync"
)

// Feed keeps the most recent events for the public ledger monitor.
type Feed struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 100
	}
	return &Feed{events: make([]Event, size)}
}

func (f *Feed) Publish(_ context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events[f.next] = event
	f.next = (f.next + 1) % len(f.events)
	if f.next == 0 {
		f.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first. A non-positive limit returns all.
func (f *Feed) Recent(limit int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = len(f.events)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Event, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (f.next - 1 - i + len(f.events)) % len(f.events)
		out = append(out, f.events[idx])
	}
	return out
}
