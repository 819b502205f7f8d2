package main

import (
	"sync"
)

// ingestResults collects what concurrently processed objects produced.
type ingestResults struct {
	mu      sync.Mutex
	events  []AccessEvent
	dropped int
}

// Add records one processed object; nil means the object was dropped.
func (r *ingestResults) Add(ev *AccessEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev == nil {
		r.dropped++
		return
	}
	r.events = append(r.events, *ev)
}

func (r *ingestResults) Events() []AccessEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AccessEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *ingestResults) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
