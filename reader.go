package main

import (
	"context"
	"sort"
)

type AccessLister interface {
	ListAccess(ctx context.Context) ([]AccessEvent, error)
}

// AccessReader serves every stored access event ordered by access_time.
type AccessReader struct {
	store EventStore
}

func NewAccessReader(store EventStore) *AccessReader {
	return &AccessReader{store: store}
}

func (r *AccessReader) ListAccess(ctx context.Context) ([]AccessEvent, error) {
	items, err := r.store.ScanAccessEvents(ctx)
	if err != nil {
		accessReadsTotal.WithLabelValues(outcomeStoreError).Inc()

		return nil, err
	}
	if items == nil {
		items = []AccessEvent{}
	}
	SortByAccessTime(items)
	accessReadsTotal.WithLabelValues(outcomeOK).Inc()

	return items, nil
}

// SortByAccessTime sorts items ascending by access_time, keeping scan order
// for equal timestamps.
func SortByAccessTime(items []AccessEvent) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].AccessTime.Less(items[j].AccessTime)
	})
}
