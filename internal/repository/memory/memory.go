// Package memory keeps the capture index in process memory. It is used when
// no database path is configured; queue order is then rebuilt from the
// capture directory on every start.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"labelstation/internal/model"
)

// CaptureRepository implements repository.CaptureRepository in memory.
type CaptureRepository struct {
	mu      sync.RWMutex
	nextSeq int64
	items   map[string]*model.CaptureItem
}

// NewCaptureRepository creates an empty in-memory capture index.
func NewCaptureRepository() *CaptureRepository {
	return &CaptureRepository{items: make(map[string]*model.CaptureItem)}
}

func (r *CaptureRepository) Insert(item *model.CaptureItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.Filename]; exists {
		return 0, fmt.Errorf("failed to insert capture: duplicate filename %s", item.Filename)
	}

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.State == "" {
		item.State = model.CapturePending
	}
	item.UpdatedAt = now

	r.nextSeq++
	item.Seq = r.nextSeq
	stored := *item
	r.items[item.Filename] = &stored
	return item.Seq, nil
}

func (r *CaptureRepository) GetByFilename(filename string) (*model.CaptureItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[filename]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *CaptureRepository) Oldest() (*model.CaptureItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest *model.CaptureItem
	for _, item := range r.items {
		if item.State != model.CapturePending {
			continue
		}
		if oldest == nil || item.Seq < oldest.Seq {
			oldest = item
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (r *CaptureRepository) ListByState(state model.CaptureState) ([]model.CaptureItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.CaptureItem
	for _, item := range r.items {
		if item.State == state {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

func (r *CaptureRepository) CountByState() (map[model.CaptureState]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[model.CaptureState]int)
	for _, item := range r.items {
		counts[item.State]++
	}
	return counts, nil
}

func (r *CaptureRepository) Transition(filename string, from, to model.CaptureState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[filename]
	if !ok || item.State != from {
		return false, nil
	}
	item.State = to
	item.UpdatedAt = time.Now()
	return true, nil
}
