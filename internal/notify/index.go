package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/nhle/robolab-console/internal/model"
)

// Index is the global read/unread index. It is the single source for the
// unread badge; cached pages never feed the count.
type Index interface {
	// Upsert merges n into the index. An entry already seen as read stays
	// read. It reports whether the id was new.
	Upsert(ctx context.Context, n model.Notification) (bool, error)

	// Replace stores server state for each item, overwriting the read flag.
	Replace(ctx context.Context, items []model.Notification) error

	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, accountID string) error
	Remove(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (model.Notification, bool, error)

	// List returns an account's notifications, newest first.
	List(ctx context.Context, accountID string) ([]model.Notification, error)

	UnreadCount(ctx context.Context, accountID string) (int, error)
}

// MemoryIndex is an Index held in process memory.
type MemoryIndex struct {
	mu    sync.RWMutex
	items map[string]model.Notification
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{items: make(map[string]model.Notification)}
}

func (m *MemoryIndex) Upsert(_ context.Context, n model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior, ok := m.items[n.ID]
	if ok {
		n = n.MergeRead(prior)
	}
	m.items[n.ID] = n
	return !ok, nil
}

func (m *MemoryIndex) Replace(_ context.Context, items []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range items {
		m.items[n.ID] = n
	}
	return nil
}

func (m *MemoryIndex) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.items[id]; ok {
		n.IsRead = true
		m.items[id] = n
	}
	return nil
}

func (m *MemoryIndex) MarkAllRead(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, n := range m.items {
		if n.AccountID == accountID && !n.IsRead {
			n.IsRead = true
			m.items[id] = n
		}
	}
	return nil
}

func (m *MemoryIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, id)
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id string) (model.Notification, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.items[id]
	return n, ok, nil
}

func (m *MemoryIndex) List(_ context.Context, accountID string) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range m.items {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (m *MemoryIndex) UnreadCount(_ context.Context, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.items {
		if n.AccountID == accountID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// SortNewestFirst orders by creation date descending, then id.
func SortNewestFirst(items []model.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedDate.Equal(items[j].CreatedDate) {
			return items[i].CreatedDate.After(items[j].CreatedDate)
		}
		return items[i].ID > items[j].ID
	})
}
