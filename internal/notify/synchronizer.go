// Package notify keeps the notification bell consistent across paged
// fetches, push events and local mutations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/robolab-console/internal/model"
)

// ErrNoAccount is returned when an operation needs an account and none is
// set. The bell renders nothing in that state.
var ErrNoAccount = errors.New("notify: no account")

// Backend is the server side of the notification endpoints.
type Backend interface {
	List(ctx context.Context, accountID string, page, size int, status string) (*model.Page[model.Notification], error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, accountID string) error
	Delete(ctx context.Context, id string) error
}

// EventKind classifies a change reported to listeners.
type EventKind int

const (
	EventFetched EventKind = iota
	EventPushed
	EventUpdated
	EventError
)

// Event is delivered to listeners after every state change.
type Event struct {
	Kind      EventKind
	AccountID string
	Unread    int
	Err       error
}

// DefaultTombstoneTTL is how long a locally deleted id is kept out of
// pushes and fetches.
const DefaultTombstoneTTL = 10 * time.Minute

// Synchronizer owns the page cache and drives the index. All cache and
// index mutation happens under mu.
type Synchronizer struct {
	backend      Backend
	index        Index
	logger       *slog.Logger
	timeout      time.Duration
	tombstoneTTL time.Duration
	now          func() time.Time

	mu      sync.Mutex
	cache   *pageCache
	deleted map[string]time.Time

	lmu       sync.RWMutex
	listeners []func(Event)

	refetches sync.WaitGroup
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithRefetchTimeout bounds each background refetch.
func WithRefetchTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.timeout = d }
}

// WithTombstoneTTL sets how long deleted ids stay suppressed.
func WithTombstoneTTL(d time.Duration) Option {
	return func(s *Synchronizer) { s.tombstoneTTL = d }
}

// New creates a Synchronizer over backend and index.
func New(backend Backend, index Index, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:      backend,
		index:        index,
		logger:       slog.Default(),
		timeout:      30 * time.Second,
		tombstoneTTL: DefaultTombstoneTTL,
		now:          time.Now,
		cache:        newPageCache(),
		deleted:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after every change. Listeners run on
// the goroutine that made the change and must not block.
func (s *Synchronizer) Subscribe(fn func(Event)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Synchronizer) emit(ev Event) {
	s.lmu.RLock()
	listeners := append([]func(Event){}, s.listeners...)
	s.lmu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// FetchPage loads one page from the server and stores it as authoritative
// state in both the page cache and the index.
func (s *Synchronizer) FetchPage(
	ctx context.Context,
	accountID string,
	page, size int,
	status string,
) (model.Page[model.Notification], error) {
	if accountID == "" {
		return model.Page[model.Notification]{}, ErrNoAccount
	}

	key := QueryKey{AccountID: accountID, Page: page, Size: size, Status: status}
	result, err := s.backend.List(ctx, accountID, page, size, status)
	if err != nil {
		s.logger.Warn("fetching notifications failed",
			"account_id", accountID, "page", page, "status", status, "error", err)
		s.emit(Event{Kind: EventError, AccountID: accountID, Err: err})
		return model.Page[model.Notification]{}, err
	}

	unread, err := s.apply(ctx, key, *result)
	if err != nil {
		return model.Page[model.Notification]{}, err
	}

	s.emit(Event{Kind: EventFetched, AccountID: accountID, Unread: unread})
	out, _ := s.Page(key)
	return out, nil
}

// apply stores a fetched page under key. Tombstoned ids are dropped, and a
// page that holds the whole filtered result reconciles the index with it.
func (s *Synchronizer) apply(ctx context.Context, key QueryKey, page model.Page[model.Notification]) (int, error) {
	for i := range page.Data {
		page.Data[i].AccountID = key.AccountID
	}
	page.Number = key.Page
	page.Size = key.Size

	s.mu.Lock()
	defer s.mu.Unlock()

	complete := key.Page == 1 && page.TotalCount <= len(page.Data)
	kept := make([]model.Notification, 0, len(page.Data))
	for _, n := range page.Data {
		if !s.tombstoned(n.ID) {
			kept = append(kept, n)
		}
	}
	if dropped := len(page.Data) - len(kept); dropped > 0 {
		page.Data = kept
		page.TotalCount = max(page.TotalCount-dropped, len(kept))
		recount(&page, key)
	}

	if err := s.index.Replace(ctx, page.Data); err != nil {
		return 0, fmt.Errorf("storing fetched notifications: %w", err)
	}
	if complete {
		if err := s.reconcile(ctx, key, page.Data); err != nil {
			return 0, fmt.Errorf("reconciling index: %w", err)
		}
	}
	s.cache.put(key, page)
	return s.index.UnreadCount(ctx, key.AccountID)
}

// reconcile brings the index in line with a complete server result for key.
// Without a filter, indexed ids the server no longer returns are removed.
// Under the unread filter, indexed unread ids the server left out were read
// or deleted elsewhere and are marked read. A read-filtered result cannot
// tell those cases apart and is not reconciled. Callers hold mu.
func (s *Synchronizer) reconcile(ctx context.Context, key QueryKey, data []model.Notification) error {
	if key.Status == model.NotificationStatusRead {
		return nil
	}

	present := make(map[string]bool, len(data))
	for _, n := range data {
		present[n.ID] = true
	}
	indexed, err := s.index.List(ctx, key.AccountID)
	if err != nil {
		return err
	}

	for _, n := range indexed {
		if present[n.ID] {
			continue
		}
		switch key.Status {
		case model.NotificationStatusUnread:
			if n.IsRead {
				continue
			}
			err = s.index.MarkRead(ctx, n.ID)
		default:
			err = s.index.Remove(ctx, n.ID)
		}
		if err != nil {
			return err
		}
		s.logger.Debug("index reconciled", "account_id", key.AccountID, "id", n.ID, "status", key.Status)
	}
	return nil
}

// tombstoned reports whether id was deleted locally within the TTL and
// forgets expired entries. Callers hold mu.
func (s *Synchronizer) tombstoned(id string) bool {
	at, ok := s.deleted[id]
	if !ok {
		return false
	}
	if s.now().Sub(at) >= s.tombstoneTTL {
		delete(s.deleted, id)
		return false
	}
	return true
}

// Page returns the cached result for key, if any.
func (s *Synchronizer) Page(key QueryKey) (model.Page[model.Notification], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.get(key)
}

// OnPush handles one server-pushed notification. Redelivery of an id that is
// already cached or indexed changes nothing.
func (s *Synchronizer) OnPush(ctx context.Context, n model.Notification) error {
	if n.AccountID == "" {
		return ErrNoAccount
	}

	s.mu.Lock()
	if s.tombstoned(n.ID) {
		s.mu.Unlock()
		s.logger.Debug("ignoring push for deleted notification", "account_id", n.AccountID, "id", n.ID)
		return nil
	}
	added, err := s.index.Upsert(ctx, n)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("indexing pushed notification %s: %w", n.ID, err)
	}
	if merged, ok, err := s.index.Get(ctx, n.ID); err == nil && ok {
		n = merged
	}
	s.cache.prepend(n)
	unread, err := s.index.UnreadCount(ctx, n.AccountID)
	keys := s.cache.keysFor(n.AccountID)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("counting unread: %w", err)
	}

	s.logger.Debug("notification pushed",
		"account_id", n.AccountID, "id", n.ID, "new", added, "unread", unread)
	s.emit(Event{Kind: EventPushed, AccountID: n.AccountID, Unread: unread})

	s.refetch(keys)
	return nil
}

// refetch reloads keys in the background. Results land last-write-wins.
func (s *Synchronizer) refetch(keys []QueryKey) {
	for _, key := range keys {
		s.refetches.Add(1)
		go func(key QueryKey) {
			defer s.refetches.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.FetchPage(ctx, key.AccountID, key.Page, key.Size, key.Status); err != nil {
				s.logger.Debug("background refetch failed", "account_id", key.AccountID, "page", key.Page, "error", err)
			}
		}(key)
	}
}

// Refresh refetches every cached page of accountID and waits for them.
func (s *Synchronizer) Refresh(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrNoAccount
	}

	s.mu.Lock()
	keys := s.cache.keysFor(accountID)
	s.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if _, err := s.FetchPage(ctx, key.AccountID, key.Page, key.Size, key.Status); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Wait blocks until all background refetches have finished.
func (s *Synchronizer) Wait() {
	s.refetches.Wait()
}

// MarkRead flips id to read locally, then tells the server. A failed call
// is returned but not rolled back; the next fetch corrects state.
func (s *Synchronizer) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	accountID := s.accountOf(ctx, id)
	s.cache.markRead(id)
	err := s.index.MarkRead(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marking %s read locally: %w", id, err)
	}
	s.emitUpdated(ctx, accountID)

	if err := s.backend.MarkRead(ctx, id); err != nil {
		s.logger.Warn("mark read failed", "id", id, "error", err)
		s.emit(Event{Kind: EventError, AccountID: accountID, Err: err})
		return err
	}
	return nil
}

// MarkAllRead flips every notification of accountID to read locally, then
// tells the server. Failures are not rolled back.
func (s *Synchronizer) MarkAllRead(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrNoAccount
	}

	s.mu.Lock()
	s.cache.markAllRead(accountID)
	err := s.index.MarkAllRead(ctx, accountID)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marking all read locally: %w", err)
	}
	s.emitUpdated(ctx, accountID)

	if err := s.backend.MarkAllRead(ctx, accountID); err != nil {
		s.logger.Warn("mark all read failed", "account_id", accountID, "error", err)
		s.emit(Event{Kind: EventError, AccountID: accountID, Err: err})
		return err
	}
	return nil
}

// Delete removes id from every local view, then from the server. Until the
// tombstone expires, pushes and fetches carrying id are ignored; a failed
// server call lifts it so the next fetch restores the item.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	accountID := s.accountOf(ctx, id)
	s.deleted[id] = s.now()
	s.cache.remove(id)
	err := s.index.Remove(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("removing %s locally: %w", id, err)
	}
	s.emitUpdated(ctx, accountID)

	if err := s.backend.Delete(ctx, id); err != nil {
		s.mu.Lock()
		delete(s.deleted, id)
		s.mu.Unlock()
		s.logger.Warn("delete failed", "id", id, "error", err)
		s.emit(Event{Kind: EventError, AccountID: accountID, Err: err})
		return err
	}
	return nil
}

// UnreadCount returns the badge value for accountID, read from the index.
func (s *Synchronizer) UnreadCount(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, ErrNoAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.UnreadCount(ctx, accountID)
}

// accountOf finds the owner of id. Callers hold mu.
func (s *Synchronizer) accountOf(ctx context.Context, id string) string {
	if n, ok, err := s.index.Get(ctx, id); err == nil && ok {
		return n.AccountID
	}
	accountID, _ := s.cache.accountOf(id)
	return accountID
}

func (s *Synchronizer) emitUpdated(ctx context.Context, accountID string) {
	if accountID == "" {
		return
	}
	unread, err := s.UnreadCount(ctx, accountID)
	if err != nil {
		return
	}
	s.emit(Event{Kind: EventUpdated, AccountID: accountID, Unread: unread})
}
