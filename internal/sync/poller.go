// Package sync refetches the notification bell in the background. It is the
// recovery path for pushes that never arrived.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/notify"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a fetch completes.
type SyncResultMsg struct {
	Query     notify.QueryKey
	Page      model.Page[model.Notification]
	Unread    int
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg carries the sign-in message when the API rejects the stored
// token. The root model stops syncing on it.
type AuthErrorMsg struct {
	Message string
}

// Fetcher is the part of the synchronizer the poller drives.
type Fetcher interface {
	FetchPage(ctx context.Context, accountID string, page, size int, status string) (model.Page[model.Notification], error)
	UnreadCount(ctx context.Context, accountID string) (int, error)
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Poller periodically refetches the page currently shown by the bell.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	stopOnce gosync.Once

	mu      gosync.Mutex
	query   notify.QueryKey
	status  SyncStatus
	running bool
}

// New creates a Poller for the given account's first page.
func New(f Fetcher, query notify.QueryKey, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:   f,
		interval:  interval,
		logger:    logger,
		query:     query,
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a tea.Cmd that waits for
// the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	select {
	case <-p.stopCh:
		p.mu.Unlock()
		return nil
	default:
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine and releases pending waiters. A stopped
// poller does not restart.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// Refresh triggers an immediate fetch, e.g. when the popover opens.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A fetch is already pending.
	}
	return nil
}

// SetQuery changes the page being polled and fetches it right away.
func (p *Poller) SetQuery(q notify.QueryKey) tea.Cmd {
	p.mu.Lock()
	p.query = q
	p.mu.Unlock()
	return p.Refresh()
}

// Query returns the page being polled.
func (p *Poller) Query() notify.QueryKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Status returns the current poller status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetch()
		case <-p.triggerCh:
			p.fetch()
		}
	}
}

// fetch performs one fetch and sends the outcome on the result channel.
func (p *Poller) fetch() {
	q := p.Query()
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	page, err := p.fetcher.FetchPage(ctx, q.AccountID, q.Page, q.Size, q.Status)
	if err != nil {
		p.setStatus(SyncError, err)
		p.logger.Warn("notification poll failed", "account_id", q.AccountID, "page", q.Page, "error", err)

		msg := SyncResultMsg{Query: q, Error: err}
		if api.IsUnauthorized(err) {
			msg.AuthError = &AuthErrorMsg{Message: api.UserMessage(err)}
		}
		p.sendResult(msg)
		return
	}

	unread, err := p.fetcher.UnreadCount(ctx, q.AccountID)
	if err != nil {
		p.setStatus(SyncError, err)
		p.sendResult(SyncResultMsg{Query: q, Page: page, Error: err})
		return
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(SyncResultMsg{Query: q, Page: page, Unread: unread})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// Call it after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
