package notify

import (
	"github.com/nhle/robolab-console/internal/model"
)

// QueryKey identifies one cached page query.
type QueryKey struct {
	AccountID string
	Page      int
	Size      int
	Status    string
}

// WithPage returns k for page number p.
func (k QueryKey) WithPage(p int) QueryKey {
	k.Page = p
	return k
}

// accepts reports whether a notification with the given read state belongs
// in a page filtered by k.Status.
func (k QueryKey) accepts(isRead bool) bool {
	switch k.Status {
	case model.NotificationStatusUnread:
		return !isRead
	case model.NotificationStatusRead:
		return isRead
	default:
		return true
	}
}

// pageCache holds the last known result of each page query. Callers hold
// the synchronizer's lock.
type pageCache struct {
	pages map[QueryKey]*model.Page[model.Notification]
}

func newPageCache() *pageCache {
	return &pageCache{pages: make(map[QueryKey]*model.Page[model.Notification])}
}

func (c *pageCache) put(key QueryKey, page model.Page[model.Notification]) {
	p := page.Clone()
	c.pages[key] = &p
}

func (c *pageCache) get(key QueryKey) (model.Page[model.Notification], bool) {
	p, ok := c.pages[key]
	if !ok {
		return model.Page[model.Notification]{}, false
	}
	return p.Clone(), true
}

func (c *pageCache) keysFor(accountID string) []QueryKey {
	var keys []QueryKey
	for k := range c.pages {
		if k.AccountID == accountID {
			keys = append(keys, k)
		}
	}
	return keys
}

// prepend inserts n at the head of every page of its account that accepts
// it and does not already hold its id. It returns the number of pages
// touched.
func (c *pageCache) prepend(n model.Notification) int {
	touched := 0
	for key, page := range c.pages {
		if key.AccountID != n.AccountID || !key.accepts(n.IsRead) || indexOf(page.Data, n.ID) >= 0 {
			continue
		}

		data := make([]model.Notification, 0, len(page.Data)+1)
		data = append(data, n)
		data = append(data, page.Data...)
		if key.Size > 0 && len(data) > key.Size {
			data = data[:key.Size]
		}
		page.Data = data
		page.TotalCount++
		recount(page, key)
		touched++
	}
	return touched
}

// markRead flips the read flag of id wherever it is cached.
func (c *pageCache) markRead(id string) {
	for _, page := range c.pages {
		if i := indexOf(page.Data, id); i >= 0 {
			page.Data[i].IsRead = true
		}
	}
}

func (c *pageCache) markAllRead(accountID string) {
	for key, page := range c.pages {
		if key.AccountID != accountID {
			continue
		}
		for i := range page.Data {
			page.Data[i].IsRead = true
		}
	}
}

// remove drops id from every cached page.
func (c *pageCache) remove(id string) {
	for key, page := range c.pages {
		i := indexOf(page.Data, id)
		if i < 0 {
			continue
		}
		page.Data = append(page.Data[:i:i], page.Data[i+1:]...)
		if page.TotalCount > 0 {
			page.TotalCount--
		}
		recount(page, key)
	}
}

func (c *pageCache) accountOf(id string) (string, bool) {
	for key, page := range c.pages {
		if indexOf(page.Data, id) >= 0 {
			return key.AccountID, true
		}
	}
	return "", false
}

// recount restores the envelope arithmetic after a local patch.
func recount(page *model.Page[model.Notification], key QueryKey) {
	fixed := model.NewPage(page.Data, key.Page, key.Size, page.TotalCount)
	*page = fixed
}

func indexOf(items []model.Notification, id string) int {
	for i, n := range items {
		if n.ID == id {
			return i
		}
	}
	return -1
}
