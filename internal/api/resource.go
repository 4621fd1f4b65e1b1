package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/robolab-console/internal/model"
)

// MaxPageSize is the largest page size the client will request.
const MaxPageSize = 100

var validate = validator.New()

// ListQuery is the request side of the paged-resource contract.
type ListQuery struct {
	Page   int    `validate:"gte=1"`
	Size   int    `validate:"gte=1,lte=100"`
	Search string `validate:"max=200"`

	// Filters holds domain-specific query parameters (e.g. robotModelId,
	// accountId, status).
	Filters map[string]string
}

// Validate rejects queries the paged contract does not define (page < 1,
// size outside 1..MaxPageSize).
func (q ListQuery) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid list query: %w", err)
	}
	return nil
}

// Values encodes the query as URL parameters.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.Search != "" {
		v.Set("search", q.Search)
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if q.Filters[k] != "" {
			v.Set(k, q.Filters[k])
		}
	}
	return v
}

// Resource is a typed view of one paged REST collection.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path (e.g. "/courses") to a client.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// List fetches one page. An envelope whose arithmetic does not match the
// request is returned as sent and logged.
func (r *Resource[T]) List(ctx context.Context, q ListQuery) (*model.Page[T], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var page model.Page[T]
	if err := r.client.Get(ctx, r.path, q.Values(), &page); err != nil {
		return nil, err
	}
	page.Number = q.Page
	page.Size = q.Size
	if page.Data == nil {
		page.Data = []T{}
	}
	if err := page.Check(q.Page, q.Size); err != nil {
		r.client.logger.Warn("inconsistent page envelope", "path", r.path, "page", q.Page, "size", q.Size, "error", err)
	}
	return &page, nil
}

// ListAll walks pages from q.Page until has_next is false.
func (r *Resource[T]) ListAll(ctx context.Context, q ListQuery) ([]T, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = MaxPageSize
	}

	var all []T
	for {
		page, err := r.List(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasNext || len(page.Data) == 0 {
			break
		}
		q.Page++
	}
	return all, nil
}

// Get fetches a single entity.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.client.Get(ctx, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new entity and returns the server's copy.
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	var out T
	if err := r.client.Post(ctx, r.path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an entity and returns the server's copy.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	var out T
	if err := r.client.Put(ctx, r.itemPath(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an entity.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.itemPath(id), nil)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
