package model

import "fmt"

// Page is the envelope returned by every paged list endpoint.
type Page[T any] struct {
	Data        []T  `json:"data"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`

	// Number and Size echo the request; they are not part of the wire
	// envelope.
	Number int `json:"-"`
	Size   int `json:"-"`
}

// NewPage builds an envelope for one page of a collection of total items.
func NewPage[T any](data []T, number, size, total int) Page[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{
		Data:        data,
		TotalCount:  total,
		TotalPages:  pages,
		HasNext:     number < pages,
		HasPrevious: number > 1,
		Number:      number,
		Size:        size,
	}
}

// Check verifies the envelope arithmetic against the page number and size
// used in the request.
func (p Page[T]) Check(number, size int) error {
	if size > 0 && len(p.Data) > size {
		return fmt.Errorf("page has %d items, more than requested size %d", len(p.Data), size)
	}
	if p.HasNext != (number < p.TotalPages) {
		return fmt.Errorf("has_next=%t inconsistent with page %d of %d", p.HasNext, number, p.TotalPages)
	}
	return nil
}

// Clone returns a copy of p whose Data slice can be modified independently.
func (p Page[T]) Clone() Page[T] {
	out := p
	out.Data = make([]T, len(p.Data))
	copy(out.Data, p.Data)
	return out
}
