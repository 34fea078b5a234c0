// Package listctl is the shared fetch+filter+paginate state holder behind the
// user and task tables. One Controller per view; the record type, searchable
// fields, and page size are configuration.
package listctl

import (
	"context"
	"strings"
)

type Controller[T any] struct {
	items      []T
	searchTerm string
	page       int
	pageSize   int
	fields     func(T) []string

	loadSeq int
}

// New returns a controller with no items on page 1. fields extracts the
// string values a search term is matched against (logical OR); entries may be
// empty for records missing that field.
func New[T any](pageSize int, fields func(T) []string) *Controller[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Controller[T]{page: 1, pageSize: pageSize, fields: fields}
}

// BeginLoad marks the start of a fetch and returns its sequence number.
// ApplyLoad ignores any response whose sequence is not the latest, so a stale
// in-flight fetch (superseded by rapid re-navigation) can never clobber newer
// items.
func (c *Controller[T]) BeginLoad() int {
	c.loadSeq++
	return c.loadSeq
}

// ApplyLoad installs a fetch result. Returns false (leaving state untouched)
// when seq is not the most recently issued load.
func (c *Controller[T]) ApplyLoad(seq int, items []T) bool {
	if seq != c.loadSeq {
		return false
	}
	c.items = items
	c.page = 1
	return true
}

// Load runs fetch and installs the result. On failure the previous items are
// left untouched and the error is returned to the caller.
func (c *Controller[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	seq := c.BeginLoad()
	items, err := fetch(ctx)
	if err != nil {
		return err
	}
	c.ApplyLoad(seq, items)
	return nil
}

func (c *Controller[T]) Items() []T         { return c.items }
func (c *Controller[T]) SearchTerm() string { return c.searchTerm }
func (c *Controller[T]) Page() int          { return c.page }
func (c *Controller[T]) PageSize() int      { return c.pageSize }

// SetSearchTerm updates the filter. Always resets to page 1: the old page may
// not exist under the new filter.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.searchTerm = term
	c.page = 1
}

// SetPage clamps n into [1, PageCount]. No-op when there are no pages.
func (c *Controller[T]) SetPage(n int) {
	pages := c.PageCount()
	if pages == 0 {
		return
	}
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	c.page = n
}

func (c *Controller[T]) NextPage() { c.SetPage(c.page + 1) }
func (c *Controller[T]) PrevPage() { c.SetPage(c.page - 1) }

func (c *Controller[T]) matches(item T) bool {
	term := strings.ToLower(strings.TrimSpace(c.searchTerm))
	if term == "" {
		return true
	}
	if c.fields == nil {
		return false
	}
	for _, f := range c.fields(item) {
		if f == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (c *Controller[T]) Filtered() []T {
	if strings.TrimSpace(c.searchTerm) == "" {
		return c.items
	}
	var out []T
	for _, it := range c.items {
		if c.matches(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Controller[T]) PageCount() int {
	n := len(c.Filtered())
	if n == 0 {
		return 0
	}
	return (n + c.pageSize - 1) / c.pageSize
}

// VisibleSlice is the current page of the filtered items; never longer than
// the page size.
func (c *Controller[T]) VisibleSlice() []T {
	filtered := c.Filtered()
	start := (c.page - 1) * c.pageSize
	if start >= len(filtered) {
		return nil
	}
	end := start + c.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

// Range reports the 1-based span of the visible slice within the filtered
// items, for "showing X–Y of N" footers. first is 0 when nothing matches.
func (c *Controller[T]) Range() (first, last, total int) {
	total = len(c.Filtered())
	if total == 0 {
		return 0, 0, 0
	}
	first = (c.page-1)*c.pageSize + 1
	last = first + len(c.VisibleSlice()) - 1
	return first, last, total
}

// RemoveLocally drops matching items without a refetch, for keeping the table
// responsive after a server-confirmed delete. The page is re-clamped so the
// view never lands past the new last page.
func (c *Controller[T]) RemoveLocally(pred func(T) bool) {
	kept := c.items[:0:0]
	for _, it := range c.items {
		if !pred(it) {
			kept = append(kept, it)
		}
	}
	c.items = kept
	if pages := c.PageCount(); pages > 0 && c.page > pages {
		c.page = pages
	}
}

// PageWindow returns the page numbers a windowed pager shows: all pages when
// they fit, otherwise a window centered on current, clamped so it never
// starts before 1 or runs past the last page.
func PageWindow(current, total, window int) []int {
	if total <= 0 || window <= 0 {
		return nil
	}
	if total <= window {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	start := current - window/2
	if start < 1 {
		start = 1
	}
	if start+window-1 > total {
		start = total - window + 1
	}
	out := make([]int, window)
	for i := range out {
		out[i] = start + i
	}
	return out
}
