package sqlgraph

import (
	"context"

	"github.com/relkit/relkit/dialect"
)

// fetchFunc executes a page-bounded plan and returns its items.
type fetchFunc[T any] func(ctx context.Context, conn dialect.Conn, sel *Select) ([]T, error)

// Paginator reads a plan page by page using LIMIT and OFFSET. Pages are
// 0-based. A plan without an explicit order is ordered by the primary
// key of its primary slot, so that pages are stable.
type Paginator[T any] struct {
	sel   *Select
	size  int
	page  int
	fetch fetchFunc[T]
}

// ItemsAndPages holds the total number of items and pages.
type ItemsAndPages struct {
	Items int
	Pages int
}

func newPaginator[T any](sel *Select, size int, fetch fetchFunc[T]) *Paginator[T] {
	if size <= 0 {
		panic("sqlgraph: page size must be greater than zero")
	}
	if !sel.Ordered() {
		sel = sel.OrderByIDAsc()
	}
	return &Paginator[T]{sel: sel, size: size, fetch: fetch}
}

// Paginate returns a paginator over the rows of the plan. It panics if
// pageSize is not positive.
func (s *Select) Paginate(pageSize int) *Paginator[Tuple] {
	return newPaginator(s, pageSize, func(ctx context.Context, conn dialect.Conn, sel *Select) ([]Tuple, error) {
		return sel.All(ctx, conn)
	})
}

// PageSize returns the number of items per page.
func (p *Paginator[T]) PageSize() int { return p.size }

// CurrentPage returns the 0-based index of the page Fetch reads.
func (p *Paginator[T]) CurrentPage() int { return p.page }

// FetchPage returns the n-th page. A page past the end is empty.
func (p *Paginator[T]) FetchPage(ctx context.Context, conn dialect.Conn, n int) ([]T, error) {
	return p.fetch(ctx, conn, p.sel.Limit(p.size).Offset(n*p.size))
}

// Fetch returns the current page.
func (p *Paginator[T]) Fetch(ctx context.Context, conn dialect.Conn) ([]T, error) {
	return p.FetchPage(ctx, conn, p.page)
}

// FetchAndNext returns the current page and advances the cursor. It
// returns nil once the pages are exhausted.
//
//	for {
//		items, err := p.FetchAndNext(ctx, drv)
//		if err != nil || items == nil {
//			break
//		}
//	}
func (p *Paginator[T]) FetchAndNext(ctx context.Context, conn dialect.Conn) ([]T, error) {
	items, err := p.Fetch(ctx, conn)
	if err != nil {
		return nil, err
	}
	p.page++
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// NumItems returns the number of items across all pages.
func (p *Paginator[T]) NumItems(ctx context.Context, conn dialect.Conn) (int, error) {
	return p.sel.Count(ctx, conn)
}

// NumPages returns the number of pages.
func (p *Paginator[T]) NumPages(ctx context.Context, conn dialect.Conn) (int, error) {
	n, err := p.NumItems(ctx, conn)
	if err != nil {
		return 0, err
	}
	return p.pages(n), nil
}

// NumItemsAndPages returns both totals from a single count query.
func (p *Paginator[T]) NumItemsAndPages(ctx context.Context, conn dialect.Conn) (ItemsAndPages, error) {
	n, err := p.NumItems(ctx, conn)
	if err != nil {
		return ItemsAndPages{}, err
	}
	return ItemsAndPages{Items: n, Pages: p.pages(n)}, nil
}

func (p *Paginator[T]) pages(items int) int {
	return (items + p.size - 1) / p.size
}
