// Package page provides a paginated view over one page of already-fetched items.
package page

// List is a page of items plus the pagination totals reported upstream.
// Items are never sliced: the list always holds exactly the current page.
type List[T any] struct {
	items       []T
	pageLength  int
	totalItems  int
	currentPage int
}

// New creates a paginated list. Non-positive pageLength or currentPage are
// normalized to 1 and negative totals to 0.
func New[T any](items []T, pageLength, totalItems, currentPage int) *List[T] {
	if pageLength < 1 {
		pageLength = 1
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}
	if items == nil {
		items = []T{}
	}
	return &List[T]{
		items:       items,
		pageLength:  pageLength,
		totalItems:  totalItems,
		currentPage: currentPage,
	}
}

// Empty returns a list with no items and no totals.
func Empty[T any]() *List[T] { return New[T](nil, 1, 0, 1) }

// Items returns the items on the current page.
func (l *List[T]) Items() []T { return l.items }

// Len returns the number of items on the current page.
func (l *List[T]) Len() int { return len(l.items) }

// PageLength returns the number of items per page.
func (l *List[T]) PageLength() int { return l.pageLength }

// TotalItems returns the total item count across all pages.
func (l *List[T]) TotalItems() int { return l.totalItems }

// CurrentPage returns the 1-based current page.
func (l *List[T]) CurrentPage() int { return l.currentPage }

// TotalPages returns the number of pages needed for TotalItems.
func (l *List[T]) TotalPages() int {
	return (l.totalItems + l.pageLength - 1) / l.pageLength
}

// FirstItem returns the 1-based index of the first item on the current page.
func (l *List[T]) FirstItem() int {
	if l.totalItems == 0 {
		return 0
	}
	return (l.currentPage-1)*l.pageLength + 1
}

// LastItem returns the 1-based index of the last item on the current page.
func (l *List[T]) LastItem() int {
	return min(l.currentPage*l.pageLength, l.totalItems)
}

// HasPrev reports whether a previous page exists.
func (l *List[T]) HasPrev() bool { return l.currentPage > 1 }

// HasNext reports whether a next page exists.
func (l *List[T]) HasNext() bool { return l.currentPage < l.TotalPages() }

// Offset returns the zero-based start offset of page n, as used in "start" query parameters.
func (l *List[T]) Offset(n int) int {
	if n < 1 {
		n = 1
	}
	return (n - 1) * l.pageLength
}
