// Package pagination slices ordered result sets into fixed-size, 1-based pages.
//
// Requested page numbers outside the valid range are clamped rather than
// rejected: anything below 1 becomes 1, anything past the last page becomes
// the last page. An empty result set still has one (empty) page.
package pagination

import (
	"strconv"
	"strings"
)

// Page describes one slice of a result set.
type Page struct {
	Number   int // 1-based, already clamped
	PerPage  int
	Total    int
	NumPages int
}

// New builds the page for a result set of total items.
func New(total, perPage, requested int) Page {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:   number,
		PerPage:  perPage,
		Total:    total,
		NumPages: numPages,
	}
}

// ParsePage reads the raw "page" query value. Missing or non-numeric input
// falls back to page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the maximum number of items on the page.
func (p Page) Limit() int {
	return p.PerPage
}

// Len is the number of items actually on the page.
func (p Page) Len() int {
	start := p.Offset()
	if start >= p.Total {
		return 0
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return end - start
}

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages }

func (p Page) HasOtherPages() bool { return p.NumPages > 1 }

func (p Page) PreviousPage() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

func (p Page) NextPage() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

// Range lists every page number, for templates.
func (p Page) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Slice returns the items of items that fall on the requested page.
func Slice[T any](items []T, perPage, requested int) ([]T, Page) {
	p := New(len(items), perPage, requested)
	start := p.Offset()
	return items[start : start+p.Len()], p
}
