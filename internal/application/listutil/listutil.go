// Package listutil reads list-view query parameters and cuts result sets into pages.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
)

// DefaultPerPage is used when per_page is missing or not one of PerPageOptions.
const DefaultPerPage = 20

// PerPageOptions are the page sizes a client may ask for.
var PerPageOptions = []int{10, 20, 50, 100}

// maxPageLinks bounds the page links shown around the current page.
const maxPageLinks = 5

// Query is what a list view was asked for: ?page=&per_page=&sort=&dir=&q=
type Query struct {
	Page    int
	PerPage int
	Sort    string // empty means the view's default order
	Desc    bool
	Search  string
}

// ParseQuery reads a Query from URL values.
// PRE: sortable lists the column names the view can order by
// POST: Page >= 1, PerPage is one of PerPageOptions, Sort is empty or in sortable
func ParseQuery(v url.Values, sortable ...string) Query {
	q := Query{Search: v.Get("q"), Desc: v.Get("dir") == "desc"}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	if q.Page < 1 {
		q.Page = 1
	}
	q.PerPage, _ = strconv.Atoi(v.Get("per_page"))
	if !slices.Contains(PerPageOptions, q.PerPage) {
		q.PerPage = DefaultPerPage
	}
	if s := v.Get("sort"); slices.Contains(sortable, s) {
		q.Sort = s
	}
	return q
}

// Dir is the sort direction as it appears in a query string.
func (q Query) Dir() string {
	if q.Desc {
		return "desc"
	}
	return "asc"
}

// Values encodes q back into query parameters for page links.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
		v.Set("dir", q.Dir())
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	return v
}

// Window describes the slice of rows a page shows.
type Window struct {
	Page    int
	PerPage int
	Total   int
	Pages   int
}

// NewWindow clamps page into [1, Pages]. An empty result still has one page.
func NewWindow(page, perPage, total int) Window {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return Window{
		Page:    min(max(page, 1), pages),
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
	}
}

// Offset is the index of the first row on the page.
func (w Window) Offset() int { return (w.Page - 1) * w.PerPage }

// First is the 1-based number of the first row shown, 0 when there are none.
func (w Window) First() int {
	if w.Total == 0 {
		return 0
	}
	return w.Offset() + 1
}

// Last is the 1-based number of the last row shown.
func (w Window) Last() int { return min(w.Offset()+w.PerPage, w.Total) }

// Paginated reports whether the rows span more than one page.
func (w Window) Paginated() bool { return w.Pages > 1 }

// Numbers lists up to five page numbers around the current page.
func (w Window) Numbers() []int {
	start := max(1, w.Page-maxPageLinks/2)
	end := min(w.Pages, start+maxPageLinks-1)
	start = max(1, end-maxPageLinks+1)
	nums := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}
	return nums
}

// Paginate returns the rows of q's page and the window describing it.
func Paginate[T any](rows []T, q Query) ([]T, Window) {
	w := NewWindow(q.Page, q.PerPage, len(rows))
	start := min(w.Offset(), len(rows))
	return rows[start:w.Last()], w
}
