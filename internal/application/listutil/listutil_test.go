package listutil

import (
	"net/url"
	"slices"
	"testing"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Query
	}{
		{"defaults", "", Query{Page: 1, PerPage: DefaultPerPage}},
		{"all set", "page=3&per_page=50&sort=count&dir=desc&q=bob", Query{Page: 3, PerPage: 50, Sort: "count", Desc: true, Search: "bob"}},
		{"negative page", "page=-2", Query{Page: 1, PerPage: DefaultPerPage}},
		{"odd page size", "per_page=37", Query{Page: 1, PerPage: DefaultPerPage}},
		{"unknown column", "sort=password&dir=desc", Query{Page: 1, PerPage: DefaultPerPage, Desc: true}},
		{"junk direction", "sort=name&dir=sideways", Query{Page: 1, PerPage: DefaultPerPage, Sort: "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := ParseQuery(v, "name", "count"); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQueryValues(t *testing.T) {
	q := Query{Page: 2, PerPage: 10, Sort: "name", Search: "al"}
	if got := q.Values().Encode(); got != "dir=asc&page=2&per_page=10&q=al&sort=name" {
		t.Errorf("Values() = %q", got)
	}
	if got := (Query{Page: 1, PerPage: 20, Desc: true}).Values().Encode(); got != "page=1&per_page=20" {
		t.Errorf("unsorted Values() = %q", got)
	}
}

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name                 string
		page, perPage, total int
		want                 Window
		first, last          int
	}{
		{"empty", 1, 20, 0, Window{Page: 1, PerPage: 20, Total: 0, Pages: 1}, 0, 0},
		{"partial last page", 3, 20, 45, Window{Page: 3, PerPage: 20, Total: 45, Pages: 3}, 41, 45},
		{"page past end clamps", 9, 10, 25, Window{Page: 3, PerPage: 10, Total: 25, Pages: 3}, 21, 25},
		{"zero page size", 1, 0, 5, Window{Page: 1, PerPage: DefaultPerPage, Total: 5, Pages: 1}, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.page, tt.perPage, tt.total)
			if w != tt.want {
				t.Fatalf("got %+v, want %+v", w, tt.want)
			}
			if w.First() != tt.first || w.Last() != tt.last {
				t.Errorf("rows %d-%d, want %d-%d", w.First(), w.Last(), tt.first, tt.last)
			}
		})
	}
}

func TestWindowNumbers(t *testing.T) {
	tests := []struct {
		page, pages int
		want        []int
	}{
		{1, 1, []int{1}},
		{1, 10, []int{1, 2, 3, 4, 5}},
		{6, 10, []int{4, 5, 6, 7, 8}},
		{10, 10, []int{6, 7, 8, 9, 10}},
		{2, 3, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		w := NewWindow(tt.page, 1, tt.pages)
		if got := w.Numbers(); !slices.Equal(got, tt.want) {
			t.Errorf("page %d of %d: got %v, want %v", tt.page, tt.pages, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	rows := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		name      string
		q         Query
		want      []string
		paginated bool
	}{
		{"first page", Query{Page: 1, PerPage: 2}, []string{"a", "b"}, true},
		{"last page", Query{Page: 3, PerPage: 2}, []string{"e"}, true},
		{"beyond end shows last page", Query{Page: 7, PerPage: 2}, []string{"e"}, true},
		{"single page", Query{Page: 1, PerPage: 10}, rows, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, w := Paginate(rows, tt.q)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if w.Paginated() != tt.paginated {
				t.Errorf("Paginated() = %v", w.Paginated())
			}
		})
	}
	if got, _ := Paginate([]int(nil), Query{Page: 1, PerPage: 20}); len(got) != 0 {
		t.Errorf("nil rows gave %v", got)
	}
}
