package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// lister is the slice of a store query the paginator needs.
type lister[T any] interface {
	Count(ctx context.Context) (int64, error)
	Find(ctx context.Context, offset, limit int) ([]T, error)
}

// Paginator describes the whole paginated list.
type Paginator struct {
	Count    int64 `json:"count"`
	NumPages int   `json:"num_pages"`
	PerPage  int   `json:"per_page"`
}

// Page describes the requested page.
type Page struct {
	Number       int  `json:"number"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
	NextPage     int  `json:"next_page_number,omitempty"`
	PreviousPage int  `json:"previous_page_number,omitempty"`
	StartIndex   int  `json:"start_index"`
	EndIndex     int  `json:"end_index"`
}

// List is the context shared by every list view. Paginator and PageObj
// are nil for unpaginated lists.
type List[T any] struct {
	ObjectList  []T        `json:"object_list"`
	Paginator   *Paginator `json:"paginator"`
	PageObj     *Page      `json:"page_obj"`
	IsPaginated bool       `json:"is_paginated"`
}

// LastPage is the page token that selects the final page.
const LastPage = "last"

func newPaginator(count int64, perPage int) *Paginator {
	pages := 1
	if count > 0 {
		pages = int((count + int64(perPage) - 1) / int64(perPage))
	}
	return &Paginator{Count: count, NumPages: pages, PerPage: perPage}
}

// pageNumber resolves a ?page= token. Empty means 1; "last" means the
// final page; anything else must be an integer within [1, NumPages].
func (p *Paginator) pageNumber(token string) (int, error) {
	token = strings.TrimSpace(token)
	switch token {
	case "":
		return 1, nil
	case LastPage:
		return p.NumPages, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: page %q is not a number", ErrNotFound, token)
	}
	if n < 1 || n > p.NumPages {
		return 0, fmt.Errorf("%w: page %d out of range", ErrNotFound, n)
	}
	return n, nil
}

func (p *Paginator) page(n int) *Page {
	pg := &Page{
		Number:      n,
		HasNext:     n < p.NumPages,
		HasPrevious: n > 1,
	}
	if pg.HasNext {
		pg.NextPage = n + 1
	}
	if pg.HasPrevious {
		pg.PreviousPage = n - 1
	}
	if p.Count > 0 {
		pg.StartIndex = (n-1)*p.PerPage + 1
		pg.EndIndex = n * p.PerPage
		if int64(pg.EndIndex) > p.Count {
			pg.EndIndex = int(p.Count)
		}
	}
	return pg
}

// paginate loads one page of src. perPage <= 0 loads everything unpaginated.
func paginate[T any](ctx context.Context, src lister[T], perPage int, token string) (List[T], error) {
	if perPage <= 0 {
		rows, err := src.Find(ctx, 0, 0)
		if err != nil {
			return List[T]{}, err
		}
		return List[T]{ObjectList: rows}, nil
	}

	count, err := src.Count(ctx)
	if err != nil {
		return List[T]{}, err
	}
	pager := newPaginator(count, perPage)
	n, err := pager.pageNumber(token)
	if err != nil {
		return List[T]{}, err
	}

	rows, err := src.Find(ctx, (n-1)*perPage, perPage)
	if err != nil {
		return List[T]{}, err
	}
	return List[T]{
		ObjectList:  rows,
		Paginator:   pager,
		PageObj:     pager.page(n),
		IsPaginated: pager.NumPages > 1,
	}, nil
}
