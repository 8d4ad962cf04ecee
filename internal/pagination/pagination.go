// Package pagination implements page/limit query parsing and the
// {count, next, previous, results} envelope used by list endpoints.
package pagination

import (
	"errors"
	"math"
	"net/url"
	"strconv"
)

type Params struct {
	Page  int
	Limit int
}

// Offset saturates at math.MaxInt instead of wrapping around.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type Paginator struct {
	DefaultSize int
	MaxSize     int
}

func New(defaultSize, maxSize int) Paginator {
	return Paginator{DefaultSize: defaultSize, MaxSize: maxSize}
}

// Parse reads page and limit, falling back to page 1 and the default size.
// Limits above MaxSize are clamped. Pages too large to address stay past the
// end rather than falling back to the first page.
func (p Paginator) Parse(values url.Values) Params {
	page, err := strconv.Atoi(values.Get("page"))
	if errors.Is(err, strconv.ErrRange) && page > 0 {
		err = nil
	}
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(values.Get("limit"))
	if err != nil || limit < 1 {
		limit = p.DefaultSize
	}
	if p.MaxSize > 0 && limit > p.MaxSize {
		limit = p.MaxSize
	}

	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	return Params{Page: page, Limit: limit}
}

type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func NewPage[T any](requestURL *url.URL, params Params, count int64, results []T) Page[T] {
	if results == nil {
		results = make([]T, 0)
	}

	page := Page[T]{
		Count:   count,
		Results: results,
	}

	if offset := int64(params.Offset()); offset < count && count-offset > int64(params.Limit) {
		next := withPage(requestURL, params.Page+1)
		page.Next = &next
	}
	if params.Page > 1 {
		previous := withPage(requestURL, params.Page-1)
		page.Previous = &previous
	}

	return page
}

func withPage(requestURL *url.URL, page int) string {
	u := *requestURL
	q := u.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
