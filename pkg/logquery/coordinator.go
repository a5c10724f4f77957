// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logquery tracks the cursor of the historical temperature log view.
//
// The coordinator performs no I/O. Callers build a request from
// CurrentQuery, fetch it however they like, and hand the response back
// through Apply together with the query it answered. Responses for a query
// that is no longer current are dropped, so a slow fetch for an old page can
// never overwrite a newer one.
package logquery

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/Thermoquad/anemostat/pkg/blower"
)

// PageSize is the number of rows requested per page.
const PageSize = 10

// Query identifies one page request.
type Query struct {
	Page int
	Size int
	Date Date
}

// HasDate reports whether the query is filtered by date.
func (q Query) HasDate() bool {
	return !q.Date.IsZero()
}

// Values renders the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.HasDate() {
		v.Set("date", q.Date.String())
	}
	return v
}

func (q Query) String() string {
	if q.HasDate() {
		return fmt.Sprintf("page=%d date=%s", q.Page, q.Date)
	}
	return fmt.Sprintf("page=%d", q.Page)
}

// Outcome reports what Apply did with a result.
type Outcome int

const (
	// Applied means the result matched the cursor and was stored.
	Applied Outcome = iota
	// Stale means the cursor moved since the query was issued; the result
	// was dropped.
	Stale
	// Clamped means the result was stored but reported fewer pages than the
	// cursor's page index, so the cursor moved back. The caller should fetch
	// CurrentQuery again.
	Clamped
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case Clamped:
		return "clamped"
	}
	return "unknown"
}

// Coordinator is the cursor (page index and optional date filter) plus the
// last accepted page of rows. It is not safe for concurrent use; it is meant
// to be owned by a single UI loop.
type Coordinator struct {
	page       int
	date       Date
	totalPages int // -1 until the first result
	totalItems int64
	rows       []blower.TemperatureLogRow
}

// New returns a coordinator at page 0 with no date filter.
func New() *Coordinator {
	return &Coordinator{totalPages: -1}
}

// CurrentQuery returns the query for the cursor's current position.
func (c *Coordinator) CurrentQuery() Query {
	return Query{Page: c.page, Size: PageSize, Date: c.date}
}

// SetPage moves to page n. Negative pages become 0; once the page count is
// known, pages past the end become the last page.
func (c *Coordinator) SetPage(n int) Query {
	c.page = c.clamp(n)
	return c.CurrentQuery()
}

// NextPage moves forward one page if there is one.
func (c *Coordinator) NextPage() Query {
	return c.SetPage(c.page + 1)
}

// PrevPage moves back one page if there is one.
func (c *Coordinator) PrevPage() Query {
	return c.SetPage(c.page - 1)
}

// SetDateFilter filters by d and returns to page 0. The zero Date removes
// the filter.
func (c *Coordinator) SetDateFilter(d Date) Query {
	c.date = d
	c.page = 0
	return c.CurrentQuery()
}

// ClearDateFilter removes the date filter and returns to page 0.
func (c *Coordinator) ClearDateFilter() Query {
	return c.SetDateFilter(Date{})
}

// Apply stores result if q is still the current query.
func (c *Coordinator) Apply(q Query, result blower.TemperatureLogPage) Outcome {
	if q != c.CurrentQuery() {
		return Stale
	}

	c.totalPages = result.TotalPages
	if c.totalPages < 0 {
		c.totalPages = 0
	}
	c.totalItems = result.TotalItems
	c.rows = append(c.rows[:0:0], result.Content...)

	if clamped := c.clamp(c.page); clamped != c.page {
		c.page = clamped
		return Clamped
	}
	return Applied
}

// Rows returns a copy of the last accepted rows.
func (c *Coordinator) Rows() []blower.TemperatureLogRow {
	return append([]blower.TemperatureLogRow(nil), c.rows...)
}

// TotalPages returns the page count, and false until a result was applied.
func (c *Coordinator) TotalPages() (int, bool) {
	if c.totalPages < 0 {
		return 0, false
	}
	return c.totalPages, true
}

// TotalItems returns the row count reported by the last accepted result.
func (c *Coordinator) TotalItems() int64 {
	return c.totalItems
}

// HasPrev reports whether a previous page exists.
func (c *Coordinator) HasPrev() bool {
	return c.page > 0
}

// HasNext reports whether a next page is known to exist.
func (c *Coordinator) HasNext() bool {
	return c.totalPages >= 0 && c.page < c.totalPages-1
}

// Label renders the position for display, e.g. "Page 2 of 7".
func (c *Coordinator) Label() string {
	if c.totalPages < 0 {
		return fmt.Sprintf("Page %d", c.page+1)
	}
	total := c.totalPages
	if total == 0 {
		total = 1
	}
	return fmt.Sprintf("Page %d of %d", c.page+1, total)
}

func (c *Coordinator) clamp(n int) int {
	if c.totalPages >= 0 && n > c.totalPages-1 {
		n = c.totalPages - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}
