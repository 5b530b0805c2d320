// Package pager computes page windows over ordered lists and renders the
// navigation control model attached to each page.
package pager

import (
	"fmt"

	"courier/internal/transport"
)

// NoopAction marks a control that must not trigger navigation.
const NoopAction = "noop"

// numberedControls is the maximum number of direct page controls shown,
// centered on the current page.
const numberedControls = 5

// Window is one page over an ordered list.
type Window struct {
	// Page is the effective page after clamping, always in [1, TotalPages].
	Page       int
	TotalPages int
	Offset     int
	// Len is the number of items on this page; min(size, total-offset),
	// never negative.
	Len int
}

// Paginate computes the window for a requested page. TotalPages is at least 1
// even for an empty list; the requested page is clamped into range.
func Paginate(total, size, requested int) Window {
	if size <= 0 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	page := requested
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * size
	length := total - offset
	if length > size {
		length = size
	}
	if length < 0 {
		length = 0
	}

	return Window{Page: page, TotalPages: totalPages, Offset: offset, Len: length}
}

// Controls renders the navigation panel rows for a page: up to five numbered
// controls centered on the current page, a prev/next row, and a first/last
// row, each shown only when applicable. The current page's control is
// disabled. Actions are "prefix:page" or "prefix:page:token" when a token is
// given.
func Controls(page, totalPages int, prefix, token string) []transport.ControlRow {
	var rows []transport.ControlRow

	if totalPages > 1 {
		start := page - numberedControls/2
		if start < 1 {
			start = 1
		}
		end := start + numberedControls - 1
		if end > totalPages {
			end = totalPages
		}
		if end-numberedControls+1 > 0 {
			start = end - numberedControls + 1
		} else {
			start = 1
		}

		numbers := make(transport.ControlRow, 0, end-start+1)
		for p := start; p <= end; p++ {
			ctrl := transport.Control{
				Label:  fmt.Sprintf("%d", p),
				Action: action(prefix, p, token),
			}
			if p == page {
				ctrl.Label = fmt.Sprintf("· %d ·", p)
				ctrl.Action = NoopAction
				ctrl.Disabled = true
			}
			numbers = append(numbers, ctrl)
		}
		rows = append(rows, numbers)
	}

	var nav, ends transport.ControlRow
	if page > 1 {
		nav = append(nav, transport.Control{Label: "‹ Prev", Action: action(prefix, page-1, token)})
		ends = append(ends, transport.Control{Label: "« First", Action: action(prefix, 1, token)})
	}
	if page < totalPages {
		nav = append(nav, transport.Control{Label: "Next ›", Action: action(prefix, page+1, token)})
		ends = append(ends, transport.Control{Label: "Last »", Action: action(prefix, totalPages, token)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	if len(ends) > 0 {
		rows = append(rows, ends)
	}
	return rows
}

func action(prefix string, page int, token string) string {
	if token == "" {
		return fmt.Sprintf("%s:%d", prefix, page)
	}
	return fmt.Sprintf("%s:%d:%s", prefix, page, token)
}
