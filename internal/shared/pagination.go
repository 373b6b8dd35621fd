package shared

import (
	"fmt"
	"net/http"
	"strconv"
)

// Page carries optional pagination bounds for list operations. A zero Limit
// means "no bound"; a zero Offset starts at the first row.
type Page struct {
	Offset int
	Limit  int
}

// PageFromRequest parses optional offset/limit query parameters. Absent
// parameters leave the listing unbounded; malformed or negative values are a
// validation failure.
func PageFromRequest(r *http.Request) (Page, error) {
	var page Page
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: offset %q", ErrValidation, raw)
		}
		page.Offset = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: limit %q", ErrValidation, raw)
		}
		page.Limit = n
	}
	return page, nil
}

// ListResult is the envelope for paginated listings: one page of rows plus
// the total count under the identical filter.
type ListResult[T any] struct {
	NumRows int `json:"num_rows"`
	Data    []T `json:"data"`
}
