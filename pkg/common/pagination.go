package common

import (
	"net/http"
	"strconv"
)

// PageParams is a forward-only page request read from the query
// string: a size cap and the opaque cursor from the previous page.
type PageParams struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

// ExtractPageParams extracts pagination parameters from the request.
// An absent or invalid limit is left at zero for the store layer to
// fill with its default.
func ExtractPageParams(r *http.Request) PageParams {
	params := PageParams{
		Cursor: r.URL.Query().Get("cursor"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	}
	return params
}
