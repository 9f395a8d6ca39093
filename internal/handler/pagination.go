package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rentfolio/portal-server-go/internal/table"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// TableParams carries the view-state adjustments a request may ask of a
// table: sort order, per-column filters, visibility, and page position.
type TableParams struct {
	Sorts    []table.SortSpec
	Filters  map[string]string
	Hidden   []string
	Page     int
	PageSize int
}

// ParseTableParams reads table view state from the query string.
//
//	sort=createdAt:desc,title
//	filter=city:spring
//	hide=zip,bedrooms
//	page=2&pageSize=25
func ParseTableParams(r *http.Request) TableParams {
	query := r.URL.Query()
	params := TableParams{
		Filters:  make(map[string]string),
		Page:     -1,
		PageSize: 0,
	}

	if sort := query.Get("sort"); sort != "" {
		for _, part := range strings.Split(sort, ",") {
			key, dir, _ := strings.Cut(part, ":")
			if key == "" {
				continue
			}
			params.Sorts = append(params.Sorts, table.SortSpec{
				Key:  key,
				Desc: strings.EqualFold(dir, "desc"),
			})
		}
	}

	for _, raw := range query["filter"] {
		key, text, ok := strings.Cut(raw, ":")
		if !ok || key == "" {
			continue
		}
		params.Filters[key] = text
	}

	if hide := query.Get("hide"); hide != "" {
		for _, key := range strings.Split(hide, ",") {
			if key != "" {
				params.Hidden = append(params.Hidden, key)
			}
		}
	}

	if page, err := strconv.Atoi(query.Get("page")); err == nil && page >= 0 {
		params.Page = page
	}

	if size, err := strconv.Atoi(query.Get("pageSize")); err == nil && size > 0 && size <= MaxPageSize {
		params.PageSize = size
	}

	return params
}

// applyTableParams pushes parsed view state into a table. Unset fields
// leave the table's current state alone.
func applyTableParams[T any](t *table.Table[T], params TableParams) {
	if len(params.Sorts) > 0 {
		t.SetSort(params.Sorts)
	}
	for key, text := range params.Filters {
		t.SetFilter(key, text)
	}
	for _, key := range params.Hidden {
		t.SetColumnVisible(key, false)
	}
	if params.Page >= 0 {
		t.SetPage(params.Page)
	}
	if params.PageSize > 0 {
		t.SetPageSize(params.PageSize)
	}
}
