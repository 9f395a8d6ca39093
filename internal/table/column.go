// Package table renders an arbitrary record collection as an interactive
// row model without each call site reimplementing sorting, filtering,
// pagination, selection, or manual reordering. Callers describe their data
// with column descriptors and toggle features independently; disabled
// features contribute no state and no wiring.
package table

// Synthetic column keys. A reorder handle is prepended when drag-reorder is
// enabled; a selection checkbox follows it (position 0 without a handle).
const (
	ColumnKeyReorder = "_reorder"
	ColumnKeySelect  = "_select"
)

// Column describes one column of a table: how to pull the value out of a
// record and which interactions it supports. Descriptors are supplied by
// the caller and never mutated by the table.
type Column[T any] struct {
	Key        string
	Header     string
	Value      func(T) any
	Sortable   bool
	Hideable   bool
	Filterable bool
}

// SortSpec is one column+direction pair; a sort order is a list of them.
type SortSpec struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

// ColumnView is a rendered column header.
type ColumnView struct {
	Key       string `json:"key"`
	Header    string `json:"header"`
	Sortable  bool   `json:"sortable"`
	Hideable  bool   `json:"hideable"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// Cell is one rendered cell. Absent values render as nil (empty cells);
// malformed rows are never rejected.
type Cell struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// RowView is one rendered row. ID is the stable row identifier used for
// selection and reordering; it never changes when the row moves.
type RowView struct {
	ID       string `json:"id"`
	Cells    []Cell `json:"cells"`
	Selected bool   `json:"selected,omitempty"`
}

// View is the composed row model after filtering, sorting, column
// visibility, and pagination.
type View struct {
	Columns      []ColumnView `json:"columns"`
	Rows         []RowView    `json:"rows"`
	PageIndex    int          `json:"pageIndex"`
	PageCount    int          `json:"pageCount"`
	PageSize     int          `json:"pageSize"`
	TotalRows    int          `json:"totalRows"`
	Loading      bool         `json:"loading"`
	EmptyMessage string       `json:"emptyMessage,omitempty"`
}
