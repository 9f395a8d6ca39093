package table

import (
	"fmt"
	"sync"
)

// ReorderFunc persists a reorder upstream. It receives the old index, the
// new index, and the full reordered collection. Returning an error rolls
// the local reorder back.
type ReorderFunc[T any] func(oldIndex, newIndex int, rows []T) error

// RowIDFunc derives the stable row identifier from a record.
type RowIDFunc[T any] func(T) string

type Option[T any] func(*Table[T])

// WithRowID supplies the stable key function. Required whenever selection
// or reordering is enabled: a positional fallback would break row identity
// across data refreshes.
func WithRowID[T any](fn RowIDFunc[T]) Option[T] {
	return func(t *Table[T]) { t.rowID = fn }
}

// WithSelection enables row selection checkboxes.
func WithSelection[T any]() Option[T] {
	return func(t *Table[T]) {
		t.selectionEnabled = true
		t.selected = make(map[string]bool)
	}
}

// WithReorder enables the drag handle. fn may be nil when the caller does
// not persist order upstream.
func WithReorder[T any](fn ReorderFunc[T]) Option[T] {
	return func(t *Table[T]) {
		t.reorderEnabled = true
		t.reorderFn = fn
	}
}

// WithPagination enables pagination with the given page size. sizeOptions
// lists the sizes the UI may offer; it may be empty.
func WithPagination[T any](pageSize int, sizeOptions ...int) Option[T] {
	return func(t *Table[T]) {
		t.paginationEnabled = true
		t.pageSize = pageSize
		t.pageSizeOptions = sizeOptions
	}
}

// WithColumnToggle enables hiding and showing hideable columns.
func WithColumnToggle[T any]() Option[T] {
	return func(t *Table[T]) {
		t.visibilityEnabled = true
		t.hidden = make(map[string]bool)
	}
}

// WithFiltering enables per-column text filtering on filterable columns.
func WithFiltering[T any]() Option[T] {
	return func(t *Table[T]) {
		t.filteringEnabled = true
		t.filters = make(map[string]string)
	}
}

// WithSorting enables sorting on sortable columns.
func WithSorting[T any]() Option[T] {
	return func(t *Table[T]) { t.sortingEnabled = true }
}

// WithEmptyMessage sets the message shown when there are no rows and the
// table is not loading.
func WithEmptyMessage[T any](msg string) Option[T] {
	return func(t *Table[T]) { t.emptyMessage = msg }
}

// Table owns the view state for one rendered collection. Row data is
// replaced wholesale on every upstream refresh; sort, filter, visibility,
// selection, and pagination state survive the replacement.
type Table[T any] struct {
	mu      sync.Mutex
	columns []Column[T]
	rowID   RowIDFunc[T]
	rows    []T

	selectionEnabled  bool
	reorderEnabled    bool
	paginationEnabled bool
	visibilityEnabled bool
	filteringEnabled  bool
	sortingEnabled    bool

	reorderFn       ReorderFunc[T]
	pageSize        int
	pageSizeOptions []int
	emptyMessage    string

	selected  map[string]bool
	hidden    map[string]bool
	filters   map[string]string
	sorts     []SortSpec
	pageIndex int
	loading   bool
}

// New builds a table from caller-supplied column descriptors.
func New[T any](columns []Column[T], opts ...Option[T]) (*Table[T], error) {
	t := &Table[T]{
		columns:      columns,
		emptyMessage: "No results",
	}
	for _, opt := range opts {
		opt(t)
	}

	if (t.selectionEnabled || t.reorderEnabled) && t.rowID == nil {
		return nil, fmt.Errorf("table: selection and reordering require a stable row id function")
	}
	if t.paginationEnabled && t.pageSize <= 0 {
		return nil, fmt.Errorf("table: pagination requires a positive page size")
	}
	return t, nil
}

// SetRows replaces the row collection wholesale. View state is untouched;
// only an explicit user action or a remount clears it.
func (t *Table[T]) SetRows(rows []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make([]T, len(rows))
	copy(t.rows, rows)
}

// Rows returns a copy of the current collection in its current order.
func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]T, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// SetLoading flips the loading indicator. While loading, the view shows no
// rows and no empty-state message; loading takes precedence.
func (t *Table[T]) SetLoading(loading bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = loading
}

// ToggleSort cycles the sort on a sortable column: first call sorts
// ascending, the next flips to descending, and so on. Sorting a different
// column replaces the sort order.
func (t *Table[T]) ToggleSort(key string) {
	if !t.sortingEnabled || !t.columnSortable(key) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sorts) > 0 && t.sorts[0].Key == key {
		t.sorts[0].Desc = !t.sorts[0].Desc
		return
	}
	t.sorts = []SortSpec{{Key: key}}
}

// SetSort replaces the full sort order. Non-sortable columns are dropped.
func (t *Table[T]) SetSort(specs []SortSpec) {
	if !t.sortingEnabled {
		return
	}
	kept := make([]SortSpec, 0, len(specs))
	for _, s := range specs {
		if t.columnSortable(s.Key) {
			kept = append(kept, s)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sorts = kept
}

func (t *Table[T]) columnSortable(key string) bool {
	for _, col := range t.columns {
		if col.Key == key {
			return col.Sortable
		}
	}
	return false
}

// SetFilter sets a column's filter text; empty text clears it.
func (t *Table[T]) SetFilter(key, text string) {
	if !t.filteringEnabled {
		return
	}
	for _, col := range t.columns {
		if col.Key == key && col.Filterable {
			t.mu.Lock()
			defer t.mu.Unlock()
			if text == "" {
				delete(t.filters, key)
			} else {
				t.filters[key] = text
			}
			return
		}
	}
}

// SetColumnVisible shows or hides a hideable column.
func (t *Table[T]) SetColumnVisible(key string, visible bool) {
	if !t.visibilityEnabled {
		return
	}
	for _, col := range t.columns {
		if col.Key == key && col.Hideable {
			t.mu.Lock()
			defer t.mu.Unlock()
			if visible {
				delete(t.hidden, key)
			} else {
				t.hidden[key] = true
			}
			return
		}
	}
}

// SetPage requests a page index; it is clamped against the current row
// model when the view is built.
func (t *Table[T]) SetPage(index int) {
	if !t.paginationEnabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 {
		index = 0
	}
	t.pageIndex = index
}

// SetPageSize changes the page size. When size options were configured,
// sizes outside the list are ignored. The page index is left alone; the
// row model clamps it if the total page count shrank.
func (t *Table[T]) SetPageSize(size int) {
	if !t.paginationEnabled || size <= 0 {
		return
	}
	if len(t.pageSizeOptions) > 0 {
		allowed := false
		for _, opt := range t.pageSizeOptions {
			if opt == size {
				allowed = true
				break
			}
		}
		if !allowed {
			return
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageSize = size
}

// ToggleSelect flips one row's selection state.
func (t *Table[T]) ToggleSelect(id string) {
	if !t.selectionEnabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected[id] {
		delete(t.selected, id)
	} else {
		t.selected[id] = true
	}
}

// ClearSelection deselects everything.
func (t *Table[T]) ClearSelection() {
	if !t.selectionEnabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = make(map[string]bool)
}

// SelectedIDs returns the selected row identifiers.
func (t *Table[T]) SelectedIDs() []string {
	if !t.selectionEnabled {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.selected))
	for id := range t.selected {
		ids = append(ids, id)
	}
	return ids
}

// PageSizeOptions returns the configured page sizes the UI may offer.
func (t *Table[T]) PageSizeOptions() []int {
	return t.pageSizeOptions
}
