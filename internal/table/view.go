package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// View builds the composed row model: filter, then sort, then visible
// columns, then the clamped page window.
func (t *Table[T]) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]T, len(t.rows))
	copy(rows, t.rows)

	if t.filteringEnabled && len(t.filters) > 0 {
		rows = t.applyFilters(rows)
	}
	if t.sortingEnabled && len(t.sorts) > 0 {
		t.applySort(rows)
	}

	total := len(rows)
	view := View{
		Columns:   t.visibleColumns(),
		PageIndex: 0,
		PageCount: 1,
		PageSize:  total,
		TotalRows: total,
		Loading:   t.loading,
	}

	if t.paginationEnabled {
		view.PageSize = t.pageSize
		view.PageCount = (total + t.pageSize - 1) / t.pageSize

		// No page beyond the last valid index is ever shown.
		index := t.pageIndex
		if view.PageCount == 0 {
			index = 0
		} else if index >= view.PageCount {
			index = view.PageCount - 1
		}
		t.pageIndex = index
		view.PageIndex = index

		start := index * t.pageSize
		end := start + t.pageSize
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
		rows = rows[start:end]
	}

	if t.loading {
		// Loading takes precedence: no rows, no empty-state message.
		return view
	}

	view.Rows = make([]RowView, 0, len(rows))
	for i, row := range rows {
		view.Rows = append(view.Rows, t.renderRow(row, i))
	}

	if total == 0 {
		view.EmptyMessage = t.emptyMessage
	}
	return view
}

func (t *Table[T]) visibleColumns() []ColumnView {
	cols := make([]ColumnView, 0, len(t.columns)+2)
	if t.reorderEnabled {
		cols = append(cols, ColumnView{Key: ColumnKeyReorder, Synthetic: true})
	}
	if t.selectionEnabled {
		cols = append(cols, ColumnView{Key: ColumnKeySelect, Synthetic: true})
	}
	for _, col := range t.columns {
		if t.visibilityEnabled && t.hidden[col.Key] {
			continue
		}
		cols = append(cols, ColumnView{
			Key:      col.Key,
			Header:   col.Header,
			Sortable: t.sortingEnabled && col.Sortable,
			Hideable: t.visibilityEnabled && col.Hideable,
		})
	}
	return cols
}

func (t *Table[T]) renderRow(row T, position int) RowView {
	id := strconv.Itoa(position)
	if t.rowID != nil {
		id = t.rowID(row)
	}

	rendered := RowView{ID: id}
	if t.selectionEnabled {
		rendered.Selected = t.selected[id]
	}

	rendered.Cells = make([]Cell, 0, len(t.columns)+2)
	if t.reorderEnabled {
		rendered.Cells = append(rendered.Cells, Cell{Key: ColumnKeyReorder})
	}
	if t.selectionEnabled {
		rendered.Cells = append(rendered.Cells, Cell{Key: ColumnKeySelect, Value: rendered.Selected})
	}
	for _, col := range t.columns {
		if t.visibilityEnabled && t.hidden[col.Key] {
			continue
		}
		rendered.Cells = append(rendered.Cells, Cell{Key: col.Key, Value: col.Value(row)})
	}
	return rendered
}

func (t *Table[T]) applyFilters(rows []T) []T {
	kept := rows[:0]
	for _, row := range rows {
		if t.rowMatches(row) {
			kept = append(kept, row)
		}
	}
	return kept
}

func (t *Table[T]) rowMatches(row T) bool {
	for key, text := range t.filters {
		col, ok := t.column(key)
		if !ok {
			continue
		}
		value := strings.ToLower(fmt.Sprint(col.Value(row)))
		if !strings.Contains(value, strings.ToLower(text)) {
			return false
		}
	}
	return true
}

func (t *Table[T]) applySort(rows []T) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range t.sorts {
			col, ok := t.column(s.Key)
			if !ok {
				continue
			}
			cmp := compareValues(col.Value(rows[i]), col.Value(rows[j]))
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func (t *Table[T]) column(key string) (Column[T], bool) {
	for _, col := range t.columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column[T]{}, false
}

// compareValues orders two cell values: times as times, numbers as
// numbers, everything else as strings. Nil sorts first.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case *time.Time:
		if tv == nil {
			return time.Time{}, false
		}
		return *tv, true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
