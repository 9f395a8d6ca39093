package table

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentfolio/portal-server-go/internal/model"
)

type record struct {
	ID   string
	Name string
	Rank int
}

func recordColumns() []Column[record] {
	return []Column[record]{
		{Key: "name", Header: "Name", Value: func(r record) any { return r.Name }, Sortable: true, Filterable: true, Hideable: true},
		{Key: "rank", Header: "Rank", Value: func(r record) any { return r.Rank }, Sortable: true},
	}
}

func recordRows(n int) []record {
	rows := make([]record, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, record{ID: fmt.Sprintf("r-%d", i), Name: fmt.Sprintf("row %02d", i), Rank: i})
	}
	return rows
}

func recordID(r record) string { return r.ID }

func TestNewRequiresRowIDForSelection(t *testing.T) {
	_, err := New(recordColumns(), WithSelection[record]())
	require.Error(t, err)

	_, err = New(recordColumns(), WithReorder[record](nil))
	require.Error(t, err)

	_, err = New(recordColumns(), WithSelection[record](), WithRowID(recordID))
	require.NoError(t, err)
}

func TestNewRequiresPositivePageSize(t *testing.T) {
	_, err := New(recordColumns(), WithPagination[record](0))
	assert.Error(t, err)
}

func TestPaginationPageCountAndClamping(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		pageSize  int
		wantPages int
	}{
		{name: "exact multiple", rows: 20, pageSize: 5, wantPages: 4},
		{name: "remainder", rows: 23, pageSize: 5, wantPages: 5},
		{name: "single page", rows: 3, pageSize: 10, wantPages: 1},
		{name: "empty", rows: 0, pageSize: 10, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := New(recordColumns(), WithPagination[record](tt.pageSize))
			require.NoError(t, err)
			tbl.SetRows(recordRows(tt.rows))

			view := tbl.View()
			assert.Equal(t, tt.wantPages, view.PageCount)

			// Requesting the page at index PageCount is clamped to the
			// last valid index.
			tbl.SetPage(tt.wantPages)
			view = tbl.View()
			if tt.wantPages == 0 {
				assert.Equal(t, 0, view.PageIndex)
			} else {
				assert.Equal(t, tt.wantPages-1, view.PageIndex)
			}
		})
	}
}

func TestPaginationWindow(t *testing.T) {
	tbl, err := New(recordColumns(), WithPagination[record](5))
	require.NoError(t, err)
	tbl.SetRows(recordRows(12))

	tbl.SetPage(2)
	view := tbl.View()
	assert.Equal(t, 2, view.PageIndex)
	assert.Equal(t, 3, view.PageCount)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "r-10", view.Rows[0].ID)
	assert.Equal(t, "r-11", view.Rows[1].ID)
}

func TestViewStateSurvivesDataReplacement(t *testing.T) {
	tbl, err := New(recordColumns(),
		WithPagination[record](5),
		WithSorting[record](),
		WithFiltering[record](),
		WithSelection[record](),
		WithRowID(recordID),
	)
	require.NoError(t, err)
	tbl.SetRows(recordRows(12))

	tbl.SetPage(1)
	tbl.ToggleSort("name")
	tbl.SetFilter("name", "row")
	tbl.ToggleSelect("r-3")

	// Upstream refresh replaces rows wholesale.
	tbl.SetRows(recordRows(12))

	view := tbl.View()
	assert.Equal(t, 1, view.PageIndex)
	assert.ElementsMatch(t, []string{"r-3"}, tbl.SelectedIDs())
	assert.Contains(t, tbl.filters, "name")
	assert.Equal(t, []SortSpec{{Key: "name"}}, tbl.sorts)
}

func TestMoveReordersAndFiresCallbackOnce(t *testing.T) {
	var calls int
	var gotOld, gotNew int
	var gotRows []record

	tbl, err := New(recordColumns(),
		WithRowID(recordID),
		WithReorder(func(oldIndex, newIndex int, rows []record) error {
			calls++
			gotOld, gotNew = oldIndex, newIndex
			gotRows = rows
			return nil
		}),
	)
	require.NoError(t, err)
	tbl.SetRows(recordRows(5))

	require.NoError(t, tbl.Move(1, 3))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, gotOld)
	assert.Equal(t, 3, gotNew)

	wantOrder := []string{"r-0", "r-2", "r-3", "r-1", "r-4"}
	gotOrder := make([]string, 0, len(gotRows))
	for _, r := range gotRows {
		gotOrder = append(gotOrder, r.ID)
	}
	assert.Equal(t, wantOrder, gotOrder)

	// The table's own collection matches what the callback saw.
	current := make([]string, 0, 5)
	for _, r := range tbl.Rows() {
		current = append(current, r.ID)
	}
	assert.Equal(t, wantOrder, current)
}

func TestMoveTowardsFront(t *testing.T) {
	tbl, err := New(recordColumns(), WithRowID(recordID), WithReorder[record](nil))
	require.NoError(t, err)
	tbl.SetRows(recordRows(4))

	require.NoError(t, tbl.Move(3, 0))

	got := make([]string, 0, 4)
	for _, r := range tbl.Rows() {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"r-3", "r-0", "r-1", "r-2"}, got)
}

func TestMoveRollsBackWhenPersistenceFails(t *testing.T) {
	tbl, err := New(recordColumns(),
		WithRowID(recordID),
		WithReorder(func(oldIndex, newIndex int, rows []record) error {
			return errors.New("upstream rejected reorder")
		}),
	)
	require.NoError(t, err)
	tbl.SetRows(recordRows(4))

	err = tbl.Move(0, 2)
	require.Error(t, err)

	got := make([]string, 0, 4)
	for _, r := range tbl.Rows() {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"r-0", "r-1", "r-2", "r-3"}, got)
}

func TestMoveOutOfRange(t *testing.T) {
	tbl, err := New(recordColumns(), WithRowID(recordID), WithReorder[record](nil))
	require.NoError(t, err)
	tbl.SetRows(recordRows(3))

	assert.Error(t, tbl.Move(-1, 1))
	assert.Error(t, tbl.Move(0, 3))
	assert.NoError(t, tbl.Move(1, 1))
}

func TestColumnVisibilityRoundTrip(t *testing.T) {
	tbl, err := New(recordColumns(), WithColumnToggle[record]())
	require.NoError(t, err)
	tbl.SetRows(recordRows(2))

	before := tbl.View()

	tbl.SetColumnVisible("name", false)
	hidden := tbl.View()
	for _, col := range hidden.Columns {
		assert.NotEqual(t, "name", col.Key)
	}
	for _, row := range hidden.Rows {
		for _, cell := range row.Cells {
			assert.NotEqual(t, "name", cell.Key)
		}
	}

	tbl.SetColumnVisible("name", true)
	after := tbl.View()
	assert.Equal(t, before, after)
}

func TestHideIgnoredForNonHideableColumn(t *testing.T) {
	tbl, err := New(recordColumns(), WithColumnToggle[record]())
	require.NoError(t, err)
	tbl.SetRows(recordRows(1))

	tbl.SetColumnVisible("rank", false)

	keys := make([]string, 0)
	for _, col := range tbl.View().Columns {
		keys = append(keys, col.Key)
	}
	assert.Contains(t, keys, "rank")
}

func TestFiltering(t *testing.T) {
	tbl, err := New(recordColumns(), WithFiltering[record]())
	require.NoError(t, err)
	tbl.SetRows([]record{
		{ID: "a", Name: "Maple House"},
		{ID: "b", Name: "Oak Flats"},
		{ID: "c", Name: "maple cottage"},
	})

	tbl.SetFilter("name", "maple")
	view := tbl.View()
	assert.Equal(t, 2, view.TotalRows)

	tbl.SetFilter("name", "")
	assert.Equal(t, 3, tbl.View().TotalRows)
}

func TestSyntheticColumnOrder(t *testing.T) {
	tbl, err := New(recordColumns(),
		WithRowID(recordID),
		WithReorder[record](nil),
		WithSelection[record](),
	)
	require.NoError(t, err)
	tbl.SetRows(recordRows(1))

	view := tbl.View()
	require.GreaterOrEqual(t, len(view.Columns), 2)
	assert.Equal(t, ColumnKeyReorder, view.Columns[0].Key)
	assert.Equal(t, ColumnKeySelect, view.Columns[1].Key)
}

func TestSelectionOnlyColumnPosition(t *testing.T) {
	tbl, err := New(recordColumns(), WithSelection[record](), WithRowID(recordID))
	require.NoError(t, err)
	tbl.SetRows(recordRows(1))

	view := tbl.View()
	assert.Equal(t, ColumnKeySelect, view.Columns[0].Key)
}

func TestLoadingTakesPrecedenceOverEmptyState(t *testing.T) {
	tbl, err := New(recordColumns(), WithEmptyMessage[record]("No maintenance requests"))
	require.NoError(t, err)

	tbl.SetLoading(true)
	view := tbl.View()
	assert.True(t, view.Loading)
	assert.Empty(t, view.Rows)
	assert.Empty(t, view.EmptyMessage)

	tbl.SetLoading(false)
	view = tbl.View()
	assert.False(t, view.Loading)
	assert.Equal(t, "No maintenance requests", view.EmptyMessage)
}

func TestMaintenanceRequestDateSortScenario(t *testing.T) {
	date := func(day int) time.Time {
		return time.Date(2024, 9, day, 0, 0, 0, 0, time.UTC)
	}
	rows := []model.MaintenanceRequest{
		{ID: "m-1", Category: "plumbing", CreatedAt: date(20)},
		{ID: "m-2", Category: "electrical", CreatedAt: date(18)},
		{ID: "m-3", Category: "hvac", CreatedAt: date(25)},
	}

	columns := []Column[model.MaintenanceRequest]{
		{Key: "category", Header: "Category", Value: func(r model.MaintenanceRequest) any { return r.Category }},
		{Key: "createdAt", Header: "Submitted", Value: func(r model.MaintenanceRequest) any { return r.CreatedAt }, Sortable: true},
	}

	tbl, err := New(columns,
		WithRowID(func(r model.MaintenanceRequest) string { return r.ID }),
		WithPagination[model.MaintenanceRequest](10, 10, 25, 50),
		WithSorting[model.MaintenanceRequest](),
	)
	require.NoError(t, err)
	tbl.SetRows(rows)

	// All 3 rows, page 1 of 1.
	view := tbl.View()
	assert.Len(t, view.Rows, 3)
	assert.Equal(t, 0, view.PageIndex)
	assert.Equal(t, 1, view.PageCount)

	// First toggle sorts ascending by date.
	tbl.ToggleSort("createdAt")
	view = tbl.View()
	assert.Equal(t, []string{"m-2", "m-1", "m-3"}, rowIDs(view))

	// Second toggle flips to descending.
	tbl.ToggleSort("createdAt")
	view = tbl.View()
	assert.Equal(t, []string{"m-3", "m-1", "m-2"}, rowIDs(view))
}

func rowIDs(view View) []string {
	ids := make([]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		ids = append(ids, row.ID)
	}
	return ids
}

func TestSortDisabledColumnIgnored(t *testing.T) {
	tbl, err := New(recordColumns(), WithSorting[record]())
	require.NoError(t, err)
	tbl.SetRows([]record{{ID: "a", Name: "b"}, {ID: "b", Name: "a"}})

	// "rank" is sortable, a made-up key is not.
	tbl.ToggleSort("nope")
	assert.Empty(t, tbl.sorts)
}
