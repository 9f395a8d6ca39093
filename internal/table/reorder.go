package table

import "fmt"

// Move reorders the collection by moving the row at oldIndex to newIndex,
// preserving every other row's relative order, then invokes the reorder
// callback exactly once with the old index, the new index, and the full
// reordered collection. If the callback reports failure the prior order is
// restored: the reorder is optimistic with rollback, not fire-and-forget.
func (t *Table[T]) Move(oldIndex, newIndex int) error {
	if !t.reorderEnabled {
		return fmt.Errorf("table: reordering is not enabled")
	}

	t.mu.Lock()
	n := len(t.rows)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		t.mu.Unlock()
		return fmt.Errorf("table: move %d -> %d out of range for %d rows", oldIndex, newIndex, n)
	}
	if oldIndex == newIndex {
		t.mu.Unlock()
		return nil
	}

	prior := make([]T, n)
	copy(prior, t.rows)

	row := t.rows[oldIndex]
	t.rows = append(t.rows[:oldIndex], t.rows[oldIndex+1:]...)
	t.rows = append(t.rows[:newIndex], append([]T{row}, t.rows[newIndex:]...)...)

	reordered := make([]T, n)
	copy(reordered, t.rows)
	fn := t.reorderFn
	t.mu.Unlock()

	if fn == nil {
		return nil
	}

	if err := fn(oldIndex, newIndex, reordered); err != nil {
		t.mu.Lock()
		t.rows = prior
		t.mu.Unlock()
		return err
	}
	return nil
}
