// Package selection tracks the highlighted entry of a candidate list.
//
// A List is either empty (no selection) or has exactly one selected index in
// [0, Len()). Replacing the items always resets the selection, so an index
// from an earlier list can never be reused. Moving past either end wraps.
package selection

type List[T any] struct {
	items []T
	index int
}

func New[T any](items []T) *List[T] {
	l := &List[T]{}
	l.Replace(items)
	return l
}

// Replace swaps in a new list wholesale and selects its first entry.
func (l *List[T]) Replace(items []T) {
	l.items = append([]T(nil), items...)
	l.index = 0
}

func (l *List[T]) Len() int {
	return len(l.items)
}

// Items returns a copy of the current entries.
func (l *List[T]) Items() []T {
	return append([]T(nil), l.items...)
}

// Index returns the selected position, or false when the list is empty.
func (l *List[T]) Index() (int, bool) {
	if len(l.items) == 0 {
		return -1, false
	}
	return l.index, true
}

func (l *List[T]) Prev() {
	n := len(l.items)
	if n == 0 {
		return
	}
	l.index = (l.index - 1 + n) % n
}

func (l *List[T]) Next() {
	n := len(l.items)
	if n == 0 {
		return
	}
	l.index = (l.index + 1) % n
}

// Hover selects i directly. Out of range positions are ignored.
func (l *List[T]) Hover(i int) bool {
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.index = i
	return true
}

// Commit returns the selected entry without changing the selection.
func (l *List[T]) Commit() (T, bool) {
	var zero T
	if len(l.items) == 0 {
		return zero, false
	}
	return l.items[l.index], true
}
