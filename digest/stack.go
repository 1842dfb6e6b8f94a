package digest

type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

func (s *Stack[T]) Pop() (T, bool) {
	var item T
	size := len(s.items)
	if size == 0 {
		return item, false
	}
	item = s.items[size-1]
	s.items = s.items[:size-1]
	return item, true
}

// Peek returns the item n positions below the top, 0 being the top.
func (s *Stack[T]) Peek(n int) (T, bool) {
	var item T
	ix := len(s.items) - 1 - n
	if n < 0 || ix < 0 {
		return item, false
	}
	return s.items[ix], true
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}

func (s *Stack[T]) Reset() {
	s.items = s.items[:0]
}
