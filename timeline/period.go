package timeline

import (
	"fmt"
	"slices"
)

// Period is a half-open interval [From, To).
type Period[T ~int64] struct {
	From T
	To   T
}

// NewPeriod returns the period [from, to).
func NewPeriod[T ~int64](from, to T) Period[T] {
	return Period[T]{From: from, To: to}
}

// Duration returns To - From.
func (p Period[T]) Duration() T {
	return p.To - p.From
}

// IsEmpty reports whether the period covers nothing.
func (p Period[T]) IsEmpty() bool {
	return p.To <= p.From
}

// Contains reports whether t lies inside the period.
func (p Period[T]) Contains(t T) bool {
	return t >= p.From && t < p.To
}

// Overlap returns the intersection of p and o. The second result is false when
// the periods do not intersect; periods that merely touch do not overlap.
func (p Period[T]) Overlap(o Period[T]) (Period[T], bool) {
	from := max(p.From, o.From)
	to := min(p.To, o.To)
	if from >= to {
		return Period[T]{}, false
	}
	return Period[T]{From: from, To: to}, true
}

// String formats the period as [from, to).
func (p Period[T]) String() string {
	return fmt.Sprintf("[%d, %d)", int64(p.From), int64(p.To))
}

// Subtract returns the parts of a not covered by any period in b, in ascending
// order. The periods in b may overlap each other and need not be sorted.
func Subtract[T ~int64](a Period[T], b []Period[T]) []Period[T] {
	if a.IsEmpty() {
		return nil
	}

	sorted := make([]Period[T], 0, len(b))
	for _, p := range b {
		if _, ok := a.Overlap(p); ok {
			sorted = append(sorted, p)
		}
	}
	slices.SortFunc(sorted, func(x, y Period[T]) int {
		switch {
		case x.From < y.From:
			return -1
		case x.From > y.From:
			return 1
		}
		return 0
	})

	var out []Period[T]
	cursor := a.From
	for _, p := range sorted {
		if p.From > cursor {
			out = append(out, Period[T]{From: cursor, To: min(p.From, a.To)})
		}
		cursor = max(cursor, p.To)
		if cursor >= a.To {
			return out
		}
	}
	if cursor < a.To {
		out = append(out, Period[T]{From: cursor, To: a.To})
	}
	return out
}
