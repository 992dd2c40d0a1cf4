package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRange_Basics(t *testing.T) {
	t.Run("Count And Contains", func(t *testing.T) {
		r := NewRange(-2, 2)
		require.Equal(t, 5, r.Count())
		require.True(t, r.Contains(-2))
		require.True(t, r.Contains(2))
		require.False(t, r.Contains(3))
		require.True(t, r.ContainsRange(NewRange(-1, 1)))
		require.False(t, r.ContainsRange(NewRange(0, 3)))
	})

	t.Run("Malformed Range Panics", func(t *testing.T) {
		require.Panics(t, func() { NewRange(1, 0) })
	})

	t.Run("Offset", func(t *testing.T) {
		r := NewRange(-5, 5)
		require.Equal(t, 0, r.Offset(-5))
		require.Equal(t, 10, r.Offset(5))
	})

	t.Run("Ordering Is Lexicographic", func(t *testing.T) {
		require.True(t, NewRange(0, 5).Less(NewRange(1, 2)))
		require.True(t, NewRange(0, 2).Less(NewRange(0, 5)))
		require.False(t, NewRange(0, 5).Less(NewRange(0, 5)))
	})

	t.Run("Each Visits All Ids", func(t *testing.T) {
		var ids []ID
		NewRange(3, 6).Each(func(id ID) bool {
			ids = append(ids, id)
			return true
		})
		require.Equal(t, []ID{3, 4, 5, 6}, ids)
	})
}

func TestRange_Adjacency(t *testing.T) {
	t.Run("Touching Ranges Are Adjacent", func(t *testing.T) {
		require.True(t, NewRange(0, 4).Adjacent(NewRange(5, 9)))
		require.True(t, NewRange(5, 9).Adjacent(NewRange(0, 4)))
	})

	t.Run("Overlapping Ranges Are Adjacent", func(t *testing.T) {
		require.True(t, NewRange(0, 5).Adjacent(NewRange(3, 9)))
	})

	t.Run("Gapped Ranges Are Not", func(t *testing.T) {
		require.False(t, NewRange(0, 4).Adjacent(NewRange(6, 9)))
	})

	t.Run("Merge", func(t *testing.T) {
		require.Equal(t, NewRange(0, 9), Merge(NewRange(0, 4), NewRange(5, 9)))
		require.Panics(t, func() { Merge(NewRange(0, 4), NewRange(6, 9)) })
	})
}

func TestRange_Intersect(t *testing.T) {
	r, ok := Intersect(NewRange(0, 10), NewRange(5, 15))
	require.True(t, ok)
	require.Equal(t, NewRange(5, 10), r)

	_, ok = Intersect(NewRange(0, 4), NewRange(5, 15))
	require.False(t, ok)
}

func TestRange_Subtract(t *testing.T) {
	t.Run("Superset Deletes Everything", func(t *testing.T) {
		_, _, n := Subtract(NewRange(3, 5), NewRange(0, 10))
		require.Equal(t, 0, n)
	})

	t.Run("Interior Splits In Two", func(t *testing.T) {
		left, right, n := Subtract(NewRange(0, 10), NewRange(4, 5))
		require.Equal(t, 2, n)
		require.Equal(t, NewRange(0, 3), left)
		require.Equal(t, NewRange(6, 10), right)
	})

	t.Run("Left Overlap Truncates", func(t *testing.T) {
		left, _, n := Subtract(NewRange(0, 10), NewRange(-5, 3))
		require.Equal(t, 1, n)
		require.Equal(t, NewRange(4, 10), left)
	})

	t.Run("Right Overlap Truncates", func(t *testing.T) {
		left, _, n := Subtract(NewRange(0, 10), NewRange(8, 20))
		require.Equal(t, 1, n)
		require.Equal(t, NewRange(0, 7), left)
	})

	t.Run("Disjoint Is Untouched", func(t *testing.T) {
		left, _, n := Subtract(NewRange(0, 10), NewRange(20, 30))
		require.Equal(t, 1, n)
		require.Equal(t, NewRange(0, 10), left)
	})
}

func TestRange_Difference(t *testing.T) {
	t.Run("Punches Holes", func(t *testing.T) {
		out := Difference(
			[]Range{NewRange(0, 10)},
			[]Range{NewRange(2, 3), NewRange(7, 8)},
		)
		require.Equal(t, []Range{NewRange(0, 1), NewRange(4, 6), NewRange(9, 10)}, out)
	})

	t.Run("Full Coverage Removes All", func(t *testing.T) {
		out := Difference([]Range{NewRange(0, 4)}, []Range{NewRange(-1, 5)})
		require.Empty(t, out)
	})

	t.Run("No Coverage Keeps All", func(t *testing.T) {
		a := []Range{NewRange(0, 4), NewRange(10, 14)}
		out := Difference(a, []Range{NewRange(5, 9)})
		require.Equal(t, a, out)
	})

	t.Run("Coverage Spanning Multiple Ranges", func(t *testing.T) {
		out := Difference(
			[]Range{NewRange(0, 4), NewRange(10, 14)},
			[]Range{NewRange(3, 12)},
		)
		require.Equal(t, []Range{NewRange(0, 2), NewRange(13, 14)}, out)
	})
}

func TestRange_MergeOrAdd(t *testing.T) {
	var rs []Range
	rs = MergeOrAdd(rs, NewRange(0, 2))
	rs = MergeOrAdd(rs, NewRange(3, 4))
	rs = MergeOrAdd(rs, NewRange(8, 9))
	require.Equal(t, []Range{NewRange(0, 4), NewRange(8, 9)}, rs)
}
