package powerlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intList() *List[int] {
	return New[int](func(a, b int) bool { return a < b })
}

func iota(from, to int) []int {
	out := make([]int, 0, to-from)
	for v := from; v < to; v++ {
		out = append(out, v)
	}
	return out
}

func collect(l *List[int]) []int {
	var out []int
	l.Each(func(v int) bool {
		out = append(out, v)
		return true
	})
	return out
}

func TestList_Empty(t *testing.T) {
	l := intList()
	l.Remove(123)
	require.True(t, l.Empty())
	require.Equal(t, 0, l.Len())
	require.False(t, l.Contains(0))
}

func TestList_Insert(t *testing.T) {
	t.Run("Into Empty", func(t *testing.T) {
		l := intList()
		l.Insert(23)
		require.True(t, l.Contains(23))
		require.Equal(t, 23, l.Front())
		require.Equal(t, 23, l.Back())
	})

	t.Run("Before Head", func(t *testing.T) {
		l := intList()
		l.Insert(23)
		l.Insert(22)
		require.True(t, l.Contains(22))
		require.True(t, l.Contains(23))
		require.Equal(t, 22, l.Front())
	})

	t.Run("After Tail", func(t *testing.T) {
		l := intList()
		l.Insert(23)
		l.Insert(24)
		require.True(t, l.Contains(23))
		require.Equal(t, 24, l.Back())
	})

	t.Run("In The Middle", func(t *testing.T) {
		l := intList()
		l.Insert(22)
		l.Insert(24)
		l.Insert(23)
		require.Equal(t, []int{22, 23, 24}, collect(l))
	})

	t.Run("Middle Of A Longer List", func(t *testing.T) {
		l := intList()
		for _, v := range []int{10, 20, 30, 40, 50} {
			l.Insert(v)
		}
		l.Insert(25)
		require.Equal(t, []int{10, 20, 25, 30, 40, 50}, collect(l))
	})

	t.Run("Insert Remove Insert", func(t *testing.T) {
		l := intList()
		l.Insert(23)
		l.Remove(23)
		l.Insert(24)
		require.False(t, l.Contains(23))
		require.True(t, l.Contains(24))
	})
}

func TestList_Remove(t *testing.T) {
	t.Run("Head", func(t *testing.T) {
		l := intList()
		l.AssignSlice(iota(0, 8))
		l.Remove(0)
		for _, v := range iota(1, 8) {
			require.True(t, l.Contains(v), "missing %d", v)
		}
		require.Equal(t, 7, l.Len())
	})

	t.Run("Tail", func(t *testing.T) {
		l := intList()
		l.AssignSlice(iota(0, 8))
		l.Remove(7)
		for _, v := range iota(0, 7) {
			require.True(t, l.Contains(v), "missing %d", v)
		}
		require.Equal(t, 7, l.Len())
		require.Equal(t, 6, l.Back())
	})

	t.Run("Middle", func(t *testing.T) {
		l := intList()
		l.AssignSlice(iota(0, 8))
		for _, v := range iota(1, 7) {
			l.Remove(v)
		}
		require.Equal(t, []int{0, 7}, collect(l))
		require.Equal(t, 2, l.Len())
	})
}

func TestList_AssignSlice(t *testing.T) {
	l := intList()
	l.AssignSlice(iota(-2, 2))
	l.AssignSlice(iota(0, 4))
	l.AssignSlice(iota(4, 8))
	require.Equal(t, 4, l.Len())
	for _, v := range iota(4, 8) {
		require.True(t, l.Contains(v))
	}
	require.False(t, l.Contains(0))
}

func TestList_Rebalance(t *testing.T) {
	t.Run("Explicit", func(t *testing.T) {
		l := intList()
		for _, v := range iota(-200, 200) {
			l.Insert(v)
		}
		l.Rebalance()
		require.True(t, l.Contains(1))
		require.Equal(t, -200, l.Front())
		require.Equal(t, 199, l.Back())
	})

	t.Run("In Stream Via Iterator", func(t *testing.T) {
		l := intList()
		for _, v := range iota(-100, 200) {
			l.Insert(v)
		}

		sum := 0
		for it := l.Iter(); it.Valid(); it.Next() {
			sum += it.Value()
		}
		require.Greater(t, sum, 0)
		require.True(t, l.Contains(1))
	})
}

// Mirrors the sequential-insert-then-mutate scenario: 102 sequential
// values, a lazy rebalance paid by iteration, then point mutations.
func TestList_SequentialInsertAndMutate(t *testing.T) {
	l := intList()
	for _, v := range iota(-2, 100) {
		l.Insert(v)
	}
	require.Equal(t, 102, l.Len())

	// Walk once to pay for the rebalance.
	n := 0
	for it := l.Iter(); it.Valid(); it.Next() {
		n++
	}
	require.Equal(t, 102, n)

	for _, v := range iota(-2, 100) {
		require.True(t, l.Contains(v), "missing %d", v)
	}
	require.False(t, l.Contains(-3))
	require.False(t, l.Contains(100))

	l.Insert(100)
	l.Insert(101)
	l.Insert(-3)
	l.Remove(83)

	require.False(t, l.Contains(83))
	require.True(t, l.Contains(82))
	require.True(t, l.Contains(84))
	require.True(t, l.Contains(-3))
	require.True(t, l.Contains(100))
	require.True(t, l.Contains(101))
	require.Equal(t, 104, l.Len())
	require.Equal(t, -3, l.Front())
	require.Equal(t, 101, l.Back())
}

func TestList_LowerBound(t *testing.T) {
	l := intList()
	l.AssignSlice([]int{10, 20, 30})

	it := l.LowerBound(20)
	require.True(t, it.Valid())
	require.Equal(t, 20, it.Value())

	it = l.LowerBound(15)
	require.True(t, it.Valid())
	require.Equal(t, 20, it.Value())

	it = l.LowerBound(5)
	require.True(t, it.Valid())
	require.Equal(t, 10, it.Value())

	it = l.LowerBound(35)
	require.False(t, it.Valid())
}

func TestList_EraseViaIterator(t *testing.T) {
	l := intList()
	l.AssignSlice(iota(0, 10))
	l.Erase(l.Find(5))
	require.False(t, l.Contains(5))
	require.Equal(t, 9, l.Len())

	// Erasing an invalid iterator is a no-op.
	l.Erase(l.Find(5))
	require.Equal(t, 9, l.Len())
}

func TestList_Clear(t *testing.T) {
	l := intList()
	l.AssignSlice(iota(0, 10))
	l.Clear()
	require.True(t, l.Empty())
	require.False(t, l.Contains(3))
	l.Insert(1)
	require.True(t, l.Contains(1))
}
