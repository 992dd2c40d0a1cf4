package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/ecs/entity"
)

func ranges(pairs ...entity.ID) []entity.Range {
	var out []entity.Range
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, entity.NewRange(pairs[i], pairs[i+1]))
	}
	return out
}

func run(required, filters [][]entity.Range) []entity.Range {
	var out []entity.Range
	Intersect(required, filters, func(r entity.Range) {
		out = append(out, r)
	})
	return out
}

func TestIntersect(t *testing.T) {
	t.Run("Single List Passes Through", func(t *testing.T) {
		out := run([][]entity.Range{ranges(0, 10)}, nil)
		require.Equal(t, ranges(0, 10), out)
	})

	t.Run("Two Lists Clip To Overlap", func(t *testing.T) {
		out := run([][]entity.Range{ranges(0, 10), ranges(5, 15)}, nil)
		require.Equal(t, ranges(5, 10), out)
	})

	t.Run("Gaps Split The Result", func(t *testing.T) {
		out := run([][]entity.Range{
			ranges(0, 20),
			ranges(0, 4, 8, 12, 16, 20),
		}, nil)
		require.Equal(t, ranges(0, 4, 8, 12, 16, 20), out)
	})

	t.Run("Disjoint Lists Yield Nothing", func(t *testing.T) {
		out := run([][]entity.Range{ranges(0, 4), ranges(10, 14)}, nil)
		require.Empty(t, out)
	})

	t.Run("Three Way", func(t *testing.T) {
		out := run([][]entity.Range{
			ranges(0, 30),
			ranges(5, 25),
			ranges(10, 40),
		}, nil)
		require.Equal(t, ranges(10, 25), out)
	})

	t.Run("Filters Subtract Coverage", func(t *testing.T) {
		out := run(
			[][]entity.Range{ranges(0, 10)},
			[][]entity.Range{ranges(4, 5)},
		)
		require.Equal(t, ranges(0, 3, 6, 10), out)
	})

	t.Run("Filter Covering All Yields Nothing", func(t *testing.T) {
		out := run(
			[][]entity.Range{ranges(0, 10)},
			[][]entity.Range{ranges(-5, 15)},
		)
		require.Empty(t, out)
	})

	t.Run("No Required Lists Yields Nothing", func(t *testing.T) {
		out := run(nil, [][]entity.Range{ranges(0, 10)})
		require.Empty(t, out)
	})
}

func TestCovered(t *testing.T) {
	list := ranges(0, 4, 5, 9, 20, 30)

	require.True(t, Covered(list, entity.NewRange(2, 7)))
	require.True(t, Covered(list, entity.NewRange(0, 9)))
	require.True(t, Covered(list, entity.NewRange(25, 30)))
	require.False(t, Covered(list, entity.NewRange(8, 21)))
	require.False(t, Covered(list, entity.NewRange(31, 32)))
}
