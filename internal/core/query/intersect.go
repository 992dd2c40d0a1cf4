// Package query computes the entity ranges on which a tuple of pools all
// have data. Inputs are the pools' cached range lists: sorted,
// non-overlapping, one entry per chunk.
package query

import "github.com/zeusync/ecs/entity"

// Intersect emits, in order, the ranges covered by all required lists and
// by none of the filter lists. Each emitted range lies inside a single
// entry of every required list; adjacent results that come from different
// entries are emitted separately, not merged. With no required lists
// nothing is emitted: a system needs at least one bounded component to
// enumerate entities.
func Intersect(required, filters [][]entity.Range, cb func(entity.Range)) {
	if len(required) == 0 {
		return
	}

	acc := required[0]
	for _, next := range required[1:] {
		acc = intersectLists(acc, next)
		if len(acc) == 0 {
			return
		}
	}
	for _, f := range filters {
		acc = entity.Difference(acc, f)
		if len(acc) == 0 {
			return
		}
	}
	for _, r := range acc {
		cb(r)
	}
}

// intersectLists advances the laggard of the two cursors, clipping to the
// overlap whenever the heads intersect.
func intersectLists(a, b []entity.Range) []entity.Range {
	var out []entity.Range
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if r, ok := entity.Intersect(a[i], b[j]); ok {
			out = append(out, r)
		}
		if a[i].Last < b[j].Last {
			i++
		} else {
			j++
		}
	}
	return out
}

// Covered reports whether r lies entirely inside the sorted range list.
func Covered(list []entity.Range, r entity.Range) bool {
	rest := r
	for _, c := range list {
		if c.Last < rest.First {
			continue
		}
		if c.First > rest.First {
			return false
		}
		if c.Last >= rest.Last {
			return true
		}
		rest = entity.Range{First: c.Last + 1, Last: rest.Last}
	}
	return false
}
