package system

import (
	"sort"

	"github.com/zeusync/ecs/entity"
)

// buildSorted flattens the cached ranges into per-entity arguments held
// in the order defined by the user predicate over the key component. The
// cache is rebuilt, and therefore re-sorted, after every commit.
func (s *Instance) buildSorted() {
	s.sortedArgs = s.sortedArgs[:0]

	keyIdx := -1
	for k, p := range s.sig.Params {
		if p.Comp == s.opts.orderKey && p.Kind != ParamFilter {
			keyIdx = k
		}
	}

	for ai := range s.rangedArgs {
		arg := &s.rangedArgs[ai]
		keyCol := arg.cols[keyIdx]
		for off := 0; off < arg.rng.Count(); off++ {
			s.sortedArgs = append(s.sortedArgs, entArg{
				id:     arg.rng.First + entity.ID(off),
				argIdx: ai,
				off:    off,
				key:    keyCol.Index(off),
			})
		}
	}

	sort.SliceStable(s.sortedArgs, func(i, j int) bool {
		return s.opts.orderLess(s.sortedArgs[i].key, s.sortedArgs[j].key)
	})
}
