package system

import (
	"sort"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/pkg/concurrent"
)

type entInfo struct {
	depth int
	root  int
}

// buildHierarchy flattens the cached ranges into per-entity arguments,
// drops entities whose parent fails the sub-type predicates, and orders
// the rest topologically: grouped by root, then by depth. Parents always
// come before their children within a root's group.
func (s *Instance) buildHierarchy() {
	s.hierRoots = s.hierRoots[:0]

	parentIdx := -1
	for k, p := range s.sig.Params {
		if p.Kind == ParamParent {
			parentIdx = k
		}
	}
	parentPool := s.sig.Params[parentIdx].Pool

	info := make(map[entity.ID]entInfo)
	rootCount := 0

	// fill resolves the depth and root ordinal of an entity, walking up
	// through parents that may themselves be outside the query.
	var fill func(id entity.ID) entInfo
	fill = func(id entity.ID) entInfo {
		if inf, ok := info[id]; ok {
			return inf
		}
		pv, ok := parentPool.Find(id)
		if !ok {
			inf := entInfo{depth: 0, root: rootCount}
			rootCount++
			info[id] = inf
			return inf
		}
		parent := fill(pv.Interface().(entity.Parent).Entity)
		inf := entInfo{depth: parent.depth + 1, root: parent.root}
		info[id] = inf
		return inf
	}

	var ents []entArg
	for ai := range s.rangedArgs {
		arg := &s.rangedArgs[ai]
		parentCol := arg.cols[parentIdx]
		for off := 0; off < arg.rng.Count(); off++ {
			id := arg.rng.First + entity.ID(off)
			pid := parentCol.Index(off).Interface().(entity.Parent).Entity
			if !s.parentSatisfies(pid) {
				continue
			}
			inf := fill(id)
			ents = append(ents, entArg{id: id, argIdx: ai, off: off, depth: inf.depth, root: inf.root})
		}
	}

	sort.SliceStable(ents, func(i, j int) bool {
		if ents[i].root != ents[j].root {
			return ents[i].root < ents[j].root
		}
		return ents[i].depth < ents[j].depth
	})

	for i := 0; i < len(ents); {
		j := i + 1
		for j < len(ents) && ents[j].root == ents[i].root {
			j++
		}
		s.hierRoots = append(s.hierRoots, ents[i:j])
		i = j
	}
}

// parentSatisfies checks the parent sub-type predicates against the pools
// of the referenced parent entity.
func (s *Instance) parentSatisfies(pid entity.ID) bool {
	for _, t := range s.opts.parentHas {
		if !s.reg.GetOrCreate(t).HasID(pid) {
			return false
		}
	}
	for _, t := range s.opts.parentNot {
		if s.reg.GetOrCreate(t).HasID(pid) {
			return false
		}
	}
	return true
}

// runHierarchy processes each root's tree sequentially in topological
// order; distinct trees run in parallel.
func (s *Instance) runHierarchy(workers int) error {
	body := func(i int) error {
		return concurrent.Safely(func() error {
			for _, e := range s.hierRoots[i] {
				s.callEntity(&s.rangedArgs[e.argIdx], e.off)
			}
			return nil
		})
	}
	if s.opts.notParallel {
		return concurrent.ForEachSerial(len(s.hierRoots), body)
	}
	return concurrent.ForEach(len(s.hierRoots), workers, body)
}
