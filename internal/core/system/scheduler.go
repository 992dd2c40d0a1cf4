package system

import (
	"reflect"
	"sort"

	"go.uber.org/multierr"

	"github.com/zeusync/ecs/internal/core/observability/log"
	"github.com/zeusync/ecs/pkg/concurrent"
)

// bitset over the system index space of one group.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (i % 64)
}

func (b bitset) or(o bitset) {
	for i := range b {
		b[i] |= o[i]
	}
}

func (b bitset) intersects(o bitset) bool {
	for i := range b {
		if b[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

// pipeline is a set of systems that must execute serially because their
// read/write sets conflict, directly or transitively.
type pipeline struct {
	members bitset
	systems []*Instance // declaration order
}

// group is a barrier-separated partition of the schedule.
type group struct {
	id        int
	pipelines []*pipeline
}

// Schedule is the compiled execution plan over a set of systems.
type Schedule struct {
	groups []group
}

// Build derives the schedule. Within each user group, a left-to-right
// pass records for every parameter the last prior system touching the
// same type; backward transitive reachability over the conflicting edges
// yields per-system bitsets, and overlapping bitsets merge into
// pipelines. Reads never conflict with reads, so read-only sharing keeps
// systems in separate, concurrently runnable pipelines.
func Build(systems []*Instance, lg *log.Logger) *Schedule {
	byGroup := make(map[int][]*Instance)
	var ids []int
	for _, s := range systems {
		if _, ok := byGroup[s.Group()]; !ok {
			ids = append(ids, s.Group())
		}
		byGroup[s.Group()] = append(byGroup[s.Group()], s)
	}
	sort.Ints(ids)

	sched := &Schedule{}
	for _, id := range ids {
		members := byGroup[id]
		sort.Slice(members, func(i, j int) bool {
			return members[i].DeclIndex() < members[j].DeclIndex()
		})
		g := group{id: id, pipelines: buildPipelines(members)}
		sched.groups = append(sched.groups, g)
		lg.Info("schedule group built",
			log.Int("group", id),
			log.Int("systems", len(members)),
			log.Int("pipelines", len(g.pipelines)))
	}
	return sched
}

func buildPipelines(systems []*Instance) []*pipeline {
	n := len(systems)

	// Flatten every parameter type into a unique index set.
	typeIndex := make(map[reflect.Type]int)
	indexOf := func(t reflect.Type) int {
		if i, ok := typeIndex[t]; ok {
			return i
		}
		i := len(typeIndex)
		typeIndex[t] = i
		return i
	}
	touches := make([][]int, n)
	writes := make([]map[int]bool, n)
	for i, s := range systems {
		writes[i] = make(map[int]bool)
		for _, t := range s.Reads() {
			touches[i] = append(touches[i], indexOf(t))
		}
		for _, t := range s.Writes() {
			ti := indexOf(t)
			touches[i] = append(touches[i], ti)
			writes[i][ti] = true
		}
	}

	// Dependency matrix: per parameter, the last prior system that
	// touched the same type.
	lastUsed := make([]int, len(typeIndex))
	for i := range lastUsed {
		lastUsed[i] = -1
	}
	deps := make([][]int, n)
	for i := range systems {
		for _, ti := range touches[i] {
			deps[i] = append(deps[i], lastUsed[ti])
		}
		for _, ti := range touches[i] {
			lastUsed[ti] = i
		}
	}

	// Backward transitive reachability along conflicting edges. An edge
	// on a type only binds when at least one endpoint writes it.
	reach := make([]bitset, n)
	for i := range systems {
		reach[i] = newBitset(n)
		reach[i].set(i)
		for k, ti := range touches[i] {
			prev := deps[i][k]
			if prev < 0 {
				continue
			}
			if writes[i][ti] || writes[prev][ti] {
				reach[i].or(reach[prev])
			}
		}
	}

	// Merge overlapping reachability sets to a fixed point.
	pipes := make([]*pipeline, 0, n)
	for i, s := range systems {
		var host *pipeline
		kept := pipes[:0]
		for _, p := range pipes {
			if p.members.intersects(reach[i]) {
				if host == nil {
					host = p
				} else {
					host.members.or(p.members)
					host.systems = append(host.systems, p.systems...)
					continue // folded into host
				}
			}
			kept = append(kept, p)
		}
		pipes = kept
		if host == nil {
			host = &pipeline{members: newBitset(n)}
			pipes = append(pipes, host)
		}
		host.members.or(reach[i])
		host.systems = append(host.systems, s)
	}

	for _, p := range pipes {
		sort.Slice(p.systems, func(a, b int) bool {
			return p.systems[a].DeclIndex() < p.systems[b].DeclIndex()
		})
	}
	return pipes
}

// Run executes the plan: groups sequentially in ascending order,
// pipelines of a group concurrently, systems of a pipeline sequentially.
// A failing system aborts the run once its sibling pipelines finish.
func (s *Schedule) Run(workers int) error {
	for _, g := range s.groups {
		errs := make([]error, len(g.pipelines))
		_ = concurrent.ForEach(len(g.pipelines), workers, func(i int) error {
			for _, sys := range g.pipelines[i].systems {
				if err := sys.Run(workers); err != nil {
					errs[i] = err
					return err
				}
			}
			return nil
		})
		if err := multierr.Combine(errs...); err != nil {
			return err
		}
	}
	return nil
}

// Pipelines returns, for each pipeline of each group, the system handle
// ids in execution order. Intended for diagnostics and tests.
func (s *Schedule) Pipelines() [][][]string {
	var out [][][]string
	for _, g := range s.groups {
		var gp [][]string
		for _, p := range g.pipelines {
			var ids []string
			for _, sys := range p.systems {
				ids = append(ids, sys.ID())
			}
			gp = append(gp, ids)
		}
		out = append(out, gp)
	}
	return out
}
