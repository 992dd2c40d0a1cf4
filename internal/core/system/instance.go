package system

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/contract"
	"github.com/zeusync/ecs/internal/core/query"
	"github.com/zeusync/ecs/internal/core/registry"
	"github.com/zeusync/ecs/pkg/concurrent"
)

// Flavour is the execution shape picked from a system's signature.
type Flavour uint8

const (
	// FlavourRanged iterates entities linearly over cached ranges.
	FlavourRanged Flavour = iota
	// FlavourHierarchy processes parents before their children.
	FlavourHierarchy
	// FlavourSorted iterates entities ordered by a key component.
	FlavourSorted
	// FlavourGlobal invokes the function once per run.
	FlavourGlobal
)

// rangedArg is one cached argument row: an entity range plus, per bound
// parameter, the backing slice covering exactly that range.
type rangedArg struct {
	rng  entity.Range
	cols []reflect.Value
}

// entArg addresses a single entity inside the ranged argument cache.
type entArg struct {
	id     entity.ID
	argIdx int
	off    int
	depth  int
	root   int
	key    reflect.Value
}

// Instance is one registered system: the user function, its decomposed
// signature, and the flavour-specific argument cache. The cache carries a
// dirty bit mirroring the dependent pools' change flags and is rebuilt on
// the first run after a commit touched them.
type Instance struct {
	id        string
	declIndex int
	sig       *Signature
	flavour   Flavour
	opts      Options
	reg       *registry.Registry

	enabled    bool
	needsBuild bool
	lastRun    time.Time

	rangedArgs []rangedArg
	hierRoots  [][]entArg
	sortedArgs []entArg
}

// New decomposes fn and wraps it as a schedulable instance.
func New(declIndex int, fn any, reg *registry.Registry, opts ...Option) (*Instance, error) {
	sig, err := Decompose(fn, reg)
	if err != nil {
		return nil, err
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Instance{
		id:         uuid.NewString(),
		declIndex:  declIndex,
		sig:        sig,
		opts:       o,
		reg:        reg,
		enabled:    true,
		needsBuild: true,
	}

	switch {
	case sig.hasParent():
		if o.orderKey != nil {
			return nil, fmt.Errorf("system: hierarchy systems can not also be sorted")
		}
		s.flavour = FlavourHierarchy
	case sig.allGlobal():
		if sig.HasID {
			return nil, fmt.Errorf("system: global systems do not work on entities")
		}
		if o.orderKey != nil {
			return nil, fmt.Errorf("system: global systems can not be sorted")
		}
		s.flavour = FlavourGlobal
	case o.orderKey != nil:
		if err := s.validateOrderKey(); err != nil {
			return nil, err
		}
		s.flavour = FlavourSorted
	default:
		s.flavour = FlavourRanged
	}

	if s.flavour != FlavourGlobal && !s.hasBoundParam() {
		return nil, fmt.Errorf("system: at least one bound component parameter is required")
	}
	if len(o.parentHas)+len(o.parentNot) > 0 && s.flavour != FlavourHierarchy {
		return nil, fmt.Errorf("system: parent predicates need a parent parameter")
	}
	return s, nil
}

func (s *Instance) hasBoundParam() bool {
	for _, p := range s.sig.Params {
		if p.Kind != ParamFilter && !p.IsGlobal {
			return true
		}
	}
	return false
}

func (s *Instance) validateOrderKey() error {
	for _, p := range s.sig.Params {
		if p.Comp == s.opts.orderKey && p.Kind != ParamFilter {
			if p.IsTag || p.IsGlobal {
				return fmt.Errorf("system: can not sort by %s, it has no per-entity value", p.Comp)
			}
			return nil
		}
	}
	return fmt.Errorf("system: sort key %s is not a parameter of the system", s.opts.orderKey)
}

// ID returns the handle id of the system.
func (s *Instance) ID() string { return s.id }

// DeclIndex returns the declaration position used for ordering.
func (s *Instance) DeclIndex() int { return s.declIndex }

// Group returns the execution group.
func (s *Instance) Group() int { return s.opts.group }

// Flavour returns the execution shape.
func (s *Instance) Flavour() Flavour { return s.flavour }

// Enabled reports whether the system will run.
func (s *Instance) Enabled() bool { return s.enabled }

// SetEnabled toggles the system.
func (s *Instance) SetEnabled(on bool) { s.enabled = on }

// Reads returns the read set of the system.
func (s *Instance) Reads() []reflect.Type { return s.sig.Reads() }

// Writes returns the write set of the system.
func (s *Instance) Writes() []reflect.Type { return s.sig.Writes() }

// CheckRebuild marks the argument cache dirty when a dependent pool
// changed. The world calls this during commit, before pool flags are
// cleared. Sorted systems re-sort on every commit.
func (s *Instance) CheckRebuild() {
	if s.flavour == FlavourSorted {
		s.needsBuild = true
		return
	}
	for _, p := range s.sig.Params {
		if p.Pool.Changed() {
			s.needsBuild = true
			return
		}
	}
}

// Run executes the system once, rebuilding the argument cache first when
// needed. workers bounds intra-system parallelism.
func (s *Instance) Run(workers int) error {
	if !s.enabled {
		return nil
	}
	if s.opts.interval > 0 && !s.lastRun.IsZero() && time.Since(s.lastRun) < s.opts.interval {
		return nil
	}
	s.lastRun = time.Now()

	if s.needsBuild {
		s.build()
		s.needsBuild = false
	}

	switch s.flavour {
	case FlavourGlobal:
		return concurrent.Safely(func() error {
			s.callGlobal()
			return nil
		})
	case FlavourHierarchy:
		return s.runHierarchy(workers)
	case FlavourSorted:
		return concurrent.Safely(func() error {
			for _, e := range s.sortedArgs {
				s.callEntity(&s.rangedArgs[e.argIdx], e.off)
			}
			return nil
		})
	default:
		return s.runRanged(workers)
	}
}

// build recomputes the argument cache from the pools' current ranges.
func (s *Instance) build() {
	if s.flavour == FlavourGlobal {
		return
	}

	s.rangedArgs = s.rangedArgs[:0]

	var required, filters [][]entity.Range
	for _, p := range s.sig.Params {
		if p.Kind == ParamFilter {
			filters = append(filters, p.Pool.Ranges())
		} else {
			required = append(required, p.Pool.Ranges())
		}
	}

	query.Intersect(required, filters, func(rng entity.Range) {
		arg := rangedArg{rng: rng, cols: make([]reflect.Value, len(s.sig.Params))}
		for k, p := range s.sig.Params {
			if p.Kind == ParamFilter || p.IsGlobal || p.IsTag {
				continue
			}
			col, ok := p.Pool.SliceFor(rng)
			contract.Assert(ok, "intersection range crosses a chunk boundary")
			arg.cols[k] = col
		}
		s.rangedArgs = append(s.rangedArgs, arg)
	})

	switch s.flavour {
	case FlavourHierarchy:
		s.buildHierarchy()
	case FlavourSorted:
		s.buildSorted()
	}
}

func (s *Instance) runRanged(workers int) error {
	body := func(i int) error {
		return concurrent.Safely(func() error {
			arg := &s.rangedArgs[i]
			for off := 0; off < arg.rng.Count(); off++ {
				s.callEntity(arg, off)
			}
			return nil
		})
	}
	if s.opts.notParallel {
		return concurrent.ForEachSerial(len(s.rangedArgs), body)
	}
	return concurrent.ForEach(len(s.rangedArgs), workers, body)
}

// callEntity assembles the call frame for one entity of a cached range.
func (s *Instance) callEntity(arg *rangedArg, off int) {
	in := make([]reflect.Value, 0, len(s.sig.Params)+1)
	if s.sig.HasID {
		in = append(in, reflect.ValueOf(arg.rng.First+entity.ID(off)))
	}
	for k, p := range s.sig.Params {
		switch {
		case p.Kind == ParamFilter:
			in = append(in, reflect.Zero(p.Declared))
		case p.IsGlobal:
			if p.Kind == ParamWrite {
				in = append(in, p.Pool.Shared())
			} else {
				in = append(in, p.Pool.Shared().Elem())
			}
		case p.IsTag:
			in = append(in, reflect.Zero(p.Declared))
		case p.Kind == ParamWrite:
			in = append(in, arg.cols[k].Index(off).Addr())
		default:
			in = append(in, arg.cols[k].Index(off))
		}
	}
	s.sig.Fn.Call(in)
}

func (s *Instance) callGlobal() {
	in := make([]reflect.Value, 0, len(s.sig.Params))
	for _, p := range s.sig.Params {
		if p.Kind == ParamWrite {
			in = append(in, p.Pool.Shared())
		} else {
			in = append(in, p.Pool.Shared().Elem())
		}
	}
	s.sig.Fn.Call(in)
}
