// Package ecs is a data-oriented entity-component-system runtime built
// around range-compressed component storage. Components are added and
// removed over entity ranges, buffered per goroutine, and applied at
// commit; systems are plain functions decomposed at registration into
// read/write sets and scheduled into concurrent pipelines that respect
// them.
//
// Component types declare their nature by embedding the marker structs:
//
//	type Health struct{ HP int }                  // regular component
//	type Dead struct{ ecs.TagComponent }          // zero-payload marker
//	type Frame struct{ ecs.GlobalComponent; N int } // one shared value
//	type Hit struct{ ecs.TransientComponent }     // cleared every commit
package ecs

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/config"
	"github.com/zeusync/ecs/internal/core/contract"
	"github.com/zeusync/ecs/internal/core/observability/log"
	"github.com/zeusync/ecs/internal/core/pool"
	"github.com/zeusync/ecs/internal/core/registry"
	"github.com/zeusync/ecs/internal/core/system"
)

// ID is an entity identifier.
type ID = entity.ID

// Range is a closed interval of entity ids.
type Range = entity.Range

// Parent marks an entity as the child of another entity.
type Parent = entity.Parent

// Not is a filter parameter: the system skips entities carrying T.
type Not[T any] = system.Not[T]

// Config tunes a world; see the config defaults.
type Config = config.Config

// Option configures a system at creation.
type Option = system.Option

// Embeddable component markers.
type (
	// TagComponent marks a zero-payload component.
	TagComponent struct{}
	// GlobalComponent marks a component with one shared value.
	GlobalComponent struct{}
	// TransientComponent marks a component cleared at every commit.
	TransientComponent struct{}
	// ImmutableComponent marks a component systems may not write.
	ImmutableComponent struct{}
)

func (TagComponent) TagComponent()             {}
func (GlobalComponent) GlobalComponent()       {}
func (TransientComponent) TransientComponent() {}
func (ImmutableComponent) ImmutableComponent() {}

// System option re-exports.
var (
	InGroup     = system.InGroup
	NotParallel = system.NotParallel
	Interval    = system.Interval
	Frequency   = system.Frequency
)

// OrderBy runs a system over entities sorted by their T component.
func OrderBy[T any](less func(a, b T) bool) Option {
	return system.OrderBy(less)
}

// ParentHas restricts a hierarchy system to entities whose parent carries T.
func ParentHas[T any]() Option {
	return system.ParentHas[T]()
}

// ParentNot restricts a hierarchy system to entities whose parent lacks T.
func ParentNot[T any]() Option {
	return system.ParentNot[T]()
}

// NewRange returns the range [first, last].
func NewRange(first, last ID) Range {
	return entity.NewRange(first, last)
}

// One returns the range holding only id.
func One(id ID) Range {
	return entity.One(id)
}

// ParentOf returns a Parent component referencing id.
func ParentOf(id ID) Parent {
	return entity.ParentOf(id)
}

// DefaultConfig returns the default world configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig parses a yaml document over the defaults.
func LoadConfig(data []byte) (Config, error) {
	return config.Load(data)
}

// World owns the component pools and the registered systems. Buffered
// component mutations may be issued from any goroutine; CommitChanges,
// RunSystems and system registration are single-threaded entry points.
type World struct {
	cfg     config.Config
	lg      *log.Logger
	reg     *registry.Registry
	workers int

	mu         sync.Mutex
	systems    []*system.Instance
	sched      *system.Schedule
	schedDirty bool
}

// New returns a world with the default configuration.
func New() *World {
	w, err := NewFromConfig(config.Default())
	contract.Assert(err == nil, "default configuration must be valid")
	return w
}

// NewFromConfig returns a world tuned by cfg.
func NewFromConfig(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	contract.SetAudit(cfg.Audit)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &World{
		cfg:     cfg,
		lg:      log.New(cfg.LogLevel),
		reg:     registry.New(),
		workers: workers,
	}, nil
}

// CommitChanges applies every buffered add and remove to the pools:
// removes first, then adds, per pool in creation order. Systems whose
// dependent pools changed are marked for an argument rebuild before the
// change flags are cleared.
func (w *World) CommitChanges() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reg.Each(func(p *pool.Pool) { p.ProcessChanges() })
	for _, s := range w.systems {
		s.CheckRebuild()
	}
	w.reg.Each(func(p *pool.Pool) { p.ClearFlags() })

	w.lg.Debug("commit applied", log.Int("pools", w.reg.Len()))
}

// RunSystems executes every enabled system once, honouring the compiled
// schedule. It returns after all systems complete. When a group fails,
// the failures of its pipelines are combined and returned once all of
// them have finished, and later groups do not run.
func (w *World) RunSystems() error {
	w.mu.Lock()
	if w.schedDirty || w.sched == nil {
		w.sched = system.Build(w.systems, w.lg)
		w.schedDirty = false
	}
	sched := w.sched
	w.mu.Unlock()

	err := sched.Run(w.workers)
	if err != nil {
		w.lg.Error("system run failed", log.Err(err))
	}
	return err
}

// UpdateSystems commits all buffered changes and runs the systems.
func (w *World) UpdateSystems() error {
	w.CommitChanges()
	return w.RunSystems()
}

// MakeVariantGroup declares that an entity may carry at most one of the
// witnessed component types. Pass zero values as type witnesses:
//
//	w.MakeVariantGroup(Solid{}, Liquid{}, Gas{})
//
// An add on any member enqueues removes of the same range on the others.
func (w *World) MakeVariantGroup(witnesses ...any) {
	contract.Pre(len(witnesses) >= 2, "a variant group needs at least two component types")
	pools := make([]*pool.Pool, len(witnesses))
	for i, wit := range witnesses {
		pools[i] = w.reg.GetOrCreate(reflect.TypeOf(wit))
	}
	for i, p := range pools {
		for j, other := range pools {
			if i != j {
				p.AddVariant(other)
			}
		}
	}
}
