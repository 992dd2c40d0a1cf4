package ecs

import (
	"reflect"

	"github.com/zeusync/ecs/internal/core/pool"
	"github.com/zeusync/ecs/internal/core/registry"
)

// Add buffers the component value for every entity in rng. Nothing is
// visible until CommitChanges.
// Pre: no entity in rng already has a T, or has one queued to be added.
func Add[T any](w *World, rng Range, val T) {
	pool.Add(registry.PoolFor[T](w.reg), rng, val)
}

// AddSpan buffers one component per entity, drawn from span, which is
// borrowed until commit. Pre: len(span) == rng.Count().
func AddSpan[T any](w *World, rng Range, span []T) {
	pool.AddSpan(registry.PoolFor[T](w.reg), rng, span)
}

// AddGenerator buffers gen, invoked once per id during commit to produce
// that entity's value.
func AddGenerator[T any](w *World, rng Range, gen func(ID) T) {
	pool.AddGenerator(registry.PoolFor[T](w.reg), rng, gen)
}

// Remove buffers removal of T from every entity in rng.
func Remove[T any](w *World, rng Range) {
	registry.PoolFor[T](w.reg).Remove(rng)
}

// Get returns a pointer to the entity's T, or nil when absent. The
// pointer stays valid until a commit reshapes the containing chunk.
func Get[T any](w *World, id ID) *T {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	if !ok {
		return nil
	}
	return pool.Get[T](p, id)
}

// GetRange returns the contiguous values of T covering rng, or nil when
// the range is not fully inside one chunk. The slice aliases pool storage
// and is invalidated by the next commit.
func GetRange[T any](w *World, rng Range) []T {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	if !ok {
		return nil
	}
	return pool.Slice[T](p, rng)
}

// Has reports whether the entity carries T.
func Has[T any](w *World, id ID) bool {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	return ok && p.HasID(id)
}

// HasRange reports whether every entity in rng carries T.
func HasRange[T any](w *World, rng Range) bool {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	return ok && p.HasRange(rng)
}

// Shared returns the single instance of the global component T. It can
// be used before any system referencing T exists.
func Shared[T any](w *World) *T {
	return pool.SharedOf[T](registry.PoolFor[T](w.reg))
}

// NumEntities returns the number of entities carrying T.
func NumEntities[T any](w *World) int {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	if !ok {
		return 0
	}
	return p.NumEntities()
}

// NumComponents returns the number of live T values; one for globals.
func NumComponents[T any](w *World) int {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	if !ok {
		return 0
	}
	return p.NumComponents()
}

// ClearPool drops every T from every entity immediately, flagging the
// removal for dependent systems.
func ClearPool[T any](w *World) {
	if p, ok := w.reg.Get(reflect.TypeFor[T]()); ok {
		p.Clear()
	}
}

// IsQueuedAdd reports whether the calling goroutine has an add of T
// queued that covers rng.
func IsQueuedAdd[T any](w *World, rng Range) bool {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	return ok && p.IsQueuedAdd(rng)
}

// IsQueuedRemove reports whether the calling goroutine has a remove of T
// queued that covers rng.
func IsQueuedRemove[T any](w *World, rng Range) bool {
	p, ok := w.reg.Get(reflect.TypeFor[T]())
	return ok && p.IsQueuedRemove(rng)
}

// Entity is convenience sugar binding an id to its world.
type Entity struct {
	w  *World
	id ID
}

// Entity returns the sugar wrapper for id.
func (w *World) Entity(id ID) Entity {
	return Entity{w: w, id: id}
}

// ID returns the wrapped entity id.
func (e Entity) ID() ID {
	return e.id
}

// Add buffers the given component values onto the entity. Values carry
// their component type; tags may be passed as zero structs.
func (e Entity) Add(vals ...any) {
	for _, v := range vals {
		p := e.w.reg.GetOrCreate(reflect.TypeOf(v))
		p.AddValue(One(e.id), reflect.ValueOf(v))
	}
}
