package pool

import (
	"reflect"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/contract"
)

// The typed accessors recover static types at the edge of the reflect
// based store. Each checks that the pool actually holds T.

func checkElem[T any](p *Pool) {
	contract.Pre(p.elem == reflect.TypeFor[T](), "component type does not match pool")
}

// Add buffers val for every entity in rng.
func Add[T any](p *Pool, rng entity.Range, val T) {
	checkElem[T](p)
	p.AddValue(rng, reflect.ValueOf(val))
}

// AddSpan buffers one value per entity, borrowed from span until commit.
func AddSpan[T any](p *Pool, rng entity.Range, span []T) {
	checkElem[T](p)
	p.AddSpan(rng, reflect.ValueOf(span))
}

// AddGenerator buffers gen, invoked once per id during commit.
func AddGenerator[T any](p *Pool, rng entity.Range, gen func(entity.ID) T) {
	checkElem[T](p)
	p.AddGenerator(rng, func(id entity.ID) reflect.Value {
		return reflect.ValueOf(gen(id))
	})
}

// Get returns a pointer to the entity's component, or nil when absent.
// Tags have no data; Get always returns nil for them.
func Get[T any](p *Pool, id entity.ID) *T {
	checkElem[T](p)
	v, ok := p.Find(id)
	if !ok || !v.IsValid() {
		return nil
	}
	return v.Addr().Interface().(*T)
}

// Slice returns the contiguous values covering rng, or nil when rng is
// not fully inside a single chunk. The slice aliases pool storage and is
// invalidated by the next commit.
func Slice[T any](p *Pool, rng entity.Range) []T {
	checkElem[T](p)
	v, ok := p.SliceFor(rng)
	if !ok {
		return nil
	}
	return v.Interface().([]T)
}

// SharedOf returns the single instance of a global component.
func SharedOf[T any](p *Pool) *T {
	checkElem[T](p)
	return p.Shared().Interface().(*T)
}
