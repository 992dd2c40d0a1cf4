// Package pool implements the per-type component store. A pool keeps its
// data as chunks, contiguous runs of entity ids backed by one array each,
// ordered in a power-list keyed by range. All public mutation is buffered
// in per-goroutine queues and applied at commit, which is the pool's only
// serialisation point.
package pool

import (
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/contract"
	"github.com/zeusync/ecs/pkg/collect"
	"github.com/zeusync/ecs/pkg/powerlist"
)

// chunk is a contiguous run of entities and their component values.
// data holds exactly rng.Count() elements; it is invalid for tag pools.
// fill is set while every element is known to hold the same value, which
// is what permits adjacent-chunk collapsing.
type chunk struct {
	rng  entity.Range
	data reflect.Value
	fill reflect.Value
}

type valueAdd struct {
	seq uint64
	rng entity.Range
	val reflect.Value
}

type spanAdd struct {
	seq  uint64
	rng  entity.Range
	span reflect.Value // borrowed until commit
}

type genAdd struct {
	seq uint64
	rng entity.Range
	gen func(entity.ID) reflect.Value
}

type removeOp struct {
	seq uint64
	rng entity.Range
}

type findCache struct {
	idx int
}

// Pool stores every component of one type. Values are held behind
// reflect so that pools can be created from a type token alone; the
// typed accessors in this package recover the static types at the edges.
type Pool struct {
	elem       reflect.Type
	flags      Flags
	comparable bool
	seq        *atomic.Uint64 // shared across the owning registry

	chunks *powerlist.List[*chunk]
	flat   []*chunk       // snapshot in range order, rebuilt at commit
	cached []entity.Range // per-chunk active ranges

	adds    *collect.Collect[[]valueAdd]
	spans   *collect.Collect[[]spanAdd]
	gens    *collect.Collect[[]genAdd]
	removes *collect.Collect[[]removeOp]

	added    bool
	removed  bool
	modified bool

	variants []*Pool

	shared reflect.Value // *elem, globals only

	finds *collect.Collect[findCache]
}

// New creates an empty pool for the component type elem. The sequence
// counter orders buffered operations across the pools of one world.
func New(elem reflect.Type, seq *atomic.Uint64) *Pool {
	p := &Pool{
		elem:       elem,
		flags:      FlagsOf(elem),
		comparable: elem.Comparable(),
		seq:        seq,
		chunks: powerlist.New[*chunk](func(a, b *chunk) bool {
			return a.rng.Less(b.rng)
		}),
		adds:    collect.New[[]valueAdd](),
		spans:   collect.New[[]spanAdd](),
		gens:    collect.New[[]genAdd](),
		removes: collect.New[[]removeOp](),
		finds:   collect.New[findCache](),
	}
	if p.flags.Has(FlagGlobal) {
		p.shared = reflect.New(elem)
	}
	return p
}

// Elem returns the component type stored by the pool.
func (p *Pool) Elem() reflect.Type {
	return p.elem
}

// Flags returns the component flags of the stored type.
func (p *Pool) Flags() Flags {
	return p.flags
}

// AddVariant registers other as a variant sibling: every add on p will
// enqueue a remove of the same range on other.
func (p *Pool) AddVariant(other *Pool) {
	contract.Pre(other != p, "a pool can not be its own variant")
	p.variants = append(p.variants, other)
}

// AddValue buffers a component value for every entity in rng.
// Pre: no entity in rng holds this component; audited at commit.
func (p *Pool) AddValue(rng entity.Range, val reflect.Value) {
	contract.Pre(!p.flags.Has(FlagGlobal), "global components are not bound to entities")
	seq := p.seq.Add(1)
	if !p.flags.Has(FlagTag) {
		contract.Pre(val.Type() == p.elem, "component value type mismatch")
	}
	q := p.adds.Local()
	*q = append(*q, valueAdd{seq: seq, rng: rng, val: val})
	p.notifyVariants(rng, seq)
}

// AddSpan buffers one component per entity, borrowed from span until
// commit. Pre: span holds exactly rng.Count() values.
func (p *Pool) AddSpan(rng entity.Range, span reflect.Value) {
	contract.Pre(!p.flags.Has(FlagGlobal), "global components are not bound to entities")
	contract.Pre(!p.flags.Has(FlagTag), "tag components carry no data")
	contract.Pre(span.Len() == rng.Count(), "span length must match range count")
	seq := p.seq.Add(1)
	q := p.spans.Local()
	*q = append(*q, spanAdd{seq: seq, rng: rng, span: span})
	p.notifyVariants(rng, seq)
}

// AddGenerator buffers a generator invoked once per id at commit.
func (p *Pool) AddGenerator(rng entity.Range, gen func(entity.ID) reflect.Value) {
	contract.Pre(!p.flags.Has(FlagGlobal), "global components are not bound to entities")
	contract.Pre(!p.flags.Has(FlagTag), "tag components carry no data")
	seq := p.seq.Add(1)
	q := p.gens.Local()
	*q = append(*q, genAdd{seq: seq, rng: rng, gen: gen})
	p.notifyVariants(rng, seq)
}

// Remove buffers the removal of the component from every entity in rng.
func (p *Pool) Remove(rng entity.Range) {
	contract.Pre(!p.flags.Has(FlagGlobal), "global components are not bound to entities")
	p.enqueueRemove(rng, p.seq.Add(1))
}

func (p *Pool) enqueueRemove(rng entity.Range, seq uint64) {
	q := p.removes.Local()
	*q = append(*q, removeOp{seq: seq, rng: rng})
}

func (p *Pool) notifyVariants(rng entity.Range, seq uint64) {
	for _, v := range p.variants {
		v.enqueueRemove(rng, seq)
	}
}

// IsQueuedAdd reports whether the calling goroutine has an add queued
// that covers rng.
func (p *Pool) IsQueuedAdd(rng entity.Range) bool {
	for _, a := range *p.adds.Local() {
		if a.rng.ContainsRange(rng) {
			return true
		}
	}
	for _, a := range *p.spans.Local() {
		if a.rng.ContainsRange(rng) {
			return true
		}
	}
	for _, a := range *p.gens.Local() {
		if a.rng.ContainsRange(rng) {
			return true
		}
	}
	return false
}

// IsQueuedRemove reports whether the calling goroutine has a remove
// queued that covers rng.
func (p *Pool) IsQueuedRemove(rng entity.Range) bool {
	for _, r := range *p.removes.Local() {
		if r.rng.ContainsRange(rng) {
			return true
		}
	}
	return false
}

// Shared returns the single instance of a global component.
func (p *Pool) Shared() reflect.Value {
	contract.Pre(p.flags.Has(FlagGlobal), "Shared is only defined for global components")
	return p.shared
}

// Find returns an addressable value for the entity's component, or an
// invalid value when absent. For tags the returned value is invalid and
// only the bool is meaningful. A per-goroutine chunk cache makes repeat
// lookups in the same region cheap; misses probe the next chunk before
// falling back to the power-list search.
func (p *Pool) Find(id entity.ID) (reflect.Value, bool) {
	if p.flags.Has(FlagGlobal) {
		return p.shared.Elem(), true
	}

	c, off := p.findChunk(id)
	if c == nil {
		return reflect.Value{}, false
	}
	if p.flags.Has(FlagTag) {
		return reflect.Value{}, true
	}
	return c.data.Index(off), true
}

func (p *Pool) findChunk(id entity.ID) (*chunk, int) {
	cache := p.finds.Local()
	if cache.idx < len(p.flat) {
		if c := p.flat[cache.idx]; c.rng.Contains(id) {
			return c, c.rng.Offset(id)
		}
		// linear walks are cheap; try the successor before searching
		if next := cache.idx + 1; next < len(p.flat) {
			if c := p.flat[next]; c.rng.Contains(id) {
				cache.idx = next
				return c, c.rng.Offset(id)
			}
		}
	}

	idx, c := p.searchChunk(id)
	if c == nil {
		return nil, 0
	}
	cache.idx = idx
	return c, c.rng.Offset(id)
}

// searchChunk locates the chunk containing id through the power-list
// jump structure, then maps it back to its snapshot index.
func (p *Pool) searchChunk(id entity.ID) (int, *chunk) {
	if p.chunks.Empty() {
		return 0, nil
	}
	probe := &chunk{rng: entity.One(id)}
	it := p.chunks.LowerBound(probe)

	var c *chunk
	if it.Valid() && it.Value().rng.Contains(id) {
		c = it.Value()
	} else if prev, ok := it.Prev(); ok && prev.rng.Contains(id) {
		c = prev
	} else if !it.Valid() {
		// id is beyond every chunk start; the last chunk may still hold it
		if last := p.chunks.Back(); last.rng.Contains(id) {
			c = last
		}
	}
	if c == nil {
		return 0, nil
	}

	idx := sort.Search(len(p.flat), func(i int) bool {
		return !p.flat[i].rng.Less(c.rng)
	})
	if idx < len(p.flat) && p.flat[idx] == c {
		return idx, c
	}
	return 0, c
}

// HasID reports whether the entity holds this component.
func (p *Pool) HasID(id entity.ID) bool {
	if p.flags.Has(FlagGlobal) {
		return true
	}
	c, _ := p.findChunk(id)
	return c != nil
}

// HasRange reports whether every entity in rng holds this component. It
// walks forward, subtracting each matched chunk, until the range is
// covered or a gap appears.
func (p *Pool) HasRange(rng entity.Range) bool {
	if p.flags.Has(FlagGlobal) {
		return true
	}

	rest := rng
	for {
		c, _ := p.findChunk(rest.First)
		if c == nil {
			return false
		}
		if c.rng.Last >= rest.Last {
			return true
		}
		rest = entity.Range{First: c.rng.Last + 1, Last: rest.Last}
	}
}

// NumEntities returns the number of entities with this component.
func (p *Pool) NumEntities() int {
	n := 0
	for _, c := range p.flat {
		n += c.rng.Count()
	}
	return n
}

// NumComponents returns the number of live component values.
func (p *Pool) NumComponents() int {
	if p.flags.Has(FlagGlobal) {
		return 1
	}
	return p.NumEntities()
}

// Ranges returns the active entity ranges, one per chunk, sorted and
// non-overlapping. Globals cover every entity. The slice is shared; do
// not mutate.
func (p *Pool) Ranges() []entity.Range {
	if p.flags.Has(FlagGlobal) {
		return []entity.Range{entity.All()}
	}
	return p.cached
}

// SliceFor returns the backing array segment covering rng, which must lie
// within a single chunk. The second result is false when it does not.
func (p *Pool) SliceFor(rng entity.Range) (reflect.Value, bool) {
	contract.Pre(!p.flags.Has(FlagTag), "tag components carry no data")
	c, off := p.findChunk(rng.First)
	if c == nil || !c.rng.ContainsRange(rng) {
		return reflect.Value{}, false
	}
	return c.data.Slice(off, off+rng.Count()), true
}

// Added reports whether components were added since the last ClearFlags.
func (p *Pool) Added() bool { return p.added }

// Removed reports whether components were removed since the last ClearFlags.
func (p *Pool) Removed() bool { return p.removed }

// Modified reports whether NotifyModified was called since the last ClearFlags.
func (p *Pool) Modified() bool { return p.modified }

// Changed reports whether the pool's contents differ from the last ClearFlags.
func (p *Pool) Changed() bool { return p.added || p.removed || p.modified }

// NotifyModified flags in-place mutation of component data, forcing
// dependent systems to rebuild their caches on the next run.
func (p *Pool) NotifyModified() { p.modified = true }

// ClearFlags resets the sticky change flags. Called by the world at the
// end of a commit, after systems have observed them.
func (p *Pool) ClearFlags() {
	p.added = false
	p.removed = false
	p.modified = false
}

// Clear drops every chunk and all buffered operations.
func (p *Pool) Clear() {
	hadData := len(p.flat) > 0
	p.chunks.Clear()
	p.flat = nil
	p.cached = nil
	p.adds.Reset()
	p.spans.Reset()
	p.gens.Reset()
	p.removes.Reset()
	p.finds.Reset()
	p.ClearFlags()
	p.removed = hadData
}
