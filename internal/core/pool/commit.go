package pool

import (
	"reflect"
	"sort"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/contract"
)

// addKind discriminates the three add queues once they are gathered.
type addKind uint8

const (
	addValue addKind = iota
	addSpan
	addGen
)

type addEntry struct {
	seq  uint64
	rng  entity.Range
	kind addKind
	val  reflect.Value
	span reflect.Value
	gen  func(entity.ID) reflect.Value
}

// ProcessChanges drains every per-goroutine queue into the chunk list:
// removes first, then adds. Buffered operations are ordered by their
// sequence stamp, so the result depends only on the multiset of calls,
// not on which goroutine issued them.
func (p *Pool) ProcessChanges() {
	if p.flags.Has(FlagGlobal) {
		p.drainQueues()
		return
	}

	if p.flags.Has(FlagTransient) && len(p.flat) > 0 {
		p.chunks.Clear()
		p.removed = true
	}

	removes := p.gatherRemoves()
	adds := p.gatherAdds()

	if !p.flags.Has(FlagTransient) {
		p.applyRemoves(removes)
	}
	p.rebuildSnapshot()
	p.applyAdds(adds, removes)
	p.mergeAdjacent()
	p.rebuildSnapshot()
}

func (p *Pool) drainQueues() {
	p.adds.ForEach(func(q *[]valueAdd) { *q = (*q)[:0] })
	p.spans.ForEach(func(q *[]spanAdd) { *q = (*q)[:0] })
	p.gens.ForEach(func(q *[]genAdd) { *q = (*q)[:0] })
	p.removes.ForEach(func(q *[]removeOp) { *q = (*q)[:0] })
}

func (p *Pool) gatherRemoves() []removeOp {
	var out []removeOp
	p.removes.ForEach(func(q *[]removeOp) {
		out = append(out, *q...)
		*q = (*q)[:0]
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].rng.First != out[j].rng.First {
			return out[i].rng.First < out[j].rng.First
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (p *Pool) gatherAdds() []addEntry {
	var out []addEntry
	p.adds.ForEach(func(q *[]valueAdd) {
		for _, a := range *q {
			out = append(out, addEntry{seq: a.seq, rng: a.rng, kind: addValue, val: a.val})
		}
		*q = (*q)[:0]
	})
	p.spans.ForEach(func(q *[]spanAdd) {
		for _, a := range *q {
			out = append(out, addEntry{seq: a.seq, rng: a.rng, kind: addSpan, span: a.span})
		}
		*q = (*q)[:0]
	})
	p.gens.ForEach(func(q *[]genAdd) {
		for _, a := range *q {
			out = append(out, addEntry{seq: a.seq, rng: a.rng, kind: addGen, gen: a.gen})
		}
		*q = (*q)[:0]
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].rng.First != out[j].rng.First {
			return out[i].rng.First < out[j].rng.First
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// applyRemoves walks chunks and the coalesced remove coverage in
// lock-step. A chunk fully covered is dropped; a chunk clipped at one end
// is truncated in place; an interior removal splits the chunk in two,
// both halves sharing the original backing array.
func (p *Pool) applyRemoves(removes []removeOp) {
	if len(removes) == 0 || len(p.flat) == 0 {
		return
	}

	coverage := make([]entity.Range, 0, len(removes))
	for _, r := range removes {
		coverage = mergeCoverage(coverage, r.rng)
	}

	touched := false
	for _, c := range p.flat {
		segments := entity.Difference([]entity.Range{c.rng}, coverage)
		if len(segments) == 1 && segments[0] == c.rng {
			continue
		}
		touched = true

		if len(segments) == 0 {
			p.chunks.Remove(c)
			continue
		}

		p.zeroGaps(c, segments)

		origin := c.rng
		data := c.data
		first := segments[0]
		c.rng = first
		if !p.flags.Has(FlagTag) {
			c.data = data.Slice(origin.Offset(first.First), origin.Offset(first.Last)+1)
		}
		for _, seg := range segments[1:] {
			split := &chunk{rng: seg, fill: c.fill}
			if !p.flags.Has(FlagTag) {
				split.data = data.Slice(origin.Offset(seg.First), origin.Offset(seg.Last)+1)
			}
			p.chunks.Insert(split)
		}
	}

	if touched {
		p.removed = true
	}
}

// zeroGaps clears the component values that fall between the surviving
// segments so they do not pin referenced memory.
func (p *Pool) zeroGaps(c *chunk, segments []entity.Range) {
	if p.flags.Has(FlagTag) {
		return
	}
	gone := entity.Difference([]entity.Range{c.rng}, segments)
	for _, g := range gone {
		for off := c.rng.Offset(g.First); off <= c.rng.Offset(g.Last); off++ {
			c.data.Index(off).SetZero()
		}
	}
}

// applyAdds materialises the buffered additions. Each addition is first
// clipped by every remove stamped after it, which is what gives variant
// groups their last-add-wins behaviour, then adjacent equal-valued
// additions are combined before chunks are built and linked in.
func (p *Pool) applyAdds(adds []addEntry, removes []removeOp) {
	if len(adds) == 0 {
		return
	}

	contract.PreAudit(func() bool { return !p.hasDuplicateAdds(adds) },
		"an entity in the range already has this component")

	type piece struct {
		rng   entity.Range
		entry *addEntry
	}
	var pieces []piece
	for i := range adds {
		e := &adds[i]
		segs := []entity.Range{e.rng}
		for _, r := range removes {
			if r.seq > e.seq {
				segs = entity.Difference(segs, []entity.Range{r.rng})
			}
		}
		for _, seg := range segs {
			pieces = append(pieces, piece{rng: seg, entry: e})
		}
	}
	if len(pieces) == 0 {
		return
	}
	sort.Slice(pieces, func(i, j int) bool { return pieces[i].rng.Less(pieces[j].rng) })

	// Combine adjacent additions that would produce identical values.
	combined := pieces[:1]
	for _, pc := range pieces[1:] {
		last := &combined[len(combined)-1]
		if last.rng.Adjacent(pc.rng) && p.combinable(last.entry, pc.entry) {
			last.rng = entity.Merge(last.rng, pc.rng)
			continue
		}
		combined = append(combined, pc)
	}

	for _, pc := range combined {
		p.chunks.Insert(p.materialise(pc.rng, pc.entry))
	}
	p.added = true
}

// combinable reports whether two add pieces would fill adjacent ranges
// with equal values. Tags combine on adjacency alone.
func (p *Pool) combinable(a, b *addEntry) bool {
	if p.flags.Has(FlagTag) {
		return true
	}
	if a.kind != addValue || b.kind != addValue {
		return false
	}
	return p.comparable && a.val.Interface() == b.val.Interface()
}

// materialise builds the chunk for one addition piece. seg is the clipped
// range; for span additions the source offset is taken relative to the
// originally requested range.
func (p *Pool) materialise(seg entity.Range, e *addEntry) *chunk {
	c := &chunk{rng: seg}
	if p.flags.Has(FlagTag) {
		return c
	}

	n := seg.Count()
	c.data = reflect.MakeSlice(reflect.SliceOf(p.elem), n, n)
	switch e.kind {
	case addValue:
		for i := 0; i < n; i++ {
			c.data.Index(i).Set(e.val)
		}
		c.fill = e.val
	case addSpan:
		from := e.rng.Offset(seg.First)
		reflect.Copy(c.data, e.span.Slice(from, from+n))
	case addGen:
		for i := 0; i < n; i++ {
			c.data.Index(i).Set(e.gen(seg.First + entity.ID(i)))
		}
	}
	return c
}

// mergeAdjacent collapses neighbouring chunks whose values are provably
// identical, keeping the chunk list maximally merged.
func (p *Pool) mergeAdjacent() {
	var all []*chunk
	p.chunks.Each(func(c *chunk) bool {
		all = append(all, c)
		return true
	})

	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j-1].rng.Adjacent(all[j].rng) && p.sameFill(all[j-1], all[j]) {
			j++
		}
		if j-i < 2 {
			i++
			continue
		}

		run := all[i:j]
		merged := &chunk{rng: entity.Range{First: run[0].rng.First, Last: run[j-i-1].rng.Last}}
		if !p.flags.Has(FlagTag) {
			n := merged.rng.Count()
			merged.data = reflect.MakeSlice(reflect.SliceOf(p.elem), n, n)
			off := 0
			for _, c := range run {
				reflect.Copy(merged.data.Slice(off, off+c.rng.Count()), c.data)
				off += c.rng.Count()
			}
			merged.fill = run[0].fill
		}
		for _, c := range run {
			p.chunks.Remove(c)
		}
		p.chunks.Insert(merged)
		i = j
	}
}

func (p *Pool) sameFill(a, b *chunk) bool {
	if p.flags.Has(FlagTag) {
		return true
	}
	if !p.comparable || !a.fill.IsValid() || !b.fill.IsValid() {
		return false
	}
	return a.fill.Interface() == b.fill.Interface()
}

// hasDuplicateAdds checks the audited precondition that no entity gains
// the same component twice: additions must not overlap each other or the
// chunks surviving the remove phase.
func (p *Pool) hasDuplicateAdds(adds []addEntry) bool {
	for i := 1; i < len(adds); i++ {
		if adds[i-1].rng.Overlaps(adds[i].rng) {
			return true
		}
	}
	for _, a := range adds {
		for _, c := range p.flat {
			if c.rng.Overlaps(a.rng) {
				return true
			}
		}
	}
	return false
}

func (p *Pool) rebuildSnapshot() {
	p.flat = p.flat[:0]
	p.cached = p.cached[:0]
	p.chunks.Each(func(c *chunk) bool {
		p.flat = append(p.flat, c)
		p.cached = append(p.cached, c.rng)
		return true
	})
	p.finds.Reset()
}

// mergeCoverage folds r into the sorted coverage list, merging overlaps
// and touching neighbours. Removes arrive sorted by first, so only the
// tail needs checking.
func mergeCoverage(cov []entity.Range, r entity.Range) []entity.Range {
	if n := len(cov); n > 0 && cov[n-1].Adjacent(r) {
		cov[n-1] = entity.Merge(cov[n-1], r)
		return cov
	}
	return append(cov, r)
}
