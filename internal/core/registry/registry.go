// Package registry keeps the heterogeneous set of component pools owned
// by a world. Pools are keyed by a stable 64-bit token hashed from the
// component type's identity, never by name lookup at the call sites.
package registry

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/ecs/internal/core/pool"
)

// Token identifies a component type.
type Token uint64

// TokenOf hashes a component type into its registry token.
func TokenOf(t reflect.Type) Token {
	name := t.String()
	if pkg := t.PkgPath(); pkg != "" {
		name = pkg + "." + t.Name()
	}
	return Token(xxhash.Sum64String(name))
}

// Registry owns one pool per component type. Creation is lazy; commit
// visits pools in creation order so results are reproducible.
type Registry struct {
	mu    sync.RWMutex
	pools map[Token]*pool.Pool
	order []*pool.Pool

	// seq orders buffered pool operations across the whole world, which
	// is what lets variant groups resolve last-add-wins deterministically.
	seq atomic.Uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{pools: make(map[Token]*pool.Pool)}
}

// Get returns the pool for t, if one exists.
func (r *Registry) Get(t reflect.Type) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[TokenOf(t)]
	return p, ok
}

// GetOrCreate returns the pool for t, creating it on first use.
func (r *Registry) GetOrCreate(t reflect.Type) *pool.Pool {
	tok := TokenOf(t)

	r.mu.RLock()
	p, ok := r.pools[tok]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.pools[tok]; ok {
		return p
	}
	p = pool.New(t, &r.seq)
	r.pools[tok] = p
	r.order = append(r.order, p)
	return p
}

// PoolFor returns the pool storing T, creating it on first use.
func PoolFor[T any](r *Registry) *pool.Pool {
	return r.GetOrCreate(reflect.TypeFor[T]())
}

// Each visits every pool in creation order.
func (r *Registry) Each(fn func(*pool.Pool)) {
	r.mu.RLock()
	pools := r.order
	r.mu.RUnlock()
	for _, p := range pools {
		fn(p)
	}
}

// Len returns the number of pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
