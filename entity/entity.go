// Package entity defines entity identifiers and the closed-interval range
// algebra the storage engine is built on. Entities are never materialised;
// an ID is just a key shared between component pools.
package entity

import "math"

// ID identifies an entity. Negative ids are valid.
type ID int32

const (
	// MinID is the smallest valid entity id.
	MinID ID = math.MinInt32
	// MaxID is the largest valid entity id.
	MaxID ID = math.MaxInt32
)

// Parent marks an entity as the child of another entity. It is stored as a
// regular component; systems that take a Parent parameter run in hierarchy
// mode, processing parents before their children.
type Parent struct {
	Entity ID
}

// ParentOf returns a Parent component referencing id.
func ParentOf(id ID) Parent {
	return Parent{Entity: id}
}

// ID returns the id of the parent entity.
func (p Parent) ID() ID {
	return p.Entity
}
