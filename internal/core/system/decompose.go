// Package system turns user functions into schedulable system instances.
// A function's parameter list is decomposed by reflection into its
// component read/write sets; the instance flavour (ranged, hierarchy,
// sorted, global) is picked from the decomposed shape and the options.
package system

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zeusync/ecs/entity"
	"github.com/zeusync/ecs/internal/core/pool"
	"github.com/zeusync/ecs/internal/core/registry"
)

// Not is a filter parameter: the system only visits entities that do not
// carry T. Its value is always the zero Not.
type Not[T any] struct {
	_ [0]T
}

var (
	idType     = reflect.TypeFor[entity.ID]()
	parentType = reflect.TypeFor[entity.Parent]()
	notPkgPath = reflect.TypeFor[Not[struct{}]]().PkgPath()
)

// notInner returns the filtered component type when t is a Not
// instantiation.
func notInner(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || t.PkgPath() != notPkgPath || !strings.HasPrefix(t.Name(), "Not[") {
		return nil, false
	}
	if t.NumField() != 1 {
		return nil, false
	}
	f := t.Field(0).Type
	if f.Kind() != reflect.Array || f.Len() != 0 {
		return nil, false
	}
	return f.Elem(), true
}

// ParamKind classifies one system parameter.
type ParamKind uint8

const (
	// ParamRead is a component taken by value.
	ParamRead ParamKind = iota
	// ParamWrite is a component taken by pointer.
	ParamWrite
	// ParamFilter is a Not[T] parameter; the entity must lack T.
	ParamFilter
	// ParamParent is the entity.Parent component; it switches the system
	// into hierarchy mode.
	ParamParent
)

// Param is one decomposed component parameter.
type Param struct {
	Kind      ParamKind
	Comp      reflect.Type // component type, stripped
	Declared  reflect.Type // the parameter type as written
	Pool      *pool.Pool
	IsGlobal  bool
	IsTag     bool
}

// Signature is the decomposed form of a user system function.
type Signature struct {
	Fn     reflect.Value
	HasID  bool
	Params []Param
}

// Decompose validates fn and splits its parameter list into component
// parameters. Pools for every referenced type are created on demand so a
// system may name components nothing has touched yet.
func Decompose(fn any, reg *registry.Registry) (*Signature, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("system: expected a function, got %T", fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("system: variadic functions are not supported")
	}
	if ft.NumOut() != 0 {
		return nil, fmt.Errorf("system: system functions must not return values")
	}

	sig := &Signature{Fn: fv}
	seen := make(map[reflect.Type]bool)

	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)

		if pt == idType {
			if i != 0 {
				return nil, fmt.Errorf("system: the entity id must be the first parameter")
			}
			sig.HasID = true
			continue
		}

		p, err := classify(pt)
		if err != nil {
			return nil, err
		}
		if seen[p.Comp] {
			return nil, fmt.Errorf("system: component %s named more than once", p.Comp)
		}
		seen[p.Comp] = true

		p.Pool = reg.GetOrCreate(p.Comp)
		sig.Params = append(sig.Params, p)
	}

	if len(sig.Params) == 0 {
		return nil, fmt.Errorf("system: a system needs at least one component parameter")
	}
	return sig, nil
}

func classify(pt reflect.Type) (Param, error) {
	if inner, ok := notInner(pt); ok {
		if f := pool.FlagsOf(inner); f.Has(pool.FlagGlobal) {
			return Param{}, fmt.Errorf("system: can not filter on global component %s", inner)
		}
		return Param{Kind: ParamFilter, Comp: inner, Declared: pt}, nil
	}

	comp := pt
	kind := ParamRead
	if pt.Kind() == reflect.Pointer {
		comp = pt.Elem()
		kind = ParamWrite
	}
	if comp.Kind() == reflect.Pointer {
		return Param{}, fmt.Errorf("system: parameter %s is a pointer to a pointer", pt)
	}

	if comp == parentType {
		if kind == ParamWrite {
			return Param{}, fmt.Errorf("system: the parent reference can not be written")
		}
		return Param{Kind: ParamParent, Comp: comp, Declared: pt}, nil
	}

	flags := pool.FlagsOf(comp)
	p := Param{
		Kind:     kind,
		Comp:     comp,
		Declared: pt,
		IsGlobal: flags.Has(pool.FlagGlobal),
		IsTag:    flags.Has(pool.FlagTag),
	}
	if p.IsTag && kind == ParamWrite {
		return Param{}, fmt.Errorf("system: tag component %s carries no data to write", comp)
	}
	if flags.Has(pool.FlagImmutable) && kind == ParamWrite {
		return Param{}, fmt.Errorf("system: component %s is immutable", comp)
	}
	return p, nil
}

// Reads returns the component types the signature only observes.
func (s *Signature) Reads() []reflect.Type {
	var out []reflect.Type
	for _, p := range s.Params {
		if p.Kind != ParamWrite {
			out = append(out, p.Comp)
		}
	}
	return out
}

// Writes returns the component types the signature mutates.
func (s *Signature) Writes() []reflect.Type {
	var out []reflect.Type
	for _, p := range s.Params {
		if p.Kind == ParamWrite {
			out = append(out, p.Comp)
		}
	}
	return out
}

// hasParent reports whether the signature pulls the parent reference.
func (s *Signature) hasParent() bool {
	for _, p := range s.Params {
		if p.Kind == ParamParent {
			return true
		}
	}
	return false
}

// allGlobal reports whether every component parameter is global.
func (s *Signature) allGlobal() bool {
	for _, p := range s.Params {
		if !p.IsGlobal {
			return false
		}
	}
	return true
}
