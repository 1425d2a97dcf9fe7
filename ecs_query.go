package voxworld

import (
	"reflect"
)

// Queries visit every entity carrying the requested components. A
// component listed in optionals may be missing, in which case its pointer
// is nil. Returning false from the callback stops the query.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }

// column returns the typed component slice of arch, or reports whether a
// missing column is allowed.
func column[T any](arch *archetype, id componentId, opt set[componentId]) (comps []T, present, ok bool) {
	if data, found := arch.componentData[id]; found {
		return data.([]T), true, true
	}
	_, optional := opt[id]
	return nil, false, optional
}

func at[T any](comps []T, present bool, r int) *T {
	if !present {
		return nil
	}
	return &comps[r]
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, has1, _ := column[A](arch, id1, opt)
		if !has1 {
			continue
		}
		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, has1, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, has1, ok1 := column[A](arch, id1, opt)
		comps2, has2, ok2 := column[B](arch, id2, opt)
		if !ok1 || !ok2 || (!has1 && !has2) {
			continue
		}
		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, has1, r), at(comps2, has2, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	id3 := identifyComponent[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, has1, ok1 := column[A](arch, id1, opt)
		comps2, has2, ok2 := column[B](arch, id2, opt)
		comps3, has3, ok3 := column[C](arch, id3, opt)
		if !ok1 || !ok2 || !ok3 || (!has1 && !has2 && !has3) {
			continue
		}
		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, has1, r), at(comps2, has2, r), at(comps3, has3, r)) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func identifyComponent[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeOf((*A)(nil)).Elem())
}
