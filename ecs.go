package voxworld

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

type EntityId uint64
type componentId uint32
type row int
type set[T comparable] = map[T]struct{}

// archetypeKey is the sorted list of component ids an archetype stores.
type archetypeKey []componentId

func (k archetypeKey) String() string {
	var sb strings.Builder
	for i, id := range k {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}

// Ecs is a small archetype store: entities sharing a component set live in
// the same archetype, one typed slice per component, packed densely.
type Ecs struct {
	archetypes  []*archetype
	byKey       map[string]*archetype
	entityIndex map[EntityId]*archetype

	idGeneratorLock sync.Mutex
	entityIdCounter EntityId

	componentIdCounterLock sync.Mutex
	componentIdCounter     componentId
	componentTypeIdMap     map[reflect.Type]componentId
	componentIdTypeMap     map[componentId]reflect.Type
}

func MakeEcs() Ecs {
	return Ecs{
		byKey:              make(map[string]*archetype),
		entityIndex:        make(map[EntityId]*archetype),
		componentTypeIdMap: make(map[reflect.Type]componentId),
		componentIdTypeMap: make(map[componentId]reflect.Type),
	}
}

type archetype struct {
	key           archetypeKey
	entities      []EntityId // row -> entity
	rows          map[EntityId]row
	componentData map[componentId]any // typed slices via reflection
}

func (arch *archetype) len() int { return len(arch.entities) }

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entityIndex[entityId]
	return ok
}

func (ecs *Ecs) locate(entityId EntityId) (*archetype, row, bool) {
	arch, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil, 0, false
	}
	return arch, arch.rows[entityId], true
}

// EntityCount is the number of live entities.
func (ecs *Ecs) EntityCount() int { return len(ecs.entityIndex) }

func (ecs *Ecs) addEntity(components ...any) EntityId {
	return ecs.insertEntity(ecs.nextEntityId(), components...)
}

func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	arch := ecs.getOrMakeArchetype(ecs.getArchetypeKey(components...))

	r := ecs.appendRow(arch, entityId)
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}
	ecs.entityIndex[entityId] = arch
	return entityId
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	arch, r, ok := ecs.locate(entityId)
	if !ok {
		return
	}
	ecs.removeRow(arch, r)
	delete(ecs.entityIndex, entityId)
}

func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	src, srcRow, ok := ecs.locate(entityId)
	if !ok {
		return
	}
	dst := ecs.getOrMakeArchetype(combineArchetypeKeys(src.key, ecs.getArchetypeKey(components...)))
	if dst != src {
		srcRow = ecs.moveEntity(entityId, src, srcRow, dst)
	}
	for _, component := range components {
		ecs.writeComponent(dst, srcRow, component)
	}
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	src, srcRow, ok := ecs.locate(entityId)
	if !ok {
		return
	}

	removeSet := make(set[componentId])
	for _, c := range components {
		removeSet[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	var dstKey archetypeKey
	for _, compId := range src.key {
		if _, shouldRemove := removeSet[compId]; !shouldRemove {
			dstKey = append(dstKey, compId)
		}
	}
	if len(dstKey) == len(src.key) {
		return
	}
	ecs.moveEntity(entityId, src, srcRow, ecs.getOrMakeArchetype(dstKey))
}

// moveEntity copies the components both archetypes share into a new row
// of dst and frees the old row.
func (ecs *Ecs) moveEntity(entityId EntityId, src *archetype, srcRow row, dst *archetype) row {
	dstRow := ecs.appendRow(dst, entityId)
	for _, compId := range src.key {
		if dstData, ok := dst.componentData[compId]; ok {
			reflectSliceSet(dstData, int(dstRow), reflectSliceGet(src.componentData[compId], int(srcRow)))
		}
	}
	ecs.removeRow(src, srcRow)
	ecs.entityIndex[entityId] = dst
	return dstRow
}

func (ecs *Ecs) appendRow(arch *archetype, entityId EntityId) row {
	r := row(arch.len())
	for _, compId := range arch.key {
		arch.componentData[compId] = reflectSliceAppend(
			arch.componentData[compId],
			reflect.Zero(ecs.componentIdTypeMap[compId]),
		)
	}
	arch.entities = append(arch.entities, entityId)
	arch.rows[entityId] = r
	return r
}

// removeRow swaps the last row into r and shrinks the archetype.
func (ecs *Ecs) removeRow(arch *archetype, r row) {
	last := row(arch.len() - 1)
	gone := arch.entities[r]
	for _, compId := range arch.key {
		data := arch.componentData[compId]
		if r != last {
			reflectSliceSet(data, int(r), reflectSliceGet(data, int(last)))
		}
		arch.componentData[compId] = reflectSliceTruncate(data, int(last))
	}
	if r != last {
		moved := arch.entities[last]
		arch.entities[r] = moved
		arch.rows[moved] = r
	}
	arch.entities = arch.entities[:last]
	delete(arch.rows, gone)
}

func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Errorf("expected Component to be a struct or a pointer to a struct, got %v", reflect.TypeOf(component)))
	}
	return t
}

func (ecs *Ecs) writeComponent(dst *archetype, dstRow row, component any) {
	v := reflect.ValueOf(component)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	compId := ecs.getComponentId(componentType(component))
	reflectSliceSet(dst.componentData[compId], int(dstRow), v)
}

func (ecs *Ecs) getOrMakeArchetype(key archetypeKey) *archetype {
	if arch, ok := ecs.byKey[key.String()]; ok {
		return arch
	}

	arch := &archetype{
		key:           key,
		rows:          make(map[EntityId]row),
		componentData: make(map[componentId]any, len(key)),
	}
	for _, compId := range key {
		arch.componentData[compId] = reflectSliceMake(ecs.componentIdTypeMap[compId])
	}
	ecs.byKey[key.String()] = arch
	ecs.archetypes = append(ecs.archetypes, arch)
	return arch
}

func (ecs *Ecs) getArchetypeKey(components ...any) archetypeKey {
	res := make(archetypeKey, 0, len(components))
	for _, component := range components {
		res = append(res, ecs.getComponentId(componentType(component)))
	}
	return dedupAndSortArchetypeKey(res)
}

func combineArchetypeKeys(a, b archetypeKey) archetypeKey {
	return dedupAndSortArchetypeKey(append(slices.Clone(a), b...))
}

func dedupAndSortArchetypeKey(key archetypeKey) archetypeKey {
	slices.Sort(key)
	return slices.Compact(key)
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idGeneratorLock.Lock()
	defer ecs.idGeneratorLock.Unlock()

	id := ecs.entityIdCounter
	ecs.entityIdCounter++
	return id
}

func (ecs *Ecs) getComponentId(componentType reflect.Type) componentId {
	ecs.componentIdCounterLock.Lock()
	defer ecs.componentIdCounterLock.Unlock()

	if id, ok := ecs.componentTypeIdMap[componentType]; ok {
		return id
	}
	id := ecs.componentIdCounter
	ecs.componentIdCounter++
	ecs.componentTypeIdMap[componentType] = id
	ecs.componentIdTypeMap[id] = componentType
	return id
}
