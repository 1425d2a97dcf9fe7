// Package blocks is the block and material registry consulted by chunks,
// the mesher and physics. Every lookup by block ID is a slice index.
package blocks

import (
	"errors"
	"fmt"
)

// ID is a voxel's block type. 0 is air.
type ID uint16

// MaterialID identifies a registered material. 0 means no material.
type MaterialID uint16

const Air ID = 0

var (
	ErrInvalidID       = errors.New("blocks: invalid block id")
	ErrBlockExists     = errors.New("blocks: block already registered")
	ErrMaterialExists  = errors.New("blocks: material already registered")
	ErrUnknownMaterial = errors.New("blocks: unknown material")
)

// Face directions, in the order the mesher emits them.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// Handlers are optional per-block lifecycle callbacks, called with global
// voxel coordinates. Any field may be nil.
type Handlers struct {
	OnLoad   func(x, y, z int)
	OnUnload func(x, y, z int)
	OnSet    func(x, y, z int)
	OnUnset  func(x, y, z int)
}

type Material struct {
	Name  string
	Color [4]float64
	// Texture, when set, takes precedence over Color.
	Texture      string
	TextureAlpha bool
	AtlasIndex   int
	// RenderMaterial names a custom render material. Faces sharing one are meshed together.
	RenderMaterial string
	Animated       bool
}

// HasAlpha reports whether the material is rendered translucent.
func (m Material) HasAlpha() bool {
	if m.Texture != "" {
		return m.TextureAlpha
	}
	return m.Color[3] < 1
}

type MaterialOptions struct {
	Color          [4]float64
	Texture        string
	TextureAlpha   bool
	AtlasIndex     int
	RenderMaterial string
	Animated       bool
}

type BlockOptions struct {
	Solid  bool
	Opaque bool
	Fluid  bool
	// FluidDensity and FluidDrag only apply to fluids.
	FluidDensity float64
	FluidDrag    float64
	// Materials holds 1 name for every face, 3 for top, bottom and sides,
	// or 6 ordered +x,-x,+y,-y,+z,-z.
	Materials []string
	// Object blocks get a custom mesh instead of terrain faces. They never
	// count as opaque, since terrain meshing reads them as air.
	Object   bool
	Handlers *Handlers
}

// DefaultBlockOptions returns a solid, opaque block with the given materials.
func DefaultBlockOptions(materials ...string) BlockOptions {
	return BlockOptions{Solid: true, Opaque: true, Materials: materials}
}

// FluidProperties of a fluid block.
type FluidProperties struct {
	Density float64
	Drag    float64
}

type Registry struct {
	registered []bool
	solid      []bool
	opaque     []bool
	fluid      []bool
	object     []bool
	fluidProps []FluidProperties
	faceMats   []MaterialID
	handlers   map[ID]*Handlers

	materials []Material
	matByName map[string]MaterialID
}

// NewRegistry returns a registry with air (ID 0) registered.
func NewRegistry() *Registry {
	r := &Registry{
		handlers:  make(map[ID]*Handlers),
		materials: []Material{{}},
		matByName: make(map[string]MaterialID),
	}
	r.grow(0)
	r.registered[0] = true
	return r
}

func (r *Registry) grow(id ID) {
	n := int(id) + 1
	if len(r.registered) >= n {
		return
	}
	size := max(n, 2*len(r.registered))
	r.registered = append(r.registered, make([]bool, size-len(r.registered))...)
	r.solid = append(r.solid, make([]bool, size-len(r.solid))...)
	r.opaque = append(r.opaque, make([]bool, size-len(r.opaque))...)
	r.fluid = append(r.fluid, make([]bool, size-len(r.fluid))...)
	r.object = append(r.object, make([]bool, size-len(r.object))...)
	r.fluidProps = append(r.fluidProps, make([]FluidProperties, size-len(r.fluidProps))...)
	r.faceMats = append(r.faceMats, make([]MaterialID, size*6-len(r.faceMats))...)
}

func (r *Registry) RegisterMaterial(name string, opts MaterialOptions) (MaterialID, error) {
	if _, ok := r.matByName[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrMaterialExists, name)
	}
	id := MaterialID(len(r.materials))
	r.materials = append(r.materials, Material{
		Name:           name,
		Color:          opts.Color,
		Texture:        opts.Texture,
		TextureAlpha:   opts.TextureAlpha,
		AtlasIndex:     opts.AtlasIndex,
		RenderMaterial: opts.RenderMaterial,
		Animated:       opts.Animated,
	})
	r.matByName[name] = id
	return id, nil
}

func (r *Registry) RegisterBlock(id ID, opts BlockOptions) error {
	if id == Air {
		return fmt.Errorf("%w: 0 is reserved for air", ErrInvalidID)
	}
	if int(id) < len(r.registered) && r.registered[id] {
		return fmt.Errorf("%w: %d", ErrBlockExists, id)
	}
	faces, err := r.resolveFaces(opts.Materials)
	if err != nil {
		return fmt.Errorf("block %d: %w", id, err)
	}

	r.grow(id)
	r.registered[id] = true
	r.fluid[id] = opts.Fluid
	r.solid[id] = opts.Solid && !opts.Fluid
	r.opaque[id] = opts.Opaque && !opts.Fluid && !opts.Object
	r.object[id] = opts.Object
	if opts.Fluid {
		r.fluidProps[id] = FluidProperties{Density: opts.FluidDensity, Drag: opts.FluidDrag}
	}
	copy(r.faceMats[int(id)*6:], faces[:])
	if opts.Handlers != nil {
		r.handlers[id] = opts.Handlers
	}
	return nil
}

func (r *Registry) resolveFaces(names []string) ([6]MaterialID, error) {
	var out [6]MaterialID
	ids := make([]MaterialID, len(names))
	for i, n := range names {
		mid, ok := r.matByName[n]
		if !ok {
			return out, fmt.Errorf("%w: %q", ErrUnknownMaterial, n)
		}
		ids[i] = mid
	}
	switch len(ids) {
	case 0:
	case 1:
		for i := range out {
			out[i] = ids[0]
		}
	case 3:
		// top, bottom, sides
		out = [6]MaterialID{ids[2], ids[2], ids[0], ids[1], ids[2], ids[2]}
	case 6:
		copy(out[:], ids)
	default:
		return out, fmt.Errorf("expected 1, 3 or 6 materials, got %d", len(ids))
	}
	return out, nil
}

func (r *Registry) lookup(tbl []bool, id ID) bool {
	if int(id) >= len(tbl) {
		return false
	}
	return tbl[id]
}

func (r *Registry) Registered(id ID) bool { return r.lookup(r.registered, id) }
func (r *Registry) Solid(id ID) bool      { return r.lookup(r.solid, id) }
func (r *Registry) Opaque(id ID) bool     { return r.lookup(r.opaque, id) }
func (r *Registry) Fluid(id ID) bool      { return r.lookup(r.fluid, id) }
func (r *Registry) IsObject(id ID) bool   { return r.lookup(r.object, id) }

// IsPlain reports a block with neither handlers nor a custom mesh.
func (r *Registry) IsPlain(id ID) bool {
	return !r.IsObject(id) && r.handlers[id] == nil
}

// IsTerrain reports a non-air block drawn by the terrain mesher.
func (r *Registry) IsTerrain(id ID) bool {
	return id != Air && !r.IsObject(id)
}

// Handlers returns the block's handlers, or nil.
func (r *Registry) Handlers(id ID) *Handlers { return r.handlers[id] }

func (r *Registry) FluidProperties(id ID) FluidProperties {
	if int(id) >= len(r.fluidProps) {
		return FluidProperties{}
	}
	return r.fluidProps[id]
}

func (r *Registry) FaceMaterial(id ID, dir int) MaterialID {
	ix := int(id)*6 + dir
	if ix >= len(r.faceMats) {
		return 0
	}
	return r.faceMats[ix]
}

func (r *Registry) Material(mid MaterialID) Material {
	if int(mid) >= len(r.materials) {
		return Material{}
	}
	return r.materials[mid]
}

func (r *Registry) MaterialByName(name string) (MaterialID, bool) {
	mid, ok := r.matByName[name]
	return mid, ok
}

// MaterialCount includes the unused slot 0.
func (r *Registry) MaterialCount() int { return len(r.materials) }
