package mesh

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

type MeshHandle uint64

// Renderer receives built meshes. owner is the chunk the mesh belongs to.
type Renderer interface {
	AddMesh(static bool, origin mgl64.Vec3, owner any, data *MeshData) MeshHandle
	RemoveMesh(h MeshHandle)
}

// NopRenderer hands out handles and discards geometry.
type NopRenderer struct {
	next atomic.Uint64
}

func (r *NopRenderer) AddMesh(static bool, origin mgl64.Vec3, owner any, data *MeshData) MeshHandle {
	return MeshHandle(r.next.Add(1))
}

func (r *NopRenderer) RemoveMesh(h MeshHandle) {}
