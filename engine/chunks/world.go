// Package chunks stores voxel chunks and streams them in and out around a
// moving player under per-tick time budgets.
package chunks

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/locq"
	"github.com/gekko3d/voxworld/engine/logging"
	"github.com/gekko3d/voxworld/engine/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrManualLoadingDisabled = errors.New("chunks: manual chunk loading is disabled")
	ErrInvalidDistance       = errors.New("chunks: invalid add/remove distance")
)

type Options struct {
	ChunkSize int
	// AddDistance and RemoveDistance are {horizontal, vertical} radii in
	// chunks. RemoveDistance is raised to at least AddDistance+1.
	AddDistance    [2]float64
	RemoveDistance [2]float64

	MaxProcessingPerTick     time.Duration
	MaxProcessingPerRender   time.Duration
	MaxChunksPendingCreation int
	MaxChunksPendingMeshing  int
	MinNeighborsToMesh       int

	// ManualChunkLoading turns off distance-driven streaming. Chunks are
	// then loaded with ManuallyLoadChunk.
	ManualChunkLoading bool
	WorldName          string

	Registry *blocks.Registry
	// Generator supplies voxel data asynchronously. When nil, requests are
	// announced through Events.DataNeeded, and without that handler new
	// chunks are created empty.
	Generator    Generator
	Renderer     mesh.Renderer
	ObjectMesher ObjectMesher
	Mesher       mesh.Options

	Events  Events
	Metrics *Metrics
	Logger  logging.Logger

	// SearchDistance orders chunk offsets for loading. Defaults to the
	// squared euclidean distance.
	SearchDistance func(di, dj, dk int) float64
	Now            func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:                24,
		AddDistance:              [2]float64{2, 2},
		RemoveDistance:           [2]float64{3, 3},
		MaxProcessingPerTick:     5 * time.Millisecond,
		MaxProcessingPerRender:   3 * time.Millisecond,
		MaxChunksPendingCreation: 50,
		MaxChunksPendingMeshing:  50,
		MinNeighborsToMesh:       6,
		WorldName:                "default",
		Mesher:                   mesh.DefaultOptions(),
	}
}

// QueueStats is a snapshot of the work queue lengths.
type QueueStats struct {
	Known       int
	ToRequest   int
	Pending     int
	ToMesh      int
	ToMeshFirst int
	ToRemove    int
	Invalidated int
}

// World owns the loaded chunks and schedules their loading, meshing and
// removal. It is not safe for concurrent use; Tick, Render and the voxel
// accessors must be called from one goroutine.
type World struct {
	opts     Options
	reg      *blocks.Registry
	objects  ObjectMesher
	renderer mesh.Renderer
	mesher   *mesh.Mesher
	builder  *mesh.Builder
	logger   logging.Logger
	metrics  *Metrics
	now      func() time.Time

	chunks map[int]*Chunk

	known       *locq.LocationQueue
	toRequest   *locq.LocationQueue
	pending     *locq.LocationQueue
	toMesh      *locq.LocationQueue
	toMeshFirst *locq.LocationQueue
	toRemove    *locq.LocationQueue
	invalidated *locq.LocationQueue

	inFlight map[int]inflight
	results  chan genResult
	gen      uint64

	worldName     string
	nextWorldName string

	// search state
	searchArr    []locq.Loc
	searchFrom   int
	removeFrom   int
	meshFrom     int
	playerChunk  locq.Loc
	playerSeen   bool
	playerLoaded bool
}

// NewWorld validates opts and creates an empty world.
func NewWorld(opts Options) (*World, error) {
	def := DefaultOptions()
	if opts.Registry == nil {
		return nil, errors.New("chunks: registry is required")
	}
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunks: chunk size %d must be positive", opts.ChunkSize)
	}
	if opts.MaxProcessingPerTick < 0 || opts.MaxProcessingPerRender < 0 {
		return nil, errors.New("chunks: processing budgets must not be negative")
	}
	if opts.MaxChunksPendingCreation <= 0 {
		opts.MaxChunksPendingCreation = def.MaxChunksPendingCreation
	}
	if opts.MaxChunksPendingMeshing <= 0 {
		opts.MaxChunksPendingMeshing = def.MaxChunksPendingMeshing
	}
	if opts.MinNeighborsToMesh < 0 || opts.MinNeighborsToMesh > 26 {
		return nil, fmt.Errorf("chunks: min neighbors to mesh %d out of range", opts.MinNeighborsToMesh)
	}
	if opts.WorldName == "" {
		opts.WorldName = def.WorldName
	}
	if opts.SearchDistance == nil {
		opts.SearchDistance = squaredDistance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Renderer == nil {
		opts.Renderer = &mesh.NopRenderer{}
	}
	if opts.ObjectMesher == nil {
		opts.ObjectMesher = nopObjectMesher{}
	}

	w := &World{
		opts:          opts,
		reg:           opts.Registry,
		objects:       opts.ObjectMesher,
		renderer:      opts.Renderer,
		mesher:        mesh.NewMesher(opts.Registry, opts.Mesher),
		builder:       mesh.NewBuilder(opts.Registry, opts.Mesher),
		logger:        logging.OrNop(opts.Logger),
		metrics:       opts.Metrics,
		now:           opts.Now,
		chunks:        make(map[int]*Chunk),
		known:         locq.NewLocationQueue(),
		toRequest:     locq.NewLocationQueue(),
		pending:       locq.NewLocationQueue(),
		toMesh:        locq.NewLocationQueue(),
		toMeshFirst:   locq.NewLocationQueue(),
		toRemove:      locq.NewLocationQueue(),
		invalidated:   locq.NewLocationQueue(),
		inFlight:      make(map[int]inflight),
		results:       make(chan genResult, opts.MaxChunksPendingCreation),
		worldName:     opts.WorldName,
		nextWorldName: opts.WorldName,
	}
	if err := w.SetAddRemoveDistance(opts.AddDistance, opts.RemoveDistance); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) Options() Options             { return w.opts }
func (w *World) Registry() *blocks.Registry   { return w.reg }
func (w *World) ChunkSize() int               { return w.opts.ChunkSize }
func (w *World) WorldName() string            { return w.worldName }
func (w *World) ChunkCount() int              { return len(w.chunks) }
func (w *World) PlayerChunkLoaded() bool      { return w.playerLoaded }
func (w *World) ManualChunkLoading() bool     { return w.opts.ManualChunkLoading }
func (w *World) SetEvents(ev Events)          { w.opts.Events = ev }
func (w *World) Events() Events               { return w.opts.Events }
func (w *World) AddDistance() [2]float64      { return w.opts.AddDistance }
func (w *World) RemoveDistance() [2]float64   { return w.opts.RemoveDistance }
func (w *World) SetManualChunkLoading(b bool) { w.opts.ManualChunkLoading = b }

// SetWorldName switches the active world. Every known chunk is invalidated
// on the next Tick.
func (w *World) SetWorldName(name string) { w.nextWorldName = name }

func (w *World) QueueCounts() QueueStats {
	return QueueStats{
		Known:       w.known.Count(),
		ToRequest:   w.toRequest.Count(),
		Pending:     w.pending.Count(),
		ToMesh:      w.toMesh.Count(),
		ToMeshFirst: w.toMeshFirst.Count(),
		ToRemove:    w.toRemove.Count(),
		Invalidated: w.invalidated.Count(),
	}
}

func (w *World) chunkAt(i, j, k int) *Chunk {
	c := w.chunks[locq.Hash(i, j, k)]
	if c == nil || c.I != i || c.J != j || c.K != k {
		return nil
	}
	return c
}

// GetChunkByIndexes returns the stored chunk at a chunk index, or nil.
func (w *World) GetChunkByIndexes(i, j, k int) *Chunk { return w.chunkAt(i, j, k) }

// ForEachChunk visits stored chunks in no particular order.
func (w *World) ForEachChunk(fn func(c *Chunk) bool) {
	for _, c := range w.chunks {
		if !fn(c) {
			return
		}
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ChunkIndex returns the chunk index holding a world voxel coordinate.
func (w *World) ChunkIndex(x, y, z int) (i, j, k int) {
	s := w.opts.ChunkSize
	return floorDiv(x, s), floorDiv(y, s), floorDiv(z, s)
}

func (w *World) locate(x, y, z int) (c *Chunk, li, lj, lk int) {
	i, j, k := w.ChunkIndex(x, y, z)
	c = w.chunkAt(i, j, k)
	if c == nil {
		return nil, 0, 0, 0
	}
	s := w.opts.ChunkSize
	return c, x - i*s, y - j*s, z - k*s
}

// GetBlockID returns the voxel at a world coordinate. Unloaded voxels are air.
func (w *World) GetBlockID(x, y, z int) blocks.ID {
	c, i, j, k := w.locate(x, y, z)
	if c == nil {
		return blocks.Air
	}
	return c.Get(i, j, k)
}

func (w *World) GetBlockSolidity(x, y, z int) bool { return w.reg.Solid(w.GetBlockID(x, y, z)) }
func (w *World) GetBlockOpacity(x, y, z int) bool  { return w.reg.Opaque(w.GetBlockID(x, y, z)) }
func (w *World) GetBlockFluidity(x, y, z int) bool { return w.reg.Fluid(w.GetBlockID(x, y, z)) }

// FluidProperties returns the density and drag registered for the fluid
// at a voxel, or zero values when it holds no fluid.
func (w *World) FluidProperties(x, y, z int) blocks.FluidProperties {
	return w.reg.FluidProperties(w.GetBlockID(x, y, z))
}

// IsSolid and IsFluid match collide.SolidFunc.
func (w *World) IsSolid(x, y, z int) bool { return w.GetBlockSolidity(x, y, z) }
func (w *World) IsFluid(x, y, z int) bool { return w.GetBlockFluidity(x, y, z) }

// SetBlockID changes a voxel. It reports false when the voxel's chunk is
// not loaded.
func (w *World) SetBlockID(id blocks.ID, x, y, z int) bool {
	c, i, j, k := w.locate(x, y, z)
	if c == nil {
		return false
	}
	c.Set(i, j, k, id)
	return true
}

// IsBoxUnobstructed reports whether no solid voxel overlaps the box.
func (w *World) IsBoxUnobstructed(box collide.AABB) bool {
	lo, hi := box.Base, box.Max()
	x0, y0, z0 := int(math.Floor(lo[0])), int(math.Floor(lo[1])), int(math.Floor(lo[2]))
	x1, y1, z1 := int(math.Ceil(hi[0]))-1, int(math.Ceil(hi[1]))-1, int(math.Ceil(hi[2]))-1
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				if w.IsSolid(x, y, z) {
					return false
				}
			}
		}
	}
	return true
}

// Pick casts a ray against solid voxels.
func (w *World) Pick(origin, dir mgl64.Vec3, maxDist float64) (collide.Hit, bool, error) {
	return collide.Raycast(w.IsSolid, origin, dir, maxDist)
}

// InvalidateVoxelsInAABB marks every known chunk overlapping box for
// reloading. Infinite extents are allowed.
func (w *World) InvalidateVoxelsInAABB(box collide.AABB) {
	var hi mgl64.Vec3
	for a := 0; a < 3; a++ {
		hi[a] = box.Base[a] + box.Vec[a]
		if math.IsInf(box.Vec[a], 1) {
			hi[a] = math.Inf(1)
		}
	}
	s := float64(w.opts.ChunkSize)
	w.known.ForEach(func(l locq.Loc) bool {
		for a := 0; a < 3; a++ {
			lo := float64(l[a]) * s
			if !(lo < hi[a] && lo+s > box.Base[a]) {
				return true
			}
		}
		w.invalidated.Add(l[0], l[1], l[2], false)
		return true
	})
}

// ManuallyLoadChunk queues the chunk holding a world coordinate for loading.
func (w *World) ManuallyLoadChunk(x, y, z int) error {
	if !w.opts.ManualChunkLoading {
		w.logger.Errorf("ManuallyLoadChunk called with manual chunk loading disabled")
		return ErrManualLoadingDisabled
	}
	i, j, k := w.ChunkIndex(x, y, z)
	w.track(i, j, k)
	return nil
}

// track makes a location known and requests it, or keeps a stored chunk
// that was waiting for removal.
func (w *World) track(i, j, k int) {
	if w.known.Includes(i, j, k) {
		return
	}
	w.known.Add(i, j, k, false)
	if w.toRemove.Includes(i, j, k) && w.chunkAt(i, j, k) != nil {
		w.toRemove.Remove(i, j, k)
		return
	}
	w.toRequest.Add(i, j, k, true)
}

// ManuallyUnloadChunk queues the chunk holding a world coordinate for removal.
func (w *World) ManuallyUnloadChunk(x, y, z int) error {
	if !w.opts.ManualChunkLoading {
		w.logger.Errorf("ManuallyUnloadChunk called with manual chunk loading disabled")
		return ErrManualLoadingDisabled
	}
	i, j, k := w.ChunkIndex(x, y, z)
	w.forget(i, j, k)
	return nil
}

// forget drops a location from every queue and schedules its removal.
func (w *World) forget(i, j, k int) {
	w.known.Remove(i, j, k)
	w.toRequest.Remove(i, j, k)
	w.toMesh.Remove(i, j, k)
	w.toMeshFirst.Remove(i, j, k)
	w.invalidated.Remove(i, j, k)
	w.cancelRequest(i, j, k)
	w.toRemove.Add(i, j, k, false)
}

func (w *World) cancelRequest(i, j, k int) {
	h := locq.Hash(i, j, k)
	if inf, ok := w.inFlight[h]; ok {
		inf.cancel()
		delete(w.inFlight, h)
	}
	w.pending.Remove(i, j, k)
}

// SetChunkData delivers voxel data for a request announced through
// Events.DataNeeded. A fillVoxelID >= 0 fills the chunk with that ID and
// ignores voxels. Data for a request that is no longer pending is dropped.
func (w *World) SetChunkData(id RequestID, voxels []blocks.ID, userData any, fillVoxelID int) {
	data := &ChunkData{Voxels: voxels, UserData: userData}
	if fillVoxelID >= 0 {
		data.Voxels = nil
		data.FillVoxelID = blocks.ID(fillVoxelID)
	}
	w.applyData(id, data)
}

// Close cancels outstanding generation. The world must not be used after.
func (w *World) Close() {
	for h, inf := range w.inFlight {
		inf.cancel()
		delete(w.inFlight, h)
	}
	w.pending.Empty()
}
