package chunks

import (
	"context"
	"errors"
	"math"

	"github.com/gekko3d/voxworld/engine/locq"
	"github.com/gekko3d/voxworld/engine/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

var neighborOffsets = func() (out [26][3]int) {
	n := 0
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				if di == 0 && dj == 0 && dk == 0 {
					continue
				}
				out[n] = [3]int{di, dj, dk}
				n++
			}
		}
	}
	return out
}()

// Tick advances streaming around the player position: it applies arrived
// data, scans for work and drains the queues until the tick budget runs out.
func (w *World) Tick(playerPos mgl64.Vec3) {
	start := w.now()
	deadline := start.Add(w.opts.MaxProcessingPerTick)
	expired := func() bool { return w.now().After(deadline) }

	w.drainResults()

	s := float64(w.opts.ChunkSize)
	pc := locq.Loc{
		int(math.Floor(playerPos[0] / s)),
		int(math.Floor(playerPos[1] / s)),
		int(math.Floor(playerPos[2] / s)),
	}
	if !w.playerSeen || pc != w.playerChunk {
		w.playerChunk = pc
		w.playerSeen = true
		w.searchFrom = 0
		w.sortRequests()
		w.logger.Debugf("player entered chunk %d,%d,%d", pc[0], pc[1], pc[2])
		if fn := w.opts.Events.PlayerEnteredChunk; fn != nil {
			fn(pc[0], pc[1], pc[2])
		}
	}

	if w.nextWorldName != w.worldName {
		w.logger.Debugf("world changed from %q to %q, invalidating %d chunks", w.worldName, w.nextWorldName, w.known.Count())
		w.worldName = w.nextWorldName
		w.invalidateAll()
	}

	if !w.opts.ManualChunkLoading {
		w.findDistantChunksToRemove(expired)
		w.findChunksToRequest(expired)
	}
	w.findChunksToMesh(expired)

	for {
		doneRemove := w.processRemoveQueue()
		doneRequest := w.processRequestQueue()
		doneMesh := w.processMeshQueue(false)
		if doneRemove && doneRequest && doneMesh {
			break
		}
		if expired() {
			break
		}
	}

	w.playerLoaded = w.chunkAt(pc[0], pc[1], pc[2]) != nil
	w.metrics.setQueues(w.QueueCounts())
	w.metrics.observeTick(w.now().Sub(start).Seconds())
}

// Render meshes high-priority chunks under the smaller render budget.
func (w *World) Render() {
	deadline := w.now().Add(w.opts.MaxProcessingPerRender)
	for !w.processMeshQueue(true) {
		if w.now().After(deadline) {
			break
		}
	}
}

// invalidateAll drops in-flight requests and marks every known location
// for reloading.
func (w *World) invalidateAll() {
	for h, inf := range w.inFlight {
		inf.cancel()
		delete(w.inFlight, h)
	}
	w.pending.Empty()
	w.invalidated.CopyFrom(w.known)
	w.searchFrom = 0
	w.removeFrom = 0
	w.meshFrom = 0
}

// processRemoveQueue handles one invalidated or removed location and
// reports whether both queues are empty.
func (w *World) processRemoveQueue() bool {
	if l, ok := w.invalidated.Pop(); ok {
		w.reloadInvalidated(l[0], l[1], l[2])
	} else if l, ok := w.toRemove.Pop(); ok {
		w.removeChunk(l[0], l[1], l[2])
	}
	return w.invalidated.IsEmpty() && w.toRemove.IsEmpty()
}

func (w *World) reloadInvalidated(i, j, k int) {
	if !w.known.Includes(i, j, k) {
		return
	}
	p := w.playerChunk
	if !w.opts.ManualChunkLoading && !withinRadii(w.opts.RemoveDistance, i-p[0], j-p[1], k-p[2]) {
		w.forget(i, j, k)
		return
	}
	// the stored chunk stays until its replacement data arrives
	w.cancelRequest(i, j, k)
	w.toRequest.Add(i, j, k, false)
}

// meshQueueLen counts chunks waiting for a mesh in either priority.
func (w *World) meshQueueLen() int { return w.toMesh.Count() + w.toMeshFirst.Count() }

// processRequestQueue requests one location and reports whether no more
// requests can be made this round.
func (w *World) processRequestQueue() bool {
	if w.pending.Count() >= w.opts.MaxChunksPendingCreation {
		return true
	}
	if w.meshQueueLen() >= w.opts.MaxChunksPendingMeshing {
		return true
	}
	l, ok := w.toRequest.Pop()
	if !ok {
		return true
	}
	if w.known.Includes(l[0], l[1], l[2]) {
		w.requestChunk(l[0], l[1], l[2])
	}
	return w.toRequest.IsEmpty()
}

func (w *World) requestChunk(i, j, k int) {
	s := w.opts.ChunkSize
	id := RequestID{I: i, J: j, K: k, World: w.worldName}
	req := DataRequest{ID: id, X: i * s, Y: j * s, Z: k * s, Size: s}
	w.pending.Add(i, j, k, false)

	switch {
	case w.opts.Generator != nil:
		w.gen++
		g := w.gen
		ctx, cancel := context.WithCancel(context.Background())
		w.inFlight[locq.Hash(i, j, k)] = inflight{id: id, gen: g, cancel: cancel}
		go func(gen Generator) {
			data, err := gen.Generate(ctx, req)
			select {
			case w.results <- genResult{id: id, gen: g, data: data, err: err}:
			case <-ctx.Done():
			}
		}(w.opts.Generator)
	case w.opts.Events.DataNeeded != nil:
		w.opts.Events.DataNeeded(req)
	default:
		w.applyData(id, nil)
	}
}

// drainResults applies every generator result that has arrived.
func (w *World) drainResults() {
	for {
		select {
		case r := <-w.results:
			w.handleResult(r)
		default:
			return
		}
	}
}

func (w *World) handleResult(r genResult) {
	h := locq.Hash(r.id.I, r.id.J, r.id.K)
	inf, ok := w.inFlight[h]
	if !ok || inf.gen != r.gen || inf.id != r.id {
		w.metrics.staleResult()
		return
	}
	delete(w.inFlight, h)
	inf.cancel()

	if r.err != nil {
		w.pending.Remove(r.id.I, r.id.J, r.id.K)
		if errors.Is(r.err, context.Canceled) {
			w.metrics.staleResult()
		} else {
			w.metrics.generatorError()
			w.logger.Warnf("generating chunk %d,%d,%d: %v", r.id.I, r.id.J, r.id.K, r.err)
		}
		if w.known.Includes(r.id.I, r.id.J, r.id.K) {
			w.toRequest.Add(r.id.I, r.id.J, r.id.K, true)
		}
		return
	}
	w.applyData(r.id, r.data)
}

// applyData stores arrived data, creating the chunk or replacing the data
// of the existing one. Data for a request that is no longer pending is
// discarded.
func (w *World) applyData(id RequestID, data *ChunkData) {
	i, j, k := id.I, id.J, id.K
	if id.World != w.worldName || !w.pending.Includes(i, j, k) {
		w.metrics.staleResult()
		w.logger.Debugf("discarding stale data for chunk %d,%d,%d in %q", i, j, k, id.World)
		return
	}
	w.pending.Remove(i, j, k)

	if c := w.chunkAt(i, j, k); c != nil {
		if fn := w.opts.Events.ChunkDataReplacing; fn != nil {
			fn(c)
		}
		c.ID = id
		c.replaceData(data)
		w.dirtyAllNeighbors(c)
		w.queueChunkForRemesh(c)
		return
	}

	c := newChunk(w, id, data)
	w.storeChunk(c)
	w.metrics.chunkAdded()
	if fn := w.opts.Events.ChunkAdded; fn != nil {
		fn(c)
	}
}

func (w *World) storeChunk(c *Chunk) {
	w.chunks[locq.Hash(c.I, c.J, c.K)] = c
	for _, d := range neighborOffsets {
		n := w.chunkAt(c.I+d[0], c.J+d[1], c.K+d[2])
		if n == nil {
			continue
		}
		c.linkNeighbor(d[0], d[1], d[2])
		n.linkNeighbor(-d[0], -d[1], -d[2])
		if n.timesMeshed > 0 {
			n.terrainDirty = true
		}
	}
}

func (w *World) removeChunk(i, j, k int) {
	c := w.chunkAt(i, j, k)
	if c == nil {
		return
	}
	if fn := w.opts.Events.ChunkBeingRemoved; fn != nil {
		fn(c)
	}
	for _, d := range neighborOffsets {
		if n := w.chunkAt(i+d[0], j+d[1], k+d[2]); n != nil {
			n.unlinkNeighbor(-d[0], -d[1], -d[2])
		}
	}
	delete(w.chunks, locq.Hash(i, j, k))
	w.toMesh.Remove(i, j, k)
	w.toMeshFirst.Remove(i, j, k)
	c.dispose()
	w.metrics.chunkRemoved()
}

// processMeshQueue meshes one chunk, preferring toMeshFirst, and reports
// whether nothing is left to mesh. With firstOnly only toMeshFirst is used.
func (w *World) processMeshQueue(firstOnly bool) bool {
	l, ok := w.toMeshFirst.Pop()
	if !ok && !firstOnly {
		l, ok = w.toMesh.Pop()
	}
	if ok {
		if c := w.chunkAt(l[0], l[1], l[2]); c != nil {
			c.UpdateMeshes()
		}
	}
	if firstOnly {
		return w.toMeshFirst.IsEmpty()
	}
	return w.toMeshFirst.IsEmpty() && w.toMesh.IsEmpty()
}

// meshTerrain rebuilds a chunk's terrain meshes from its voxels and those
// of its loaded neighbors.
func (w *World) meshTerrain(c *Chunk) {
	in := mesh.Input{
		Size:       c.size,
		LayerConst: c.layerConst,
		EdgesOnly:  c.isFull,
	}
	in.Voxels[13] = c.voxels
	for _, d := range neighborOffsets {
		if n := c.Neighbor(d[0], d[1], d[2]); n != nil {
			in.Voxels[mesh.NeighborIndex(d[0], d[1], d[2])] = n.voxels
		}
	}

	c.removeTerrainMeshes()
	if !c.isEmpty {
		origin := mgl64.Vec3{float64(c.X), float64(c.Y), float64(c.Z)}
		for _, md := range w.builder.Build(w.mesher.Mesh(in)) {
			h := w.renderer.AddMesh(false, origin, c, md)
			c.terrainMeshes = append(c.terrainMeshes, h)
			if fn := w.opts.Events.TerrainMeshAdded; fn != nil {
				fn(c, h)
			}
		}
	}
	w.metrics.chunkMeshed()
}

// dirtyBoundaryNeighbors marks the neighbors sharing a face, edge or corner
// with a changed voxel.
func (w *World) dirtyBoundaryNeighbors(c *Chunk, i, j, k int) {
	last := c.size - 1
	span := func(x int) (lo, hi int) {
		if x == 0 {
			lo = -1
		}
		if x == last {
			hi = 1
		}
		return lo, hi
	}
	i0, i1 := span(i)
	j0, j1 := span(j)
	k0, k1 := span(k)
	for di := i0; di <= i1; di++ {
		for dj := j0; dj <= j1; dj++ {
			for dk := k0; dk <= k1; dk++ {
				if di == 0 && dj == 0 && dk == 0 {
					continue
				}
				if n := c.Neighbor(di, dj, dk); n != nil {
					n.terrainDirty = true
					w.queueChunkForRemesh(n)
				}
			}
		}
	}
}

func (w *World) dirtyAllNeighbors(c *Chunk) {
	for _, d := range neighborOffsets {
		if n := c.Neighbor(d[0], d[1], d[2]); n != nil && n.timesMeshed > 0 {
			n.terrainDirty = true
		}
	}
}

// queueChunkForRemesh moves a chunk with enough neighbors to the high
// priority mesh queue. Others wait for the mesh scan.
func (w *World) queueChunkForRemesh(c *Chunk) {
	if c.neighborCount < w.opts.MinNeighborsToMesh {
		return
	}
	w.toMesh.Remove(c.I, c.J, c.K)
	w.toMeshFirst.Add(c.I, c.J, c.K, false)
}
