package voxworld

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/store"
	"github.com/go-gl/mathgl/mgl64"
)

// WorldModule owns the chunk streaming manager. The world is ticked in the
// Update stage around the player entity and rendered in the Render stage.
type WorldModule struct {
	Options chunks.Options
	// Store, when set, saves edited chunks as they unload, before their data
	// is replaced and when the app closes. It serves them back ahead of the
	// generator.
	Store *store.Store
}

// Viewer is the position the world was last ticked around.
type Viewer struct {
	Position mgl64.Vec3
	Entity   EntityId
	// Found is false when no player entity exists. The world then keeps
	// streaming around the last known position.
	Found bool
}

func (m WorldModule) Install(app *App, cmd *Commands) {
	opts := m.Options
	logger := app.Logger()
	if opts.Logger == nil {
		opts.Logger = logger
	}

	if m.Store != nil {
		if opts.Generator != nil || opts.Events.DataNeeded == nil {
			opts.Generator = &store.CachingGenerator{Store: m.Store, Source: opts.Generator}
		}
		opts.Events.ChunkBeingRemoved = saveBefore(m.Store, logger, opts.Events.ChunkBeingRemoved)
		opts.Events.ChunkDataReplacing = saveBefore(m.Store, logger, opts.Events.ChunkDataReplacing)
	}

	w, err := chunks.NewWorld(opts)
	if err != nil {
		panic(fmt.Sprintf("world module: %v", err))
	}
	cmd.AddResources(w, &Viewer{})

	app.UseSystem(System(worldTickSystem).InStage(Update))
	app.UseSystem(System(worldRenderSystem).InStage(Render))

	app.OnClose(func() error {
		var err error
		if m.Store != nil {
			err = saveModified(w, m.Store)
		}
		w.Close()
		return err
	})
}

// saveBefore saves modified chunks to s, then calls next.
func saveBefore(s *store.Store, logger Logger, next func(*chunks.Chunk)) func(*chunks.Chunk) {
	return func(c *chunks.Chunk) {
		if err := s.Save(c); err != nil {
			logger.Warnf("saving chunk %d,%d,%d: %v", c.ID.I, c.ID.J, c.ID.K, err)
		}
		if next != nil {
			next(c)
		}
	}
}

func saveModified(w *chunks.World, s *store.Store) error {
	var errs []error
	w.ForEachChunk(func(c *chunks.Chunk) bool {
		errs = append(errs, s.Save(c))
		return true
	})
	return errors.Join(errs...)
}

func worldTickSystem(cmd *Commands, w *chunks.World, viewer *Viewer) {
	viewer.Found = false
	MakeQuery2[TransformComponent, PlayerComponent](cmd).Map(func(eid EntityId, t *TransformComponent, _ *PlayerComponent) bool {
		viewer.Position = t.PositionData()
		viewer.Entity = eid
		viewer.Found = true
		return false
	})
	w.Tick(viewer.Position)
}

func worldRenderSystem(w *chunks.World) {
	w.Render()
}
