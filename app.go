package voxworld

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"time"
)

type systemFn any

// Module installs resources and systems into an App.
type Module interface {
	Install(app *App, cmd *Commands)
}

// App drives the engine: a fixed-timestep simulation loop followed by a
// once-per-frame pass, both organised in stages.
type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	ecs       *Ecs
	closers   []func() error

	fixedDt          time.Duration
	maxTicksPerFrame int
	accumulator      time.Duration
	ticks            uint64

	// Command Buffering
	pendingAdditions   []pendingAdd
	pendingRemovals    []EntityId
	pendingCompAdds    []pendingComps
	pendingCompRemoves []pendingComps
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingComps struct {
	eid        EntityId
	components []any
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// FixedDt is the length of one simulation tick.
func (app *App) FixedDt() time.Duration { return app.fixedDt }

// Ticks counts fixed ticks run since the app was built.
func (app *App) Ticks() uint64 { return app.ticks }

// Step advances the app by one frame of frameDt real time. Dynamic stages
// placed before the first fixed stage run first. Fixed stages then run
// once for every whole tick accumulated, at most maxTicksPerFrame times,
// and backlog beyond that is dropped. The remaining dynamic stages run
// last. Step returns the number of fixed ticks run.
func (app *App) Step(frameDt time.Duration) int {
	if frameDt < 0 {
		frameDt = 0
	}
	app.accumulator += frameDt
	clock := app.timeResource()
	if clock != nil {
		clock.Time = clock.Time.Add(frameDt)
		clock.Dt = frameDt
		clock.FixedDt = app.fixedDt
	}

	split := slices.IndexFunc(app.stages, func(s Stage) bool { return s.UpdateType == FixedUpdate })
	if split < 0 {
		split = len(app.stages)
	}
	app.callSystems(app.stages[:split], DynamicUpdate)

	n := 0
	for app.accumulator >= app.fixedDt && n < app.maxTicksPerFrame {
		app.accumulator -= app.fixedDt
		app.ticks++
		if clock != nil {
			clock.Ticks = app.ticks
		}
		app.callSystems(app.stages, FixedUpdate)
		n++
	}
	if app.accumulator >= app.fixedDt {
		app.Logger().Debugf("dropping %v of simulation backlog", app.accumulator)
		app.accumulator %= app.fixedDt
	}
	if clock != nil {
		clock.Alpha = float64(app.accumulator) / float64(app.fixedDt)
	}

	app.callSystems(app.stages[split:], DynamicUpdate)
	return n
}

// Run steps the app with wall-clock time, one frame per fixed tick, until
// ctx is done. Registered closers run before it returns.
func (app *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(app.fixedDt)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), app.Close())
		case now := <-ticker.C:
			app.Step(now.Sub(last))
			last = now
		}
	}
}

// OnClose registers fn to run when the app shuts down. Closers run in
// reverse registration order.
func (app *App) OnClose(fn func() error) {
	app.closers = append(app.closers, fn)
}

func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) callSystems(stages []Stage, kind UpdateType) {
	for _, stage := range stages {
		if stage.UpdateType != kind {
			continue
		}
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource fetches a resource by its pointer type.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var (
	typeOfCommands = reflect.TypeOf(Commands{})
	typeOfTime     = reflect.TypeOf(Time{})
)

func (app *App) timeResource() *Time {
	if r, ok := app.resources[typeOfTime]; ok {
		return r.(*Time)
	}
	return nil
}

// callSystem resolves each pointer argument of system from the resources,
// or hands it the Commands, and calls it.
func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.unresolved(systemType, systemValue, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.unresolved(systemType, systemValue, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) unresolved(systemType reflect.Type, systemValue reflect.Value, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		fmt.Sprint(systemType),
		fmt.Sprint(argType),
	)
	app.Logger().Errorf("%s", msg)
	panic(msg)
}

// FlushCommands applies buffered entity changes: removals, then new
// entities, then component additions and removals.
func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemoves) == 0 {
		return
	}

	for _, eid := range app.pendingRemovals {
		app.ecs.removeEntity(eid)
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	for _, add := range app.pendingAdditions {
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	for _, add := range app.pendingCompAdds {
		if app.ecs.hasEntity(add.eid) {
			app.ecs.addComponents(add.eid, add.components...)
		}
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, rm := range app.pendingCompRemoves {
		if app.ecs.hasEntity(rm.eid) {
			app.ecs.removeComponents(rm.eid, rm.components...)
		}
	}
	app.pendingCompRemoves = app.pendingCompRemoves[:0]
}
