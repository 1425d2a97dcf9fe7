package voxworld

import (
	"reflect"
	"time"
)

const (
	DefaultTickRate         = 30.0
	DefaultMaxTicksPerFrame = 5
)

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	ecs := MakeEcs()
	app := &App{
		stages:           defaultStages(),
		systems:          make(map[string][]systemFn),
		resources:        make(map[reflect.Type]any),
		ecs:              &ecs,
		fixedDt:          tickDuration(DefaultTickRate),
		maxTicksPerFrame: DefaultMaxTicksPerFrame,
	}
	for _, s := range app.stages {
		app.systems[s.Name] = make([]systemFn, 0)
	}
	return &AppBuilder{app: app}
}

func tickDuration(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// WithTickRate sets the fixed update frequency in Hz. Non-positive rates
// are ignored.
func (b *AppBuilder) WithTickRate(hz float64) *AppBuilder {
	if hz > 0 {
		b.app.fixedDt = tickDuration(hz)
	}
	return b
}

func (b *AppBuilder) WithMaxTicksPerFrame(n int) *AppBuilder {
	if n > 0 {
		b.app.maxTicksPerFrame = n
	}
	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build installs the modules in order and applies any entities they
// spawned.
func (b *AppBuilder) Build() *App {
	app := b.app
	commands := &Commands{app: app}

	for _, module := range b.modules {
		module.Install(app, commands)
	}
	app.FlushCommands()

	return app
}
