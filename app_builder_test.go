package voxworld

import (
	"testing"
	"time"
)

type MockModule struct {
	installed bool
	order     *[]string
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
	*m.order = append(*m.order, "first")
}

type MockModule2 struct {
	installed bool
	order     *[]string
}

func (m *MockModule2) Install(app *App, commands *Commands) {
	m.installed = true
	*m.order = append(*m.order, "second")
}

func TestAppBuilder_Defaults(t *testing.T) {
	app := NewAppBuilder().Build()

	if want := time.Second / DefaultTickRate; app.FixedDt() != want {
		t.Errorf("Expected fixed dt %v, got %v", want, app.FixedDt())
	}
	if app.maxTicksPerFrame != DefaultMaxTicksPerFrame {
		t.Errorf("Expected %d ticks per frame, got %d", DefaultMaxTicksPerFrame, app.maxTicksPerFrame)
	}
	if len(app.stages) != len(defaultStages()) {
		t.Errorf("Expected the default stages, got %v", app.stages)
	}
}

func TestAppBuilder_IgnoresInvalidRates(t *testing.T) {
	app := NewAppBuilder().WithTickRate(0).WithTickRate(-5).WithMaxTicksPerFrame(0).Build()

	if app.FixedDt() != time.Second/DefaultTickRate {
		t.Errorf("Expected the default tick, got %v", app.FixedDt())
	}
	if app.maxTicksPerFrame != DefaultMaxTicksPerFrame {
		t.Errorf("Expected the default cap, got %d", app.maxTicksPerFrame)
	}
}

func TestAppBuilder_UseModule(t *testing.T) {
	var order []string
	m1 := &MockModule{order: &order}
	m2 := &MockModule2{order: &order}

	NewAppBuilder().UseModule(m1).UseModule(m2).Build()

	if !m1.installed || !m2.installed {
		t.Errorf("Expected both modules to be installed")
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected modules to install in order, got %v", order)
	}
}
