package voxworld

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type position struct{ x, y int }
type velocity struct{ dx, dy int }
type tag struct{}

func queryApp() (*App, *Commands) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	cmd.AddEntity(position{1, 1}, velocity{1, 0})
	cmd.AddEntity(position{2, 2})
	cmd.AddEntity(position{3, 3}, velocity{0, 1}, tag{})
	cmd.AddEntity(velocity{5, 5})
	app.FlushCommands()
	return app, cmd
}

func TestQuery1(t *testing.T) {
	_, cmd := queryApp()
	sum := 0
	MakeQuery1[position](cmd).Map(func(_ EntityId, p *position) bool {
		sum += p.x
		return true
	})
	assert.Equal(t, 6, sum)
}

func TestQuery2_MutatesInPlace(t *testing.T) {
	_, cmd := queryApp()
	n := 0
	MakeQuery2[position, velocity](cmd).Map(func(_ EntityId, p *position, v *velocity) bool {
		p.x += v.dx
		p.y += v.dy
		n++
		return true
	})
	assert.Equal(t, 2, n)

	var got []position
	MakeQuery1[position](cmd).Map(func(_ EntityId, p *position) bool {
		got = append(got, *p)
		return true
	})
	assert.ElementsMatch(t, []position{{2, 1}, {2, 2}, {3, 4}}, got)
}

func TestQuery2_Optionals(t *testing.T) {
	_, cmd := queryApp()
	withVel, withoutVel := 0, 0
	MakeQuery2[position, velocity](cmd).Map(func(_ EntityId, p *position, v *velocity) bool {
		assert.NotNil(t, p)
		if v == nil {
			withoutVel++
		} else {
			withVel++
		}
		return true
	}, velocity{})
	assert.Equal(t, 2, withVel)
	assert.Equal(t, 1, withoutVel)
}

func TestQuery3_StopsEarly(t *testing.T) {
	_, cmd := queryApp()
	calls := 0
	MakeQuery3[position, velocity, tag](cmd).Map(func(_ EntityId, _ *position, _ *velocity, tg *tag) bool {
		calls++
		return false
	}, tag{})
	assert.Equal(t, 1, calls)

	all := 0
	MakeQuery3[position, velocity, tag](cmd).Map(func(_ EntityId, _ *position, _ *velocity, tg *tag) bool {
		all++
		return true
	}, tag{})
	assert.Equal(t, 2, all)
}
