package voxworld

import (
	"time"
)

// Time is advanced by App.Step. Fixed-stage systems should integrate with
// FixedDt; Dt is the length of the last frame.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	FixedDt time.Duration
	Ticks   uint64
	// Alpha is the fraction of a fixed tick left in the accumulator after
	// the last frame, for interpolating between ticks.
	Alpha float64
}

type TimeModule struct {
	// Start defaults to the wall clock at install time.
	Start time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	start := mod.Start
	if start.IsZero() {
		start = time.Now()
	}
	cmd.AddResources(&Time{
		Time:    start,
		FixedDt: app.FixedDt(),
	})
}
