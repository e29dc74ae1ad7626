package core

// Step interval tracking
// Watches the step pulses of each axis and reports the full step interval
// the stall gating in the driver chain asks for. Pulses arrive from pin
// interrupts on the board, queries from the chain completion interrupt.

import "sync/atomic"

const (
	MaxTrackedAxes = 16

	// StepIdleTimeout is how long after its last pulse an axis still
	// counts as stepping.
	StepIdleTimeout = TimerFreq / 50 // 20ms
)

type axisSteps struct {
	lastStep atomic.Uint32 // clock of the latest pulse
	interval atomic.Uint32 // ticks between the two latest pulses, 0 if unknown
}

// StepTracker implements StepIntervalSource from observed step pulses
type StepTracker struct {
	axes [MaxTrackedAxes]axisSteps
}

// Step records a microstep pulse on axis at the current clock
func (s *StepTracker) Step(axis uint32) {
	if axis >= MaxTrackedAxes {
		return
	}
	a := &s.axes[axis]
	now := GetTime()
	prev := a.lastStep.Swap(now)
	if prev == 0 || now-prev > StepIdleTimeout {
		a.interval.Store(0) // first pulse after idle has no interval
		return
	}
	a.interval.Store(now - prev)
}

// Stop forgets the timing of axis
func (s *StepTracker) Stop(axis uint32) {
	if axis >= MaxTrackedAxes {
		return
	}
	s.axes[axis].interval.Store(0)
	s.axes[axis].lastStep.Store(0)
}

// StepInterval returns the full step interval of axis in step clock ticks,
// or 0 if the axis has not stepped within StepIdleTimeout.
func (s *StepTracker) StepInterval(axis, microstepShift uint32) uint32 {
	if axis >= MaxTrackedAxes {
		return 0
	}
	a := &s.axes[axis]
	interval := a.interval.Load()
	if interval == 0 || GetTime()-a.lastStep.Load() > StepIdleTimeout {
		return 0
	}
	full := uint64(interval) << microstepShift
	if full > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(full)
}
