package core

import "sync/atomic"

const (
	// TimerFreq is the core clock rate. Boards scale their hardware
	// counter to it in their clock update.
	TimerFreq = 12000000

	// StepClockRate is the tick rate of the step intervals the chain is
	// given for stall gating.
	StepClockRate = TimerFreq
)

// systemTicks is advanced by the board loop and read from the completion
// interrupt and step pin interrupts.
var systemTicks atomic.Uint32

// GetTime returns the core clock. It wraps about every 358 seconds;
// compare values with timerBefore.
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime publishes a new clock value. Tests set it directly.
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// TimerFromUS converts microseconds to clock ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts clock ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}
