//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"smartdrivers/core"
)

// The TIMER peripheral counts microseconds. Only the raw low word is
// read; the core clock is 32 bits and wraps anyway.
const (
	timerRAWLAddr  = 0x40054000 + 0x0C
	hwTimerFreq    = 1000000
	ticksPerHWTick = core.TimerFreq / hwTimerFreq
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerRAWLAddr)))

// UpdateSystemTime publishes the hardware counter on the core clock.
// Called at the top of every main loop pass, before the chain is polled.
func UpdateSystemTime() {
	core.SetTime(timerRAWL.Get() * ticksPerHWTick)
}
