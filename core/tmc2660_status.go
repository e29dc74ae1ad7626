package core

// Status accumulation for TMC2660 replies
//
// Written from the completion interrupt, read from the control context.
// Every cross-context update is a single atomic operation so neither side
// ever has to wait for the other.

// StepIntervalSource is the motion collaborator queried once per reply.
type StepIntervalSource interface {
	// StepInterval returns the current interval between full steps of axis
	// in step clock ticks, or 0 if the axis is not stepping.
	StepInterval(axis, microstepShift uint32) uint32
}

// StepIntervalFunc adapts a function to StepIntervalSource.
type StepIntervalFunc func(axis, microstepShift uint32) uint32

func (f StepIntervalFunc) StepInterval(axis, microstepShift uint32) uint32 {
	return f(axis, microstepShift)
}

// The load window packs the minimum load into the high half and the
// maximum into the low half of one word. min > max means empty.
const (
	loadWindowEmpty = TMC2660_RR_LOAD_MASK << 16
)

func packLoadWindow(lo, hi uint32) uint32 {
	return lo<<16 | hi&0xFFFF
}

func unpackLoadWindow(w uint32) (lo, hi uint32) {
	return w >> 16, w & 0xFFFF
}

func (d *driverState) resetLoadWindow() {
	d.loadWindow.Store(loadWindowEmpty)
}

// recordLoad widens the load window to include load
func (d *driverState) recordLoad(load uint32) {
	for {
		old := d.loadWindow.Load()
		lo, hi := unpackLoadWindow(old)
		if load < lo {
			lo = load
		}
		if load > hi {
			hi = load
		}
		w := packLoadWindow(lo, hi)
		if w == old || d.loadWindow.CompareAndSwap(old, w) {
			return
		}
	}
}

// takeLoadWindow returns the window and reopens it empty
func (d *driverState) takeLoadWindow() (lo, hi uint32, ok bool) {
	lo, hi = unpackLoadWindow(d.loadWindow.Swap(loadWindowEmpty))
	return lo, hi, lo <= hi
}

// transferDone merges the reply to a completed transfer. Called from the
// completion interrupt only while the drivers are powered.
func (d *driverState) transferDone(status Status, motion StepIntervalSource) {
	interval := uint32(0)
	if motion != nil {
		interval = motion.StepInterval(d.axis.Load(), d.microstepShift.Load())
	}
	if interval == 0 || interval > d.maxStallStepInterval.Load() {
		// too slow for a reliable stall indication
		status &^= StatusStall
	} else {
		d.recordLoad(status.Load())
	}
	d.liveStatus.Store(uint32(status))
	d.accumulatedStatus.Or(uint32(status))
}

// clearStall drops stale stall bits from both views
func (d *driverState) clearStall() {
	d.accumulatedStatus.And(^uint32(StatusStall))
	d.liveStatus.And(^uint32(StatusStall))
}

// stallMask hides the stall flag of a disabled driver
func (d *driverState) stallMask() Status {
	if d.enabled {
		return StatusAll
	}
	return StatusAll &^ StatusStall
}

func (d *driverState) readLiveStatus() Status {
	return Status(d.liveStatus.Load()) & d.stallMask()
}

// readAccumulatedStatus returns the sticky flags and keeps only the bits in
// bitsToKeep. The read and the clear are one atomic operation.
func (d *driverState) readAccumulatedStatus(bitsToKeep Status) Status {
	mask := d.stallMask()
	status := Status(d.accumulatedStatus.And(uint32(bitsToKeep & mask)))
	return status & mask
}

// appendStatus appends the fault summary and the load window, then
// reopens the window.
func (d *driverState) appendStatus(b []byte) []byte {
	status := Status(d.liveStatus.Load())
	if status&StatusOverTemp != 0 {
		b = append(b, " temperature-shutdown!"...)
	} else if status&StatusOverTempWarning != 0 {
		b = append(b, " temperature-warning"...)
	}
	if status&StatusShortToGround != 0 {
		b = append(b, " short-to-ground"...)
	}
	if status&StatusOpenLoadA != 0 && status&StatusStandstill == 0 {
		b = append(b, " open-load-A"...)
	}
	if status&StatusOpenLoadB != 0 && status&StatusStandstill == 0 {
		b = append(b, " open-load-B"...)
	}
	if status&StatusStandstill != 0 {
		b = append(b, " standstill"...)
	} else if status&(StatusOverTemp|StatusOverTempWarning|StatusShortToGround|StatusOpenLoadA|StatusOpenLoadB) == 0 {
		b = append(b, " ok"...)
	}

	if lo, hi, ok := d.takeLoadWindow(); ok {
		b = append(b, ", SG min/max "...)
		b = appendUint(b, lo)
		b = append(b, '/')
		b = appendUint(b, hi)
	} else {
		b = append(b, ", SG min/max not available"...)
	}
	return b
}

func (d *driverState) appendStallConfig(b []byte) []byte {
	sg := SGCSConf(d.register(StallGuardConfig))
	b = append(b, "stall threshold "...)
	b = appendInt(b, sg.StallThreshold())
	b = append(b, ", filter "...)
	if sg.Filtered() {
		b = append(b, "on"...)
	} else {
		b = append(b, "off"...)
	}
	b = append(b, ", steps/sec "...)
	interval := d.maxStallStepInterval.Load()
	if interval == 0 {
		interval = 1
	}
	b = appendUint(b, StepClockRate/interval)
	b = append(b, ", coolstep "...)
	b = appendHex(b, uint32(SmartEn(d.register(SmartEnable)).Config()))
	return b
}
