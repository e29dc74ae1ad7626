package core

// TMC2660 transfer chain
//
// While the drivers are powered the SPI bus is never idle: every completed
// transfer starts the next one, moving round-robin through the drivers.
// Each transfer sends the most urgent pending register of the current
// driver, or SMARTEN as a plain status poll when nothing is pending. A
// pending update therefore reaches its chip within at most
// NumRegisters*N transfers, and a status reply is at most N transfers old.
//
// Ownership of the bus passes only inside advance, which runs in the
// completion interrupt. The control context never starts a transfer
// itself except to restart an idle chain.

import (
	"math/bits"
	"sync/atomic"
)

const chainIdle = -1

type chain struct {
	transport ChainTransport
	motion    StepIntervalSource
	drivers   *[MaxSmartDrivers]driverState
	count     int // fixed while the chain runs

	current atomic.Int32 // bus owner, or chainIdle
	powered atomic.Bool
}

// next claims the register to send to d: the lowest pending one, else
// SMARTEN. Only the chain clears pending bits, so the bit chosen from the
// snapshot is still set when it is cleared.
func (d *driverState) next() (Register, uint32) {
	reg := SmartEnable
	if pending := d.pending.Load(); pending != 0 {
		reg = Register(bits.TrailingZeros32(pending))
		d.pending.And(^(uint32(1) << reg))
	}
	return reg, d.register(reg)
}

// start makes driver index the bus owner and begins its transfer
func (c *chain) start(index int) {
	d := &c.drivers[index]
	c.current.Store(int32(index))
	reg, val := d.next()
	RecordEvent(EvtTransferStart, uint8(index), uint32(reg), val)
	c.transport.Begin(d.selectPin, val)
}

// advance is the completion handler. It merges the reply of the driver
// that owned the bus and passes the bus on, or stops the chain if power
// has gone.
func (c *chain) advance(response uint32) {
	index := int(c.current.Load())
	if index == chainIdle || !c.powered.Load() {
		RecordEvent(EvtChainStop, 0, uint32(int32(index)), 0)
		c.stop()
		return
	}

	status := decodeResponse(response)
	c.drivers[index].transferDone(status, c.motion)
	RecordEvent(EvtTransferDone, uint8(index), uint32(status), 0)

	index++
	if index >= c.count {
		index = 0
	}
	c.start(index)
}

// stop masks the completion interrupt and releases the bus. An in-flight
// transfer is never aborted; stop runs once it has completed.
func (c *chain) stop() {
	c.transport.EnableCompletion(false)
	c.current.Store(chainIdle)
}

// kick restarts an idle chain at driver 0 and reports whether it did.
// No completion can be pending while the chain is idle, so the control
// context is the only writer of current here.
func (c *chain) kick() bool {
	if c.count == 0 || c.current.Load() != chainIdle {
		return false
	}
	c.transport.EnableCompletion(true)
	c.start(0)
	return true
}

func (c *chain) running() bool {
	return c.current.Load() != chainIdle
}
