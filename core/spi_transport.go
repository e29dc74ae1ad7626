package core

import (
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// SPITransport runs the driver chain over a tinygo drivers.SPI bus.
//
// Begin only latches the datagram and asserts the select line. The bus
// exchange itself happens in Poll, which the board calls from its
// completion interrupt (or its spin loop when the bus has no usable
// interrupt). Poll releases the select line and hands the reply to the
// chain, which immediately begins the next transfer.
type SPITransport struct {
	bus     drivers.SPI
	handler func(response uint32)

	cs       GPIOPin
	tx       [3]byte
	rx       [3]byte
	busy     atomic.Bool
	complete atomic.Bool // completion interrupt unmasked

	txErrors atomic.Uint32
}

// NewSPITransport wraps a bus that has already been configured with
// DefaultChainSPIConfig settings.
func NewSPITransport(bus drivers.SPI) *SPITransport {
	return &SPITransport{bus: bus}
}

func (t *SPITransport) SetCompletionHandler(handler func(response uint32)) {
	t.handler = handler
}

// Begin asserts cs and latches the 20-bit datagram as 24 bits, MSB first
func (t *SPITransport) Begin(cs GPIOPin, datagram uint32) {
	state := irqSave()
	t.cs = cs
	t.tx[0] = byte(datagram >> 16)
	t.tx[1] = byte(datagram >> 8)
	t.tx[2] = byte(datagram)
	assertSelect(cs)
	t.busy.Store(true)
	irqRestore(state)
}

func (t *SPITransport) EnableCompletion(enabled bool) {
	t.complete.Store(enabled)
}

// Busy reports whether a transfer has been begun but not completed
func (t *SPITransport) Busy() bool {
	return t.busy.Load()
}

// TxErrors returns the number of failed bus exchanges. A failed exchange
// still completes; its reply is whatever the bus left in the buffer.
func (t *SPITransport) TxErrors() uint32 {
	return t.txErrors.Load()
}

// Poll performs the latched exchange and delivers its reply. It returns
// false if no transfer was pending.
func (t *SPITransport) Poll() bool {
	if !t.busy.Load() {
		return false
	}
	t.rx = [3]byte{}
	if err := t.bus.Tx(t.tx[:], t.rx[:]); err != nil {
		t.txErrors.Add(1)
	}
	releaseSelect(t.cs)
	t.busy.Store(false)

	response := uint32(t.rx[0])<<16 | uint32(t.rx[1])<<8 | uint32(t.rx[2])
	if t.complete.Load() && t.handler != nil {
		t.handler(response)
	}
	return true
}

// LoopbackTransport completes transfers on demand without hardware. The
// host check command and the tests drive a chain through it.
type LoopbackTransport struct {
	handler  func(response uint32)
	complete bool

	// Respond produces the 24 bits clocked in for a datagram sent to cs.
	// Nil answers with zeros.
	Respond func(cs GPIOPin, datagram uint32) uint32

	// Sent records every datagram begun, in order.
	Sent []LoopbackTransfer

	busy bool
	last LoopbackTransfer
}

// LoopbackTransfer is one datagram seen by a LoopbackTransport
type LoopbackTransfer struct {
	CS       GPIOPin
	Datagram uint32
}

func (t *LoopbackTransport) SetCompletionHandler(handler func(response uint32)) {
	t.handler = handler
}

func (t *LoopbackTransport) Begin(cs GPIOPin, datagram uint32) {
	t.last = LoopbackTransfer{CS: cs, Datagram: datagram}
	t.Sent = append(t.Sent, t.last)
	t.busy = true
}

func (t *LoopbackTransport) EnableCompletion(enabled bool) {
	t.complete = enabled
}

// CompletionEnabled reports whether the completion interrupt is unmasked
func (t *LoopbackTransport) CompletionEnabled() bool {
	return t.complete
}

// Busy reports whether a transfer is in flight
func (t *LoopbackTransport) Busy() bool {
	return t.busy
}

// Complete finishes the transfer in flight, if any, and returns whether
// there was one.
func (t *LoopbackTransport) Complete() bool {
	if !t.busy {
		return false
	}
	t.busy = false
	var response uint32
	if t.Respond != nil {
		response = t.Respond(t.last.CS, t.last.Datagram)
	}
	if t.complete && t.handler != nil {
		t.handler(response)
	}
	return true
}

// Run completes up to n transfers and returns how many completed
func (t *LoopbackTransport) Run(n int) int {
	done := 0
	for done < n && t.Complete() {
		done++
	}
	return done
}

// EncodeResponse builds the 24 bits a chip clocks out for a 20-bit status
func EncodeResponse(status Status) uint32 {
	return (uint32(status) << 4) & 0xFFFFFF
}
