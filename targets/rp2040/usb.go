//go:build rp2040 || rp2350

package main

import (
	"machine"
	"strconv"

	"smartdrivers/core"
)

var (
	console = core.NewConsoleFifo(1024)

	consecutiveWriteFailures uint32
	usbWasDisconnected       bool
)

// InitUSB configures machine.Serial, which is USB CDC on the RP2040
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// writeUSB drains queued console output. After repeated failures the
// host is treated as gone and the queue is discarded so it does not
// receive stale reports on reconnect.
func writeUSB() {
	if console.Available() == 0 {
		return
	}
	before := console.Available()
	err := console.Drain(machine.Serial.Write)
	if err == nil && console.Available() < before {
		consecutiveWriteFailures = 0
		if usbWasDisconnected {
			usbWasDisconnected = false
			writeLine("console reconnected, " + strconv.Itoa(int(console.Dropped())) + " lines dropped")
		}
		return
	}
	consecutiveWriteFailures++
	if consecutiveWriteFailures > 10 {
		usbWasDisconnected = true
		consecutiveWriteFailures = 0
		console.Reset()
	}
}

// writeLine is the debug writer: one message per line
func writeLine(s string) {
	var buf [128]byte
	b := append(buf[:0], s...)
	console.WriteLine(append(b, '\n'))
}
