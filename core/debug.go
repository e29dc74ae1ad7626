package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ChainEvent captures a driver chain event for post-mortem analysis
type ChainEvent struct {
	EventType uint8  // Event type code
	Driver    uint8  // Driver index
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTransferStart = 1 // Value1=register, Value2=datagram
	EvtTransferDone  = 2 // Value1=decoded status
	EvtChainStop     = 3 // completion seen while unpowered
	EvtPowerUp       = 4
	EvtPowerDown     = 5
	EvtForceOff      = 6
	EvtChainStart    = 7
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring, written from both the control and interrupt contexts
	eventRing     [EventRingSize]ChainEvent
	eventRingHead atomic.Uint32
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from the completion interrupt.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures a chain event in the ring buffer.
// Safe to call from the completion interrupt.
func RecordEvent(eventType, driver uint8, value1, value2 uint32) {
	idx := (eventRingHead.Add(1) - 1) % EventRingSize
	eventRing[idx] = ChainEvent{
		EventType: eventType,
		Driver:    driver,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
}

// RecentEvents copies the ring into dst, oldest first, and returns the
// number of events copied.
func RecentEvents(dst []ChainEvent) int {
	start := eventRingHead.Load()
	n := 0
	for i := uint32(0); i < EventRingSize && n < len(dst); i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		dst[n] = evt
		n++
	}
	return n
}

func eventName(t uint8) string {
	switch t {
	case EvtTransferStart:
		return "XFER_START"
	case EvtTransferDone:
		return "XFER_DONE"
	case EvtChainStop:
		return "CHAIN_STOP"
	case EvtPowerUp:
		return "POWER_UP"
	case EvtPowerDown:
		return "POWER_DOWN"
	case EvtForceOff:
		return "FORCE_OFF!"
	case EvtChainStart:
		return "CHAIN_START"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	var events [EventRingSize]ChainEvent
	n := RecentEvents(events[:])

	debugPrintln("[TMC] === Event Ring Dump ===")
	var line []byte
	for _, evt := range events[:n] {
		line = append(line[:0], "[TMC] "...)
		line = append(line, eventName(evt.EventType)...)
		line = append(line, " drv="...)
		line = appendUint(line, uint32(evt.Driver))
		line = append(line, " clock="...)
		line = appendUint(line, evt.Clock)
		line = append(line, " v1=0x"...)
		line = appendHex(line, evt.Value1)
		line = append(line, " v2=0x"...)
		line = appendHex(line, evt.Value2)
		debugPrintln(string(line))
	}
	debugPrintln("[TMC] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = ChainEvent{}
	}
	eventRingHead.Store(0)
}
