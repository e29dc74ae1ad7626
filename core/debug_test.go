package core

import (
	"strings"
	"testing"
)

func TestAppendNumbers(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"zero", appendUint(nil, 0), "0"},
		{"uint max", appendUint(nil, 4294967295), "4294967295"},
		{"negative", appendInt(nil, -64), "-64"},
		{"positive", appendInt([]byte("t="), 63), "t=63"},
		{"hex zero", appendHex(nil, 0), "0"},
		{"hex", appendHex(nil, 0xA8202), "a8202"},
		{"itoa", []byte(itoa(-12)), "-12"},
	}
	for _, tt := range tests {
		if string(tt.got) != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestTimerConversion(t *testing.T) {
	if got := TimerFromUS(10); got != 120 {
		t.Errorf("TimerFromUS(10) = %d, want 120", got)
	}
	if got := TimerToUS(TimerFreq); got != 1000000 {
		t.Errorf("TimerToUS(TimerFreq) = %d", got)
	}
	SetTime(42)
	if GetTime() != 42 {
		t.Errorf("GetTime() = %d after SetTime(42)", GetTime())
	}
}

func TestEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	SetTime(100)
	RecordEvent(EvtPowerUp, 0, 2, 0)
	RecordEvent(EvtTransferStart, 1, uint32(DriveControl), 0x204)

	var events [EventRingSize]ChainEvent
	n := RecentEvents(events[:])
	if n != 2 {
		t.Fatalf("RecentEvents = %d, want 2", n)
	}
	if events[0].EventType != EvtPowerUp || events[1].Driver != 1 || events[1].Clock != 100 {
		t.Errorf("events out of order: %+v", events[:n])
	}

	// wrap the ring; only the newest EventRingSize survive, oldest first
	for i := 0; i < EventRingSize+5; i++ {
		RecordEvent(EvtTransferDone, 0, uint32(i), 0)
	}
	n = RecentEvents(events[:])
	if n != EventRingSize {
		t.Fatalf("RecentEvents after wrap = %d", n)
	}
	if events[0].Value1 != 5 || events[n-1].Value1 != EventRingSize+4 {
		t.Errorf("wrapped ring spans %d..%d", events[0].Value1, events[n-1].Value1)
	}
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()
	defer SetDebugWriter(func(string) {})

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	RecordEvent(EvtForceOff, 3, 0x1F, 0)
	DumpEventRing()

	if len(lines) != 3 {
		t.Fatalf("dump wrote %d lines: %q", len(lines), lines)
	}
	if !strings.Contains(lines[1], "FORCE_OFF! drv=3") || !strings.Contains(lines[1], "v1=0x1f") {
		t.Errorf("dump line = %q", lines[1])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	var got []string
	SetDebugWriter(func(s string) { got = append(got, s) })
	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(got) != 1 || got[0] != "shown" {
		t.Errorf("debug output = %q", got)
	}
}
