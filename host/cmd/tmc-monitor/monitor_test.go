package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"smartdrivers/config"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestMonitorHighlightsFaults(t *testing.T) {
	var out bytes.Buffer
	m := newMonitor(&out, false)
	m.now = fixedClock()

	input := strings.Join([]string{
		"Motor power on",
		"Driver 0: ok, SG min/max 100/200",
		"Driver 1: standstill, SG min/max not available",
		"Driver 0: temperature-warning, SG min/max 150/300",
		"Driver 1: short-to-ground, SG min/max not available",
		"Driver 2: melting",
	}, "\r\n") + "\r\n"
	if err := m.run(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}

	got := out.String()
	for _, want := range []string{
		"[12:00:00.000] Motor power on\n",
		"[12:00:00.000] Driver 0: ok, SG min/max 100/200\n",
		"CHANGE: driver 0 ok -> temperature-warning",
		"FAULT: Driver 0: temperature-warning",
		"CHANGE: driver 1 ok -> short-to-ground",
		"CRITICAL: Driver 1: short-to-ground",
		"PARSE ERROR:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	s := m.stats[0]
	if s.reports != 2 || s.faults != 1 || s.loadMin != 100 || s.loadMax != 300 {
		t.Errorf("driver 0 stats = %+v", *s)
	}
	if m.stats[1].loadSeen {
		t.Errorf("driver 1 has a load range")
	}

	out.Reset()
	m.printSummary()
	if !strings.Contains(out.String(), "driver  0: 2 reports, 1 with faults, SG load 100..300") ||
		!strings.Contains(out.String(), "driver  1: 2 reports, 1 with faults, SG load n/a") {
		t.Errorf("summary:\n%s", out.String())
	}
}

func TestMonitorFaultsOnly(t *testing.T) {
	var out bytes.Buffer
	m := newMonitor(&out, false)
	m.now = fixedClock()
	m.faultsOnly = true

	m.handleLine("booting")
	m.handleLine("Driver 0: ok, SG min/max not available")
	if out.Len() != 0 {
		t.Errorf("faults-only printed %q", out.String())
	}
	m.handleLine("Driver 0: open-load-A, SG min/max not available")
	if !strings.Contains(out.String(), "FAULT:") {
		t.Errorf("fault not shown: %q", out.String())
	}
}

func TestMonitorColor(t *testing.T) {
	var out bytes.Buffer
	m := newMonitor(&out, true)
	m.now = fixedClock()

	m.handleLine("Driver 4: temperature-shutdown!, SG min/max not available")
	if !strings.Contains(out.String(), "\033[") || !strings.Contains(out.String(), "CRITICAL:") {
		t.Errorf("critical line not colored: %q", out.String())
	}
}

func TestCheckDefaultBoard(t *testing.T) {
	var out bytes.Buffer
	if err := checkBoard(&out, config.DefaultBoardConfig()); err != nil {
		t.Fatalf("checkBoard failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"4 drivers, ENN gpio8 low (drivers on)",
		"driver  0 (gpio10)  DRVCTRL  0x00204",
		"driver  3 (gpio13)  SMARTEN  0xA0000",
		"x16 interpolate=true cs=9 mode=spreadcycle toff=4 enabled=true",
		"Driver 3: standstill, SG min/max not available, stall threshold 1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "DRVCTRL"); n != 4 {
		t.Errorf("%d DRVCTRL datagrams, want 4", n)
	}
}

func TestCheckBadSelectPin(t *testing.T) {
	cfg := config.DefaultBoardConfig()
	cfg.Drivers[2].SelectPin = "pb7"

	var out bytes.Buffer
	err := checkBoard(&out, cfg)
	if err == nil || !strings.Contains(err.Error(), "driver 2 select_pin") {
		t.Fatalf("checkBoard error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote a report for a rejected board: %q", out.String())
	}
}
