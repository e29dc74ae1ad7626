// Package report parses the driver report lines a board prints, one per
// driver:
//
//	Driver 2: standstill, SG min/max 120/410, stall threshold 1, filter off, steps/sec 200, coolstep 0
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"smartdrivers/core"
)

var ErrNotReport = errors.New("not a driver report")

// Report is one parsed driver report line
type Report struct {
	Driver int
	Flags  core.Status // fault bits named in the line, stall excluded

	LoadValid bool
	LoadMin   uint32
	LoadMax   uint32

	HasStallConfig bool
	StallThreshold int
	StallFilter    bool
	StepsPerSec    uint32
	CoolStep       uint16
}

var statusWords = map[string]core.Status{
	"temperature-shutdown!": core.StatusOverTemp,
	"temperature-warning":   core.StatusOverTempWarning,
	"short-to-ground":       core.StatusShortToGround,
	"open-load-A":           core.StatusOpenLoadA,
	"open-load-B":           core.StatusOpenLoadB,
	"standstill":            core.StatusStandstill,
	"ok":                    0,
}

// Faults are the flags that need attention. Standstill and open load at
// standstill are normal.
const Faults = core.StatusOverTemp | core.StatusOverTempWarning | core.StatusShortToGround |
	core.StatusOpenLoadA | core.StatusOpenLoadB

// Faulty reports whether any fault flag is set
func (r *Report) Faulty() bool {
	return r.Flags&Faults != 0
}

// Critical reports whether the driver has shut down or shorted
func (r *Report) Critical() bool {
	return r.Flags&(core.StatusOverTemp|core.StatusShortToGround) != 0
}

// FaultNames lists the fault flags in report order
func (r *Report) FaultNames() []string {
	var names []string
	for _, f := range []struct {
		flag core.Status
		name string
	}{
		{core.StatusOverTemp, "temperature-shutdown"},
		{core.StatusOverTempWarning, "temperature-warning"},
		{core.StatusShortToGround, "short-to-ground"},
		{core.StatusOpenLoadA, "open-load-A"},
		{core.StatusOpenLoadB, "open-load-B"},
	} {
		if r.Flags&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

// Parse parses one report line. Lines that are not driver reports return
// ErrNotReport so a caller can pass other console output through.
func Parse(line string) (Report, error) {
	var r Report

	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "Driver ")
	if !ok {
		return r, ErrNotReport
	}
	num, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return r, ErrNotReport
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return r, ErrNotReport
	}
	r.Driver = n

	parts := strings.Split(rest, ", ")
	for _, word := range strings.Fields(parts[0]) {
		flag, known := statusWords[word]
		if !known {
			return r, fmt.Errorf("driver %d: unknown status %q", n, word)
		}
		r.Flags |= flag
	}

	for _, part := range parts[1:] {
		if err := r.parseField(part); err != nil {
			return r, fmt.Errorf("driver %d: %w", n, err)
		}
	}
	return r, nil
}

func (r *Report) parseField(part string) error {
	key, value, err := splitField(part)
	if err != nil {
		return err
	}
	switch key {
	case "SG min/max":
		if value == "not available" {
			return nil
		}
		a, b, ok := strings.Cut(value, "/")
		if !ok {
			return fmt.Errorf("bad load range %q", value)
		}
		lo, err1 := strconv.ParseUint(a, 10, 32)
		hi, err2 := strconv.ParseUint(b, 10, 32)
		if err := errors.Join(err1, err2); err != nil {
			return fmt.Errorf("bad load range %q: %w", value, err)
		}
		r.LoadValid = true
		r.LoadMin, r.LoadMax = uint32(lo), uint32(hi)
	case "stall threshold":
		t, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad stall threshold: %w", err)
		}
		r.HasStallConfig = true
		r.StallThreshold = t
	case "filter":
		r.StallFilter = value == "on"
	case "steps/sec":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("bad steps/sec: %w", err)
		}
		r.StepsPerSec = uint32(v)
	case "coolstep":
		v, err := strconv.ParseUint(value, 16, 16)
		if err != nil {
			return fmt.Errorf("bad coolstep: %w", err)
		}
		r.CoolStep = uint16(v)
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

// splitField splits "stall threshold -3" into its key and value. Values
// never contain spaces except "not available".
func splitField(part string) (key, value string, err error) {
	if k, ok := strings.CutSuffix(part, " not available"); ok {
		return k, "not available", nil
	}
	i := strings.LastIndexByte(part, ' ')
	if i <= 0 {
		return "", "", fmt.Errorf("bad field %q", part)
	}
	return part[:i], part[i+1:], nil
}
