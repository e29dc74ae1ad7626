package config

import (
	"errors"
	"testing"

	"smartdrivers/core"
)

type nopGPIO struct{}

func (nopGPIO) ConfigureOutput(core.GPIOPin) error { return nil }
func (nopGPIO) ConfigureInput(core.GPIOPin) error { return nil }
func (nopGPIO) SetPin(core.GPIOPin, bool) error { return nil }
func (nopGPIO) ReadPin(core.GPIOPin) bool { return false }

const testBoard = `{
	"enable_pin": "gpio8",
	"spi": {"bus": 1, "sck": "gpio10", "sdo": "gpio11", "sdi": "gpio12"},
	"drivers": [
		{"select_pin": "gpio20", "current_ma": 1500, "microsteps": 32, "enable": true},
		{"select_pin": "21", "axis": 0, "mode": "constant_off_time", "off_time": 6,
		 "stall_threshold": -5, "stall_filter": true, "coolstep": 41474}
	]
}`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(testBoard))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SPI.Rate != core.DriversSPIClockFrequency {
		t.Errorf("SPI rate = %d", cfg.SPI.Rate)
	}
	if cfg.ReportIntervalMS != 1000 || cfg.SpinIntervalMS != 10 {
		t.Errorf("intervals = %d/%d", cfg.ReportIntervalMS, cfg.SpinIntervalMS)
	}
	d := cfg.Drivers[1]
	if d.Current != 1000 || d.Microsteps != 16 || d.Interpolate == nil || !*d.Interpolate {
		t.Errorf("driver 1 defaults = %+v", d)
	}
	if d.StallMinStepsPerSec != core.DefaultMinimumStepsPerSec {
		t.Errorf("stall min steps = %d", d.StallMinStepsPerSec)
	}
	if *cfg.Drivers[0].StallThreshold != core.DefaultStallThreshold || *d.StallThreshold != -5 {
		t.Errorf("stall thresholds = %d/%d", *cfg.Drivers[0].StallThreshold, *d.StallThreshold)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"no drivers", `{"enable_pin": "gpio8"}`, ErrNoDrivers},
		{"bad enable pin", `{"enable_pin": "pa3", "drivers": [{"select_pin": "gpio1"}]}`, ErrBadPin},
		{"bad select pin", `{"enable_pin": "8", "drivers": [{"select_pin": ""}]}`, ErrBadPin},
		{"bad mode", `{"enable_pin": "8", "drivers": [{"select_pin": "1", "mode": "stealth"}]}`, ErrBadMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig([]byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig([]byte(`{`)); err == nil {
		t.Errorf("truncated JSON accepted")
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		in   string
		want core.GPIOPin
		ok   bool
	}{
		{"gpio17", 17, true},
		{"GPIO3", 3, true},
		{" 25 ", 25, true},
		{"gpio", 0, false},
		{"gpio300", 0, false},
		{"d5", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePin(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestApply(t *testing.T) {
	core.SetGPIODriver(nopGPIO{})
	cfg, err := LoadConfig([]byte(testBoard))
	if err != nil {
		t.Fatal(err)
	}

	sd := core.NewSmartDrivers(&core.LoopbackTransport{}, nil, 8)
	if err := Apply(cfg, sd); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if sd.NumDrivers() != 2 {
		t.Fatalf("NumDrivers() = %d", sd.NumDrivers())
	}
	if m, i := sd.GetMicrostepping(0); m != 32 || !i {
		t.Errorf("driver 0 microstepping = %d/%v", m, i)
	}
	if !sd.IsEnabled(0) || sd.IsEnabled(1) {
		t.Errorf("enable state = %v/%v", sd.IsEnabled(0), sd.IsEnabled(1))
	}
	if sd.GetDriverMode(1) != core.DriverModeConstantOffTime || sd.GetOffTime(1) != 6 {
		t.Errorf("driver 1 chopper = mode %d toff %d", sd.GetDriverMode(1), sd.GetOffTime(1))
	}
	want := "stall threshold -5, filter on, steps/sec 200, coolstep a202"
	if got := string(sd.AppendStallConfig(nil, 1)); got != want {
		t.Errorf("driver 1 stall config = %q, want %q", got, want)
	}
}

func TestApplyRejectsBadChopper(t *testing.T) {
	core.SetGPIODriver(nopGPIO{})
	cfg := DefaultBoardConfig()
	cfg.Drivers[2].ChopConf = 0x10000 // TBL set, TOFF=0

	sd := core.NewSmartDrivers(&core.LoopbackTransport{}, nil, 8)
	err := Apply(cfg, sd)
	if !errors.Is(err, core.ErrInvalidChopConf) {
		t.Fatalf("err = %v, want ErrInvalidChopConf", err)
	}
}

func TestDefaultBoardConfigValid(t *testing.T) {
	cfg := DefaultBoardConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	pins, err := cfg.SelectPins()
	if err != nil || len(pins) != 4 || pins[0] != 10 {
		t.Errorf("SelectPins() = %v, %v", pins, err)
	}
}
