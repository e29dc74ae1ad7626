package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"smartdrivers/core"
)

// BoardConfig describes one TMC2660 board: the shared enable line, the
// chain bus, and one entry per driver in chain order.
type BoardConfig struct {
	EnablePin string `json:"enable_pin"`
	// PowerPin reads high while motor power is present. Empty means the
	// drivers are always treated as powered.
	PowerPin string `json:"power_pin,omitempty"`

	SPI SPIConfig `json:"spi"`

	ReportIntervalMS uint32 `json:"report_interval_ms"`
	SpinIntervalMS   uint32 `json:"spin_interval_ms"`
	Debug            bool   `json:"debug,omitempty"`

	Drivers []DriverConfig `json:"drivers"`
}

// SPIConfig holds the chain bus pins and clock
type SPIConfig struct {
	Bus  uint8  `json:"bus"`
	SCK  string `json:"sck"`
	SDO  string `json:"sdo"`
	SDI  string `json:"sdi"`
	Rate uint32 `json:"rate"`
}

// DriverConfig is the startup configuration of one driver
type DriverConfig struct {
	SelectPin string  `json:"select_pin"`
	StepPin   string  `json:"step_pin,omitempty"` // watched for stall gating
	Axis      *uint32 `json:"axis,omitempty"`

	Current     float32 `json:"current_ma"`
	Microsteps  uint32  `json:"microsteps"`
	Interpolate *bool   `json:"interpolate,omitempty"`

	// ChopConf replaces the whole chopper register when non-zero. OffTime
	// and Mode are applied on top of it.
	ChopConf uint32 `json:"chopconf,omitempty"`
	OffTime  uint32 `json:"off_time,omitempty"`
	Mode     string `json:"mode,omitempty"`

	StallThreshold      *int   `json:"stall_threshold,omitempty"`
	StallFilter         bool   `json:"stall_filter,omitempty"`
	StallMinStepsPerSec uint32 `json:"stall_min_steps_per_sec"`
	CoolStep            uint16 `json:"coolstep,omitempty"`
	Enable              bool   `json:"enable,omitempty"`
}

var (
	ErrNoDrivers = errors.New("no drivers configured")
	ErrBadPin    = errors.New("bad pin name")
	ErrBadMode   = errors.New("unknown driver mode")
)

// LoadConfig parses a JSON board configuration and fills in defaults
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *BoardConfig) {
	if config.SPI.Rate == 0 {
		config.SPI.Rate = core.DriversSPIClockFrequency
	}
	if config.ReportIntervalMS == 0 {
		config.ReportIntervalMS = 1000
	}
	if config.SpinIntervalMS == 0 {
		config.SpinIntervalMS = 10
	}

	for i := range config.Drivers {
		d := &config.Drivers[i]
		if d.Current == 0 {
			d.Current = 1000.0 // 1A
		}
		if d.Microsteps == 0 {
			d.Microsteps = 1 << core.DefaultMicrostepShift
		}
		if d.Interpolate == nil {
			interpolate := core.DefaultInterpolation
			d.Interpolate = &interpolate
		}
		if d.StallThreshold == nil {
			threshold := core.DefaultStallThreshold
			d.StallThreshold = &threshold
		}
		if d.StallMinStepsPerSec == 0 {
			d.StallMinStepsPerSec = core.DefaultMinimumStepsPerSec
		}
	}
}

// Validate checks the parts of the configuration that Apply cannot
func (c *BoardConfig) Validate() error {
	if len(c.Drivers) == 0 {
		return ErrNoDrivers
	}
	if len(c.Drivers) > core.MaxSmartDrivers {
		return fmt.Errorf("%d drivers configured, at most %d supported", len(c.Drivers), core.MaxSmartDrivers)
	}
	if _, err := ParsePin(c.EnablePin); err != nil {
		return fmt.Errorf("enable_pin: %w", err)
	}
	if c.PowerPin != "" {
		if _, err := ParsePin(c.PowerPin); err != nil {
			return fmt.Errorf("power_pin: %w", err)
		}
	}
	for i, d := range c.Drivers {
		if _, err := ParsePin(d.SelectPin); err != nil {
			return fmt.Errorf("driver %d select_pin: %w", i, err)
		}
		if d.StepPin != "" {
			if _, err := ParsePin(d.StepPin); err != nil {
				return fmt.Errorf("driver %d step_pin: %w", i, err)
			}
		}
		if _, err := ParseDriverMode(d.Mode); err != nil {
			return fmt.Errorf("driver %d: %w", i, err)
		}
	}
	return nil
}

// ParsePin converts a pin name such as "gpio17" or "17" to a pin number
func ParsePin(name string) (core.GPIOPin, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrBadPin, name)
	}
	return core.GPIOPin(n), nil
}

// ParseDriverMode maps a mode name to a chopper mode. The empty name keeps
// the default spreadCycle chopper.
func ParseDriverMode(name string) (core.DriverMode, error) {
	switch strings.ToLower(name) {
	case "", "spreadcycle":
		return core.DriverModeSpreadCycle, nil
	case "constant_off_time", "constantofftime":
		return core.DriverModeConstantOffTime, nil
	case "random_off_time", "randomofftime":
		return core.DriverModeRandomOffTime, nil
	default:
		return core.DriverModeUnknown, fmt.Errorf("%w %q", ErrBadMode, name)
	}
}

// SelectPins returns the chain select pins in driver order
func (c *BoardConfig) SelectPins() ([]core.GPIOPin, error) {
	pins := make([]core.GPIOPin, len(c.Drivers))
	for i, d := range c.Drivers {
		pin, err := ParsePin(d.SelectPin)
		if err != nil {
			return nil, fmt.Errorf("driver %d select_pin: %w", i, err)
		}
		pins[i] = pin
	}
	return pins, nil
}

// Apply initialises sd from the configuration. It stops at the first
// setting a driver rejects.
func Apply(c *BoardConfig, sd *core.SmartDrivers) error {
	pins, err := c.SelectPins()
	if err != nil {
		return err
	}
	if err := sd.Init(pins, len(pins)); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	for i, d := range c.Drivers {
		if err := applyDriver(sd, i, &d); err != nil {
			return fmt.Errorf("driver %d: %w", i, err)
		}
	}
	return nil
}

func applyDriver(sd *core.SmartDrivers, i int, d *DriverConfig) error {
	if d.Axis != nil {
		sd.SetAxisNumber(i, *d.Axis)
	}
	sd.SetCurrent(i, d.Current)

	interpolate := core.DefaultInterpolation
	if d.Interpolate != nil {
		interpolate = *d.Interpolate
	}
	if err := sd.SetMicrostepping(i, d.Microsteps, interpolate); err != nil {
		return err
	}

	if d.ChopConf != 0 {
		if err := sd.SetChopperControlRegister(i, d.ChopConf); err != nil {
			return err
		}
	}
	if d.OffTime != 0 {
		if err := sd.SetOffTime(i, d.OffTime); err != nil {
			return err
		}
	}
	if d.Mode != "" {
		mode, err := ParseDriverMode(d.Mode)
		if err != nil {
			return err
		}
		if err := sd.SetDriverMode(i, mode); err != nil {
			return err
		}
	}

	threshold := core.DefaultStallThreshold
	if d.StallThreshold != nil {
		threshold = *d.StallThreshold
	}
	sd.SetStallThreshold(i, threshold)
	sd.SetStallFilter(i, d.StallFilter)
	sd.SetStallMinimumStepsPerSecond(i, d.StallMinStepsPerSec)
	if d.CoolStep != 0 {
		sd.SetCoolStep(i, d.CoolStep)
	}
	sd.EnableDrive(i, d.Enable)
	return nil
}

// DefaultBoardConfig returns a four driver board with the chain on SPI0
func DefaultBoardConfig() *BoardConfig {
	config := &BoardConfig{
		EnablePin: "gpio8",
		PowerPin:  "gpio9",
		SPI: SPIConfig{
			Bus: 0,
			SCK: "gpio18",
			SDO: "gpio19",
			SDI: "gpio16",
		},
		Drivers: []DriverConfig{
			{SelectPin: "gpio10", StepPin: "gpio0", Enable: true},
			{SelectPin: "gpio11", StepPin: "gpio1", Enable: true},
			{SelectPin: "gpio12", StepPin: "gpio2", Enable: true},
			{SelectPin: "gpio13", StepPin: "gpio3", Enable: true},
		},
	}
	applyDefaults(config)
	return config
}
