//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"smartdrivers/config"
	"smartdrivers/core"
)

var errBadSPIBus = errors.New("spi bus must be 0 or 1")

// configureChainBus sets up the hardware SPI controller the driver chain
// runs on. The TMC2660 samples on the rising edge with the clock idling
// high (mode 3).
func configureChainBus(c config.SPIConfig) (*machine.SPI, error) {
	var bus *machine.SPI
	switch c.Bus {
	case 0:
		bus = machine.SPI0
	case 1:
		bus = machine.SPI1
	default:
		return nil, errBadSPIBus
	}

	sck, err := config.ParsePin(c.SCK)
	if err != nil {
		return nil, err
	}
	sdo, err := config.ParsePin(c.SDO)
	if err != nil {
		return nil, err
	}
	sdi, err := config.ParsePin(c.SDI)
	if err != nil {
		return nil, err
	}

	chain := core.DefaultChainSPIConfig()
	if c.Rate != 0 {
		chain.Rate = c.Rate
	}
	err = bus.Configure(machine.SPIConfig{
		Frequency: chain.Rate,
		SCK:       machine.Pin(sck),
		SDO:       machine.Pin(sdo),
		SDI:       machine.Pin(sdi),
		Mode:      uint8(chain.Mode),
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}
