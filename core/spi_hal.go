package core

// SPIBusID identifies a hardware SPI bus configuration
type SPIBusID uint8

// SPIMode represents SPI clock polarity and phase (0-3)
// Mode 0: CPOL=0, CPHA=0 (clock idle low, sample on rising edge)
// Mode 1: CPOL=0, CPHA=1 (clock idle low, sample on falling edge)
// Mode 2: CPOL=1, CPHA=0 (clock idle high, sample on falling edge)
// Mode 3: CPOL=1, CPHA=1 (clock idle high, sample on rising edge)
// The TMC2660 wants mode 3.
type SPIMode uint8

// SPIConfig holds the configuration for the driver chain bus
type SPIConfig struct {
	BusID SPIBusID // Hardware bus identifier
	Mode  SPIMode  // SPI mode (0-3)
	Rate  uint32   // Clock rate in Hz
}

// DriversSPIClockFrequency trades CPU time spent polling against stall
// detection latency. At 2MHz ten drivers are polled in about 170us.
const DriversSPIClockFrequency = 2000000

// DefaultChainSPIConfig returns the bus settings the TMC2660 chain uses
func DefaultChainSPIConfig() SPIConfig {
	return SPIConfig{
		BusID: 0,
		Mode:  3,
		Rate:  DriversSPIClockFrequency,
	}
}

// ChainTransport is the hardware boundary of the driver chain: one
// synchronous serial peripheral that exchanges a single 24-bit word per
// transfer and signals completion from interrupt context.
type ChainTransport interface {
	// SetCompletionHandler installs the function called once per finished
	// transfer with the 24 bits clocked in. The select line has already
	// been released when it runs.
	SetCompletionHandler(handler func(response uint32))

	// Begin asserts cs and starts shifting out datagram. It must not
	// block waiting for the transfer to finish.
	Begin(cs GPIOPin, datagram uint32)

	// EnableCompletion unmasks or masks the completion interrupt.
	EnableCompletion(enabled bool)
}
