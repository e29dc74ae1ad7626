package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smartdrivers/config"
	"smartdrivers/core"
)

var printDefault bool

var checkCmd = &cobra.Command{
	Use:   "check [config.json]",
	Short: "Dry-run a board configuration through the driver core",
	Long: `Load a board configuration, apply it to the driver core with a loopback
bus, power the chain up and print every register datagram of the initial
resync, followed by the report lines the board would print.

Without a file the built-in default board is checked. Use --print-default
to get that configuration as a starting point.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&printDefault, "print-default", false, "Print the default board configuration and exit")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if printDefault {
		data, err := json.MarshalIndent(config.DefaultBoardConfig(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	cfg := config.DefaultBoardConfig()
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cfg, err = config.LoadConfig(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return checkBoard(out, cfg)
}

// hostGPIO stands in for the board's pins during a dry run
type hostGPIO struct {
	level map[core.GPIOPin]bool
}

func (g *hostGPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.level[pin] = false
	return nil
}

func (g *hostGPIO) ConfigureInput(pin core.GPIOPin) error {
	return nil
}

func (g *hostGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.level[pin] = value
	return nil
}

func (g *hostGPIO) ReadPin(pin core.GPIOPin) bool {
	return g.level[pin]
}

func checkBoard(w io.Writer, cfg *config.BoardConfig) error {
	gpio := &hostGPIO{level: make(map[core.GPIOPin]bool)}
	core.SetGPIODriver(gpio)

	enn, err := config.ParsePin(cfg.EnablePin)
	if err != nil {
		return err
	}
	bus := &core.LoopbackTransport{
		Respond: func(core.GPIOPin, uint32) uint32 {
			return core.EncodeResponse(core.StatusStandstill)
		},
	}
	sd := core.NewSmartDrivers(bus, nil, enn)
	if err := config.Apply(cfg, sd); err != nil {
		return fmt.Errorf("configuration rejected: %w", err)
	}

	driverOf := make(map[core.GPIOPin]int)
	pins, err := cfg.SelectPins()
	if err != nil {
		return err
	}
	for i, pin := range pins {
		driverOf[pin] = i
	}

	sd.Spin(true)
	resync := sd.NumDrivers() * int(core.NumRegisters)
	bus.Run(resync)

	fmt.Fprintf(w, "%d drivers, ENN gpio%d %s, chain at %d Hz\n\n",
		sd.NumDrivers(), enn, levelName(gpio.ReadPin(enn)), cfg.SPI.Rate)
	fmt.Fprintln(w, "resync datagrams:")
	for i, x := range bus.Sent[:resync] {
		fmt.Fprintf(w, "  %3d  driver %2d (gpio%-2d)  %-8s 0x%05X\n",
			i, driverOf[x.CS], x.CS, core.RegisterOf(x.Datagram), x.Datagram)
	}

	fmt.Fprintln(w, "\ndrivers:")
	for d := 0; d < sd.NumDrivers(); d++ {
		microsteps, interpolate := sd.GetMicrostepping(d)
		sg := core.SGCSConf(sd.GetRegister(d, core.StallGuardConfig))
		fmt.Fprintf(w, "  %2d: x%d interpolate=%v cs=%d mode=%s toff=%d enabled=%v\n",
			d, microsteps, interpolate, sg.CurrentScale(), sd.GetDriverMode(d), sd.GetOffTime(d), sd.IsEnabled(d))
	}

	fmt.Fprintln(w, "\nreports:")
	var line []byte
	for d := 0; d < sd.NumDrivers(); d++ {
		line = sd.AppendReport(line[:0], d)
		fmt.Fprintf(w, "  %s", line)
	}

	sd.Spin(false)
	bus.Complete()
	if sd.Running() {
		return fmt.Errorf("chain still running after power down")
	}
	return nil
}

func levelName(high bool) string {
	if high {
		return "high (drivers off)"
	}
	return "low (drivers on)"
}
