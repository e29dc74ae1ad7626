package main

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int
)

var rootCmd = &cobra.Command{
	Use:   "tmc-monitor",
	Short: "TMC2660 driver board monitor",
	Long: `tmc-monitor - watch and check TMC2660 smart driver boards.

The board prints one report line per driver on its console at a fixed
interval. monitor follows those lines and highlights driver faults; check
runs a board configuration through the driver core without hardware and
prints the register datagrams it would send.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "/dev/ttyACM0", "Serial port device, or \"auto\" for the first USB CDC port")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (ignored for USB CDC)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
