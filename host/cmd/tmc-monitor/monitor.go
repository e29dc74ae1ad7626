package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"smartdrivers/core"
	"smartdrivers/host/report"
	"smartdrivers/host/serial"
)

var (
	faultsOnly    bool
	statsInterval int
	noColor       bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow driver reports and flag faults",
	Long: `Follow the driver report lines printed by a board.

Every report is shown with a timestamp. Fault flags are highlighted, and a
change in a driver's flags is called out on its own line. Other console
output from the board is passed through unless --faults-only is given.

A per-driver summary (reports seen, reports with faults, stallGuard2 load
range) is printed every --stats-interval seconds and on exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&faultsOnly, "faults-only", false, "Only show reports with faults and flag changes")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 60, "Summary interval in seconds (0 disables)")
	monitorCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg := serial.DefaultConfig(portName)
	cfg.Baud = baudRate
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	device := portName
	if d, ok := port.(interface{ Device() string }); ok {
		device = d.Device()
	}
	if err := port.Flush(); err != nil {
		log.Printf("flush %s: %v", device, err)
	}

	log.Printf("Monitoring %s @ %d baud, Ctrl+C to exit", device, baudRate)
	color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
	m := newMonitor(cmd.OutOrStdout(), color)
	m.faultsOnly = faultsOnly
	m.statsEvery = time.Duration(statsInterval) * time.Second

	err = m.run(port)
	m.printSummary()
	return err
}

type driverStats struct {
	reports  int
	faults   int
	loadSeen bool
	loadMin  uint32
	loadMax  uint32
}

type monitorStyles struct {
	critical lipgloss.Style
	fault    lipgloss.Style
	change   lipgloss.Style
	header   lipgloss.Style
}

func newMonitorStyles(out io.Writer, color bool) monitorStyles {
	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return monitorStyles{
		critical: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		fault:    r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		change:   r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		header:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

type monitor struct {
	out        io.Writer
	styles     monitorStyles
	faultsOnly bool
	statsEvery time.Duration
	now        func() time.Time

	lastStats time.Time
	lastFlags map[int]core.Status
	stats     map[int]*driverStats
}

func newMonitor(out io.Writer, color bool) *monitor {
	m := &monitor{
		out:       out,
		styles:    newMonitorStyles(out, color),
		now:       time.Now,
		lastFlags: make(map[int]core.Status),
		stats:     make(map[int]*driverStats),
	}
	m.lastStats = m.now()
	return m
}

func (m *monitor) run(r io.Reader) error {
	sc := serial.Lines(r)
	for sc.Scan() {
		m.handleLine(sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading reports: %w", err)
	}
	return nil
}

func (m *monitor) handleLine(line string) {
	now := m.now()
	timestamp := now.Format("15:04:05.000")
	line = strings.TrimRight(line, "\r")

	r, err := report.Parse(line)
	switch {
	case errors.Is(err, report.ErrNotReport):
		if !m.faultsOnly && line != "" {
			fmt.Fprintf(m.out, "[%s] %s\n", timestamp, line)
		}
		return
	case err != nil:
		fmt.Fprintf(m.out, "[%s] %s %v\n", timestamp, m.styles.critical.Render("PARSE ERROR:"), err)
		return
	}

	m.record(&r)

	prev, seen := m.lastFlags[r.Driver]
	m.lastFlags[r.Driver] = r.Flags
	if seen && prev&report.Faults != r.Flags&report.Faults {
		fmt.Fprintf(m.out, "[%s] %s driver %d %s -> %s\n",
			timestamp, m.styles.change.Render("CHANGE:"), r.Driver, describeFlags(prev), describeFlags(r.Flags))
	}

	switch {
	case r.Critical():
		fmt.Fprintf(m.out, "[%s] %s %s\n", timestamp, m.styles.critical.Render("CRITICAL:"), line)
	case r.Faulty():
		fmt.Fprintf(m.out, "[%s] %s %s\n", timestamp, m.styles.fault.Render("FAULT:"), line)
	case !m.faultsOnly:
		fmt.Fprintf(m.out, "[%s] %s\n", timestamp, line)
	}

	if m.statsEvery > 0 && now.Sub(m.lastStats) >= m.statsEvery {
		m.printSummary()
		m.lastStats = now
	}
}

func (m *monitor) record(r *report.Report) {
	s := m.stats[r.Driver]
	if s == nil {
		s = &driverStats{}
		m.stats[r.Driver] = s
	}
	s.reports++
	if r.Faulty() {
		s.faults++
	}
	if r.LoadValid {
		if !s.loadSeen || r.LoadMin < s.loadMin {
			s.loadMin = r.LoadMin
		}
		if !s.loadSeen || r.LoadMax > s.loadMax {
			s.loadMax = r.LoadMax
		}
		s.loadSeen = true
	}
}

func (m *monitor) printSummary() {
	if len(m.stats) == 0 {
		return
	}
	drivers := make([]int, 0, len(m.stats))
	for d := range m.stats {
		drivers = append(drivers, d)
	}
	sort.Ints(drivers)

	fmt.Fprintln(m.out, m.styles.header.Render("--- driver summary ---"))
	for _, d := range drivers {
		s := m.stats[d]
		load := "n/a"
		if s.loadSeen {
			load = fmt.Sprintf("%d..%d", s.loadMin, s.loadMax)
		}
		fmt.Fprintf(m.out, "driver %2d: %d reports, %d with faults, SG load %s\n", d, s.reports, s.faults, load)
	}
}

func describeFlags(flags core.Status) string {
	r := report.Report{Flags: flags}
	names := r.FaultNames()
	if len(names) == 0 {
		return "ok"
	}
	return strings.Join(names, "+")
}
