package serial

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" || cfg.Baud != 115200 {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
}

func TestLines(t *testing.T) {
	sc := Lines(strings.NewReader("Driver 0: ok\r\nDriver 1: standstill\n"))
	var got []string
	for sc.Scan() {
		got = append(got, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != "Driver 1: standstill" {
		t.Errorf("lines = %q", got)
	}
}

func TestLinesTooLong(t *testing.T) {
	sc := Lines(strings.NewReader(strings.Repeat("x", 2000) + "\n"))
	for sc.Scan() {
	}
	if sc.Err() == nil {
		t.Errorf("overlong line not reported")
	}
}

func TestSortPorts(t *testing.T) {
	ports := []string{"/dev/ttyS1", "/dev/ttyACM1", "/dev/ttyS0", "/dev/cu.usbmodem1101", "/dev/ttyACM0"}
	sortPorts(ports)
	want := []string{"/dev/cu.usbmodem1101", "/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyS0", "/dev/ttyS1"}
	for i := range want {
		if ports[i] != want[i] {
			t.Fatalf("sortPorts = %q, want %q", ports, want)
		}
	}
}
