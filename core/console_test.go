package core

import (
	"errors"
	"testing"
)

func TestConsoleFifo(t *testing.T) {
	fifo := NewConsoleFifo(10)

	if fifo.Available() != 0 || fifo.Free() != 9 {
		t.Errorf("empty FIFO: available %d free %d", fifo.Available(), fifo.Free())
	}

	if !fifo.WriteLine([]byte("abcd\n")) {
		t.Fatal("5 byte line rejected")
	}
	if fifo.WriteLine([]byte("toolong\n")) {
		t.Error("line larger than free space accepted")
	}
	if fifo.Dropped() != 1 || fifo.Available() != 5 {
		t.Errorf("after drop: dropped %d available %d", fifo.Dropped(), fifo.Available())
	}

	var out []byte
	err := fifo.Drain(func(b []byte) (int, error) {
		out = append(out, b...)
		return len(b), nil
	})
	if err != nil || string(out) != "abcd\n" {
		t.Errorf("Drain = %q, %v", out, err)
	}
	if fifo.Available() != 0 {
		t.Errorf("Available after drain = %d", fifo.Available())
	}
}

func TestConsoleFifoWrap(t *testing.T) {
	fifo := NewConsoleFifo(8)
	fifo.WriteLine([]byte("12345\n"))
	fifo.Drain(func(b []byte) (int, error) { return len(b), nil })

	// Wraps past the end of the ring
	if !fifo.WriteLine([]byte("abcdef\n")) {
		t.Fatal("wrapped line rejected")
	}

	var chunks []string
	fifo.Drain(func(b []byte) (int, error) {
		chunks = append(chunks, string(b))
		return len(b), nil
	})
	if len(chunks) != 2 || chunks[0]+chunks[1] != "abcdef\n" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestConsoleFifoShortWrite(t *testing.T) {
	fifo := NewConsoleFifo(16)
	fifo.WriteLine([]byte("hello\n"))

	fifo.Drain(func(b []byte) (int, error) { return 2, nil })
	if fifo.Available() != 4 {
		t.Errorf("Available after short write = %d, want 4", fifo.Available())
	}

	errLink := errors.New("link down")
	if err := fifo.Drain(func(b []byte) (int, error) { return 1, errLink }); err != errLink {
		t.Errorf("Drain err = %v", err)
	}
	if fifo.Available() != 3 {
		t.Errorf("Available after failed write = %d, want 3", fifo.Available())
	}

	fifo.Reset()
	if fifo.Available() != 0 {
		t.Error("Reset left data queued")
	}
}
