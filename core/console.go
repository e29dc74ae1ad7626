package core

// ConsoleFifo queues console output between the code that produces report
// lines and the loop that drains them to the host link. Lines are queued
// whole or not at all, so a slow host loses lines rather than getting
// torn ones.
type ConsoleFifo struct {
	buf     []byte
	read    int
	write   int
	size    int
	dropped uint32
}

// NewConsoleFifo creates a FIFO holding up to capacity-1 bytes
func NewConsoleFifo(capacity int) *ConsoleFifo {
	return &ConsoleFifo{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// WriteLine queues line if it fits entirely, otherwise drops it and
// returns false
func (f *ConsoleFifo) WriteLine(line []byte) bool {
	if len(line) > f.Free() {
		f.dropped++
		return false
	}
	for _, b := range line {
		f.buf[f.write] = b
		f.write = (f.write + 1) % f.size
	}
	return true
}

// Available returns the number of queued bytes
func (f *ConsoleFifo) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the room left for new lines
func (f *ConsoleFifo) Free() int {
	return f.size - f.Available() - 1
}

// Dropped returns the number of lines that did not fit
func (f *ConsoleFifo) Dropped() uint32 {
	return f.dropped
}

// Drain hands the queued bytes to write in at most two contiguous chunks
// and pops what write accepted. It stops at the first short write.
func (f *ConsoleFifo) Drain(write func([]byte) (int, error)) error {
	for f.read != f.write {
		end := f.write
		if f.read > f.write {
			end = f.size
		}
		chunk := f.buf[f.read:end]
		n, err := write(chunk)
		f.read = (f.read + n) % f.size
		if err != nil {
			return err
		}
		if n < len(chunk) {
			return nil
		}
	}
	return nil
}

// Reset discards everything queued
func (f *ConsoleFifo) Reset() {
	f.read = 0
	f.write = 0
}
