//go:build !tinygo

package core

// irqFlags stands in for the saved interrupt mask on regular Go
type irqFlags uintptr

// irqSave is a no-op on regular Go, where the completion "interrupt" is
// delivered by the caller of the transport.
func irqSave() irqFlags {
	return 0
}

// irqRestore is a no-op on regular Go
func irqRestore(flags irqFlags) {}
