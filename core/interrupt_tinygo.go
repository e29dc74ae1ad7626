//go:build tinygo

package core

import "runtime/interrupt"

type irqFlags = interrupt.State

// irqSave masks interrupts and returns the previous mask
func irqSave() irqFlags {
	return interrupt.Disable()
}

// irqRestore restores the mask returned by irqSave
func irqRestore(flags irqFlags) {
	interrupt.Restore(flags)
}
