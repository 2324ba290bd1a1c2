// Package interrupt holds the two shared interrupt-request lines that
// connect the PPU, APU, and CPU. They are plain indexed cells: the engine
// owns one Lines value and hands pointers to it to each component, rather
// than routing interrupts through callbacks or package-level globals.
package interrupt

// Lines is NMI (edge-triggered, raised by the PPU entering vertical blank)
// and IRQ (level-triggered, raised by the APU frame counter and DMC
// channel, acknowledged by the CPU servicing it).
type Lines struct {
	NMI bool
	IRQ bool
}
