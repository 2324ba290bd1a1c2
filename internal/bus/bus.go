// Package bus implements the system bus connecting CPU, PPU, APU, the
// cartridge, and controller input, and drives the per-cycle ticked access
// pattern the CPU core requires.
package bus

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/interrupt"
	"gones/internal/ppu"
)

// cartAdapter narrows *cartridge.Cartridge to the ppu.Cartridge interface,
// translating cartridge.MirrorMode to ppu.MirrorMode. The two enums share
// the same member order by construction; only the named type differs, so
// this is a reinterpretation, not a remapping table.
type cartAdapter struct {
	cart *cartridge.Cartridge
}

func (a cartAdapter) ReadCHR(address uint16) uint8         { return a.cart.ReadCHR(address) }
func (a cartAdapter) WriteCHR(address uint16, value uint8) { a.cart.WriteCHR(address, value) }
func (a cartAdapter) Mirroring() ppu.MirrorMode             { return ppu.MirrorMode(a.cart.Mirroring()) }

// Bus owns the 2KB of internal RAM and every other NES component, and is
// the sole path the CPU uses to touch memory.
type Bus struct {
	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.InputState

	cart *cartridge.Cartridge

	ram [0x800]uint8

	lines *interrupt.Lines

	cpuCycles uint64
}

// New creates a bus with no cartridge loaded. LoadCartridge must be called
// before Reset for CPU execution to do anything meaningful.
func New() *Bus {
	b := &Bus{
		PPU:   ppu.New(),
		APU:   apu.New(),
		Input: input.NewInputState(),
		lines: &interrupt.Lines{},
	}
	b.PPU.SetInterruptLines(b.lines)
	b.CPU = cpu.New(b)
	b.CPU.SetInterruptLines(b.lines)
	b.APU.SetMemoryReader(b.RawRead)
	return b
}

// LoadCartridge installs a cartridge and resets the system so the CPU
// starts execution at the cartridge's reset vector.
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.cart = cart
	b.PPU.SetCartridge(cartAdapter{cart})
	b.Reset()
}

// Reset resets every component, clears the shared interrupt lines and the
// cycle counter, and resets the CPU.
func (b *Bus) Reset() {
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()
	b.lines.NMI = false
	b.lines.IRQ = false
	b.cpuCycles = 0
	b.CPU.Reset()
}

// tickPPUAndAPU advances the PPU three dots and the APU one step per CPU
// cycle — the fixed 3:1 ratio every NES component runs at.
func (b *Bus) tickPPUAndAPU() {
	b.PPU.Step()
	b.PPU.Step()
	b.PPU.Step()
	b.APU.Step()
	if b.APU.GetFrameIRQ() || b.APU.GetDMCIRQ() {
		b.lines.IRQ = true
	} else {
		b.lines.IRQ = false
	}
	b.cpuCycles++
}

// TickedRead satisfies cpu.Bus: every CPU-visible read, including
// addressing-mode dummy reads, advances the PPU and APU as a side effect.
func (b *Bus) TickedRead(address uint16) uint8 {
	value := b.RawRead(address)
	b.tickPPUAndAPU()
	return value
}

// TickedWrite satisfies cpu.Bus.
func (b *Bus) TickedWrite(address uint16, value uint8) {
	b.rawWrite(address, value)
	b.tickPPUAndAPU()
}

// RawRead satisfies cpu.RawPeeker: it decodes a read without advancing the
// PPU or APU. TickedRead, trace-operand capture and the APU's DMC sample
// fetch all go through it; PPU, APU-status and controller register reads
// keep their own side effects.
func (b *Bus) RawRead(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return b.ram[address&0x07FF]
	case address < 0x4000:
		return b.PPU.ReadRegister(0x2000 + address&0x0007)
	case address == 0x4015:
		return b.APU.ReadStatus()
	case address == 0x4016, address == 0x4017:
		return b.Input.Read(address)
	case address < 0x4018:
		return 0
	case address < 0x4020:
		return 0xFF
	case b.cart != nil:
		return b.cart.ReadPRG(b.cpuCycles, address)
	default:
		return 0
	}
}

func (b *Bus) rawWrite(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		b.ram[address&0x07FF] = value
	case address < 0x4000:
		b.PPU.WriteRegister(0x2000+address&0x0007, value)
	case address == 0x4014:
		b.beginOAMDMA(value)
	case address == 0x4016:
		b.Input.Write(address, value)
	case address == 0x4017:
		b.Input.Write(address, value)
		b.APU.WriteRegister(address, value)
	case address < 0x4018:
		b.APU.WriteRegister(address, value)
	case b.cart != nil:
		b.cart.WritePRG(b.cpuCycles, address, value)
	}
}

// beginOAMDMA performs the 256-byte OAM transfer as real ticked bus
// accesses: one read from CPU memory and one write into OAM per byte, plus
// a single alignment cycle and, on an odd starting CPU cycle, one extra —
// 513 or 514 total cycles, matching real 2A03 DMA behavior.
func (b *Bus) beginOAMDMA(page uint8) {
	b.tickPPUAndAPU() // alignment cycle
	if b.cpuCycles%2 == 1 {
		b.tickPPUAndAPU()
	}
	base := uint16(page) << 8
	for i := 0; i < 256; i++ {
		value := b.TickedRead(base + uint16(i))
		b.PPU.WriteOAM(uint8(i), value)
		b.tickPPUAndAPU()
	}
}

// SetControllerButtons sets all eight button states for a controller (1 or 2).
func (b *Bus) SetControllerButtons(controller int, buttons [8]bool) {
	switch controller {
	case 1:
		b.Input.SetButtons1(buttons)
	case 2:
		b.Input.SetButtons2(buttons)
	}
}

// Framebuffer returns the PPU's current palette-index framebuffer.
func (b *Bus) Framebuffer() *[256 * 240]uint8 { return b.PPU.Framebuffer() }

// FrameCount returns the number of frames the PPU has completed.
func (b *Bus) FrameCount() uint64 { return b.PPU.FrameCount() }

// CycleCount returns the total number of CPU bus cycles elapsed.
func (b *Bus) CycleCount() uint64 { return b.cpuCycles }

// InterruptLines exposes the shared NMI/IRQ cell for engine-level wiring
// and debugger inspection.
func (b *Bus) InterruptLines() *interrupt.Lines { return b.lines }

// RAM exposes the 2KB of internal work RAM for save-state serialization.
func (b *Bus) RAM() *[0x800]uint8 { return &b.ram }

// SetCycleCount overwrites the bus's cycle counter, used when restoring a
// save state.
func (b *Bus) SetCycleCount(cycles uint64) { b.cpuCycles = cycles }
