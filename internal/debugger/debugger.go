// Package debugger provides read-only snapshots of emulator state for
// inspection tools. It never mutates anything it observes.
package debugger

import (
	"gones/internal/apu"
	"gones/internal/cpu"
	"gones/internal/ppu"
)

// CPUSnapshot is a point-in-time copy of the 6502 register file.
type CPUSnapshot struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	Status  uint8
	Cycles  uint64
	Halted  bool
}

// SnapshotCPU copies the CPU's visible register state.
func SnapshotCPU(c *cpu.CPU) CPUSnapshot {
	return CPUSnapshot{
		A: c.A, X: c.X, Y: c.Y, SP: c.SP, PC: c.PC,
		Status: c.GetStatusByte(),
		Cycles: c.Cycles(),
		Halted: c.Halted(),
	}
}

// PPUSnapshot is a point-in-time copy of PPU timing state.
type PPUSnapshot struct {
	Scanline   int
	Dot        int
	FrameCount uint64
}

// SnapshotPPU copies the PPU's current timing position.
func SnapshotPPU(p *ppu.PPU) PPUSnapshot {
	return PPUSnapshot{Scanline: p.Scanline(), Dot: p.Dot(), FrameCount: p.FrameCount()}
}

// APUSnapshot is a point-in-time copy of each channel's current output
// level and pending-IRQ flags.
type APUSnapshot struct {
	Pulse1, Pulse2, Triangle, Noise, DMC uint8
	FrameIRQ, DMCIRQ                     bool
}

// SnapshotAPU copies the current output level of every channel.
func SnapshotAPU(a *apu.APU) APUSnapshot {
	return APUSnapshot{
		Pulse1:   a.GetChannelOutput(0),
		Pulse2:   a.GetChannelOutput(1),
		Triangle: a.GetChannelOutput(2),
		Noise:    a.GetChannelOutput(3),
		DMC:      a.GetChannelOutput(4),
		FrameIRQ: a.GetFrameIRQ(),
		DMCIRQ:   a.GetDMCIRQ(),
	}
}

// OAMSnapshot is a copy of the 256-byte sprite attribute memory.
type OAMSnapshot [256]uint8

// SnapshotOAM copies the PPU's OAM contents.
func SnapshotOAM(p *ppu.PPU) OAMSnapshot { return OAMSnapshot(*p.OAM()) }

// PaletteRAMSnapshot is a copy of the 32-byte palette RAM.
type PaletteRAMSnapshot [32]uint8

// SnapshotPaletteRAM copies the PPU's palette RAM.
func SnapshotPaletteRAM(p *ppu.PPU) PaletteRAMSnapshot { return PaletteRAMSnapshot(*p.PaletteRAM()) }

// CHRReader is the narrow slice of Cartridge/PPU the pattern-table dump
// needs: raw access to the 8KB CHR address space.
type CHRReader interface {
	ReadCHR(address uint16) uint8
}

// PatternTable renders one of the PPU's two 4KB pattern tables (0 or 1)
// into an 128x128 grid of 2-bit tile-local color indices (0-3, palette not
// yet applied — callers combine with a palette/attribute choice of their
// own).
func PatternTable(chr CHRReader, table int) [128 * 128]uint8 {
	var out [128 * 128]uint8
	base := uint16(table) * 0x1000
	for tileY := 0; tileY < 16; tileY++ {
		for tileX := 0; tileX < 16; tileX++ {
			tileIndex := tileY*16 + tileX
			tileAddr := base + uint16(tileIndex)*16
			for row := 0; row < 8; row++ {
				lo := chr.ReadCHR(tileAddr + uint16(row))
				hi := chr.ReadCHR(tileAddr + uint16(row) + 8)
				for col := 0; col < 8; col++ {
					bit := 7 - col
					pixel := ((lo >> bit) & 1) | (((hi >> bit) & 1) << 1)
					px := tileX*8 + col
					py := tileY*8 + row
					out[py*128+px] = pixel
				}
			}
		}
	}
	return out
}
