package engine

import (
	"bytes"
	"testing"

	"gones/internal/cartridge"
	"gones/internal/input"
)

// buildNROM constructs a minimal 32KB-PRG/8KB-CHR NROM image whose reset
// vector points at a tight infinite loop, suitable for cycle-driven tests
// that don't care what the program actually computes.
func buildNROM(resetOpcodes []uint8) *cartridge.Cartridge {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(2) // 2 * 16KB PRG
	buf.WriteByte(1) // 1 * 8KB CHR
	buf.WriteByte(0) // flags6: horizontal mirroring, mapper low nibble 0
	buf.WriteByte(0) // flags7: mapper high nibble 0
	buf.Write(make([]byte, 8)) // remaining header bytes

	prg := make([]uint8, 32*1024)
	copy(prg, resetOpcodes)
	// Reset vector at PRG offset 0x7FFC (CPU address 0xFFFC) -> 0x8000.
	prg[0x7FFC] = 0x00
	prg[0x7FFD] = 0x80
	buf.Write(prg)

	buf.Write(make([]byte, 8*1024)) // CHR

	cart, err := cartridge.LoadFromReader(&buf)
	if err != nil {
		panic(err)
	}
	return cart
}

func TestEngineRunsInfiniteLoopForOneFrame(t *testing.T) {
	// JMP $8000 - an infinite loop at the reset vector.
	eng := New()
	eng.LoadCartridge(buildNROM([]uint8{0x4C, 0x00, 0x80}))

	eng.RunForFrame()

	if eng.FrameCount() == 0 {
		t.Fatalf("expected at least one PPU frame to complete, got 0")
	}
	if eng.CycleCount() < 29780 {
		t.Fatalf("expected at least 29780 CPU cycles after one frame, got %d", eng.CycleCount())
	}
}

func TestEnginePressAndReleaseReachController(t *testing.T) {
	eng := New()
	eng.LoadCartridge(buildNROM([]uint8{0x4C, 0x00, 0x80}))

	eng.Press(1, input.A)
	if !eng.Bus.Input.Controller1.IsPressed(input.A) {
		t.Fatalf("expected A to be pressed on controller 1")
	}

	eng.Release(1, input.A)
	if eng.Bus.Input.Controller1.IsPressed(input.A) {
		t.Fatalf("expected A to be released on controller 1")
	}
}

func TestRunForScanlineAdvancesPastOneScanline(t *testing.T) {
	eng := New()
	eng.LoadCartridge(buildNROM([]uint8{0x4C, 0x00, 0x80}))

	startScanline := eng.Bus.PPU.Scanline()
	eng.RunForScanline()
	if eng.Bus.PPU.Scanline() == startScanline && eng.Bus.PPU.Dot() != 0 {
		t.Fatalf("expected scanline to have advanced")
	}
}
