package ppu

import (
	"testing"

	"gones/internal/interrupt"
)

type fakeCartridge struct {
	chr     [0x2000]uint8
	mirror  MirrorMode
}

func (f *fakeCartridge) ReadCHR(address uint16) uint8        { return f.chr[address&0x1FFF] }
func (f *fakeCartridge) WriteCHR(address uint16, value uint8) { f.chr[address&0x1FFF] = value }
func (f *fakeCartridge) Mirroring() MirrorMode                { return f.mirror }

func newTestPPU(mirror MirrorMode) (*PPU, *fakeCartridge) {
	p := New()
	cart := &fakeCartridge{mirror: mirror}
	p.SetCartridge(cart)
	p.SetInterruptLines(&interrupt.Lines{})
	return p, cart
}

func TestResetState(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	if p.Scanline() != 261 {
		t.Fatalf("Scanline() after Reset = %d, want 261 (pre-render)", p.Scanline())
	}
	if p.Dot() != 0 {
		t.Fatalf("Dot() after Reset = %d, want 0", p.Dot())
	}
}

func TestStatusReadClearsVBlankAndWriteToggle(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.ppuStatus |= 0x80
	p.writeLatch = true

	status := p.ReadRegister(0x2002)
	if status&0x80 == 0 {
		t.Fatalf("ReadRegister($2002) = %#x, want bit 7 set before clear", status)
	}
	if p.ppuStatus&0x80 != 0 {
		t.Fatalf("vblank flag not cleared by $2002 read")
	}
	if p.writeLatch {
		t.Fatalf("write toggle not cleared by $2002 read")
	}
}

func TestScrollAndAddrWriteSequencing(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)
	if p.v != 0x2108 {
		t.Fatalf("v = %#x, want 0x2108 after two $2006 writes", p.v)
	}
}

func TestPPUDataReadIsBufferedExceptPalette(t *testing.T) {
	p, cart := newTestPPU(MirrorHorizontal)
	cart.chr[0x0010] = 0x42
	p.v = 0x0010

	first := p.ReadRegister(0x2007)
	if first == 0x42 {
		t.Fatalf("first $2007 read returned live value %#x, want stale buffered value", first)
	}
	second := p.ReadRegister(0x2007)
	if second != 0x42 {
		t.Fatalf("second $2007 read = %#x, want 0x42", second)
	}
}

func TestPPUDataWriteIncrementsByRowWhenCtrlBit2Set(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(0x2000, 0x04)
	p.v = 0x2000
	p.WriteRegister(0x2007, 0xAA)
	if p.v != 0x2020 {
		t.Fatalf("v after $2007 write with increment-by-32 = %#x, want 0x2020", p.v)
	}
}

func TestOAMWriteAndRead(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(0x2003, 0x10)
	p.WriteRegister(0x2004, 0x99)
	if p.oam[0x10] != 0x99 {
		t.Fatalf("oam[0x10] = %#x, want 0x99", p.oam[0x10])
	}
	if p.oamAddr != 0x11 {
		t.Fatalf("oamAddr after $2004 write = %#x, want 0x11 (auto-increment)", p.oamAddr)
	}
}

func TestVBlankSetAndClearTiming(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.scanline, p.dot = 241, 0
	p.Step()
	if p.ppuStatus&0x80 == 0 {
		t.Fatalf("vblank flag not set at scanline 241 dot 1")
	}

	p.scanline, p.dot = 261, 0
	p.ppuStatus |= 0x40 | 0x20
	p.Step()
	if p.ppuStatus&0xE0 != 0 {
		t.Fatalf("ppuStatus = %#x, want vblank/sprite0/overflow all clear at scanline 261 dot 1", p.ppuStatus)
	}
}

func TestNMIAssertedOnVBlankWhenEnabled(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.ppuCtrl = 0x80
	p.scanline, p.dot = 241, 0
	p.Step()
	if p.lines == nil || !p.lines.NMI {
		t.Fatalf("NMI line not asserted at vblank start with NMI enabled")
	}
}

func TestMirrorHorizontalNametableMapping(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	if idx := p.nametableIndex(0x2400); idx != 0 {
		t.Fatalf("horizontal mirror $2400 -> %#x, want 0 (shares table A)", idx)
	}
	if idx := p.nametableIndex(0x2800); idx != 0x400 {
		t.Fatalf("horizontal mirror $2800 -> %#x, want 0x400 (table B)", idx)
	}
}

func TestMirrorVerticalNametableMapping(t *testing.T) {
	p, _ := newTestPPU(MirrorVertical)
	if idx := p.nametableIndex(0x2800); idx != 0 {
		t.Fatalf("vertical mirror $2800 -> %#x, want 0 (shares table A)", idx)
	}
	if idx := p.nametableIndex(0x2400); idx != 0x400 {
		t.Fatalf("vertical mirror $2400 -> %#x, want 0x400 (table B)", idx)
	}
}

func TestPaletteMirroring(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.writePalette(0x3F00, 0x0F)
	if got := p.readPalette(0x3F10); got != 0x0F {
		t.Fatalf("$3F10 = %#x, want 0x0F (mirrors universal background color)", got)
	}
}

func TestFrameParitySkipsOddFrameDot(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.renderingEnabled = true
	p.oddFrame = true
	p.scanline, p.dot = 261, 340
	p.Step()
	if p.scanline != 0 || p.dot != 0 {
		t.Fatalf("odd-frame pre-render did not skip to (0,0): got scanline=%d dot=%d", p.scanline, p.dot)
	}
}

func TestOutputPixelWritesFramebuffer(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.renderingEnabled = true
	p.ppuMask = 0x1A // show background + sprites, including leftmost 8 pixels
	p.writePalette(0x3F00, 0x20)
	p.scanline, p.dot = 0, 1
	p.outputPixel()
	if p.framebuffer[0] != 0x20 {
		t.Fatalf("framebuffer[0] = %#x, want 0x20 (universal background color)", p.framebuffer[0])
	}
}
