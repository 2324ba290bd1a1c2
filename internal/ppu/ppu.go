// Package ppu implements the 2C02 Picture Processing Unit.
package ppu

import (
	"log"

	"gones/internal/interrupt"
)

// Cartridge is the PPU-side slice of the Cartridge trait: pattern table
// (CHR) access and the mirroring mode the cartridge/mapper declares.
type Cartridge interface {
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
	Mirroring() MirrorMode
}

// MirrorMode mirrors cartridge.MirrorMode without importing the cartridge
// package, so ppu has no dependency on cartridge's ROM-loading concerns —
// only the PPU sees this value's effect on nametable mapping.
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

const (
	width  = 256
	height = 240
)

// PPU represents the NES Picture Processing Unit (2C02).
type PPU struct {
	ppuCtrl   uint8
	ppuMask   uint8
	ppuStatus uint8
	oamAddr   uint8

	ioDataBus uint8 // open-bus latch: last value driven onto the register bus

	// Loopy scroll registers.
	v         uint16 // current VRAM address (15 bits)
	t         uint16 // temporary VRAM address (15 bits)
	fineX     uint8  // fine X scroll (3 bits)
	writeLatch bool  // toggles between first/second $2005/$2006 write

	ppuDataBuffer uint8 // buffered byte for non-palette $2007 reads

	vram       [0x800]uint8 // 2KiB nametable RAM
	paletteRAM [32]uint8
	oam        [256]uint8
	secondaryOAM [32]uint8

	cart  Cartridge
	lines *interrupt.Lines

	scanline int // 0-261; 261 is pre-render
	dot      int // 0-340
	frameCount uint64
	oddFrame bool

	framebuffer [width * height]uint8 // palette indices 0-63

	// Background fetch pipeline.
	ntByte, atByte, bgLSB, bgMSB uint8
	bgShiftLo, bgShiftHi         uint16
	bgAttribShiftLo, bgAttribShiftHi uint16

	// Sprite rendering for the scanline in progress.
	spriteCount     int
	spritePatternLo [8]uint8
	spritePatternHi [8]uint8
	spriteX         [8]uint8
	spriteAttrib    [8]uint8
	spriteIsZero    [8]bool
	spriteOverflow  bool
	sprite0HitFlag  bool

	renderingEnabled bool

	DebugLog bool
}

// New creates a new PPU instance.
func New() *PPU {
	p := &PPU{}
	p.Reset()
	return p
}

// Reset resets the PPU to its post-power-up state.
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0
	p.oamAddr = 0
	p.ioDataBus = 0

	p.v, p.t = 0, 0
	p.fineX = 0
	p.writeLatch = false
	p.ppuDataBuffer = 0

	p.scanline = 261
	p.dot = 0
	p.frameCount = 0
	p.oddFrame = false

	p.spriteOverflow = false
	p.sprite0HitFlag = false
	p.renderingEnabled = false

	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.framebuffer {
		p.framebuffer[i] = 0
	}
}

// SetCartridge wires the PPU to the cartridge's pattern tables and
// mirroring mode.
func (p *PPU) SetCartridge(cart Cartridge) { p.cart = cart }

// SetInterruptLines wires the PPU to the engine-owned shared interrupt
// cells.
func (p *PPU) SetInterruptLines(lines *interrupt.Lines) { p.lines = lines }

// FrameCount returns the number of frames completed so far.
func (p *PPU) FrameCount() uint64 { return p.frameCount }

// Framebuffer returns a borrowed view of the 256x240 palette-index buffer.
func (p *PPU) Framebuffer() *[width * height]uint8 { return &p.framebuffer }

// PaletteRAM returns a borrowed view of the 32-byte palette RAM.
func (p *PPU) PaletteRAM() *[32]uint8 { return &p.paletteRAM }

// VRAM exposes the 2KB nametable RAM for save-state serialization.
func (p *PPU) VRAM() *[0x800]uint8 { return &p.vram }

// OAM returns a borrowed view of the 256-byte OAM.
func (p *PPU) OAM() *[256]uint8 { return &p.oam }

// Scanline and Dot expose the current rendering position for the
// debugger and for the bus's run_for_scanline drive call.
func (p *PPU) Scanline() int { return p.scanline }
func (p *PPU) Dot() int      { return p.dot }

// ---- nametable / palette address decode -------------------------------

func (p *PPU) nametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	table := (address >> 10) & 3
	offset := address & 0x3FF
	switch p.cart.Mirroring() {
	case MirrorVertical:
		if table == 1 || table == 3 {
			return 0x400 + offset
		}
		return offset
	case MirrorSingleScreen0:
		return offset
	case MirrorSingleScreen1:
		return 0x400 + offset
	case MirrorFourScreen:
		return table*0x400 + offset // requires 4KiB vram; callers must size accordingly
	default: // MirrorHorizontal
		if table >= 2 {
			return 0x400 + offset
		}
		return offset
	}
}

func (p *PPU) readVRAM(address uint16) uint8 {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		return p.cart.ReadCHR(address)
	case address < 0x3F00:
		if address >= 0x3000 {
			address -= 0x1000 // $3000-$3EFF mirrors $2000-$2EFF
		}
		return p.vram[p.nametableIndex(address)%uint16(len(p.vram))]
	default:
		return p.readPalette(address)
	}
}

func (p *PPU) writeVRAM(address uint16, value uint8) {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		p.cart.WriteCHR(address, value)
	case address < 0x3F00:
		if address >= 0x3000 {
			address -= 0x1000
		}
		p.vram[p.nametableIndex(address)%uint16(len(p.vram))] = value
	default:
		p.writePalette(address, value)
	}
}

func (p *PPU) paletteIndex(address uint16) uint16 {
	idx := (address - 0x3F00) & 0x1F
	if idx&0x13 == 0x10 { // $3F10/$3F14/$3F18/$3F1C alias $3F00/.../0C
		idx &= 0x0F
	}
	return idx
}

func (p *PPU) readPalette(address uint16) uint8  { return p.paletteRAM[p.paletteIndex(address)] }
func (p *PPU) writePalette(address uint16, v uint8) { p.paletteRAM[p.paletteIndex(address)] = v }

// ---- CPU-visible register interface ------------------------------------

// ReadRegister reads one of $2000-$2007 (already reduced modulo 8 by the
// bus's mirroring).
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2002:
		result := (p.ppuStatus & 0xE0) | (p.ioDataBus & 0x1F)
		p.ppuStatus &^= 0x80 // clear vblank only
		p.writeLatch = false // clears only the write toggle, not scroll (open question resolution)
		p.ioDataBus = result
		return result
	case 0x2004:
		v := p.oam[p.oamAddr]
		p.ioDataBus = v
		return v
	case 0x2007:
		return p.readPPUData()
	default: // $2000,$2001,$2003,$2005,$2006 are write-only
		return p.ioDataBus
	}
}

// WriteRegister writes one of $2000-$2007.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	p.ioDataBus = value
	switch address {
	case 0x2000:
		prevNMIEnable := p.ppuCtrl&0x80 != 0
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | (uint16(value&0x03) << 10)
		if p.ppuStatus&0x80 != 0 && !prevNMIEnable && value&0x80 != 0 {
			p.assertNMI()
		}
		p.updateRenderingEnabled()
	case 0x2001:
		p.ppuMask = value
		p.updateRenderingEnabled()
	case 0x2002:
		// read-only
	case 0x2003:
		p.oamAddr = value
	case 0x2004:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005:
		if !p.writeLatch {
			p.t = (p.t & 0xFFE0) | uint16(value>>3)
			p.fineX = value & 0x07
		} else {
			p.t = (p.t & 0x8FFF) | (uint16(value&0x07) << 12)
			p.t = (p.t & 0xFC1F) | (uint16(value&0xF8) << 2)
		}
		p.writeLatch = !p.writeLatch
	case 0x2006:
		if !p.writeLatch {
			p.t = (p.t & 0x00FF) | (uint16(value&0x3F) << 8)
		} else {
			p.t = (p.t & 0xFF00) | uint16(value)
			p.v = p.t
		}
		p.writeLatch = !p.writeLatch
	case 0x2007:
		p.writeVRAM(p.v, value)
		p.advanceVRAMAddress()
	}
}

// WriteOAM writes directly to OAM (used by the bus's OAM DMA transfer, via
// the normal $2004 path — WriteRegister is what DMA actually calls; this
// entry point exists for the debugger/tests).
func (p *PPU) WriteOAM(address uint8, value uint8) { p.oam[address] = value }

func (p *PPU) advanceVRAMAddress() {
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}

func (p *PPU) readPPUData() uint8 {
	value := p.ppuDataBuffer
	p.ppuDataBuffer = p.readVRAM(p.v)
	if p.v&0x3FFF >= 0x3F00 {
		// Palette reads bypass the buffer delay, but the buffer is still
		// refilled with the mirrored nametable byte underneath the palette.
		value = p.readVRAM(p.v)
		p.ppuDataBuffer = p.readVRAM(p.v - 0x1000)
	}
	p.advanceVRAMAddress()
	p.ioDataBus = value
	return value
}

func (p *PPU) updateRenderingEnabled() {
	p.renderingEnabled = p.ppuMask&0x18 != 0
}

func (p *PPU) assertNMI() {
	if p.lines != nil {
		p.lines.NMI = true
	}
}

// ---- loopy v/t helpers (Loopy's documented NTRS behavior) ---------------

func (p *PPU) incrementCoarseX() {
	if !p.renderingEnabled {
		return
	}
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if !p.renderingEnabled {
		return
	}
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch {
	case y == 29:
		y = 0
		p.v ^= 0x0800
	case y == 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

func (p *PPU) copyHorizontalBits() {
	if !p.renderingEnabled {
		return
	}
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

func (p *PPU) copyVerticalBits() {
	if !p.renderingEnabled {
		return
	}
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

// ---- main per-dot step --------------------------------------------------

// Step advances the PPU by exactly one dot.
func (p *PPU) Step() {
	if p.scanline < 240 || p.scanline == 261 {
		p.renderingTick()
	}

	p.dot++
	if p.dot > 340 {
		skip := p.scanline == 261 && p.oddFrame && p.renderingEnabled
		if skip {
			p.dot = 0
			p.scanline = 0
		} else {
			p.dot = 0
			p.scanline++
		}
		if p.scanline > 261 {
			p.scanline = 0
			p.frameCount++
			p.oddFrame = !p.oddFrame
		}
	}

	if p.scanline == 241 && p.dot == 1 {
		p.ppuStatus |= 0x80
		if p.ppuCtrl&0x80 != 0 {
			p.assertNMI()
		}
	}
	if p.scanline == 261 && p.dot == 1 {
		p.ppuStatus &^= 0xE0 // clear vblank, sprite 0 hit, sprite overflow
		p.sprite0HitFlag = false
		p.spriteOverflow = false
	}
}

func (p *PPU) renderingTick() {
	visible := p.scanline < 240
	preRender := p.scanline == 261

	if (visible || preRender) && p.dot >= 1 && p.dot <= 256 {
		if visible {
			p.outputPixel()
		}
		p.shiftBackgroundRegisters()
		p.backgroundFetchCycle()
		if p.dot == 256 {
			p.incrementY()
		}
	}
	if p.dot == 257 && (visible || preRender) {
		p.reloadBackgroundShiftersAndLatchSprites()
		p.copyHorizontalBits()
		p.evaluateSpritesForNextScanline()
	}
	if preRender && p.dot >= 280 && p.dot <= 304 {
		p.copyVerticalBits()
	}
	if (visible || preRender) && p.dot >= 321 && p.dot <= 336 {
		p.shiftBackgroundRegisters()
		p.backgroundFetchCycle()
	}
}

// backgroundFetchCycle performs the classic 8-dot nametable/attribute/
// pattern-low/pattern-high fetch sequence and reloads the shift registers
// every 8th dot.
func (p *PPU) backgroundFetchCycle() {
	switch p.dot % 8 {
	case 1:
		p.reloadBackgroundShifters()
		p.ntByte = p.readVRAM(0x2000 | (p.v & 0x0FFF))
	case 3:
		attribAddr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
		at := p.readVRAM(attribAddr)
		shift := ((p.v >> 4) & 4) | (p.v & 2)
		p.atByte = (at >> shift) & 0x03
	case 5:
		base := uint16(0x0000)
		if p.ppuCtrl&0x10 != 0 {
			base = 0x1000
		}
		fineY := (p.v >> 12) & 0x07
		p.bgLSB = p.readVRAM(base + uint16(p.ntByte)*16 + fineY)
	case 7:
		base := uint16(0x0000)
		if p.ppuCtrl&0x10 != 0 {
			base = 0x1000
		}
		fineY := (p.v >> 12) & 0x07
		p.bgMSB = p.readVRAM(base + uint16(p.ntByte)*16 + fineY + 8)
	case 0:
		p.incrementCoarseX()
	}
}

func (p *PPU) reloadBackgroundShifters() {
	p.bgShiftLo = (p.bgShiftLo & 0xFF00) | uint16(p.bgLSB)
	p.bgShiftHi = (p.bgShiftHi & 0xFF00) | uint16(p.bgMSB)
	lo := uint16(0x00)
	hi := uint16(0x00)
	if p.atByte&0x01 != 0 {
		lo = 0xFF
	}
	if p.atByte&0x02 != 0 {
		hi = 0xFF
	}
	p.bgAttribShiftLo = (p.bgAttribShiftLo & 0xFF00) | lo
	p.bgAttribShiftHi = (p.bgAttribShiftHi & 0xFF00) | hi
}

func (p *PPU) reloadBackgroundShiftersAndLatchSprites() {
	p.reloadBackgroundShifters()
}

func (p *PPU) shiftBackgroundRegisters() {
	if !p.renderingEnabled {
		return
	}
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.bgAttribShiftLo <<= 1
	p.bgAttribShiftHi <<= 1
}

// ---- sprite evaluation ---------------------------------------------------

func (p *PPU) evaluateSpritesForNextScanline() {
	targetScanline := p.scanline // sprites fetched at dot 257 are for p.scanline+1, unless we are
	if p.scanline == 261 {
		targetScanline = -1 // pre-render primes scanline 0
	}
	nextScanline := targetScanline + 1

	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	p.spriteCount = 0
	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	found := 0
	for sprite := 0; sprite < 64; sprite++ {
		base := sprite * 4
		y := int(p.oam[base])
		if nextScanline < y+1 || nextScanline >= y+1+spriteHeight {
			continue
		}
		if found < 8 {
			sIdx := found * 4
			p.secondaryOAM[sIdx] = uint8(y)
			p.secondaryOAM[sIdx+1] = p.oam[base+1]
			p.secondaryOAM[sIdx+2] = p.oam[base+2]
			p.secondaryOAM[sIdx+3] = p.oam[base+3]
			p.spriteIsZero[found] = sprite == 0
			found++
		} else {
			p.spriteOverflow = true
			p.ppuStatus |= 0x20
			break
		}
	}
	p.spriteCount = found

	for i := 0; i < found; i++ {
		y := p.secondaryOAM[i*4]
		tile := p.secondaryOAM[i*4+1]
		attrib := p.secondaryOAM[i*4+2]
		x := p.secondaryOAM[i*4+3]
		flipV := attrib&0x80 != 0
		flipH := attrib&0x40 != 0

		row := nextScanline - int(y) - 1
		if flipV {
			if spriteHeight == 16 {
				row = 15 - row
			} else {
				row = 7 - row
			}
		}

		var base uint16
		var effTile uint16
		if spriteHeight == 16 {
			base = uint16(tile&1) * 0x1000
			effTile = uint16(tile &^ 1)
			if row >= 8 {
				effTile++
				row -= 8
			}
		} else {
			base = 0
			if p.ppuCtrl&0x08 != 0 {
				base = 0x1000
			}
			effTile = uint16(tile)
		}
		addr := base + effTile*16 + uint16(row)
		lo := p.readVRAM(addr)
		hi := p.readVRAM(addr + 8)
		if flipH {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}
		p.spritePatternLo[i] = lo
		p.spritePatternHi[i] = hi
		p.spriteX[i] = x
		p.spriteAttrib[i] = attrib
		p.spriteIsZero[i] = p.spriteIsZero[i]
	}
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// ---- pixel compositing ----------------------------------------------------

func (p *PPU) outputPixel() {
	x := p.dot - 1
	y := p.scanline

	bgPixel, bgPalette := p.backgroundPixelAt(x)
	spPixel, spPalette, spPriority, spIsZero := p.spritePixelAt(x)

	if x < 8 {
		if p.ppuMask&0x02 == 0 {
			bgPixel = 0
		}
		if p.ppuMask&0x04 == 0 {
			spPixel = 0
		}
	}
	if p.ppuMask&0x08 == 0 {
		bgPixel = 0
	}
	if p.ppuMask&0x10 == 0 {
		spPixel = 0
	}

	if bgPixel != 0 && spPixel != 0 && spIsZero && x != 255 && p.renderingEnabled {
		p.sprite0HitFlag = true
		p.ppuStatus |= 0x40
	}

	var paletteAddr uint16
	switch {
	case spPixel != 0 && (bgPixel == 0 || !spPriority):
		paletteAddr = 0x3F10 + uint16(spPalette)*4 + uint16(spPixel)
	case bgPixel != 0:
		paletteAddr = 0x3F00 + uint16(bgPalette)*4 + uint16(bgPixel)
	default:
		paletteAddr = 0x3F00
	}

	p.framebuffer[y*width+x] = p.readPalette(paletteAddr) & 0x3F
}

func (p *PPU) backgroundPixelAt(x int) (pixel, palette uint8) {
	if !p.renderingEnabled {
		return 0, 0
	}
	shift := uint(15 - p.fineX)
	lo := uint8((p.bgShiftLo >> shift) & 1)
	hi := uint8((p.bgShiftHi >> shift) & 1)
	pixel = lo | (hi << 1)
	alo := uint8((p.bgAttribShiftLo >> shift) & 1)
	ahi := uint8((p.bgAttribShiftHi >> shift) & 1)
	palette = alo | (ahi << 1)
	return
}

func (p *PPU) spritePixelAt(x int) (pixel, palette uint8, priority bool, isZero bool) {
	if !p.renderingEnabled {
		return 0, 0, false, false
	}
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.spriteX[i])
		if offset < 0 || offset > 7 {
			continue
		}
		lo := (p.spritePatternLo[i] >> uint(7-offset)) & 1
		hi := (p.spritePatternHi[i] >> uint(7-offset)) & 1
		col := lo | (hi << 1)
		if col == 0 {
			continue
		}
		return col, p.spriteAttrib[i] & 0x03, p.spriteAttrib[i]&0x20 != 0, p.spriteIsZero[i]
	}
	return 0, 0, false, false
}

func (p *PPU) debugf(format string, args ...interface{}) {
	if p.DebugLog {
		log.Printf(format, args...)
	}
}
