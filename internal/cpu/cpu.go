// Package cpu implements the 2A03's 6502-derived CPU core.
package cpu

import (
	"gones/internal/interrupt"
	"gones/internal/trace"
)

// AddressingMode identifies how an opcode's operand address is formed.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Instruction is one entry of the opcode lookup table.
type Instruction struct {
	Name   string
	Opcode uint8
	Bytes  uint8
	Mode   AddressingMode
}

// Bus is the ticked memory interface the CPU drives: every access —
// including addressing-mode dummy reads — goes through here, advancing
// the PPU and APU as a side effect. The CPU has no other way to touch
// memory.
type Bus interface {
	TickedRead(address uint16) uint8
	TickedWrite(address uint16, value uint8)
}

// RawPeeker is an optional capability a Bus may implement to let the CPU
// capture trace operand bytes without generating extra bus cycles.
type RawPeeker interface {
	RawRead(address uint16) uint8
}

// CPU represents the 6502-derived core used in the NES 2A03.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C, Z, I, D, B, V, N bool

	bus   Bus
	lines *interrupt.Lines
	trace *trace.Ring

	cycles uint64

	instructions [256]Instruction

	halted bool
}

// New creates a CPU wired to the given bus.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus, SP: 0xFD}
	c.initInstructions()
	return c
}

// SetInterruptLines wires the CPU to the engine-owned shared NMI/IRQ cells.
func (c *CPU) SetInterruptLines(lines *interrupt.Lines) { c.lines = lines }

// SetTrace wires the CPU to an opcode trace ring. Purely observational;
// never consulted by execution logic.
func (c *CPU) SetTrace(r *trace.Ring) { c.trace = r }

// Cycles returns the total number of bus ticks the CPU has consumed.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Halted reports whether the CPU has executed a JAM opcode and is frozen.
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) readByte(address uint16) uint8 {
	c.cycles++
	return c.bus.TickedRead(address)
}

func (c *CPU) writeByte(address uint16, value uint8) {
	c.cycles++
	c.bus.TickedWrite(address, value)
}

func (c *CPU) pushTicked(value uint8) {
	c.writeByte(stackBase+uint16(c.SP), value)
	c.SP--
}

func (c *CPU) popTicked() uint8 {
	c.SP++
	return c.readByte(stackBase + uint16(c.SP))
}

func (c *CPU) pushWordTicked(value uint16) {
	c.pushTicked(uint8(value >> 8))
	c.pushTicked(uint8(value & 0xFF))
}

func (c *CPU) popWordTicked() uint16 {
	low := uint16(c.popTicked())
	high := uint16(c.popTicked())
	return (high << 8) | low
}

// Reset performs the 6502's 7-cycle reset sequence: five dummy reads
// followed by the two reset-vector fetches.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.C, c.Z, c.D, c.V, c.N = false, false, false, false, false
	c.I = true
	c.B = true
	c.halted = false

	for i := 0; i < 5; i++ {
		c.readByte(c.PC)
	}
	low := uint16(c.readByte(resetVector))
	high := uint16(c.readByte(resetVector + 1))
	c.PC = (high << 8) | low
}

// Step executes exactly one instruction (or, if an interrupt is pending,
// services it instead) and returns the number of bus cycles consumed.
// Interrupts are checked before the opcode fetch, not after — a pending
// NMI/IRQ is serviced in place of the next instruction, never after one
// has already completed.
func (c *CPU) Step() uint64 {
	start := c.cycles

	if c.halted {
		c.readByte(c.PC)
		return c.cycles - start
	}

	if c.lines != nil {
		if c.lines.NMI {
			c.lines.NMI = false
			c.serviceInterrupt(nmiVector, false)
			return c.cycles - start
		}
		if c.lines.IRQ && !c.I {
			c.serviceInterrupt(irqVector, false)
			return c.cycles - start
		}
	}

	pc := c.PC
	opcode := c.readByte(c.PC)
	c.PC++

	if isJAM(opcode) {
		c.readByte(c.PC)
		c.readByte(c.PC)
		c.halted = true
		c.pushTrace(start, pc, opcode)
		return c.cycles - start
	}

	instr := c.instructions[opcode]
	address, pageCrossed := c.getOperandAddress(instr.Mode, opcode)
	c.executeInstruction(opcode, address, pageCrossed)
	c.pushTrace(start, pc, opcode)

	return c.cycles - start
}

func (c *CPU) pushTrace(start uint64, pc uint16, opcode uint8) {
	if c.trace == nil {
		return
	}
	entry := trace.Entry{StartCycle: start, PC: pc, Opcode: opcode}
	if peeker, ok := c.bus.(RawPeeker); ok {
		entry.Arg1 = peeker.RawRead(pc + 1)
		entry.Arg2 = peeker.RawRead(pc + 2)
	}
	c.trace.Push(entry)
}

func isJAM(opcode uint8) bool {
	switch opcode {
	case 0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2:
		return true
	}
	return false
}

func (c *CPU) serviceInterrupt(vector uint16, isBRK bool) {
	c.readByte(c.PC)
	c.readByte(c.PC)
	c.pushWordTicked(c.PC)
	status := c.GetStatusByte() &^ uint8(bFlagMask)
	status |= unusedMask
	if isBRK {
		status |= bFlagMask
	}
	c.pushTicked(status)
	c.I = true
	low := uint16(c.readByte(vector))
	high := uint16(c.readByte(vector + 1))
	c.PC = (high << 8) | low
}

// isWriteOrRMW reports whether an opcode only ever writes to its effective
// address (store instructions) or reads-modifies-writes it. Indexed
// addressing modes always perform their "speculative" dummy read for
// these opcodes, never skipping it on a lucky non-page-crossing index.
func isWriteOrRMW(opcode uint8) bool {
	switch opcode {
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91, // STA
		0x86, 0x96, 0x8E, // STX
		0x84, 0x94, 0x8C, // STY
		0x83, 0x87, 0x8F, 0x97, // SAX
		0x06, 0x16, 0x0E, 0x1E, // ASL
		0x46, 0x56, 0x4E, 0x5E, // LSR
		0x26, 0x36, 0x2E, 0x3E, // ROL
		0x66, 0x76, 0x6E, 0x7E, // ROR
		0xE6, 0xF6, 0xEE, 0xFE, // INC
		0xC6, 0xD6, 0xCE, 0xDE, // DEC
		0x03, 0x07, 0x0F, 0x13, 0x17, 0x1F, 0x1B, // SLO
		0x23, 0x27, 0x2F, 0x33, 0x37, 0x3F, 0x3B, // RLA
		0x43, 0x47, 0x4F, 0x53, 0x57, 0x5F, 0x5B, // SRE
		0x63, 0x67, 0x6F, 0x73, 0x77, 0x7F, 0x7B, // RRA
		0xC3, 0xC7, 0xCF, 0xD3, 0xD7, 0xDF, 0xDB, // DCP
		0xE3, 0xE7, 0xEF, 0xF3, 0xF7, 0xFF, 0xFB: // ISB
		return true
	}
	return false
}

// getOperandAddress computes the effective address for an instruction,
// issuing every bus cycle an addressing mode actually spends — including
// dummy/speculative reads — as a real ticked access. The final read or
// write at the effective address happens inside the instruction body, not
// here (except where a mode has no further access, e.g. Implied).
func (c *CPU) getOperandAddress(mode AddressingMode, opcode uint8) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		c.readByte(c.PC) // dummy fetch of the following byte
		return 0, false

	case Immediate:
		address := c.PC
		c.PC++
		return address, false

	case ZeroPage:
		address := uint16(c.readByte(c.PC))
		c.PC++
		return address, false

	case ZeroPageX:
		base := c.readByte(c.PC)
		c.PC++
		c.readByte(uint16(base)) // dummy read before the index is added
		return uint16((base + c.X) & zeroPageMask), false

	case ZeroPageY:
		base := c.readByte(c.PC)
		c.PC++
		c.readByte(uint16(base))
		return uint16((base + c.Y) & zeroPageMask), false

	case Relative:
		offset := int8(c.readByte(c.PC))
		c.PC++
		target := uint16(int32(c.PC) + int32(offset))
		return target, (c.PC & pageMask) != (target & pageMask)

	case Absolute:
		low := uint16(c.readByte(c.PC))
		c.PC++
		high := uint16(c.readByte(c.PC))
		c.PC++
		return (high << 8) | low, false

	case AbsoluteX:
		return c.indexedAbsolute(c.X, isWriteOrRMW(opcode))
	case AbsoluteY:
		return c.indexedAbsolute(c.Y, isWriteOrRMW(opcode))

	case Indirect: // JMP (indirect) only
		lowPtr := uint16(c.readByte(c.PC))
		c.PC++
		highPtr := uint16(c.readByte(c.PC))
		c.PC++
		ptr := (highPtr << 8) | lowPtr
		var low, high uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low = uint16(c.readByte(ptr))
			high = uint16(c.readByte(ptr & pageMask)) // page-wrap bug
		} else {
			low = uint16(c.readByte(ptr))
			high = uint16(c.readByte(ptr + 1))
		}
		return (high << 8) | low, false

	case IndexedIndirect: // (zp,X)
		zp := c.readByte(c.PC)
		c.PC++
		c.readByte(uint16(zp)) // dummy read before X is added
		ptr := (zp + c.X) & zeroPageMask
		low := uint16(c.readByte(uint16(ptr)))
		high := uint16(c.readByte(uint16((ptr + 1) & zeroPageMask)))
		return (high << 8) | low, false

	case IndirectIndexed: // (zp),Y
		zp := c.readByte(c.PC)
		c.PC++
		low := uint16(c.readByte(uint16(zp)))
		high := uint16(c.readByte(uint16((zp + 1) & zeroPageMask)))
		base := (high << 8) | low
		address := base + uint16(c.Y)
		pageCrossed := (base & pageMask) != (address & pageMask)
		if pageCrossed || isWriteOrRMW(opcode) {
			wrong := (base & pageMask) | (address & 0xFF)
			c.readByte(wrong)
		}
		return address, pageCrossed

	default:
		return 0, false
	}
}

func (c *CPU) indexedAbsolute(index uint8, alwaysExtra bool) (uint16, bool) {
	low := uint16(c.readByte(c.PC))
	c.PC++
	high := uint16(c.readByte(c.PC))
	c.PC++
	base := (high << 8) | low
	address := base + uint16(index)
	pageCrossed := (base & pageMask) != (address & pageMask)
	if pageCrossed || alwaysExtra {
		wrong := (base & pageMask) | (address & 0xFF)
		c.readByte(wrong)
	}
	return address, pageCrossed
}

func (c *CPU) setZN(value uint8) {
	c.Z = value == 0
	c.N = (value & nFlagMask) != 0
}

// GetStatusByte packs the flags into the processor status byte.
func (c *CPU) GetStatusByte() uint8 {
	var status uint8
	if c.N {
		status |= nFlagMask
	}
	if c.V {
		status |= vFlagMask
	}
	status |= unusedMask
	if c.B {
		status |= bFlagMask
	}
	if c.D {
		status |= dFlagMask
	}
	if c.I {
		status |= iFlagMask
	}
	if c.Z {
		status |= zFlagMask
	}
	if c.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte unpacks the processor status byte into the flags.
func (c *CPU) SetStatusByte(status uint8) {
	c.N = (status & nFlagMask) != 0
	c.V = (status & vFlagMask) != 0
	c.B = (status & bFlagMask) != 0
	c.D = (status & dFlagMask) != 0
	c.I = (status & iFlagMask) != 0
	c.Z = (status & zFlagMask) != 0
	c.C = (status & cFlagMask) != 0
}

// ---- instruction bodies ---------------------------------------------------

func (c *CPU) lda(address uint16) { c.A = c.readByte(address); c.setZN(c.A) }
func (c *CPU) ldx(address uint16) { c.X = c.readByte(address); c.setZN(c.X) }
func (c *CPU) ldy(address uint16) { c.Y = c.readByte(address); c.setZN(c.Y) }

func (c *CPU) sta(address uint16) { c.writeByte(address, c.A) }
func (c *CPU) stx(address uint16) { c.writeByte(address, c.X) }
func (c *CPU) sty(address uint16) { c.writeByte(address, c.Y) }
func (c *CPU) sax(address uint16) { c.writeByte(address, c.A&c.X) }

func (c *CPU) addWithCarry(value uint8) {
	carry := uint16(0)
	if c.C {
		carry = 1
	}
	result := uint16(c.A) + uint16(value) + carry
	c.V = ((c.A^uint8(result))&0x80) != 0 && ((c.A^value)&0x80) == 0
	c.C = result > 0xFF
	c.A = uint8(result)
	c.setZN(c.A)
}

func (c *CPU) adc(address uint16) { c.addWithCarry(c.readByte(address)) }
func (c *CPU) sbc(address uint16) { c.addWithCarry(c.readByte(address) ^ 0xFF) }

func (c *CPU) and(address uint16) { c.A &= c.readByte(address); c.setZN(c.A) }
func (c *CPU) ora(address uint16) { c.A |= c.readByte(address); c.setZN(c.A) }
func (c *CPU) eor(address uint16) { c.A ^= c.readByte(address); c.setZN(c.A) }

func (c *CPU) asl(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	c.C = (old & 0x80) != 0
	v := old << 1
	c.writeByte(address, v)
	c.setZN(v)
}

func (c *CPU) lsr(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	c.C = (old & 0x01) != 0
	v := old >> 1
	c.writeByte(address, v)
	c.setZN(v)
}

func (c *CPU) rol(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	carry := c.C
	c.C = (old & 0x80) != 0
	v := old << 1
	if carry {
		v |= 0x01
	}
	c.writeByte(address, v)
	c.setZN(v)
}

func (c *CPU) ror(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	carry := c.C
	c.C = (old & 0x01) != 0
	v := old >> 1
	if carry {
		v |= 0x80
	}
	c.writeByte(address, v)
	c.setZN(v)
}

func (c *CPU) cmp(address uint16) {
	value := c.readByte(address)
	c.C = c.A >= value
	c.setZN(c.A - value)
}
func (c *CPU) cpx(address uint16) {
	value := c.readByte(address)
	c.C = c.X >= value
	c.setZN(c.X - value)
}
func (c *CPU) cpy(address uint16) {
	value := c.readByte(address)
	c.C = c.Y >= value
	c.setZN(c.Y - value)
}

func (c *CPU) inc(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	v := old + 1
	c.writeByte(address, v)
	c.setZN(v)
}
func (c *CPU) dec(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	v := old - 1
	c.writeByte(address, v)
	c.setZN(v)
}
func (c *CPU) inx() { c.X++; c.setZN(c.X) }
func (c *CPU) dex() { c.X--; c.setZN(c.X) }
func (c *CPU) iny() { c.Y++; c.setZN(c.Y) }
func (c *CPU) dey() { c.Y--; c.setZN(c.Y) }

func (c *CPU) tax() { c.X = c.A; c.setZN(c.X) }
func (c *CPU) txa() { c.A = c.X; c.setZN(c.A) }
func (c *CPU) tay() { c.Y = c.A; c.setZN(c.Y) }
func (c *CPU) tya() { c.A = c.Y; c.setZN(c.A) }
func (c *CPU) tsx() { c.X = c.SP; c.setZN(c.X) }
func (c *CPU) txs() { c.SP = c.X }

func (c *CPU) pha() { c.pushTicked(c.A) }
func (c *CPU) pla() { c.readByte(stackBase + uint16(c.SP)); c.A = c.popTicked(); c.setZN(c.A) }
func (c *CPU) php() { c.pushTicked(c.GetStatusByte() | bFlagMask) }
func (c *CPU) plp() {
	c.readByte(stackBase + uint16(c.SP))
	b := c.B
	c.SetStatusByte(c.popTicked())
	c.B = b
}

func (c *CPU) clc() { c.C = false }
func (c *CPU) sec() { c.C = true }
func (c *CPU) cli() { c.I = false }
func (c *CPU) sei() { c.I = true }
func (c *CPU) clv() { c.V = false }
func (c *CPU) cld() { c.D = false }
func (c *CPU) sed() { c.D = true }

func (c *CPU) jmp(address uint16) { c.PC = address }

func (c *CPU) jsr(address uint16) {
	c.readByte(stackBase + uint16(c.SP)) // internal operation
	c.pushWordTicked(c.PC - 1)
	c.PC = address
}

func (c *CPU) rts() {
	c.readByte(stackBase + uint16(c.SP)) // internal operation
	c.PC = c.popWordTicked() + 1
	c.readByte(c.PC) // internal operation before next fetch
}

func (c *CPU) rti() {
	c.readByte(stackBase + uint16(c.SP)) // internal operation
	b := c.B
	c.SetStatusByte(c.popTicked())
	c.B = b
	c.PC = c.popWordTicked()
}

func (c *CPU) brk() {
	// The padding byte after the opcode was already read as the Implied
	// dummy fetch in getOperandAddress; only PC needs to move past it.
	c.PC++
	c.pushWordTicked(c.PC)
	c.pushTicked(c.GetStatusByte() | bFlagMask)
	c.I = true
	low := uint16(c.readByte(irqVector))
	high := uint16(c.readByte(irqVector + 1))
	c.PC = (high << 8) | low
}

func (c *CPU) branch(take bool, target uint16, pageCrossed bool) {
	if !take {
		return
	}
	c.readByte(c.PC) // extra cycle for the taken branch
	if pageCrossed {
		wrong := (c.PC & pageMask) | (target & 0xFF)
		c.readByte(wrong)
	}
	c.PC = target
}

func (c *CPU) bit(address uint16) {
	value := c.readByte(address)
	c.N = (value & nFlagMask) != 0
	c.V = (value & vFlagMask) != 0
	c.Z = (c.A & value) == 0
}

func (c *CPU) nop() {}

// ---- unofficial opcodes ---------------------------------------------------

func (c *CPU) lax(address uint16) {
	c.A = c.readByte(address)
	c.X = c.A
	c.setZN(c.A)
}

func (c *CPU) dcp(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	v := old - 1
	c.writeByte(address, v)
	c.C = c.A >= v
	c.setZN(c.A - v)
}

func (c *CPU) isb(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	v := old + 1
	c.writeByte(address, v)
	c.addWithCarry(v ^ 0xFF)
}

func (c *CPU) slo(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	c.C = (old & 0x80) != 0
	v := old << 1
	c.writeByte(address, v)
	c.A |= v
	c.setZN(c.A)
}

func (c *CPU) rla(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	carry := c.C
	c.C = (old & 0x80) != 0
	v := old << 1
	if carry {
		v |= 0x01
	}
	c.writeByte(address, v)
	c.A &= v
	c.setZN(c.A)
}

func (c *CPU) sre(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	c.C = (old & 0x01) != 0
	v := old >> 1
	c.writeByte(address, v)
	c.A ^= v
	c.setZN(c.A)
}

func (c *CPU) rra(address uint16) {
	old := c.readByte(address)
	c.writeByte(address, old)
	carry := c.C
	c.C = (old & 0x01) != 0
	v := old >> 1
	if carry {
		v |= 0x80
	}
	c.writeByte(address, v)
	c.addWithCarry(v)
}

// executeInstruction dispatches on opcode. Instructions that need bespoke
// cycle sequences (stack/control-flow ops) are handled without reference
// to the generic address already computed for them.
func (c *CPU) executeInstruction(opcode uint8, address uint16, pageCrossed bool) {
	switch opcode {
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1:
		c.lda(address)
	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE:
		c.ldx(address)
	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC:
		c.ldy(address)
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		c.sta(address)
	case 0x86, 0x96, 0x8E:
		c.stx(address)
	case 0x84, 0x94, 0x8C:
		c.sty(address)

	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		c.adc(address)
	case 0xE9, 0xEB, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1:
		c.sbc(address)

	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		c.and(address)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		c.ora(address)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		c.eor(address)

	case 0x0A:
		c.C = (c.A & 0x80) != 0
		c.A <<= 1
		c.setZN(c.A)
	case 0x06, 0x16, 0x0E, 0x1E:
		c.asl(address)
	case 0x4A:
		c.C = (c.A & 0x01) != 0
		c.A >>= 1
		c.setZN(c.A)
	case 0x46, 0x56, 0x4E, 0x5E:
		c.lsr(address)
	case 0x2A:
		carry := c.C
		c.C = (c.A & 0x80) != 0
		c.A <<= 1
		if carry {
			c.A |= 0x01
		}
		c.setZN(c.A)
	case 0x26, 0x36, 0x2E, 0x3E:
		c.rol(address)
	case 0x6A:
		carry := c.C
		c.C = (c.A & 0x01) != 0
		c.A >>= 1
		if carry {
			c.A |= 0x80
		}
		c.setZN(c.A)
	case 0x66, 0x76, 0x6E, 0x7E:
		c.ror(address)

	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		c.cmp(address)
	case 0xE0, 0xE4, 0xEC:
		c.cpx(address)
	case 0xC0, 0xC4, 0xCC:
		c.cpy(address)

	case 0xE6, 0xF6, 0xEE, 0xFE:
		c.inc(address)
	case 0xC6, 0xD6, 0xCE, 0xDE:
		c.dec(address)
	case 0xE8:
		c.inx()
	case 0xCA:
		c.dex()
	case 0xC8:
		c.iny()
	case 0x88:
		c.dey()

	case 0xAA:
		c.tax()
	case 0x8A:
		c.txa()
	case 0xA8:
		c.tay()
	case 0x98:
		c.tya()
	case 0xBA:
		c.tsx()
	case 0x9A:
		c.txs()

	case 0x48:
		c.pha()
	case 0x68:
		c.pla()
	case 0x08:
		c.php()
	case 0x28:
		c.plp()

	case 0x18:
		c.clc()
	case 0x38:
		c.sec()
	case 0x58:
		c.cli()
	case 0x78:
		c.sei()
	case 0xB8:
		c.clv()
	case 0xD8:
		c.cld()
	case 0xF8:
		c.sed()

	case 0x4C, 0x6C:
		c.jmp(address)
	case 0x20:
		c.jsr(address)
	case 0x60:
		c.rts()
	case 0x40:
		c.rti()

	case 0x90:
		c.branch(!c.C, address, pageCrossed)
	case 0xB0:
		c.branch(c.C, address, pageCrossed)
	case 0xD0:
		c.branch(!c.Z, address, pageCrossed)
	case 0xF0:
		c.branch(c.Z, address, pageCrossed)
	case 0x10:
		c.branch(!c.N, address, pageCrossed)
	case 0x30:
		c.branch(c.N, address, pageCrossed)
	case 0x50:
		c.branch(!c.V, address, pageCrossed)
	case 0x70:
		c.branch(c.V, address, pageCrossed)

	case 0x24, 0x2C:
		c.bit(address)
	case 0x00:
		c.brk()

	case 0xEA, 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA,
		0x80, 0x82, 0x89, 0xC2, 0xE2,
		0x04, 0x44, 0x64, 0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4,
		0x0C, 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC:
		if needsOperandRead(opcode) {
			c.readByte(address)
		}
		c.nop()

	case 0xA3, 0xA7, 0xAF, 0xB3, 0xB7, 0xBF:
		c.lax(address)
	case 0x83, 0x87, 0x8F, 0x97:
		c.sax(address)
	case 0xC3, 0xC7, 0xCF, 0xD3, 0xD7, 0xDF, 0xDB:
		c.dcp(address)
	case 0xE3, 0xE7, 0xEF, 0xF3, 0xF7, 0xFF, 0xFB:
		c.isb(address)
	case 0x03, 0x07, 0x0F, 0x13, 0x17, 0x1F, 0x1B:
		c.slo(address)
	case 0x23, 0x27, 0x2F, 0x33, 0x37, 0x3F, 0x3B:
		c.rla(address)
	case 0x43, 0x47, 0x4F, 0x53, 0x57, 0x5F, 0x5B:
		c.sre(address)
	case 0x63, 0x67, 0x6F, 0x73, 0x77, 0x7F, 0x7B:
		c.rra(address)
	}
}

// needsOperandRead reports whether an unofficial NOP actually reads its
// operand (zero-page/absolute/indexed forms do; single-byte forms don't,
// since Implied addressing already consumed its dummy cycle).
func needsOperandRead(opcode uint8) bool {
	switch opcode {
	case 0x04, 0x44, 0x64, 0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4,
		0x0C, 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC,
		0x80, 0x82, 0x89, 0xC2, 0xE2:
		return true
	}
	return false
}

// initInstructions populates the opcode lookup table with each opcode's
// byte count and addressing mode.
func (c *CPU) initInstructions() {
	set := func(opcode uint8, name string, bytes uint8, mode AddressingMode) {
		c.instructions[opcode] = Instruction{Name: name, Opcode: opcode, Bytes: bytes, Mode: mode}
	}

	set(0xA9, "LDA", 2, Immediate)
	set(0xA5, "LDA", 2, ZeroPage)
	set(0xB5, "LDA", 2, ZeroPageX)
	set(0xAD, "LDA", 3, Absolute)
	set(0xBD, "LDA", 3, AbsoluteX)
	set(0xB9, "LDA", 3, AbsoluteY)
	set(0xA1, "LDA", 2, IndexedIndirect)
	set(0xB1, "LDA", 2, IndirectIndexed)

	set(0xA2, "LDX", 2, Immediate)
	set(0xA6, "LDX", 2, ZeroPage)
	set(0xB6, "LDX", 2, ZeroPageY)
	set(0xAE, "LDX", 3, Absolute)
	set(0xBE, "LDX", 3, AbsoluteY)

	set(0xA0, "LDY", 2, Immediate)
	set(0xA4, "LDY", 2, ZeroPage)
	set(0xB4, "LDY", 2, ZeroPageX)
	set(0xAC, "LDY", 3, Absolute)
	set(0xBC, "LDY", 3, AbsoluteX)

	set(0x85, "STA", 2, ZeroPage)
	set(0x95, "STA", 2, ZeroPageX)
	set(0x8D, "STA", 3, Absolute)
	set(0x9D, "STA", 3, AbsoluteX)
	set(0x99, "STA", 3, AbsoluteY)
	set(0x81, "STA", 2, IndexedIndirect)
	set(0x91, "STA", 2, IndirectIndexed)

	set(0x86, "STX", 2, ZeroPage)
	set(0x96, "STX", 2, ZeroPageY)
	set(0x8E, "STX", 3, Absolute)

	set(0x84, "STY", 2, ZeroPage)
	set(0x94, "STY", 2, ZeroPageX)
	set(0x8C, "STY", 3, Absolute)

	set(0x69, "ADC", 2, Immediate)
	set(0x65, "ADC", 2, ZeroPage)
	set(0x75, "ADC", 2, ZeroPageX)
	set(0x6D, "ADC", 3, Absolute)
	set(0x7D, "ADC", 3, AbsoluteX)
	set(0x79, "ADC", 3, AbsoluteY)
	set(0x61, "ADC", 2, IndexedIndirect)
	set(0x71, "ADC", 2, IndirectIndexed)

	set(0xE9, "SBC", 2, Immediate)
	set(0xEB, "SBC", 2, Immediate)
	set(0xE5, "SBC", 2, ZeroPage)
	set(0xF5, "SBC", 2, ZeroPageX)
	set(0xED, "SBC", 3, Absolute)
	set(0xFD, "SBC", 3, AbsoluteX)
	set(0xF9, "SBC", 3, AbsoluteY)
	set(0xE1, "SBC", 2, IndexedIndirect)
	set(0xF1, "SBC", 2, IndirectIndexed)

	set(0x29, "AND", 2, Immediate)
	set(0x25, "AND", 2, ZeroPage)
	set(0x35, "AND", 2, ZeroPageX)
	set(0x2D, "AND", 3, Absolute)
	set(0x3D, "AND", 3, AbsoluteX)
	set(0x39, "AND", 3, AbsoluteY)
	set(0x21, "AND", 2, IndexedIndirect)
	set(0x31, "AND", 2, IndirectIndexed)

	set(0x09, "ORA", 2, Immediate)
	set(0x05, "ORA", 2, ZeroPage)
	set(0x15, "ORA", 2, ZeroPageX)
	set(0x0D, "ORA", 3, Absolute)
	set(0x1D, "ORA", 3, AbsoluteX)
	set(0x19, "ORA", 3, AbsoluteY)
	set(0x01, "ORA", 2, IndexedIndirect)
	set(0x11, "ORA", 2, IndirectIndexed)

	set(0x49, "EOR", 2, Immediate)
	set(0x45, "EOR", 2, ZeroPage)
	set(0x55, "EOR", 2, ZeroPageX)
	set(0x4D, "EOR", 3, Absolute)
	set(0x5D, "EOR", 3, AbsoluteX)
	set(0x59, "EOR", 3, AbsoluteY)
	set(0x41, "EOR", 2, IndexedIndirect)
	set(0x51, "EOR", 2, IndirectIndexed)

	set(0x0A, "ASL", 1, Accumulator)
	set(0x06, "ASL", 2, ZeroPage)
	set(0x16, "ASL", 2, ZeroPageX)
	set(0x0E, "ASL", 3, Absolute)
	set(0x1E, "ASL", 3, AbsoluteX)

	set(0x4A, "LSR", 1, Accumulator)
	set(0x46, "LSR", 2, ZeroPage)
	set(0x56, "LSR", 2, ZeroPageX)
	set(0x4E, "LSR", 3, Absolute)
	set(0x5E, "LSR", 3, AbsoluteX)

	set(0x2A, "ROL", 1, Accumulator)
	set(0x26, "ROL", 2, ZeroPage)
	set(0x36, "ROL", 2, ZeroPageX)
	set(0x2E, "ROL", 3, Absolute)
	set(0x3E, "ROL", 3, AbsoluteX)

	set(0x6A, "ROR", 1, Accumulator)
	set(0x66, "ROR", 2, ZeroPage)
	set(0x76, "ROR", 2, ZeroPageX)
	set(0x6E, "ROR", 3, Absolute)
	set(0x7E, "ROR", 3, AbsoluteX)

	set(0xC9, "CMP", 2, Immediate)
	set(0xC5, "CMP", 2, ZeroPage)
	set(0xD5, "CMP", 2, ZeroPageX)
	set(0xCD, "CMP", 3, Absolute)
	set(0xDD, "CMP", 3, AbsoluteX)
	set(0xD9, "CMP", 3, AbsoluteY)
	set(0xC1, "CMP", 2, IndexedIndirect)
	set(0xD1, "CMP", 2, IndirectIndexed)

	set(0xE0, "CPX", 2, Immediate)
	set(0xE4, "CPX", 2, ZeroPage)
	set(0xEC, "CPX", 3, Absolute)

	set(0xC0, "CPY", 2, Immediate)
	set(0xC4, "CPY", 2, ZeroPage)
	set(0xCC, "CPY", 3, Absolute)

	set(0xE6, "INC", 2, ZeroPage)
	set(0xF6, "INC", 2, ZeroPageX)
	set(0xEE, "INC", 3, Absolute)
	set(0xFE, "INC", 3, AbsoluteX)

	set(0xC6, "DEC", 2, ZeroPage)
	set(0xD6, "DEC", 2, ZeroPageX)
	set(0xCE, "DEC", 3, Absolute)
	set(0xDE, "DEC", 3, AbsoluteX)

	set(0xE8, "INX", 1, Implied)
	set(0xCA, "DEX", 1, Implied)
	set(0xC8, "INY", 1, Implied)
	set(0x88, "DEY", 1, Implied)

	set(0xAA, "TAX", 1, Implied)
	set(0x8A, "TXA", 1, Implied)
	set(0xA8, "TAY", 1, Implied)
	set(0x98, "TYA", 1, Implied)
	set(0xBA, "TSX", 1, Implied)
	set(0x9A, "TXS", 1, Implied)

	set(0x48, "PHA", 1, Implied)
	set(0x68, "PLA", 1, Implied)
	set(0x08, "PHP", 1, Implied)
	set(0x28, "PLP", 1, Implied)

	set(0x18, "CLC", 1, Implied)
	set(0x38, "SEC", 1, Implied)
	set(0x58, "CLI", 1, Implied)
	set(0x78, "SEI", 1, Implied)
	set(0xB8, "CLV", 1, Implied)
	set(0xD8, "CLD", 1, Implied)
	set(0xF8, "SED", 1, Implied)

	set(0x4C, "JMP", 3, Absolute)
	set(0x6C, "JMP", 3, Indirect)
	set(0x20, "JSR", 3, Absolute)
	set(0x60, "RTS", 1, Implied)
	set(0x40, "RTI", 1, Implied)

	set(0x90, "BCC", 2, Relative)
	set(0xB0, "BCS", 2, Relative)
	set(0xD0, "BNE", 2, Relative)
	set(0xF0, "BEQ", 2, Relative)
	set(0x10, "BPL", 2, Relative)
	set(0x30, "BMI", 2, Relative)
	set(0x50, "BVC", 2, Relative)
	set(0x70, "BVS", 2, Relative)

	set(0x24, "BIT", 2, ZeroPage)
	set(0x2C, "BIT", 3, Absolute)
	set(0x00, "BRK", 1, Implied)

	set(0xEA, "NOP", 1, Implied)
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		set(op, "NOP", 1, Implied)
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		set(op, "NOP", 2, Immediate)
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		set(op, "NOP", 2, ZeroPage)
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		set(op, "NOP", 2, ZeroPageX)
	}
	set(0x0C, "NOP", 3, Absolute)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		set(op, "NOP", 3, AbsoluteX)
	}

	laxOps := map[uint8]AddressingMode{
		0xA3: IndexedIndirect, 0xA7: ZeroPage, 0xAF: Absolute,
		0xB3: IndirectIndexed, 0xB7: ZeroPageY, 0xBF: AbsoluteY,
	}
	for op, mode := range laxOps {
		set(op, "LAX", 2, mode)
	}

	saxOps := map[uint8]AddressingMode{
		0x83: IndexedIndirect, 0x87: ZeroPage, 0x8F: Absolute, 0x97: ZeroPageY,
	}
	for op, mode := range saxOps {
		set(op, "SAX", 2, mode)
	}

	rmwFamily := func(name string, zp, zpx, abs, absx, absy, indX, indY uint8) {
		set(zp, name, 2, ZeroPage)
		set(zpx, name, 2, ZeroPageX)
		set(abs, name, 3, Absolute)
		set(absx, name, 3, AbsoluteX)
		set(absy, name, 3, AbsoluteY)
		set(indX, name, 2, IndexedIndirect)
		set(indY, name, 2, IndirectIndexed)
	}
	rmwFamily("DCP", 0xC7, 0xD7, 0xCF, 0xDF, 0xDB, 0xC3, 0xD3)
	rmwFamily("ISB", 0xE7, 0xF7, 0xEF, 0xFF, 0xFB, 0xE3, 0xF3)
	rmwFamily("SLO", 0x07, 0x17, 0x0F, 0x1F, 0x1B, 0x03, 0x13)
	rmwFamily("RLA", 0x27, 0x37, 0x2F, 0x3F, 0x3B, 0x23, 0x33)
	rmwFamily("SRE", 0x47, 0x57, 0x4F, 0x5F, 0x5B, 0x43, 0x53)
	rmwFamily("RRA", 0x67, 0x77, 0x6F, 0x7F, 0x7B, 0x63, 0x73)
}
