package cpu

import (
	"testing"

	"gones/internal/interrupt"
	"gones/internal/trace"
)

// fakeBus is a flat 64KB RAM image satisfying cpu.Bus and cpu.RawPeeker.
type fakeBus struct {
	mem   [0x10000]uint8
	reads int
}

func (b *fakeBus) TickedRead(address uint16) uint8 {
	b.reads++
	return b.mem[address]
}
func (b *fakeBus) TickedWrite(address uint16, value uint8) { b.mem[address] = value }
func (b *fakeBus) RawRead(address uint16) uint8             { return b.mem[address] }

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	bus.mem[resetVector] = 0x00
	bus.mem[resetVector+1] = 0x80
	c := New(bus)
	c.Reset()
	return c, bus
}

func load(bus *fakeBus, addr uint16, bytes ...uint8) {
	for i, b := range bytes {
		bus.mem[int(addr)+i] = b
	}
}

func TestResetSequenceTakesSevenCycles(t *testing.T) {
	bus := &fakeBus{}
	bus.mem[resetVector] = 0x34
	bus.mem[resetVector+1] = 0x12
	c := New(bus)
	c.Reset()
	if c.cycles != 7 {
		t.Fatalf("cycles after Reset = %d, want 7", c.cycles)
	}
	if c.PC != 0x1234 {
		t.Fatalf("PC after Reset = %#x, want 0x1234", c.PC)
	}
	if c.SP != 0xFD {
		t.Fatalf("SP after Reset = %#x, want 0xFD", c.SP)
	}
	if !c.I {
		t.Fatalf("I flag not set after Reset")
	}
}

func TestImmediateLDATakesTwoCycles(t *testing.T) {
	c, bus := newTestCPU()
	load(bus, c.PC, 0xA9, 0x42)
	n := c.Step()
	if n != 2 {
		t.Fatalf("LDA #imm cycles = %d, want 2", n)
	}
	if c.A != 0x42 {
		t.Fatalf("A = %#x, want 0x42", c.A)
	}
	if c.Z || !(c.A&0x80 == 0) {
		t.Fatalf("unexpected flags for A=0x42")
	}
}

func TestZeroPageXTakesFourCycles(t *testing.T) {
	c, bus := newTestCPU()
	c.X = 1
	load(bus, c.PC, 0xB5, 0x10) // LDA zp,X
	bus.mem[0x11] = 0x99
	n := c.Step()
	if n != 4 {
		t.Fatalf("LDA zp,X cycles = %d, want 4", n)
	}
	if c.A != 0x99 {
		t.Fatalf("A = %#x, want 0x99", c.A)
	}
}

func TestAbsoluteXExtraCycleOnPageCross(t *testing.T) {
	c, bus := newTestCPU()
	c.X = 0xFF
	load(bus, c.PC, 0xBD, 0x01, 0x00) // LDA $0001,X -> $0100 (page cross)
	bus.mem[0x0100] = 0x77
	n := c.Step()
	if n != 5 {
		t.Fatalf("LDA abs,X with page cross cycles = %d, want 5", n)
	}
	if c.A != 0x77 {
		t.Fatalf("A = %#x, want 0x77", c.A)
	}
}

func TestAbsoluteXNoExtraCycleWithoutPageCross(t *testing.T) {
	c, bus := newTestCPU()
	c.X = 0x01
	load(bus, c.PC, 0xBD, 0x10, 0x00) // LDA $0010,X -> $0011
	bus.mem[0x0011] = 0x55
	n := c.Step()
	if n != 4 {
		t.Fatalf("LDA abs,X without page cross cycles = %d, want 4", n)
	}
}

func TestStoreAbsoluteXAlwaysPaysExtraCycle(t *testing.T) {
	c, bus := newTestCPU()
	c.X = 0x01
	c.A = 0xAB
	load(bus, c.PC, 0x9D, 0x10, 0x00) // STA $0010,X -> $0011, no page cross
	n := c.Step()
	if n != 5 {
		t.Fatalf("STA abs,X cycles = %d, want 5 (store always pays the dummy read)", n)
	}
	if bus.mem[0x0011] != 0xAB {
		t.Fatalf("mem[0x0011] = %#x, want 0xAB", bus.mem[0x0011])
	}
}

func TestRMWAbsoluteTakesSixCycles(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x0300] = 0x01
	load(bus, c.PC, 0x0E, 0x00, 0x03) // ASL $0300
	n := c.Step()
	if n != 6 {
		t.Fatalf("ASL abs cycles = %d, want 6", n)
	}
	if bus.mem[0x0300] != 0x02 {
		t.Fatalf("mem[0x0300] = %#x, want 0x02", bus.mem[0x0300])
	}
}

func TestADCOverflowAndCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.A = 0x7F
	load(bus, c.PC, 0x69, 0x01) // ADC #1 -> overflow into negative
	c.Step()
	if c.A != 0x80 {
		t.Fatalf("A = %#x, want 0x80", c.A)
	}
	if !c.V {
		t.Fatalf("V flag not set on signed overflow")
	}
	if c.C {
		t.Fatalf("C flag incorrectly set")
	}
	if !c.N {
		t.Fatalf("N flag not set for result 0x80")
	}
}

func TestSBCBorrowClearsCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.A = 0x00
	c.C = true // no borrow going in
	load(bus, c.PC, 0xE9, 0x01) // SBC #1 -> 0xFF, borrow occurred
	c.Step()
	if c.A != 0xFF {
		t.Fatalf("A = %#x, want 0xFF", c.A)
	}
	if c.C {
		t.Fatalf("C flag set, want clear (borrow occurred)")
	}
}

func TestBranchTakenAddsOneCycle(t *testing.T) {
	c, bus := newTestCPU()
	c.Z = true
	load(bus, c.PC, 0xF0, 0x05) // BEQ +5, no page cross
	n := c.Step()
	if n != 3 {
		t.Fatalf("BEQ taken (no page cross) cycles = %d, want 3", n)
	}
}

func TestBranchNotTakenCostsTwoCycles(t *testing.T) {
	c, bus := newTestCPU()
	c.Z = false
	load(bus, c.PC, 0xF0, 0x05) // BEQ, not taken
	n := c.Step()
	if n != 2 {
		t.Fatalf("BEQ not taken cycles = %d, want 2", n)
	}
}

func TestBranchTakenWithPageCrossAddsTwoCycles(t *testing.T) {
	c, bus := newTestCPU()
	c.PC = 0x00FD
	c.Z = true
	load(bus, c.PC, 0xF0, 0x05) // target crosses into next page
	n := c.Step()
	if n != 4 {
		t.Fatalf("BEQ taken with page cross cycles = %d, want 4", n)
	}
}

func TestJSRAndRTSRoundTrip(t *testing.T) {
	c, bus := newTestCPU()
	load(bus, c.PC, 0x20, 0x00, 0x90) // JSR $9000
	bus.mem[0x9000] = 0x60            // RTS
	retPC := c.PC + 3

	n := c.Step()
	if n != 6 {
		t.Fatalf("JSR cycles = %d, want 6", n)
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC after JSR = %#x, want 0x9000", c.PC)
	}

	n = c.Step()
	if n != 6 {
		t.Fatalf("RTS cycles = %d, want 6", n)
	}
	if c.PC != retPC {
		t.Fatalf("PC after RTS = %#x, want %#x", c.PC, retPC)
	}
}

func TestPHPSetsBreakBit(t *testing.T) {
	c, bus := newTestCPU()
	load(bus, c.PC, 0x08) // PHP
	c.Step()
	pushed := bus.mem[stackBase+uint16(c.SP)+1]
	if pushed&bFlagMask == 0 {
		t.Fatalf("pushed status %#x, want break bit set", pushed)
	}
}

func TestBRKPushesStatusWithBreakSetAndVectorsThroughIRQ(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[irqVector] = 0x00
	bus.mem[irqVector+1] = 0xA0
	load(bus, c.PC, 0x00) // BRK
	n := c.Step()
	if n != 7 {
		t.Fatalf("BRK cycles = %d, want 7", n)
	}
	if c.PC != 0xA000 {
		t.Fatalf("PC after BRK = %#x, want 0xA000", c.PC)
	}
	if !c.I {
		t.Fatalf("I flag not set after BRK")
	}
}

func TestNMIServicedBeforeNextOpcodeFetch(t *testing.T) {
	c, bus := newTestCPU()
	lines := &interrupt.Lines{}
	c.SetInterruptLines(lines)
	bus.mem[nmiVector] = 0x00
	bus.mem[nmiVector+1] = 0xB0
	load(bus, c.PC, 0xA9, 0x42) // LDA #$42, should not execute yet

	lines.NMI = true
	n := c.Step()
	if n != 7 {
		t.Fatalf("NMI service cycles = %d, want 7", n)
	}
	if c.PC != 0xB000 {
		t.Fatalf("PC after NMI = %#x, want 0xB000", c.PC)
	}
	if lines.NMI {
		t.Fatalf("NMI line not cleared after servicing")
	}
	if c.A == 0x42 {
		t.Fatalf("LDA executed despite pending NMI taking priority")
	}
}

func TestIRQIgnoredWhenInterruptDisableSet(t *testing.T) {
	c, bus := newTestCPU()
	lines := &interrupt.Lines{}
	c.SetInterruptLines(lines)
	c.I = true
	load(bus, c.PC, 0xA9, 0x42)
	lines.IRQ = true
	c.Step()
	if c.A != 0x42 {
		t.Fatalf("A = %#x, want 0x42 (IRQ should have been masked by I flag)", c.A)
	}
}

func TestJAMOpcodeHaltsCPU(t *testing.T) {
	c, bus := newTestCPU()
	load(bus, c.PC, 0x02) // JAM
	c.Step()
	if !c.Halted() {
		t.Fatalf("CPU not halted after JAM opcode")
	}
	cyclesBefore := c.cycles
	c.Step()
	if c.cycles-cyclesBefore != 1 {
		t.Fatalf("halted Step() consumed %d cycles, want 1", c.cycles-cyclesBefore)
	}
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x30FF] = 0x80
	bus.mem[0x3000] = 0x90 // high byte fetched from start of same page, not 0x3100
	bus.mem[0x3100] = 0xFF
	load(bus, c.PC, 0x6C, 0xFF, 0x30) // JMP ($30FF)
	c.Step()
	if c.PC != 0x9080 {
		t.Fatalf("PC after indirect JMP page-wrap = %#x, want 0x9080", c.PC)
	}
}

func TestTraceRingReceivesEntryAfterStep(t *testing.T) {
	c, bus := newTestCPU()
	var ring trace.Ring
	c.SetTrace(&ring)
	pc := c.PC
	load(bus, c.PC, 0xA9, 0x55) // LDA #$55
	c.Step()
	if ring.Len() != 1 {
		t.Fatalf("trace ring len = %d, want 1", ring.Len())
	}
	entries := ring.Entries()
	if entries[0].PC != pc || entries[0].Opcode != 0xA9 || entries[0].Arg1 != 0x55 {
		t.Fatalf("trace entry = %+v, want PC=%#x Opcode=0xA9 Arg1=0x55", entries[0], pc)
	}
}

func TestDCPUnofficialOpcode(t *testing.T) {
	c, bus := newTestCPU()
	c.A = 0x10
	bus.mem[0x0050] = 0x05
	load(bus, c.PC, 0xC7, 0x50) // DCP $50
	c.Step()
	if bus.mem[0x0050] != 0x04 {
		t.Fatalf("mem[0x50] = %#x, want 0x04 (decremented)", bus.mem[0x0050])
	}
	if !c.C {
		t.Fatalf("C flag not set, want set (A >= decremented value)")
	}
}

func TestPLPDoesNotRestoreBreakBit(t *testing.T) {
	c, bus := newTestCPU()
	load(bus, c.PC, 0x08) // PHP (pushes B=1)
	c.Step()
	bus.mem[stackBase+uint16(c.SP)+1] &^= bFlagMask // stacked value now has B=0

	c.B = true
	load(bus, c.PC, 0x28) // PLP
	c.Step()

	if !c.B {
		t.Fatalf("B flag changed by PLP, want unchanged (true)")
	}
}

func TestRTIDoesNotRestoreBreakBit(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[nmiVector] = 0x00
	bus.mem[nmiVector+1] = 0x80
	lines := &interrupt.Lines{}
	c.SetInterruptLines(lines)

	c.B = true
	lines.NMI = true
	c.Step() // NMI pushes status with B=0

	load(bus, c.PC, 0x40) // RTI, pops the NMI-pushed status (B=0)
	c.Step()

	if !c.B {
		t.Fatalf("B flag changed by RTI, want unchanged (true)")
	}
}
