// Package engine assembles the bus, CPU, PPU, APU, cartridge, and
// controllers into a single cycle-driven unit, and is the only thing a
// presentation layer (a GUI, a headless test harness) needs to drive.
package engine

import (
	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/input"
	"gones/internal/interrupt"
)

// cyclesPerFrame is the NTSC CPU cycle budget of one frame. An instruction
// cannot stop part-way, so a frame usually runs a few cycles past its
// budget; Engine carries that overshoot forward and takes it off the next
// frame's budget instead of dropping it.
const cyclesPerFrame = 29780

// Engine drives one NES system: every operation advances the shared bus by
// a whole number of CPU cycles and returns control to the caller, never
// blocking or spawning goroutines.
type Engine struct {
	Bus *bus.Bus

	frameCycleRemainder uint64 // CPU cycles the previous RunForFrame ran past its budget
}

// New creates an engine with no cartridge loaded.
func New() *Engine {
	return &Engine{Bus: bus.New()}
}

// LoadCartridge installs a cartridge and resets the system.
func (e *Engine) LoadCartridge(cart *cartridge.Cartridge) {
	e.Bus.LoadCartridge(cart)
	e.frameCycleRemainder = 0
}

// Reset resets every component without unloading the cartridge.
func (e *Engine) Reset() {
	e.Bus.Reset()
	e.frameCycleRemainder = 0
}

// StepOpcode executes exactly one CPU instruction (or interrupt service
// routine) and returns the number of CPU cycles it consumed.
func (e *Engine) StepOpcode() uint64 {
	return e.Bus.CPU.Step()
}

// RunForScanline steps whole opcodes until the PPU is no longer on the
// scanline it was on at the call. Started at dot 0 this covers one full
// scanline (341 PPU dots) plus the tail of the last opcode; started
// mid-scanline it covers only the rest of that scanline.
func (e *Engine) RunForScanline() {
	startScanline := e.Bus.PPU.Scanline()
	startDot := e.Bus.PPU.Dot()
	for {
		e.StepOpcode()
		if e.Bus.PPU.Scanline() != startScanline || e.Bus.PPU.Dot() < startDot {
			return
		}
	}
}

// RunForFrame steps whole opcodes for cyclesPerFrame CPU cycles, less the
// overshoot of the previous call, and records this call's own overshoot
// for the next one.
func (e *Engine) RunForFrame() {
	budget := uint64(cyclesPerFrame)
	if e.frameCycleRemainder < budget {
		budget -= e.frameCycleRemainder
	} else {
		budget = 0
	}

	target := e.Bus.CycleCount() + budget
	for e.Bus.CycleCount() < target {
		e.StepOpcode()
	}
	e.frameCycleRemainder = e.Bus.CycleCount() - target
}

// Press sets a controller button down.
func (e *Engine) Press(controller int, button input.Button) {
	e.setButton(controller, button, true)
}

// Release sets a controller button up.
func (e *Engine) Release(controller int, button input.Button) {
	e.setButton(controller, button, false)
}

func (e *Engine) setButton(controller int, button input.Button, pressed bool) {
	var c *input.Controller
	switch controller {
	case 1:
		c = e.Bus.Input.Controller1
	case 2:
		c = e.Bus.Input.Controller2
	default:
		return
	}
	c.SetButton(button, pressed)
}

// Framebuffer returns the PPU's current palette-index framebuffer.
func (e *Engine) Framebuffer() *[256 * 240]uint8 { return e.Bus.Framebuffer() }

// FrameCount returns the number of frames completed so far.
func (e *Engine) FrameCount() uint64 { return e.Bus.FrameCount() }

// CycleCount returns the total number of CPU cycles elapsed.
func (e *Engine) CycleCount() uint64 { return e.Bus.CycleCount() }

// InterruptLines exposes the shared NMI/IRQ cell for debugger inspection.
func (e *Engine) InterruptLines() *interrupt.Lines { return e.Bus.InterruptLines() }

// AudioSamples returns and clears the APU's pending sample buffer.
func (e *Engine) AudioSamples() []float32 { return e.Bus.APU.GetSamples() }
