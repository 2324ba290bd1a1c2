// Package app provides emulator integration for the main application.
package app

import (
	"fmt"
	"time"

	"gones/internal/engine"
	"gones/internal/graphics"
)

// Emulator drives the emulation engine at a fixed 60Hz cadence and exposes
// the frame/audio output the presentation layer needs each tick.
type Emulator struct {
	eng    *engine.Engine
	config *Config

	targetFrameTime time.Duration

	frameBuffer  []uint32
	audioSamples []float32

	actualFrameTime  time.Duration
	emulationTime    time.Duration
	averageFrameTime time.Duration
	frameCount       uint64

	isRunning     bool
	lastResetTime time.Time
}

// NewEmulator creates an emulator instance driving eng at a fixed 60 FPS cadence.
func NewEmulator(eng *engine.Engine, config *Config) *Emulator {
	e := &Emulator{
		eng:             eng,
		config:          config,
		targetFrameTime: time.Second / 60,
		frameBuffer:     make([]uint32, 256*240),
		audioSamples:    make([]float32, 0, 1024),
	}
	e.Reset()
	return e
}

// Reset clears accumulated timing and buffer state without touching the
// underlying engine.
func (e *Emulator) Reset() {
	e.frameCount = 0
	e.actualFrameTime = 0
	e.emulationTime = 0
	e.averageFrameTime = 0
	e.lastResetTime = time.Now()

	for i := range e.frameBuffer {
		e.frameBuffer[i] = 0
	}
	e.audioSamples = e.audioSamples[:0]
}

// Start starts the emulator.
func (e *Emulator) Start() { e.isRunning = true }

// Stop stops the emulator.
func (e *Emulator) Stop() { e.isRunning = false }

// Update runs exactly one frame of emulation, intended to be called once
// per host tick (e.g. from an Ebitengine Update callback).
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}

	frameStart := time.Now()
	if err := e.StepFrame(); err != nil {
		return fmt.Errorf("frame execution error: %v", err)
	}
	e.actualFrameTime = time.Since(frameStart)
	e.recordFrameTime(e.actualFrameTime)

	return nil
}

// StepFrame runs the engine for exactly one NTSC frame and refreshes the
// cached frame buffer and audio samples.
func (e *Emulator) StepFrame() error {
	if e.eng == nil {
		return fmt.Errorf("engine not initialized")
	}

	emulationStart := time.Now()
	e.eng.RunForFrame()
	e.frameCount++

	rgbFrame := graphics.FramebufferToRGB(e.eng.Framebuffer())
	copy(e.frameBuffer, rgbFrame[:])

	if samples := e.eng.AudioSamples(); len(samples) > 0 {
		if cap(e.audioSamples) < len(samples) {
			e.audioSamples = make([]float32, len(samples))
		} else {
			e.audioSamples = e.audioSamples[:len(samples)]
		}
		copy(e.audioSamples, samples)
	}

	e.emulationTime = time.Since(emulationStart)
	return nil
}

// StepInstruction executes one CPU instruction.
func (e *Emulator) StepInstruction() error {
	if e.eng == nil {
		return fmt.Errorf("engine not initialized")
	}
	e.eng.StepOpcode()
	return nil
}

func (e *Emulator) recordFrameTime(frameTime time.Duration) {
	if e.averageFrameTime == 0 {
		e.averageFrameTime = frameTime
		return
	}
	e.averageFrameTime = time.Duration(float64(e.averageFrameTime)*0.95 + float64(frameTime)*0.05)
}

// GetFrameBuffer returns the current frame buffer.
func (e *Emulator) GetFrameBuffer() []uint32 { return e.frameBuffer }

// GetAudioSamples returns the current audio samples.
func (e *Emulator) GetAudioSamples() []float32 { return e.audioSamples }

// GetFrameCount returns the number of frames run through this emulator.
func (e *Emulator) GetFrameCount() uint64 { return e.frameCount }

// GetCycleCount returns the current CPU cycle count.
func (e *Emulator) GetCycleCount() uint64 {
	if e.eng == nil {
		return 0
	}
	return e.eng.CycleCount()
}

// GetEmulationTime returns the time spent in emulation for the last frame.
func (e *Emulator) GetEmulationTime() time.Duration { return e.emulationTime }

// GetActualFrameTime returns the actual frame time including rendering.
func (e *Emulator) GetActualFrameTime() time.Duration { return e.actualFrameTime }

// GetAverageFrameTime returns the average frame time.
func (e *Emulator) GetAverageFrameTime() time.Duration { return e.averageFrameTime }

// GetTargetFrameTime returns the target frame time (60 FPS).
func (e *Emulator) GetTargetFrameTime() time.Duration { return e.targetFrameTime }

// GetEmulationSpeed returns the emulation speed as a percentage of real-time.
func (e *Emulator) GetEmulationSpeed() float64 {
	if e.actualFrameTime == 0 {
		return 0
	}
	return float64(e.targetFrameTime) / float64(e.actualFrameTime) * 100.0
}

// IsRunning returns whether the emulator is running.
func (e *Emulator) IsRunning() bool { return e.isRunning }

// GetUptime returns the emulator uptime since last reset.
func (e *Emulator) GetUptime() time.Duration { return time.Since(e.lastResetTime) }

// SetTargetFrameRate sets the target frame rate.
func (e *Emulator) SetTargetFrameRate(fps int) {
	if fps > 0 {
		e.targetFrameTime = time.Second / time.Duration(fps)
	}
}

// Cleanup releases emulator buffers.
func (e *Emulator) Cleanup() error {
	e.Stop()
	e.frameBuffer = nil
	e.audioSamples = nil
	return nil
}
