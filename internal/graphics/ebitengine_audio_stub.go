//go:build headless
// +build headless

package graphics

import "fmt"

// AudioPlayer stub for headless builds, where there is no audio device.
type AudioPlayer struct{}

func NewAudioPlayer(sampleRate int) (*AudioPlayer, error) {
	return nil, fmt.Errorf("audio playback not available in headless build")
}

func (p *AudioPlayer) QueueSamples(samples []float32) {}
func (p *AudioPlayer) SetVolume(volume float64)       {}
func (p *AudioPlayer) Close() error                   { return nil }
