//go:build !headless
// +build !headless

package graphics

import (
	"bytes"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// maxBufferedBytes caps how much audio the ring buffer holds before
// dropping the oldest bytes, bounding latency to roughly a quarter second
// at 44.1kHz stereo 16-bit.
const maxBufferedBytes = 44100 / 4 * 2 * 2

// AudioPlayer streams mono float32 APU samples to the host's audio device
// through Ebitengine's audio package, converting each batch to 16-bit
// stereo PCM as it arrives.
type AudioPlayer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	ctx    *audio.Context
	player *audio.Player
	volume float64
}

// NewAudioPlayer creates a streaming player at the given sample rate. The
// returned player's Read method is fed from an internal ring buffer filled
// by QueueSamples, so playback never blocks waiting on the emulator.
func NewAudioPlayer(sampleRate int) (*AudioPlayer, error) {
	p := &AudioPlayer{
		ctx:    audio.NewContext(sampleRate),
		volume: 1.0,
	}
	player, err := p.ctx.NewPlayer(p)
	if err != nil {
		return nil, err
	}
	p.player = player
	p.player.SetVolume(p.volume)
	p.player.Play()
	return p, nil
}

// Read implements io.Reader, supplying silence when the ring buffer is
// drained so the underlying stream never stalls.
func (p *AudioPlayer) Read(dst []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, _ := p.buf.Read(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return len(dst), nil
}

// QueueSamples converts mono [-1,1] float32 samples to 16-bit stereo PCM
// and appends them to the ring buffer, dropping the oldest buffered audio
// first if the batch would exceed the latency cap.
func (p *AudioPlayer) QueueSamples(samples []float32) {
	if len(samples) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		frame := [4]byte{byte(v), byte(v >> 8), byte(v), byte(v >> 8)}
		p.buf.Write(frame[:])
	}

	if over := p.buf.Len() - maxBufferedBytes; over > 0 {
		p.buf.Next(over)
	}
}

// SetVolume sets playback volume in [0, 1].
func (p *AudioPlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.player.SetVolume(volume)
}

// Close stops playback.
func (p *AudioPlayer) Close() error {
	return p.player.Close()
}
