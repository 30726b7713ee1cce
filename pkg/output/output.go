// Package output provides the native audio devices the manager plays
// through.
//
// Two backends are available:
//   - "portaudio": one callback stream per voice, any PCM format PortAudio
//     accepts (16/24/32-bit)
//   - "oto": a single oto context, voices limited to the context format
//     (16-bit signed little-endian)
//
// Example:
//
//	dev, err := output.New(output.DefaultConfig(), slog.Default())
//	mgr := audiomanager.New(audiomanager.DefaultConfig(), dev)
//	err = mgr.StartUp()
package output

import (
	"fmt"
	"log/slog"

	"github.com/drgolem/sfxmanager/pkg/types"
)

// Backend names accepted by New.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// Config holds output device configuration
type Config struct {
	Backend         string // "portaudio" or "oto"
	DeviceIndex     int    // PortAudio output device index
	FramesPerBuffer int    // PortAudio frames per callback
	SampleRate      int    // oto context sample rate
	Channels        int    // oto context channel count
}

// DefaultConfig returns default output configuration
func DefaultConfig() Config {
	return Config{
		Backend:         BackendPortAudio,
		DeviceIndex:     1,
		FramesPerBuffer: 512,
		SampleRate:      44100,
		Channels:        2,
	}
}

// New creates the device selected by cfg.Backend. The device is not
// initialized until the manager starts up.
func New(cfg Config, logger *slog.Logger) (types.Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case BackendPortAudio, "":
		return NewPortAudio(cfg.DeviceIndex, cfg.FramesPerBuffer, logger), nil
	case BackendOto:
		return NewOto(cfg.SampleRate, cfg.Channels, logger), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %q", cfg.Backend)
	}
}

// UnsupportedFormatError is returned when a backend cannot create a voice for
// the requested format.
type UnsupportedFormatError struct {
	Backend string
	Format  types.AudioFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format %dHz:%dbit:%dch (tag 0x%04x)",
		e.Backend, e.Format.SampleRate, e.Format.BitsPerSample, e.Format.Channels, e.Format.FormatTag)
}

// cursor tracks the read position of a voice in its submitted buffer.
// It is shared between the caller and the audio thread and is only touched
// under the owning voice's lock.
type cursor struct {
	buf    *types.SampleBuffer
	offset int
}

// fill copies pending bytes into out and zeroes the rest. It returns the
// number of bytes copied and whether the buffer is exhausted.
func (c *cursor) fill(out []byte) (int, bool) {
	n := 0
	if c.buf != nil && c.offset < len(c.buf.Data) {
		n = copy(out, c.buf.Data[c.offset:])
		c.offset += n
	}
	if n < len(out) {
		clear(out[n:])
	}
	return n, c.buf == nil || c.offset >= len(c.buf.Data)
}
