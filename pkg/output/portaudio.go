package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/sfxmanager/pkg/types"
)

// PortAudio is a types.Device backed by PortAudio. Each voice owns a
// callback stream opened for the voice format.
type PortAudio struct {
	deviceIndex     int
	framesPerBuffer int
	logger          *slog.Logger
}

// NewPortAudio creates a PortAudio device writing to deviceIdx.
func NewPortAudio(deviceIdx, framesPerBuffer int, logger *slog.Logger) *PortAudio {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultConfig().FramesPerBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudio{
		deviceIndex:     deviceIdx,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}
}

func (d *PortAudio) Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	d.logger.Info("PortAudio initialized",
		"version", portaudio.GetVersion(),
		"device_index", d.deviceIndex,
		"frames_per_buffer", d.framesPerBuffer)
	return nil
}

// OpenMaster returns the master output. PortAudio has no master voice, so
// this only tracks the streams opened through it.
func (d *PortAudio) OpenMaster() (types.Master, error) {
	return &paMaster{dev: d, voices: make(map[*paVoice]struct{})}, nil
}

func (d *PortAudio) Terminate() error {
	return portaudio.Terminate()
}

type paMaster struct {
	dev *PortAudio

	mu     sync.Mutex
	voices map[*paVoice]struct{}
	closed bool
}

func (m *paMaster) NewVoice(format types.AudioFormat) (types.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("master output closed")
	}

	sampleFormat, err := paSampleFormat(format)
	if err != nil {
		return nil, err
	}

	v := &paVoice{
		master:     m,
		frameBytes: format.BytesPerFrame(),
		logger:     m.dev.logger,
	}
	v.done.Store(true)
	v.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  m.dev.deviceIndex,
			ChannelCount: int(format.Channels),
			SampleFormat: sampleFormat,
		},
		SampleRate: float64(format.SampleRate),
	}
	if err := v.stream.OpenCallback(m.dev.framesPerBuffer, v.audioCallback); err != nil {
		return nil, fmt.Errorf("failed to open stream with callback: %w", err)
	}

	m.voices[v] = struct{}{}
	return v, nil
}

// Close destroys voices still attached to the master.
func (m *paMaster) Close() error {
	m.mu.Lock()
	voices := make([]*paVoice, 0, len(m.voices))
	for v := range m.voices {
		voices = append(voices, v)
	}
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, v := range voices {
		if err := v.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *paMaster) forget(v *paVoice) {
	m.mu.Lock()
	delete(m.voices, v)
	m.mu.Unlock()
}

func paSampleFormat(format types.AudioFormat) (portaudio.PaSampleFormat, error) {
	if !format.IsPCM() || format.Channels == 0 || format.SampleRate == 0 {
		return 0, &UnsupportedFormatError{Backend: BackendPortAudio, Format: format}
	}
	switch format.BitsPerSample {
	case 16:
		return portaudio.SampleFmtInt16, nil
	case 24:
		return portaudio.SampleFmtInt24, nil
	case 32:
		return portaudio.SampleFmtInt32, nil
	default:
		return 0, &UnsupportedFormatError{Backend: BackendPortAudio, Format: format}
	}
}

// paVoice plays one submitted buffer through its own stream.
type paVoice struct {
	master     *paMaster
	stream     *portaudio.PaStream
	frameBytes int
	logger     *slog.Logger

	// ctl serializes stream control; mu guards the cursor and is the only
	// lock taken by the callback. StopStream waits for a running callback,
	// so it is never called with mu held.
	ctl       sync.Mutex
	started   bool
	destroyed bool

	mu  sync.Mutex
	cur cursor

	done atomic.Bool
}

func (v *paVoice) Submit(buf *types.SampleBuffer) error {
	v.ctl.Lock()
	defer v.ctl.Unlock()
	if v.destroyed {
		return errors.New("voice destroyed")
	}
	v.mu.Lock()
	v.cur = cursor{buf: buf}
	v.mu.Unlock()
	return nil
}

// Start plays the submitted buffer from the beginning. A stream that
// completed a previous buffer is stopped and started again.
func (v *paVoice) Start() error {
	v.ctl.Lock()
	defer v.ctl.Unlock()
	if v.destroyed {
		return errors.New("voice destroyed")
	}

	if v.started {
		if err := v.stream.StopStream(); err != nil {
			v.logger.Debug("Stop before restart failed", "error", err)
		}
		v.started = false
	}

	v.mu.Lock()
	v.cur.offset = 0
	v.mu.Unlock()
	v.done.Store(false)
	if err := v.stream.StartStream(); err != nil {
		v.done.Store(true)
		return fmt.Errorf("failed to start stream: %w", err)
	}
	v.started = true
	return nil
}

func (v *paVoice) Done() bool {
	return v.done.Load()
}

func (v *paVoice) Destroy() error {
	v.ctl.Lock()
	defer v.ctl.Unlock()
	if v.destroyed {
		return nil
	}
	v.destroyed = true
	v.master.forget(v)

	if v.started {
		v.started = false
		if err := v.stream.StopStream(); err != nil {
			v.logger.Warn("Failed to stop stream", "error", err)
		}
	}
	v.done.Store(true)
	if err := v.stream.CloseCallback(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// audioCallback fills output from the submitted buffer and completes the
// stream once the buffer has been played out.
//
// It runs on PortAudio's real-time thread: no allocations, no blocking
// beyond the voice lock.
func (v *paVoice) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {

	bytesNeeded := min(int(frameCount)*v.frameBytes, len(output))

	v.mu.Lock()
	_, exhausted := v.cur.fill(output[:bytesNeeded])
	v.mu.Unlock()

	if exhausted {
		v.done.Store(true)
		return portaudio.Complete
	}
	return portaudio.Continue
}
