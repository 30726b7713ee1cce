package audiotest

import (
	"errors"
	"sync"

	"github.com/drgolem/sfxmanager/pkg/types"
)

// ErrInjected is the default error returned by failure hooks.
var ErrInjected = errors.New("injected failure")

// Device is an in-memory types.Device. Its exported error fields inject
// failures into the matching native call.
type Device struct {
	InitErr      error
	MasterErr    error
	TerminateErr error
	VoiceErr     error
	SubmitErr    error
	StartErr     error
	DestroyErr   error
	CloseErr     error

	// HoldPlayback keeps started voices playing until Finish is called.
	HoldPlayback bool

	mu          sync.Mutex
	initialized bool
	terminated  bool
	master      *Master
	voices      []*Voice
}

// NewDevice returns a device whose calls all succeed.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InitErr != nil {
		return d.InitErr
	}
	d.initialized = true
	return nil
}

func (d *Device) OpenMaster() (types.Master, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.MasterErr != nil {
		return nil, d.MasterErr
	}
	d.master = &Master{dev: d}
	return d.master, nil
}

func (d *Device) Terminate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terminated = true
	return d.TerminateErr
}

// Initialized reports whether Initialize succeeded.
func (d *Device) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Terminated reports whether Terminate was called.
func (d *Device) Terminated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.terminated
}

// MasterClosed reports whether the master output was closed.
func (d *Device) MasterClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.master != nil && d.master.closed
}

// Voices returns every voice created so far.
func (d *Device) Voices() []*Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Voice(nil), d.voices...)
}

// VoicesCreated returns the number of successful NewVoice calls.
func (d *Device) VoicesCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.voices)
}

// LiveVoices returns the number of voices not yet destroyed.
func (d *Device) LiveVoices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.voices {
		if !v.destroyed {
			n++
		}
	}
	return n
}

// FinishAll marks every playing voice as finished.
func (d *Device) FinishAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range d.voices {
		v.playing = false
	}
}

// Master is the fake master output.
type Master struct {
	dev    *Device
	closed bool
}

func (m *Master) NewVoice(format types.AudioFormat) (types.Voice, error) {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	if m.dev.VoiceErr != nil {
		return nil, m.dev.VoiceErr
	}
	v := &Voice{dev: m.dev, format: format, id: len(m.dev.voices) + 1}
	m.dev.voices = append(m.dev.voices, v)
	return v, nil
}

func (m *Master) Close() error {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	m.closed = true
	return m.dev.CloseErr
}

// Voice is the fake playback channel.
type Voice struct {
	dev       *Device
	id        int
	format    types.AudioFormat
	last      *types.SampleBuffer
	submits   int
	starts    int
	playing   bool
	destroyed bool
}

func (v *Voice) Submit(buf *types.SampleBuffer) error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	if v.dev.SubmitErr != nil {
		return v.dev.SubmitErr
	}
	v.last = buf
	v.submits++
	return nil
}

func (v *Voice) Start() error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	if v.dev.StartErr != nil {
		return v.dev.StartErr
	}
	v.starts++
	v.playing = v.dev.HoldPlayback
	return nil
}

func (v *Voice) Done() bool {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return !v.playing
}

func (v *Voice) Destroy() error {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	if v.dev.DestroyErr != nil {
		return v.dev.DestroyErr
	}
	v.destroyed = true
	v.playing = false
	return nil
}

// Finish ends playback of v.
func (v *Voice) Finish() {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	v.playing = false
}

// ID is the 1-based creation order of v.
func (v *Voice) ID() int { return v.id }

// Format returns the format v was created with.
func (v *Voice) Format() types.AudioFormat { return v.format }

// Submits returns the number of accepted Submit calls.
func (v *Voice) Submits() int {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.submits
}

// Starts returns the number of accepted Start calls.
func (v *Voice) Starts() int {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.starts
}

// Destroyed reports whether Destroy succeeded.
func (v *Voice) Destroyed() bool {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.destroyed
}

// LastBuffer returns the most recently submitted buffer.
func (v *Voice) LastBuffer() *types.SampleBuffer {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.last
}
