package output

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/drgolem/sfxmanager/pkg/types"
)

// Oto is a types.Device backed by a single oto context.
//
// oto allows one context per process and cannot change its format, so the
// context is created on the first Initialize, suspended by Terminate and
// resumed by a later Initialize. Voices must match the context format.
type Oto struct {
	sampleRate int
	channels   int
	logger     *slog.Logger

	mu     sync.Mutex
	otoCtx *oto.Context
}

// NewOto creates an oto device for 16-bit PCM at sampleRate and channels.
func NewOto(sampleRate, channels int, logger *slog.Logger) *Oto {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oto{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
	}
}

// Format returns the only format voices of this device accept.
func (d *Oto) Format() types.AudioFormat {
	blockAlign := uint16(d.channels * 2)
	return types.AudioFormat{
		FormatTag:      types.FormatPCM,
		Channels:       uint16(d.channels),
		SampleRate:     uint32(d.sampleRate),
		AvgBytesPerSec: uint32(d.sampleRate) * uint32(blockAlign),
		BlockAlign:     blockAlign,
		BitsPerSample:  16,
	}
}

func (d *Oto) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.otoCtx != nil {
		if err := d.otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   d.sampleRate,
		ChannelCount: d.channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	d.otoCtx = ctx
	d.logger.Info("Oto context initialized",
		"sample_rate", d.sampleRate,
		"channels", d.channels)
	return nil
}

func (d *Oto) OpenMaster() (types.Master, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.otoCtx == nil {
		return nil, errors.New("oto context not initialized")
	}
	return &otoMaster{dev: d, ctx: d.otoCtx}, nil
}

func (d *Oto) Terminate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.otoCtx == nil {
		return nil
	}
	return d.otoCtx.Suspend()
}

type otoMaster struct {
	dev *Oto
	ctx *oto.Context

	mu     sync.Mutex
	closed bool
}

func (m *otoMaster) NewVoice(format types.AudioFormat) (types.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("master output closed")
	}
	if !otoAccepts(m.dev.Format(), format) {
		return nil, &UnsupportedFormatError{Backend: BackendOto, Format: format}
	}
	return &otoVoice{ctx: m.ctx}, nil
}

func (m *otoMaster) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// otoAccepts compares the fields oto cares about; extensible headers with a
// PCM sub-format are accepted.
func otoAccepts(ctxFormat, format types.AudioFormat) bool {
	return format.IsPCM() &&
		format.BitsPerSample == ctxFormat.BitsPerSample &&
		format.Channels == ctxFormat.Channels &&
		format.SampleRate == ctxFormat.SampleRate
}

// otoVoice plays a submitted buffer through a fresh oto player on every
// Start; oto players cannot be rewound once drained.
type otoVoice struct {
	ctx *oto.Context

	mu     sync.Mutex
	buf    *types.SampleBuffer
	player *oto.Player
}

func (v *otoVoice) Submit(buf *types.SampleBuffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buf = buf
	return nil
}

func (v *otoVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.buf == nil {
		return errors.New("no buffer submitted")
	}
	if v.player != nil {
		if err := v.player.Close(); err != nil {
			return fmt.Errorf("failed to close previous player: %w", err)
		}
	}
	v.player = v.ctx.NewPlayer(bytes.NewReader(v.buf.Data))
	v.player.Play()
	return nil
}

func (v *otoVoice) Done() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.player == nil || !v.player.IsPlaying()
}

func (v *otoVoice) Destroy() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player == nil {
		return nil
	}
	err := v.player.Close()
	v.player = nil
	return err
}
