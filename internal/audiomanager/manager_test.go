package audiomanager

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/sfxmanager/internal/audiotest"
	"github.com/drgolem/sfxmanager/pkg/decoders"
	"github.com/drgolem/sfxmanager/pkg/types"
)

func newManager(t *testing.T, dev *audiotest.Device, maxPool int, opts ...Option) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.AssetRoot = dir
	cfg.MaxPoolSize = maxPool
	m := New(cfg, dev, opts...)
	require.NoError(t, m.StartUp())
	t.Cleanup(m.ShutDown)
	return m, dir
}

func countingLoad(n *atomic.Int32) Option {
	return WithLoader(func(p string) (types.AudioFormat, *types.SampleBuffer, error) {
		n.Add(1)
		return decoders.Load(p)
	})
}

func TestStartUpShutDown(t *testing.T) {
	dev := audiotest.NewDevice()
	m := New(Config{AssetRoot: t.TempDir()}, dev)

	require.NoError(t, m.StartUp())
	assert.True(t, dev.Initialized())
	assert.True(t, m.Running())

	m.ShutDown()
	assert.False(t, m.Running())
	assert.True(t, dev.MasterClosed())
	assert.True(t, dev.Terminated())

	// second shutdown is a no-op
	m.ShutDown()
}

func TestStartUpInitializeFailure(t *testing.T) {
	dev := audiotest.NewDevice()
	dev.InitErr = audiotest.ErrInjected
	m := New(Config{AssetRoot: t.TempDir()}, dev)

	err := m.StartUp()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInitialization)
	assert.ErrorIs(t, err, audiotest.ErrInjected)
	assert.False(t, m.Running())
	assert.False(t, dev.Terminated(), "device was never initialized")

	m.ShutDown()
	assert.False(t, dev.Terminated())
}

func TestStartUpMasterFailureReleasesDevice(t *testing.T) {
	dev := audiotest.NewDevice()
	dev.MasterErr = audiotest.ErrInjected
	m := New(Config{AssetRoot: t.TempDir()}, dev)

	err := m.StartUp()
	require.Error(t, err)
	assert.Equal(t, types.KindInitialization, types.KindOf(err))
	assert.True(t, dev.Terminated())

	m.ShutDown()
	assert.False(t, m.Running())
}

func TestStartUpNilDevice(t *testing.T) {
	m := New(Config{AssetRoot: t.TempDir()}, nil)
	err := m.StartUp()
	assert.ErrorIs(t, err, types.ErrInitialization)
	m.ShutDown()
}

func TestRestartAfterShutDown(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 2)
	audiotest.WriteToneWAV(t, dir, "beep.wav", 1, 22050, 64)

	require.NoError(t, m.PlaySound("beep.wav", true))
	m.ShutDown()

	require.NoError(t, m.StartUp())
	assert.Equal(t, 0, m.Status().CachedAssets, "cache does not survive a restart")
	require.NoError(t, m.PlaySound("beep.wav", true))
}

func TestPlaySoundNotRunning(t *testing.T) {
	m := New(DefaultConfig(), audiotest.NewDevice())

	err := m.PlaySound("a.wav", true)
	assert.ErrorIs(t, err, types.ErrState)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, m.Preload(context.Background(), "a.wav"), types.ErrState)

	// Update on a stopped manager does nothing
	m.Update()
	assert.Equal(t, types.PoolStatus{}, m.Status())
}

func TestPlaySoundMissingFile(t *testing.T) {
	dev := audiotest.NewDevice()
	m, _ := newManager(t, dev, 4)

	err := m.PlaySound("missing.wav", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Equal(t, 0, m.Status().CachedAssets)
	assert.Equal(t, 0, dev.VoicesCreated())
	assert.Equal(t, uint64(0), m.Status().Plays)
}

func TestPlaySoundBadFormat(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteFile(t, dir, "junk.wav", []byte("definitely not riff"))

	err := m.PlaySound("junk.wav", true)
	assert.ErrorIs(t, err, types.ErrFormat)
	assert.Equal(t, 0, m.Status().CachedAssets)
}

func TestPlaySoundReuseDecodesOnce(t *testing.T) {
	var loads atomic.Int32
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 2, countingLoad(&loads))
	audiotest.WriteToneWAV(t, dir, "sfx/boom.wav", 1, 44100, 4410)

	for range 5 {
		require.NoError(t, m.PlaySound("sfx/boom.wav", true))
		m.Update()
	}

	assert.Equal(t, int32(1), loads.Load())
	st := m.Status()
	assert.Equal(t, 1, st.CachedAssets)
	assert.Equal(t, uint64(5), st.Plays)
	assert.LessOrEqual(t, st.IdleVoices, 2)
	assert.Equal(t, 1, dev.VoicesCreated(), "finished voices are reused")

	v := dev.Voices()[0]
	assert.Equal(t, 5, v.Submits())
	assert.Equal(t, 5, v.Starts())
	assert.Equal(t, 4410*2, len(v.LastBuffer().Data))
	assert.True(t, v.LastBuffer().EndOfStream)
}

func TestPlaySoundRelativeAndAbsoluteShareEntry(t *testing.T) {
	var loads atomic.Int32
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 2, countingLoad(&loads))
	abs := audiotest.WriteToneWAV(t, dir, "sfx/a.wav", 1, 22050, 100)

	require.NoError(t, m.PlaySound("sfx/a.wav", true))
	require.NoError(t, m.PlaySound(abs, true))
	require.NoError(t, m.PlaySound(filepath.Join(dir, "sfx", ".", "a.wav"), true))
	require.NoError(t, m.Preload(context.Background(), "sfx/a.wav", abs))

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, m.Status().CachedAssets)
}

func TestPlaySoundWithoutReuseReadsEveryTime(t *testing.T) {
	var loads atomic.Int32
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 2, countingLoad(&loads))
	audiotest.WriteToneWAV(t, dir, "click.wav", 1, 22050, 100)

	for range 3 {
		require.NoError(t, m.PlaySound("click.wav", false))
	}
	assert.Equal(t, int32(3), loads.Load())
	assert.Equal(t, 0, m.Status().CachedAssets)
}

func TestUpdateBoundsPool(t *testing.T) {
	dev := audiotest.NewDevice()
	dev.HoldPlayback = true
	m, dir := newManager(t, dev, 2)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 44100, 100)

	for range 5 {
		require.NoError(t, m.PlaySound("a.wav", true))
	}
	st := m.Status()
	assert.Equal(t, 5, st.DrainingVoices, "overlapping plays need their own voices")
	assert.Equal(t, uint64(5), st.CreatedVoices)

	m.Update()
	assert.Equal(t, 5, m.Status().DrainingVoices)

	dev.FinishAll()
	for range 5 {
		m.Update()
	}
	st = m.Status()
	assert.Equal(t, 0, st.DrainingVoices)
	assert.Equal(t, 2, st.IdleVoices)
	assert.Equal(t, 2, dev.LiveVoices())
}

func TestPlaySoundFormatsGetOwnVoices(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "mono.wav", 1, 22050, 100)
	audiotest.WriteToneWAV(t, dir, "stereo.wav", 2, 48000, 100)

	require.NoError(t, m.PlaySound("mono.wav", true))
	require.NoError(t, m.PlaySound("stereo.wav", true))
	require.NoError(t, m.PlaySound("mono.wav", true))

	voices := dev.Voices()
	require.Len(t, voices, 2)
	assert.Equal(t, uint16(1), voices[0].Format().Channels)
	assert.Equal(t, uint16(2), voices[1].Format().Channels)
	assert.Equal(t, 2, voices[0].Submits())
	assert.Equal(t, 1, voices[1].Submits())
}

func TestPlaySoundSubmitFailureReleasesVoice(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)

	dev.SubmitErr = audiotest.ErrInjected
	err := m.PlaySound("a.wav", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSubmit)
	assert.Equal(t, 1, m.Status().IdleVoices, "voice returns to the pool")
	assert.Equal(t, 1, m.Status().CachedAssets, "decoded asset stays cached")
	assert.Equal(t, uint64(0), m.Status().Plays)

	dev.SubmitErr = nil
	require.NoError(t, m.PlaySound("a.wav", true))
	assert.Equal(t, 1, dev.VoicesCreated())
}

func TestPlaySoundStartFailure(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)

	dev.StartErr = audiotest.ErrInjected
	err := m.PlaySound("a.wav", true)
	assert.ErrorIs(t, err, types.ErrSubmit)
	assert.Equal(t, 1, m.Status().IdleVoices)
}

func TestPlaySoundVoiceCreationFailure(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)

	dev.VoiceErr = audiotest.ErrInjected
	err := m.PlaySound("a.wav", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrResourceCreation)

	var e *types.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "a.wav", e.Path)
}

func TestShutDownDestroysPooledVoices(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)
	audiotest.WriteToneWAV(t, dir, "b.wav", 2, 22050, 100)

	require.NoError(t, m.PlaySound("a.wav", true))
	require.NoError(t, m.PlaySound("b.wav", true))
	require.Equal(t, 2, dev.LiveVoices())

	m.ShutDown()
	assert.Equal(t, 0, dev.LiveVoices())
	assert.ErrorIs(t, m.PlaySound("a.wav", true), types.ErrState)
}

func TestShutDownToleratesNativeFailures(t *testing.T) {
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4)
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)
	require.NoError(t, m.PlaySound("a.wav", true))

	dev.DestroyErr = audiotest.ErrInjected
	dev.CloseErr = audiotest.ErrInjected
	dev.TerminateErr = audiotest.ErrInjected
	m.ShutDown()

	assert.False(t, m.Running())
	assert.True(t, dev.MasterClosed())
	assert.True(t, dev.Terminated())
}

func TestPreload(t *testing.T) {
	var loads atomic.Int32
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4, countingLoad(&loads))
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)
	audiotest.WriteToneWAV(t, dir, "b.wav", 1, 22050, 100)

	require.NoError(t, m.Preload(context.Background(), "a.wav", "b.wav"))
	assert.Equal(t, 2, m.Status().CachedAssets)

	require.NoError(t, m.PlaySound("A.WAV", true))
	assert.Equal(t, int32(2), loads.Load())

	err := m.Preload(context.Background(), "nope.wav")
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestPlaySoundConcurrent(t *testing.T) {
	var loads atomic.Int32
	dev := audiotest.NewDevice()
	m, dir := newManager(t, dev, 4, countingLoad(&loads))
	audiotest.WriteToneWAV(t, dir, "a.wav", 1, 22050, 100)
	require.NoError(t, m.Preload(context.Background(), "a.wav"))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				assert.NoError(t, m.PlaySound("a.wav", true))
				m.Update()
			}
		}()
	}
	wg.Wait()
	m.Update()

	st := m.Status()
	assert.Equal(t, uint64(80), st.Plays)
	assert.Equal(t, int32(1), loads.Load())
	assert.LessOrEqual(t, st.IdleVoices, 4)
}
