package audiomanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/drgolem/sfxmanager/internal/assetcache"
	"github.com/drgolem/sfxmanager/internal/assetpath"
	"github.com/drgolem/sfxmanager/internal/voicepool"
	"github.com/drgolem/sfxmanager/pkg/decoders"
	"github.com/drgolem/sfxmanager/pkg/types"
)

var ErrNotRunning = errors.New("audio manager is not running")

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Manager is the entry point of the audio subsystem. It owns the native
// device, the master output, the voice pool and the asset cache.
//
// Lifecycle:
//   - StartUp acquires the device and the master output
//   - PlaySound and Update are valid only while running
//   - ShutDown destroys pooled voices, the master output and the device
//
// PlaySound, Update and Preload may be called from several goroutines;
// StartUp and ShutDown wait for them to finish.
type Manager struct {
	cfg    Config
	device types.Device
	logger *slog.Logger
	load   decoders.LoadFunc

	mu       sync.RWMutex
	state    state
	deviceUp bool
	master   types.Master
	pool     *voicepool.Pool
	cache    *assetcache.Cache
	resolver *assetpath.Resolver

	plays atomic.Uint64
}

// New creates a Manager for device. Nothing native is touched until
// StartUp.
func New(cfg Config, device types.Device, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		device: device,
		logger: slog.Default(),
		load:   decoders.Load,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartUp initializes the device and creates the master output.
// It is all-or-nothing: on failure everything acquired so far is released
// and a KindInitialization error is returned.
func (m *Manager) StartUp() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateRunning {
		return nil
	}

	resolver, err := assetpath.NewResolver(m.cfg.AssetRoot)
	if err != nil {
		return types.NewError(types.KindInitialization, "startup", "", err)
	}

	if m.device == nil {
		return types.NewError(types.KindInitialization, "startup", "", errors.New("no audio device"))
	}
	if err := m.device.Initialize(); err != nil {
		return types.NewError(types.KindInitialization, "startup", "", fmt.Errorf("initialize device: %w", err))
	}
	m.deviceUp = true

	master, err := m.device.OpenMaster()
	if err != nil {
		m.teardown()
		return types.NewError(types.KindInitialization, "startup", "", fmt.Errorf("open master output: %w", err))
	}
	m.master = master

	m.resolver = resolver
	m.pool = voicepool.New(master, m.cfg.MaxPoolSize, m.logger)
	m.cache = assetcache.New(m.load, m.logger)
	m.plays.Store(0)
	m.state = stateRunning

	m.logger.Info("Audio manager started",
		"asset_root", resolver.Root,
		"max_pool_size", m.pool.MaxIdle())
	return nil
}

// ShutDown destroys every pooled voice, then the master output, then
// releases the device. It is safe to call repeatedly and after a failed
// StartUp.
func (m *Manager) ShutDown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasRunning := m.state == stateRunning
	m.teardown()
	if wasRunning {
		m.logger.Info("Audio manager stopped", "plays", m.plays.Load())
	}
}

// teardown releases whatever is held. Caller holds m.mu for writing.
func (m *Manager) teardown() {
	if m.state == stateRunning {
		m.state = stateStopped
	}

	if m.pool != nil {
		if err := m.pool.DestroyAll(); err != nil {
			m.logger.Warn("Failed to destroy voices", "error", err)
		}
		m.pool = nil
	}

	if m.master != nil {
		if err := m.master.Close(); err != nil {
			m.logger.Warn("Failed to close master output", "error", err)
		}
		m.master = nil
	}

	if m.deviceUp {
		if err := m.device.Terminate(); err != nil {
			m.logger.Warn("Failed to terminate device", "error", err)
		}
		m.deviceUp = false
	}

	m.cache = nil
	m.resolver = nil
}

// PlaySound plays the asset at path.
//
// path is resolved against the asset root first, so a relative path and its
// absolute form share one cache entry. With reuse set the decoded asset is
// cached and later calls skip file I/O.
// The voice goes back to the pool right after playback starts; it is only
// handed out again once it has finished playing.
//
// Errors are *types.Error values: KindIO/KindFormat from loading,
// KindResourceCreation from voice creation, KindSubmit from submit/start,
// KindState when the manager is not running. A cache entry created before a
// failed submit is kept.
func (m *Manager) PlaySound(path string, reuse bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != stateRunning {
		return types.NewError(types.KindState, "play", path, ErrNotRunning)
	}

	format, buf, err := m.cache.Resolve(m.resolver.Resolve(path), reuse)
	if err != nil {
		return err
	}

	ch, err := m.pool.Acquire(format)
	if err != nil {
		var e *types.Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = path
		}
		return err
	}

	if err := ch.Submit(buf); err != nil {
		m.release(ch)
		return types.NewError(types.KindSubmit, "submit", path, err)
	}
	if err := ch.Start(); err != nil {
		m.release(ch)
		return types.NewError(types.KindSubmit, "start", path, err)
	}
	m.release(ch)
	m.plays.Add(1)

	m.logger.Debug("Sound started",
		"path", path,
		"reuse", reuse,
		"voice", ch.ID(),
		"frames", buf.Frames(format))
	return nil
}

func (m *Manager) release(ch *voicepool.Channel) {
	if err := m.pool.Release(ch); err != nil {
		m.logger.Warn("Failed to release voice", "voice", ch.ID(), "error", err)
	}
}

// Update enforces the pool bound and recycles voices that finished
// playing. Call it once per engine tick.
func (m *Manager) Update() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != stateRunning {
		return
	}
	m.pool.ReclaimExcess()
}

// Preload loads paths into the cache ahead of their first PlaySound.
func (m *Manager) Preload(ctx context.Context, paths ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != stateRunning {
		return types.NewError(types.KindState, "preload", "", ErrNotRunning)
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		resolved[i] = m.resolver.Resolve(p)
	}
	return m.cache.Preload(ctx, resolved, m.cfg.PreloadConcurrency)
}

// Running reports whether StartUp succeeded and ShutDown has not run.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateRunning
}

// Status returns current pool and cache figures.
// Implements types.StatusMonitor interface.
func (m *Manager) Status() types.PoolStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := types.PoolStatus{Plays: m.plays.Load()}
	if m.pool != nil {
		ps := m.pool.Stats()
		st.IdleVoices = ps.Idle
		st.DrainingVoices = ps.Draining
		st.CreatedVoices = ps.Created
	}
	if m.cache != nil {
		st.CachedAssets = m.cache.Len()
	}
	return st
}
