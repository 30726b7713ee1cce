package audiomanager

import (
	"log/slog"
	"runtime"

	"github.com/drgolem/sfxmanager/internal/voicepool"
	"github.com/drgolem/sfxmanager/pkg/decoders"
)

// Config holds manager configuration
type Config struct {
	MaxPoolSize        int    // Idle voices kept after Update
	AssetRoot          string // Root for relative asset paths, empty = executable dir
	PreloadConcurrency int    // Parallel loads in Preload
}

// DefaultConfig returns default manager configuration
func DefaultConfig() Config {
	return Config{
		MaxPoolSize:        voicepool.DefaultMaxIdle,
		AssetRoot:          "",
		PreloadConcurrency: runtime.GOMAXPROCS(0),
	}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger, slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLoader replaces the asset loader. The loader receives paths already
// resolved against the asset root.
func WithLoader(load decoders.LoadFunc) Option {
	return func(m *Manager) {
		if load != nil {
			m.load = load
		}
	}
}
