package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/ctrlc"
	"github.com/spf13/cobra"

	"github.com/drgolem/sfxmanager/internal/audiomanager"
	"github.com/drgolem/sfxmanager/pkg/output"
	"github.com/drgolem/sfxmanager/pkg/types"
)

var (
	playBackend    string
	playDeviceIdx  int
	playFrames     int
	playSampleRate int
	playChannels   int
	playPoolSize   int
	playRoot       string
	playReuse      bool
	playPreload    bool
	playRepeat     int
	playInterval   time.Duration
	playTick       time.Duration
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <wav_file> [wav_file...]",
	Short: "Play WAVE files through the audio manager",
	Long: `Play WAVE sound effects through pooled voices.

Each file is played --repeat times, one play every --interval. Plays overlap
when a sound is longer than the interval; every overlapping play gets its own
voice. The engine tick (Update) runs every --tick and trims idle voices down
to --pool-size. The command returns once every voice has finished.

Relative paths are resolved against --root, which defaults to the directory
of the executable.

Examples:
  # Play a file once
  sfxmanager play --root . sfx/boom.wav

  # Rapid fire with cached decoding
  sfxmanager play --root . --reuse -n 20 --interval 50ms sfx/click.wav

  # Use the oto backend (16-bit output at a fixed format)
  sfxmanager play --backend oto --rate 44100 --channels 1 beep.wav

Supported Formats:
  WAV:  .wav, .wave (PCM; 16/24/32-bit with PortAudio, 16-bit with oto)`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	defOut := output.DefaultConfig()
	defMgr := audiomanager.DefaultConfig()

	playCmd.Flags().StringVarP(&playBackend, "backend", "b", defOut.Backend, "Output backend: portaudio or oto")
	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", defOut.DeviceIndex, "PortAudio output device index")
	playCmd.Flags().IntVarP(&playFrames, "frames", "f", defOut.FramesPerBuffer, "PortAudio frames per buffer")
	playCmd.Flags().IntVar(&playSampleRate, "rate", defOut.SampleRate, "oto output sample rate")
	playCmd.Flags().IntVar(&playChannels, "channels", defOut.Channels, "oto output channel count")
	playCmd.Flags().IntVarP(&playPoolSize, "pool-size", "p", defMgr.MaxPoolSize, "Idle voices kept after each tick")
	playCmd.Flags().StringVarP(&playRoot, "root", "r", "", "Asset root for relative paths (default: executable directory)")
	playCmd.Flags().BoolVar(&playReuse, "reuse", false, "Cache decoded assets and reuse them")
	playCmd.Flags().BoolVar(&playPreload, "preload", false, "Decode all files into the cache before playing (implies --reuse)")
	playCmd.Flags().IntVarP(&playRepeat, "repeat", "n", 1, "Number of times each file is played")
	playCmd.Flags().DurationVarP(&playInterval, "interval", "i", 250*time.Millisecond, "Delay between plays")
	playCmd.Flags().DurationVar(&playTick, "tick", 20*time.Millisecond, "Engine tick period")
}

func runPlay(cmd *cobra.Command, args []string) {
	logger := setupLogging()

	if playPreload {
		playReuse = true
	}

	outCfg := output.Config{
		Backend:         playBackend,
		DeviceIndex:     playDeviceIdx,
		FramesPerBuffer: playFrames,
		SampleRate:      playSampleRate,
		Channels:        playChannels,
	}
	device, err := output.New(outCfg, logger)
	if err != nil {
		slog.Error("Failed to create output device", "error", err)
		os.Exit(1)
	}

	mgrCfg := audiomanager.DefaultConfig()
	mgrCfg.MaxPoolSize = playPoolSize
	mgrCfg.AssetRoot = playRoot

	mgr := audiomanager.New(mgrCfg, device, audiomanager.WithLogger(logger))
	if err := mgr.StartUp(); err != nil {
		slog.Error("Failed to start audio manager", "error", err)
		if outCfg.Backend == output.BackendPortAudio {
			slog.Error("Hint: Make sure PortAudio is installed on your system")
		}
		os.Exit(1)
	}
	defer mgr.ShutDown()

	slog.Info("Audio configuration",
		"backend", outCfg.Backend,
		"device_index", outCfg.DeviceIndex,
		"frames_per_buffer", outCfg.FramesPerBuffer,
		"pool_size", mgrCfg.MaxPoolSize,
		"reuse", playReuse,
		"file_count", len(args))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statusDone := make(chan struct{})
	go monitorPool(mgr, statusDone)
	defer close(statusDone)

	err = ctrlc.Default.Run(ctx, func() error {
		if playPreload {
			start := time.Now()
			if err := mgr.Preload(ctx, args...); err != nil {
				return fmt.Errorf("preload: %w", err)
			}
			slog.Info("Assets preloaded", "count", len(args), "elapsed", time.Since(start))
		}
		return playAll(ctx, mgr, args)
	})

	switch code := playExitCode(err); {
	case code == 0 && err != nil:
		slog.Info("Playback interrupted")
	case code != 0:
		slog.Error("Playback failed", "error", err)
		mgr.ShutDown()
		os.Exit(code)
	default:
		st := mgr.Status()
		slog.Info("All plays completed",
			"plays", st.Plays,
			"voices_created", st.CreatedVoices,
			"cached_assets", st.CachedAssets)
	}

	slog.Info("Exiting")
}

// playExitCode maps the playback result to the process exit status.
// A ctrl-c interrupt is a normal exit.
func playExitCode(err error) int {
	var ctrlcErr ctrlc.ErrorCtrlC
	if err == nil || errors.As(err, &ctrlcErr) {
		return 0
	}
	return 1
}

// playAll schedules every play, ticking the manager in between, then keeps
// ticking until all voices are idle.
func playAll(ctx context.Context, mgr *audiomanager.Manager, files []string) error {
	ticker := time.NewTicker(playTick)
	defer ticker.Stop()

	next := time.Now()
	failed := 0
	for round := range playRepeat {
		for _, file := range files {
			for time.Now().Before(next) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					mgr.Update()
				}
			}

			if err := mgr.PlaySound(file, playReuse); err != nil {
				failed++
				slog.Error("Failed to play sound",
					"file", file,
					"round", round+1,
					"kind", types.KindOf(err),
					"error", err)
				if failed == len(files)*playRepeat {
					return errors.New("no sound could be played")
				}
				continue
			}
			slog.Debug("Playing", "file", file, "round", round+1)
			next = time.Now().Add(playInterval)
		}
	}

	for {
		mgr.Update()
		if mgr.Status().DrainingVoices == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// monitorPool logs pool status every 2 seconds for any StatusMonitor
func monitorPool(monitor types.StatusMonitor, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := monitor.Status()
			slog.Info("Pool status",
				"idle", st.IdleVoices,
				"draining", st.DrainingVoices,
				"created", st.CreatedVoices,
				"cached", st.CachedAssets,
				"plays", st.Plays)
		case <-done:
			return
		}
	}
}
