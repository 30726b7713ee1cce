package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/drgolem/sfxmanager/internal/audiomanager"
	"github.com/drgolem/sfxmanager/pkg/output"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Define flags
	deviceIdx := flag.Int("device", 1, "Audio output device index (default: 1)")
	count := flag.Int("count", 10, "Number of plays")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between plays")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rapidfire [options] <wav_file>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Plays one cached WAV file repeatedly through pooled voices")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  rapidfire /tmp/click.wav")
		fmt.Fprintln(os.Stderr, "  rapidfire -count 50 -interval 20ms /tmp/click.wav")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	fileName := flag.Arg(0)

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get working directory", "error", err)
		os.Exit(1)
	}

	device := output.NewPortAudio(*deviceIdx, 512, logger)

	config := audiomanager.DefaultConfig()
	config.AssetRoot = cwd
	mgr := audiomanager.New(config, device, audiomanager.WithLogger(logger))
	if err := mgr.StartUp(); err != nil {
		slog.Error("Failed to start audio manager", "error", err)
		os.Exit(1)
	}
	defer mgr.ShutDown()

loop:
	for i := range *count {
		if err := mgr.PlaySound(fileName, true); err != nil {
			slog.Error("Failed to play", "play", i+1, "error", err)
			break loop
		}
		deadline := time.Now().Add(*interval)
		for time.Now().Before(deadline) {
			mgr.Update()
			time.Sleep(10 * time.Millisecond)
		}
	}

	// Wait for the last voices to finish
	for mgr.Status().DrainingVoices > 0 {
		mgr.Update()
		time.Sleep(10 * time.Millisecond)
	}

	st := mgr.Status()
	slog.Info("Done",
		"plays", st.Plays,
		"voices_created", st.CreatedVoices,
		"idle", st.IdleVoices)
}
