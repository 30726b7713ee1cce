package cmd

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"
)

var (
	genFrequency  float64
	genDuration   time.Duration
	genSampleRate int
	genChannels   int
	genAmplitude  float64
)

// genCmd represents the gen command
var genCmd = &cobra.Command{
	Use:   "gen <output.wav>",
	Short: "Write a 16-bit PCM sine tone WAVE file",
	Long: `Generate a sine tone and write it as a 16-bit PCM WAVE file.

Examples:
  # 2 second 440 Hz mono tone at 44.1 kHz
  sfxmanager gen beep.wav

  # Short stereo click at 48 kHz
  sfxmanager gen -f 2000 -t 30ms -s 48000 -c 2 click.wav`,
	Args: cobra.ExactArgs(1),
	Run:  runGen,
}

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().Float64VarP(&genFrequency, "freq", "f", 440, "Tone frequency in Hz")
	genCmd.Flags().DurationVarP(&genDuration, "duration", "t", 2*time.Second, "Tone duration")
	genCmd.Flags().IntVarP(&genSampleRate, "samplerate", "s", 44100, "Sample rate in Hz")
	genCmd.Flags().IntVarP(&genChannels, "channels", "c", 1, "Number of channels")
	genCmd.Flags().Float64VarP(&genAmplitude, "amplitude", "a", 0.5, "Amplitude (0..1)")
}

func runGen(cmd *cobra.Command, args []string) {
	setupLogging()
	outFileName := args[0]

	if genSampleRate <= 0 || genChannels <= 0 || genDuration <= 0 {
		slog.Error("Invalid tone parameters",
			"sample_rate", genSampleRate,
			"channels", genChannels,
			"duration", genDuration)
		os.Exit(1)
	}

	frames := int(genDuration.Seconds() * float64(genSampleRate))
	audioData := sineTone(frames, genChannels, genSampleRate, genFrequency, genAmplitude)

	slog.Info("Writing tone",
		"output", outFileName,
		"frequency", genFrequency,
		"sample_rate", genSampleRate,
		"channels", genChannels,
		"frames", frames)

	if err := writeWAVFile(outFileName, audioData, uint32(frames), uint16(genChannels), uint32(genSampleRate), 16); err != nil {
		slog.Error("Failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("Tone written", "bytes", len(audioData))
}

// sineTone renders interleaved 16-bit little-endian samples.
func sineTone(frames, channels, sampleRate int, freq, amplitude float64) []byte {
	amplitude = max(0, min(amplitude, 1))
	out := make([]byte, frames*channels*2)
	for i := range frames {
		v := int16(amplitude * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for ch := range channels {
			binary.LittleEndian.PutUint16(out[(i*channels+ch)*2:], uint16(v))
		}
	}
	return out
}

// writeWAVFile writes audio data to a WAV file
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32, bitsPerSample uint16) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, bitsPerSample)

	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}
