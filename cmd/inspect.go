package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/drgolem/sfxmanager/pkg/decoders/wav"
	"github.com/drgolem/sfxmanager/pkg/riff"
	"github.com/drgolem/sfxmanager/pkg/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <wav_file>",
	Short: "Show RIFF chunks and audio format of a WAVE file",
	Long: `List every chunk header of a RIFF file with its offset and size, then
decode the file and print its format.

Examples:
  sfxmanager inspect sfx/boom.wav`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	setupLogging()
	fileName := args[0]

	f, err := os.Open(fileName)
	if err != nil {
		slog.Error("Failed to open file", "path", fileName, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, walkErr := chunkRows(f)
	fmt.Println(headerStyle.Render(fileName))
	fmt.Println(table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "OFFSET", "SIZE").
		Rows(rows...).
		String())
	if walkErr != nil {
		fmt.Println(errStyle.Render("chunk walk: " + walkErr.Error()))
	}

	format, buf, err := wav.Decode(f)
	if err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("decode (%s): %v", types.KindOf(err), err)))
		os.Exit(1)
	}
	fmt.Println(formatSummary(format, buf))
}

func chunkRows(f *os.File) ([][]string, error) {
	var rows [][]string
	err := riff.Walk(f, func(c riff.Chunk) error {
		rows = append(rows, []string{
			strconv.Quote(c.ID.String()),
			strconv.FormatInt(c.Offset, 10),
			strconv.FormatUint(uint64(c.Size), 10),
		})
		return nil
	})
	return rows, err
}

func formatSummary(f types.AudioFormat, buf *types.SampleBuffer) string {
	frames := buf.Frames(f)
	var duration time.Duration
	if f.SampleRate > 0 {
		duration = time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
	}

	line := func(label string, value any) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + fmt.Sprint(value)
	}
	lines := []string{
		line("format tag", fmt.Sprintf("0x%04x", f.FormatTag)),
		line("pcm", f.IsPCM()),
		line("channels", f.Channels),
		line("sample rate", f.SampleRate),
		line("bits/sample", f.BitsPerSample),
		line("block align", f.BlockAlign),
		line("bytes/sec", f.AvgBytesPerSec),
		line("frames", frames),
		line("duration", duration),
	}
	if f.FormatTag == types.FormatExtensible {
		lines = append(lines,
			line("valid bits", f.ValidBitsPerSample),
			line("channel mask", fmt.Sprintf("0x%08x", f.ChannelMask)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
