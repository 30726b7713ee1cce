package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sfxmanager",
	Short: "Sound effect playback with pooled voices and cached assets",
	Long: `sfxmanager - plays short WAVE sound effects through pooled native voices.

Decoded assets can be cached and reused, voices are created per audio format
and recycled once they finish playing. Idle voices beyond the pool size are
destroyed on every engine tick.

Commands:
  - play: Play one or more WAVE files through the audio manager
  - inspect: List the RIFF chunks and the decoded format of a WAVE file
  - gen: Write a sine tone WAVE file for testing`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
