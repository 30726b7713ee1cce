package main

import (
	"fmt"
	"log"
	"os"

	"github.com/drgolem/sfxmanager/pkg/decoders/wav"
	"github.com/drgolem/sfxmanager/pkg/riff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: decode <input.wav>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Decodes a WAV file and prints information about it")
		os.Exit(1)
	}

	inputFile := os.Args[1]

	fmt.Printf("Opening: %s\n", inputFile)
	f, err := os.Open(inputFile)
	if err != nil {
		log.Fatalf("Failed to open WAV file: %v", err)
	}
	defer f.Close()

	// List chunks
	err = riff.Walk(f, func(c riff.Chunk) error {
		fmt.Printf("Chunk %q at %d, %d bytes\n", c.ID.String(), c.Offset, c.Size)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to walk chunks: %v", err)
	}
	fmt.Println()

	format, buf, err := wav.Decode(f)
	if err != nil {
		log.Fatalf("Failed to decode WAV file: %v", err)
	}

	fmt.Printf("Format Tag: 0x%04x (PCM: %v)\n", format.FormatTag, format.IsPCM())
	fmt.Printf("Sample Rate: %d Hz\n", format.SampleRate)
	fmt.Printf("Channels: %d\n", format.Channels)
	fmt.Printf("Bits Per Sample: %d\n", format.BitsPerSample)
	fmt.Println()

	frames := buf.Frames(format)
	fmt.Printf("Total frames decoded: %d\n", frames)

	duration := float64(frames) / float64(format.SampleRate)
	fmt.Printf("Duration: %.2f seconds\n", duration)

	fmt.Printf("Total audio data: %d bytes (%.2f MB)\n",
		len(buf.Data), float64(len(buf.Data))/(1024*1024))
}
