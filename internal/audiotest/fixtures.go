package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	wav "github.com/youpy/go-wav"
)

// Chunk is a raw chunk for BuildRIFF.
type Chunk struct {
	ID   string
	Data []byte
}

// BuildRIFF lays out a RIFF container with the given form type and chunks.
// Odd-sized payloads are padded.
func BuildRIFF(form string, chunks ...Chunk) []byte {
	var body bytes.Buffer
	body.WriteString(form)
	for _, c := range chunks {
		body.WriteString(c.ID)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.Data)))
		body.Write(c.Data)
		if len(c.Data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// FmtChunk returns a 16-byte PCM fmt payload.
func FmtChunk(channels uint16, sampleRate uint32, bitsPerSample uint16) []byte {
	blockAlign := channels * bitsPerSample / 8
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:2], 1)
	binary.LittleEndian.PutUint16(b[2:4], channels)
	binary.LittleEndian.PutUint32(b[4:8], sampleRate)
	binary.LittleEndian.PutUint32(b[8:12], sampleRate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(b[12:14], blockAlign)
	binary.LittleEndian.PutUint16(b[14:16], bitsPerSample)
	return b
}

// WriteFile writes data to name inside dir and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteToneWAV writes a 16-bit PCM sine tone WAV file with go-wav and
// returns its path.
func WriteToneWAV(t testing.TB, dir, name string, channels uint16, sampleRate uint32, frames uint32) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := wav.NewWriter(f, frames, channels, sampleRate, 16)
	if _, err := w.Write(Tone16(channels, sampleRate, frames, 440)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Tone16 renders an interleaved little-endian 16-bit sine wave.
func Tone16(channels uint16, sampleRate uint32, frames uint32, freq float64) []byte {
	out := make([]byte, int(frames)*int(channels)*2)
	for i := range int(frames) {
		v := int16(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * 0.5 * math.MaxInt16)
		for ch := range int(channels) {
			off := (i*int(channels) + ch) * 2
			binary.LittleEndian.PutUint16(out[off:], uint16(v))
		}
	}
	return out
}
