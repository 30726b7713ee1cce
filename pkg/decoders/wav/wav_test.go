package wav

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/sfxmanager/internal/audiotest"
	"github.com/drgolem/sfxmanager/pkg/riff"
	"github.com/drgolem/sfxmanager/pkg/types"
)

func TestDecodeFileTwoSecondMono(t *testing.T) {
	const frames = 2 * 44100
	path := audiotest.WriteToneWAV(t, t.TempDir(), "tone.wav", 1, 44100, frames)

	format, buf, err := DecodeFile(path)
	require.NoError(t, err)

	assert.Equal(t, types.FormatPCM, format.FormatTag)
	assert.Equal(t, uint16(1), format.Channels)
	assert.Equal(t, uint32(44100), format.SampleRate)
	assert.Equal(t, uint16(16), format.BitsPerSample)
	assert.Equal(t, uint16(2), format.BlockAlign)

	// data chunk declared size
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	c, err := riff.FindChunk(f, riff.IDData)
	require.NoError(t, err)

	assert.Equal(t, int(c.Size), len(buf.Data))
	assert.Equal(t, frames*2, len(buf.Data))
	assert.Equal(t, frames, buf.Frames(format))
	assert.True(t, buf.EndOfStream)
}

func TestDecodeDeterministic(t *testing.T) {
	path := audiotest.WriteToneWAV(t, t.TempDir(), "stereo.wav", 2, 48000, 4800)

	f1, b1, err := DecodeFile(path)
	require.NoError(t, err)
	f2, b2, err := DecodeFile(path)
	require.NoError(t, err)

	assert.Equal(t, f1, f2)
	assert.True(t, bytes.Equal(b1.Data, b2.Data), "sample buffers differ")
	assert.NotSame(t, &b1.Data[0], &b2.Data[0], "buffers should not alias")
}

func TestDecodeFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.wav")

	_, buf, err := DecodeFile(path)
	require.Error(t, err)
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var e *types.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, path, e.Path)
	_, ok := e.Code()
	assert.True(t, ok, "errno should be retrievable")
}

func TestDecodeExtensibleFormat(t *testing.T) {
	ext := make([]byte, 40)
	copy(ext, audiotest.FmtChunk(2, 96000, 24))
	binary.LittleEndian.PutUint16(ext[0:2], types.FormatExtensible)
	binary.LittleEndian.PutUint16(ext[16:18], 22)
	binary.LittleEndian.PutUint16(ext[18:20], 24)
	binary.LittleEndian.PutUint32(ext[20:24], 0x3)
	ext[24] = 0x01 // KSDATAFORMAT_SUBTYPE_PCM

	data := audiotest.BuildRIFF("WAVE",
		audiotest.Chunk{ID: "fmt ", Data: ext},
		audiotest.Chunk{ID: "data", Data: make([]byte, 60)},
	)

	format, buf, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, types.FormatExtensible, format.FormatTag)
	assert.Equal(t, uint16(22), format.ExtraSize)
	assert.Equal(t, uint16(24), format.ValidBitsPerSample)
	assert.Equal(t, uint32(0x3), format.ChannelMask)
	assert.True(t, format.IsPCM())
	assert.Len(t, buf.Data, 60)
}

func TestDecodeOversizedFmtChunk(t *testing.T) {
	fmtData := make([]byte, 50)
	copy(fmtData, audiotest.FmtChunk(1, 22050, 8))

	data := audiotest.BuildRIFF("WAVE",
		audiotest.Chunk{ID: "fmt ", Data: fmtData},
		audiotest.Chunk{ID: "data", Data: []byte{1, 2, 3, 4}},
	)

	format, buf, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(22050), format.SampleRate)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Data)
}

func TestDecodeErrors(t *testing.T) {
	fmtChunk := audiotest.Chunk{ID: "fmt ", Data: audiotest.FmtChunk(1, 8000, 16)}
	dataChunk := audiotest.Chunk{ID: "data", Data: make([]byte, 16)}

	truncatedData := audiotest.BuildRIFF("WAVE", fmtChunk, dataChunk)
	truncatedData = truncatedData[:len(truncatedData)-8]

	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{
			name:   "not RIFF",
			data:   []byte("ID3\x03\x00\x00\x00\x00\x00\x00garbage"),
			target: riff.ErrChunkNotFound,
		},
		{
			name:   "wrong form type",
			data:   audiotest.BuildRIFF("AVI ", fmtChunk, dataChunk),
			target: ErrNotWave,
		},
		{
			name:   "xWMA",
			data:   audiotest.BuildRIFF("XWMA", fmtChunk, audiotest.Chunk{ID: "dpds", Data: make([]byte, 4)}, dataChunk),
			target: ErrXWMAUnsupported,
		},
		{
			name:   "missing fmt chunk",
			data:   audiotest.BuildRIFF("WAVE", dataChunk),
			target: riff.ErrChunkNotFound,
		},
		{
			name:   "missing data chunk",
			data:   audiotest.BuildRIFF("WAVE", fmtChunk),
			target: riff.ErrChunkNotFound,
		},
		{
			name:   "short fmt chunk",
			data:   audiotest.BuildRIFF("WAVE", audiotest.Chunk{ID: "fmt ", Data: make([]byte, 14)}, dataChunk),
			target: ErrFmtChunkTooShort,
		},
		{
			name:   "data past end of file",
			data:   truncatedData,
			target: ErrDataPastEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, buf, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Nil(t, buf)
			assert.ErrorIs(t, err, types.ErrFormat)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
