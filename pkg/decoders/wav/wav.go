package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/drgolem/sfxmanager/pkg/riff"
	"github.com/drgolem/sfxmanager/pkg/types"
)

const (
	// fmt chunk sizes: plain PCM layout and WAVEFORMATEXTENSIBLE
	fmtChunkMinSize = 16
	fmtChunkMaxSize = 40
)

var (
	ErrNotWave          = errors.New("not a WAVE file")
	ErrXWMAUnsupported  = errors.New("xWMA files are not supported")
	ErrFmtChunkTooShort = errors.New("fmt chunk too short")
	ErrDataPastEOF      = errors.New("data chunk extends past end of file")
)

// DecodeFile opens fileName and reads it fully with Decode.
// Errors are *types.Error values of kind KindIO or KindFormat carrying
// fileName as Path.
func DecodeFile(fileName string) (types.AudioFormat, *types.SampleBuffer, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return types.AudioFormat{}, nil, types.NewError(types.KindIO, "decode", fileName, err)
	}
	defer file.Close()

	format, buf, err := Decode(file)
	if err != nil {
		var e *types.Error
		if errors.As(err, &e) {
			e.Path = fileName
		}
		return types.AudioFormat{}, nil, err
	}
	return format, buf, nil
}

// Decode reads the format and the complete sample data of a WAVE stream.
//
// The RIFF form type must be WAVE. The fmt chunk is read up to the size of
// the extensible layout; any excess declared size is ignored. The returned
// buffer holds the whole data chunk and is marked as end of stream.
func Decode(r io.ReadSeeker) (types.AudioFormat, *types.SampleBuffer, error) {
	form, err := riff.FormType(r)
	if err != nil {
		return types.AudioFormat{}, nil, classify("read container", err)
	}
	switch form {
	case riff.IDWave:
	case riff.IDXwma:
		return types.AudioFormat{}, nil, types.NewError(types.KindFormat, "decode", "", ErrXWMAUnsupported)
	default:
		return types.AudioFormat{}, nil, types.NewError(types.KindFormat, "decode", "",
			fmt.Errorf("%w: form type %q", ErrNotWave, form.String()))
	}

	format, err := readFormat(r)
	if err != nil {
		return types.AudioFormat{}, nil, err
	}

	data, err := readData(r)
	if err != nil {
		return types.AudioFormat{}, nil, err
	}

	return format, &types.SampleBuffer{Data: data, EndOfStream: true}, nil
}

func readFormat(r io.ReadSeeker) (types.AudioFormat, error) {
	c, err := riff.FindChunk(r, riff.IDFmt)
	if err != nil {
		return types.AudioFormat{}, classify("find fmt chunk", err)
	}
	if c.Size < fmtChunkMinSize {
		return types.AudioFormat{}, types.NewError(types.KindFormat, "decode", "",
			fmt.Errorf("%w: %d bytes", ErrFmtChunkTooShort, c.Size))
	}

	b := make([]byte, min(c.Size, fmtChunkMaxSize))
	if err := riff.ReadChunkData(r, c, b); err != nil {
		return types.AudioFormat{}, classify("read fmt chunk", err)
	}
	return parseFormat(b), nil
}

// parseFormat decodes a little-endian WAVEFORMATEX(TENSIBLE) structure.
// len(b) is at least 16.
func parseFormat(b []byte) types.AudioFormat {
	le := binary.LittleEndian
	f := types.AudioFormat{
		FormatTag:      le.Uint16(b[0:2]),
		Channels:       le.Uint16(b[2:4]),
		SampleRate:     le.Uint32(b[4:8]),
		AvgBytesPerSec: le.Uint32(b[8:12]),
		BlockAlign:     le.Uint16(b[12:14]),
		BitsPerSample:  le.Uint16(b[14:16]),
	}
	if len(b) >= 18 {
		f.ExtraSize = le.Uint16(b[16:18])
	}
	if len(b) >= fmtChunkMaxSize {
		f.ValidBitsPerSample = le.Uint16(b[18:20])
		f.ChannelMask = le.Uint32(b[20:24])
		copy(f.SubFormat[:], b[24:40])
	}
	return f
}

func readData(r io.ReadSeeker) ([]byte, error) {
	c, err := riff.FindChunk(r, riff.IDData)
	if err != nil {
		return nil, classify("find data chunk", err)
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, types.NewError(types.KindIO, "decode", "", fmt.Errorf("seek to end: %w", err))
	}
	if c.Offset+int64(c.Size) > end {
		return nil, types.NewError(types.KindFormat, "decode", "",
			fmt.Errorf("%w: %d bytes declared, %d available", ErrDataPastEOF, c.Size, end-c.Offset))
	}

	data := make([]byte, c.Size)
	if err := riff.ReadChunkData(r, c, data); err != nil {
		return nil, classify("read data chunk", err)
	}
	return data, nil
}

// classify maps chunk reader failures onto the error taxonomy: a missing or
// truncated chunk is a format problem, everything else is I/O.
func classify(op string, err error) error {
	kind := types.KindIO
	if errors.Is(err, riff.ErrChunkNotFound) || errors.Is(err, riff.ErrTruncated) {
		kind = types.KindFormat
	}
	return types.NewError(kind, "decode", "", fmt.Errorf("%s: %w", op, err))
}
