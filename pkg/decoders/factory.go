package decoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/sfxmanager/pkg/decoders/wav"
	"github.com/drgolem/sfxmanager/pkg/types"
)

// LoadFunc reads a whole audio asset into memory.
type LoadFunc func(fileName string) (types.AudioFormat, *types.SampleBuffer, error)

var loaders = map[string]LoadFunc{
	".wav":  wav.DecodeFile,
	".wave": wav.DecodeFile,
}

// Load picks a loader based on the file extension and reads fileName fully.
// Supports .wav and .wave.
func Load(fileName string) (types.AudioFormat, *types.SampleBuffer, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	load, ok := loaders[ext]
	if !ok {
		return types.AudioFormat{}, nil, types.NewError(types.KindFormat, "load", fileName,
			fmt.Errorf("unsupported file format: %q (supported: .wav, .wave)", ext))
	}
	return load(fileName)
}
