package decoders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/sfxmanager/internal/audiotest"
	"github.com/drgolem/sfxmanager/pkg/types"
)

func TestLoadDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := audiotest.WriteToneWAV(t, dir, "Blip.WAV", 1, 8000, 800)

	format, buf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), format.SampleRate)
	assert.Len(t, buf.Data, 1600)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, _, err := Load("music/track.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFormat)
	assert.Contains(t, err.Error(), ".mp3")
}
