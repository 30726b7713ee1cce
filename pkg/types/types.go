package types

// Format tags found in the fmt chunk of a WAVE file.
const (
	FormatPCM        uint16 = 0x0001
	FormatIEEEFloat  uint16 = 0x0003
	FormatExtensible uint16 = 0xFFFE
)

// AudioFormat describes a PCM stream as stored in the fmt chunk.
// It covers both the plain WAVEFORMATEX layout and the extensible variant;
// the extension fields stay zero for plain files.
//
// AudioFormat is comparable, so two formats can be checked with ==.
type AudioFormat struct {
	FormatTag      uint16 // PCM, IEEE float or extensible
	Channels       uint16 // 1=mono, 2=stereo
	SampleRate     uint32 // Hz (e.g., 44100, 48000)
	AvgBytesPerSec uint32
	BlockAlign     uint16 // bytes per sample frame across all channels
	BitsPerSample  uint16 // 8, 16, 24 or 32

	// Extensible fields
	ExtraSize          uint16
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
}

// IsPCM reports whether the samples are integer PCM, looking through the
// extensible sub-format GUID when needed.
func (f AudioFormat) IsPCM() bool {
	if f.FormatTag == FormatExtensible {
		return f.SubFormat[0] == byte(FormatPCM) && f.SubFormat[1] == 0
	}
	return f.FormatTag == FormatPCM
}

// BytesPerFrame returns the size of one interleaved sample frame.
func (f AudioFormat) BytesPerFrame() int {
	if f.BlockAlign != 0 {
		return int(f.BlockAlign)
	}
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// SampleBuffer holds raw decoded PCM bytes.
// EndOfStream is set when no further buffers follow, which is always the
// case for whole-file loads.
type SampleBuffer struct {
	Data        []byte
	EndOfStream bool
}

// Frames returns the number of sample frames in the buffer for format f.
func (b *SampleBuffer) Frames(f AudioFormat) int {
	bpf := f.BytesPerFrame()
	if b == nil || bpf == 0 {
		return 0
	}
	return len(b.Data) / bpf
}

// Device is the native audio device: acquired once at start-up and
// released at shutdown.
type Device interface {
	// Initialize acquires the device/driver
	Initialize() error

	// OpenMaster creates the master output all voices play through
	OpenMaster() (Master, error)

	// Terminate releases the device
	Terminate() error
}

// Master is the master output. Voices are created through it.
type Master interface {
	// NewVoice creates a playback channel configured for format
	NewVoice(format AudioFormat) (Voice, error)

	// Close destroys the master output
	Close() error
}

// Voice is a native playback channel.
type Voice interface {
	// Submit queues buf for playback. The voice may keep a reference
	// to buf.Data until playback of it completes.
	Submit(buf *SampleBuffer) error

	// Start begins playback of the submitted buffer
	Start() error

	// Done reports whether the voice has nothing left to play
	Done() bool

	// Destroy tears the native channel down
	Destroy() error
}

// PoolStatus is a snapshot of the manager's resources.
type PoolStatus struct {
	IdleVoices     int    // voices ready for reuse
	DrainingVoices int    // released voices still playing
	CreatedVoices  uint64 // voices created since start-up
	CachedAssets   int    // entries in the asset cache
	Plays          uint64 // successful PlaySound calls
}

// StatusMonitor is implemented by types that can report PoolStatus.
type StatusMonitor interface {
	Status() PoolStatus
}
