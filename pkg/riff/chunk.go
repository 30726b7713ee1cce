package riff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vazrupe/endibuf"
)

// ID is a four character chunk identifier as it appears in the file.
type ID [4]byte

func (id ID) String() string { return string(id[:]) }

// Chunk identifiers used by WAVE files.
var (
	IDRiff = ID{'R', 'I', 'F', 'F'}
	IDWave = ID{'W', 'A', 'V', 'E'}
	IDXwma = ID{'X', 'W', 'M', 'A'}
	IDFmt  = ID{'f', 'm', 't', ' '}
	IDData = ID{'d', 'a', 't', 'a'}
	IDDpds = ID{'d', 'p', 'd', 's'}
)

const headerSize = 8

var (
	// ErrChunkNotFound is returned when the container ends before the
	// requested chunk. It is not an I/O failure.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrTruncated is returned when the file ends inside a chunk header
	// or payload.
	ErrTruncated = errors.New("truncated chunk")
)

// Chunk describes one chunk located in a RIFF file.
type Chunk struct {
	ID     ID
	Size   uint32 // declared payload size
	Offset int64  // absolute offset of the payload, right after the header
}

type chunkHeader struct {
	ID   ID
	Size uint32
}

// FindChunk scans r from the start for the chunk tagged id.
//
// The outer RIFF chunk is entered rather than skipped: its form type is read
// and scanning continues with the nested chunks. Looking up IDRiff itself
// returns the container, whose Offset points at the form type.
//
// ErrChunkNotFound is returned once the scan reaches the end of the
// container. Read and seek failures are returned wrapped, with the
// underlying error preserved.
func FindChunk(r io.ReadSeeker, id ID) (Chunk, error) {
	var found Chunk
	err := scan(r, func(c Chunk) bool {
		if c.ID == id {
			found = c
			return true
		}
		return false
	})
	if err != nil {
		return Chunk{}, err
	}
	if found.ID != id {
		return Chunk{}, fmt.Errorf("%w: %q", ErrChunkNotFound, id.String())
	}
	return found, nil
}

// Walk calls fn for every chunk header in r, the RIFF container first.
// It stops early when fn returns a non-nil error and returns that error.
func Walk(r io.ReadSeeker, fn func(c Chunk) error) error {
	var fnErr error
	err := scan(r, func(c Chunk) bool {
		fnErr = fn(c)
		return fnErr != nil
	})
	if fnErr != nil {
		return fnErr
	}
	if errors.Is(err, ErrChunkNotFound) {
		return nil
	}
	return err
}

// ReadChunkData reads len(buf) bytes of c's payload into buf.
// buf may be shorter than c.Size.
func ReadChunkData(r io.ReadSeeker, c Chunk, buf []byte) error {
	if _, err := r.Seek(c.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %q payload: %w", c.ID.String(), err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %q payload", ErrTruncated, c.ID.String())
		}
		return fmt.Errorf("read %q payload: %w", c.ID.String(), err)
	}
	return nil
}

// FormType returns the form type stored in the RIFF container, e.g. WAVE.
func FormType(r io.ReadSeeker) (ID, error) {
	c, err := FindChunk(r, IDRiff)
	if err != nil {
		return ID{}, err
	}
	var form ID
	if err := ReadChunkData(r, c, form[:]); err != nil {
		return ID{}, err
	}
	return form, nil
}

// scan walks the chunk headers until visit returns true or the container
// is exhausted (ErrChunkNotFound).
func scan(rs io.ReadSeeker, visit func(c Chunk) bool) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}

	r := endibuf.NewReader(rs)
	r.Endian = binary.LittleEndian

	var (
		consumed     int64 // absolute position
		containerEnd int64 // end of the RIFF payload, 0 until seen
	)

	for {
		h, err := readHeader(r)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: header at offset %d", ErrTruncated, consumed)
			}
			if errors.Is(err, io.EOF) {
				return ErrChunkNotFound
			}
			return fmt.Errorf("read chunk header at offset %d: %w", consumed, err)
		}
		consumed += headerSize

		c := Chunk{ID: h.ID, Size: h.Size, Offset: consumed}
		if visit(c) {
			return nil
		}

		if h.ID == IDRiff {
			containerEnd = consumed + int64(h.Size)

			var form ID
			if err := r.ReadData(form[:]); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return fmt.Errorf("%w: missing form type", ErrTruncated)
				}
				return fmt.Errorf("read form type: %w", err)
			}
			consumed += 4
		} else {
			// chunks are word aligned
			skip := int64(h.Size) + int64(h.Size&1)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return fmt.Errorf("skip %q chunk: %w", h.ID.String(), err)
			}
			consumed += skip
		}

		if consumed >= containerEnd {
			return ErrChunkNotFound
		}
	}
}

// readHeader reads a tag and a size. endibuf only decodes slices and
// fixed-size scalars, so the fields are read one by one. The file ending
// after the tag counts as a partial header.
func readHeader(r *endibuf.Reader) (chunkHeader, error) {
	var h chunkHeader
	if err := r.ReadData(h.ID[:]); err != nil {
		return chunkHeader{}, err
	}
	if err := r.ReadData(&h.Size); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return chunkHeader{}, err
	}
	return h, nil
}
