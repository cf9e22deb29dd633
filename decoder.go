package dsf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
)

var (
	// CIDDSD is the chunk ID of the DSD container chunk.
	CIDDSD = [4]byte{'D', 'S', 'D', ' '}
	// CIDFmt is the chunk ID of the fmt chunk.
	CIDFmt = [4]byte{'f', 'm', 't', ' '}
	// CIDData is the chunk ID of the data chunk.
	CIDData = [4]byte{'d', 'a', 't', 'a'}

	// ErrUnexpectedChunkID is returned when a chunk does not carry the tag
	// required at its position. A file failing this way cannot be indexed.
	ErrUnexpectedChunkID = errors.New("unexpected chunk ID")
	// ErrDurationNilPointer is returned when calculating duration on a nil
	// decoder.
	ErrDurationNilPointer = errors.New("can't calculate the duration of a nil pointer")

	errZeroSampleRate = errors.New("sample rate is zero")
)

const (
	// dsdChunkSize is the fixed size of the DSD chunk, header included.
	dsdChunkSize = 28
	// fmtChunkStdSize is the standard fmt chunk size, header and trailing
	// reserved bytes included. Larger sizes carry an opaque tail.
	fmtChunkStdSize = 52
	// fmtChunkFieldsSize covers the fmt header and its defined fields,
	// without the reserved padding.
	fmtChunkFieldsSize = 48
	// dataChunkHeaderSize is the data chunk tag plus its size field; the
	// declared data chunk size includes it.
	dataChunkHeaderSize = 12

	// total file size and metadata pointer offsets within the DSD chunk
	totalSizeOffset = 12
)

// Decoder reads the header chunks of a DSF file and exposes them as an
// immutable descriptor. It never touches the DSD payload.
type Decoder struct {
	r   io.ReadSeeker
	err error

	// DSD chunk
	TotalFileSize  uint64
	MetadataOffset uint64

	// fmt chunk
	FmtSize       uint64
	FormatVersion uint32
	FormatID      uint32
	ChannelType   uint32
	NumChans      uint32
	SampleRate    uint32
	BitsPerSample uint32
	// SampleCount is the per-channel sample count.
	SampleCount uint64
	BlockSize   uint32
	// FmtExtra holds fmt chunk bytes past the standard 52-byte layout,
	// preserved verbatim for round-trip writes.
	FmtExtra []byte

	// data chunk
	DataOffset int64
	DataSize   int64
}

// NewDecoder creates a decoder for the passed DSF reader.
// Note that the reader doesn't get rewinded as the header is processed.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{r: r}
}

// ReadInfo reads the underlying reader until the header chunks are parsed.
// This method is safe to call multiple times.
func (d *Decoder) ReadInfo() {
	d.err = d.readHeaders()
}

// Err returns the first error that was encountered by the Decoder.
func (d *Decoder) Err() error {
	return d.err
}

// IsValidFile verifies that the file is a structurally usable DSF file.
func (d *Decoder) IsValidFile() bool {
	d.err = d.readHeaders()
	if d.err != nil {
		return false
	}

	if d.NumChans < 1 || d.BlockSize < 1 {
		return false
	}

	dur, err := d.Duration()
	if err != nil || dur <= 0 {
		return false
	}

	return true
}

// Format returns the audio format of the described content.
func (d *Decoder) Format() *audio.Format {
	if d == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}
}

// Duration returns the time duration for the current audio container.
func (d *Decoder) Duration() (time.Duration, error) {
	if d == nil {
		return 0, ErrDurationNilPointer
	}

	if d.SampleRate == 0 {
		return 0, errZeroSampleRate
	}

	seconds := float64(d.SampleCount) / float64(d.SampleRate)

	return time.Duration(seconds * float64(time.Second)), nil
}

// FrameSize returns the byte size of one block-row across all channels.
func (d *Decoder) FrameSize() int64 {
	if d == nil {
		return 0
	}

	return int64(d.BlockSize) * int64(d.NumChans)
}

// SamplesPerBlock returns the per-channel sample count held by one block.
// DSD stores one bit per sample, so a block carries eight samples per byte.
func (d *Decoder) SamplesPerBlock() int64 {
	if d == nil {
		return 0
	}

	return int64(d.BlockSize) * 8
}

// TotalBlocks returns the number of whole frames in the data chunk.
// A payload tail smaller than one frame is not addressable.
func (d *Decoder) TotalBlocks() int64 {
	frameSize := d.FrameSize()
	if frameSize == 0 {
		return 0
	}

	return d.DataSize / frameSize
}

// readHeaders is safe to call multiple times.
func (d *Decoder) readHeaders() error {
	if d == nil || d.NumChans > 0 {
		return nil
	}

	if err := d.readDSDChunk(); err != nil {
		return err
	}

	if err := d.readFmtChunk(); err != nil {
		return err
	}

	return d.readDataChunkHeader()
}

func (d *Decoder) readDSDChunk() error {
	if err := d.expectChunkID(CIDDSD); err != nil {
		return err
	}

	var chunkSize uint64
	if err := d.readLE(&chunkSize); err != nil {
		return fmt.Errorf("failed to read DSD chunk size: %w", err)
	}

	if err := d.readLE(&d.TotalFileSize); err != nil {
		return fmt.Errorf("failed to read total file size: %w", err)
	}

	if err := d.readLE(&d.MetadataOffset); err != nil {
		return fmt.Errorf("failed to read metadata pointer: %w", err)
	}

	return nil
}

func (d *Decoder) readFmtChunk() error {
	if err := d.expectChunkID(CIDFmt); err != nil {
		return err
	}

	if err := d.readLE(&d.FmtSize); err != nil {
		return fmt.Errorf("failed to read fmt chunk size: %w", err)
	}

	if err := d.readLE(&d.FormatVersion); err != nil {
		return fmt.Errorf("failed to read format version: %w", err)
	}

	if err := d.readLE(&d.FormatID); err != nil {
		return fmt.Errorf("failed to read format ID: %w", err)
	}

	if err := d.readLE(&d.ChannelType); err != nil {
		return fmt.Errorf("failed to read channel type: %w", err)
	}

	if err := d.readLE(&d.NumChans); err != nil {
		return fmt.Errorf("failed to read channel count: %w", err)
	}

	if err := d.readLE(&d.SampleRate); err != nil {
		return fmt.Errorf("failed to read sample rate: %w", err)
	}

	if err := d.readLE(&d.BitsPerSample); err != nil {
		return fmt.Errorf("failed to read bits per sample: %w", err)
	}

	if err := d.readLE(&d.SampleCount); err != nil {
		return fmt.Errorf("failed to read sample count: %w", err)
	}

	if err := d.readLE(&d.BlockSize); err != nil {
		return fmt.Errorf("failed to read block size: %w", err)
	}

	// Consume the rest of the declared fmt chunk: the standard reserved
	// padding, then any oversized tail kept verbatim for rewrites.
	rest := int64(d.FmtSize) - fmtChunkFieldsSize
	if rest <= 0 {
		return nil
	}

	tail := make([]byte, rest)
	if _, err := io.ReadFull(d.r, tail); err != nil {
		return fmt.Errorf("failed to read fmt chunk tail: %w", err)
	}

	if rest > fmtChunkStdSize-fmtChunkFieldsSize {
		d.FmtExtra = tail[fmtChunkStdSize-fmtChunkFieldsSize:]
	}

	return nil
}

func (d *Decoder) readDataChunkHeader() error {
	if err := d.expectChunkID(CIDData); err != nil {
		return err
	}

	var chunkSize uint64
	if err := d.readLE(&chunkSize); err != nil {
		return fmt.Errorf("failed to read data chunk size: %w", err)
	}

	offset, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to record data offset: %w", err)
	}

	d.DataOffset = offset
	// the declared size includes the 12-byte data chunk header
	d.DataSize = int64(chunkSize) - dataChunkHeaderSize

	return nil
}

func (d *Decoder) expectChunkID(want [4]byte) error {
	var id [4]byte
	if _, err := io.ReadFull(d.r, id[:]); err != nil {
		return fmt.Errorf("failed to read chunk ID: %w", err)
	}

	if id != want {
		return fmt.Errorf("expected %q, got %q: %w", want[:], id[:], ErrUnexpectedChunkID)
	}

	return nil
}

func (d *Decoder) readLE(dst any) error {
	return binary.Read(d.r, binary.LittleEndian, dst)
}
