package dsf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEmptyBlockRange is returned when a requested block range holds no
	// blocks; nothing is written in that case.
	ErrEmptyBlockRange = errors.New("empty block range")

	errNilEncoder = errors.New("can't write with a nil encoder")
	errNilSource  = errors.New("can't copy blocks from a nil source")
)

// copyFrames is the number of frames moved per copy iteration, capping the
// working memory of an extraction regardless of track length.
const copyFrames = 64

// Encoder writes standalone DSF files that carry an exact block range
// copied from a source file described by a Decoder.
type Encoder struct {
	w io.Writer

	// format chunk fields carried over from the source descriptor
	FmtSize       uint64
	FormatVersion uint32
	FormatID      uint32
	ChannelType   uint32
	NumChans      uint32
	SampleRate    uint32
	BitsPerSample uint32
	BlockSize     uint32
	FmtExtra      []byte

	WrittenBytes int

	srcDataOffset int64
}

// NewEncoderFromDecoder creates an encoder initialized from decoder
// settings, ready to extract block ranges out of the decoded source.
func NewEncoderFromDecoder(w io.Writer, dec *Decoder) *Encoder {
	enc := &Encoder{w: w}
	if dec == nil {
		return enc
	}

	enc.FmtSize = dec.FmtSize
	enc.FormatVersion = dec.FormatVersion
	enc.FormatID = dec.FormatID
	enc.ChannelType = dec.ChannelType
	enc.NumChans = dec.NumChans
	enc.SampleRate = dec.SampleRate
	enc.BitsPerSample = dec.BitsPerSample
	enc.BlockSize = dec.BlockSize
	enc.FmtExtra = append([]byte(nil), dec.FmtExtra...)
	enc.srcDataOffset = dec.DataOffset

	return enc
}

// AddLE serializes and adds the passed value using little endian.
func (e *Encoder) AddLE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

// FrameSize returns the byte size of one block-row across all channels.
func (e *Encoder) FrameSize() int64 {
	if e == nil {
		return 0
	}

	return int64(e.BlockSize) * int64(e.NumChans)
}

// WriteBlocks writes a complete DSF file holding blocks
// [startBlock, endBlock) read from the source's data region. The copy runs
// through a bounded buffer; if the source ends early the missing payload
// suffix is zero-filled so the written header stays truthful, and the
// number of padded bytes is returned.
func (e *Encoder) WriteBlocks(src io.ReadSeeker, startBlock, endBlock int64) (padded int64, err error) {
	if e == nil || e.w == nil {
		return 0, errNilEncoder
	}

	if src == nil {
		return 0, errNilSource
	}

	blockCount := endBlock - startBlock
	if blockCount <= 0 {
		return 0, fmt.Errorf("blocks [%d, %d): %w", startBlock, endBlock, ErrEmptyBlockRange)
	}

	frameSize := e.FrameSize()
	payloadSize := blockCount * frameSize

	if err := e.writeHeader(blockCount, payloadSize); err != nil {
		return 0, err
	}

	if _, err := src.Seek(e.srcDataOffset+startBlock*frameSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to block %d: %w", startBlock, err)
	}

	return e.copyPayload(src, payloadSize)
}

func (e *Encoder) writeHeader(blockCount, payloadSize int64) error {
	dataChunkSize := payloadSize + dataChunkHeaderSize
	totalSize := dsdChunkSize + int64(e.FmtSize) + dataChunkSize
	sampleCount := blockCount * int64(e.BlockSize) * 8 // per channel

	// DSD chunk; split tracks start without metadata
	if err := e.AddLE(CIDDSD); err != nil {
		return err
	}

	if err := e.AddLE(uint64(dsdChunkSize)); err != nil {
		return err
	}

	if err := e.AddLE(uint64(totalSize)); err != nil {
		return fmt.Errorf("error encoding total file size - %w", err)
	}

	if err := e.AddLE(uint64(0)); err != nil {
		return fmt.Errorf("error encoding metadata pointer - %w", err)
	}

	// fmt chunk, sample count replaced for the extracted range
	if err := e.AddLE(CIDFmt); err != nil {
		return err
	}

	if err := e.AddLE(e.FmtSize); err != nil {
		return fmt.Errorf("error encoding fmt chunk size - %w", err)
	}

	if err := e.AddLE(e.FormatVersion); err != nil {
		return fmt.Errorf("error encoding format version - %w", err)
	}

	if err := e.AddLE(e.FormatID); err != nil {
		return fmt.Errorf("error encoding format ID - %w", err)
	}

	if err := e.AddLE(e.ChannelType); err != nil {
		return fmt.Errorf("error encoding channel type - %w", err)
	}

	if err := e.AddLE(e.NumChans); err != nil {
		return fmt.Errorf("error encoding the number of channels - %w", err)
	}

	if err := e.AddLE(e.SampleRate); err != nil {
		return fmt.Errorf("error encoding the sample rate - %w", err)
	}

	if err := e.AddLE(e.BitsPerSample); err != nil {
		return fmt.Errorf("error encoding bits per sample - %w", err)
	}

	if err := e.AddLE(uint64(sampleCount)); err != nil {
		return fmt.Errorf("error encoding sample count - %w", err)
	}

	if err := e.AddLE(e.BlockSize); err != nil {
		return fmt.Errorf("error encoding block size - %w", err)
	}

	// reserved
	if err := e.AddLE(uint32(0)); err != nil {
		return err
	}

	if len(e.FmtExtra) > 0 {
		n, err := e.w.Write(e.FmtExtra)
		e.WrittenBytes += n

		if err != nil {
			return fmt.Errorf("error encoding fmt chunk tail - %w", err)
		}
	}

	// data chunk header
	if err := e.AddLE(CIDData); err != nil {
		return err
	}

	if err := e.AddLE(uint64(dataChunkSize)); err != nil {
		return fmt.Errorf("error encoding data chunk size - %w", err)
	}

	return nil
}

func (e *Encoder) copyPayload(src io.Reader, payloadSize int64) (padded int64, err error) {
	buf := make([]byte, e.FrameSize()*copyFrames)

	remaining := payloadSize
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}

		read, rerr := io.ReadFull(src, buf[:n])
		if read > 0 {
			wn, werr := e.w.Write(buf[:read])
			e.WrittenBytes += wn

			if werr != nil {
				return 0, fmt.Errorf("failed to write payload: %w", werr)
			}

			remaining -= int64(read)
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				break
			}

			return 0, fmt.Errorf("failed to read source payload: %w", rerr)
		}
	}

	if remaining > 0 {
		// truncated source, pad with silence so the declared length holds
		padded = remaining

		zeros := make([]byte, copyFrames*e.FrameSize())
		for remaining > 0 {
			n := int64(len(zeros))
			if remaining < n {
				n = remaining
			}

			wn, werr := e.w.Write(zeros[:n])
			e.WrittenBytes += wn

			if werr != nil {
				return 0, fmt.Errorf("failed to write zero fill: %w", werr)
			}

			remaining -= n
		}
	}

	return padded, nil
}
