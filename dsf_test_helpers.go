package dsf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// testDSF describes a synthetic DSF file built in memory for tests.
type testDSF struct {
	numChans   uint32
	sampleRate uint32
	blockSize  uint32
	payload    []byte
	fmtExtra   []byte
}

type testChunk struct {
	id string
	// size is the declared chunk size, header included
	size uint64
	data []byte
}

var (
	errChunkHeaderTooSmall  = errors.New("declared chunk size smaller than header")
	errChunkExceedsFileSize = errors.New("chunk exceeds file size")
)

// bytes serializes the synthetic file: DSD chunk, standard 52-byte fmt
// chunk plus optional tail, data chunk. The declared sample count covers
// the whole frames of the payload.
func (c testDSF) bytes() []byte {
	fmtSize := uint64(fmtChunkStdSize + len(c.fmtExtra))
	dataSize := uint64(dataChunkHeaderSize + len(c.payload))
	totalSize := dsdChunkSize + fmtSize + dataSize

	frameSize := int(c.blockSize) * int(c.numChans)

	var blocks int
	if frameSize > 0 {
		blocks = len(c.payload) / frameSize
	}

	sampleCount := uint64(blocks) * uint64(c.blockSize) * 8

	buf := new(bytes.Buffer)
	buf.Write(CIDDSD[:])
	writeLE64(buf, dsdChunkSize)
	writeLE64(buf, totalSize)
	writeLE64(buf, 0) // no metadata

	buf.Write(CIDFmt[:])
	writeLE64(buf, fmtSize)
	writeLE32(buf, 1) // format version
	writeLE32(buf, 0) // format ID, raw DSD
	writeLE32(buf, c.numChans)
	writeLE32(buf, c.numChans)
	writeLE32(buf, c.sampleRate)
	writeLE32(buf, 1) // bits per sample
	writeLE64(buf, sampleCount)
	writeLE32(buf, c.blockSize)
	writeLE32(buf, 0) // reserved
	buf.Write(c.fmtExtra)

	buf.Write(CIDData[:])
	writeLE64(buf, dataSize)
	buf.Write(c.payload)

	return buf.Bytes()
}

func writeLE32(buf *bytes.Buffer, v uint32) {
	binary.Write(buf, binary.LittleEndian, v)
}

func writeLE64(buf *bytes.Buffer, v uint64) {
	binary.Write(buf, binary.LittleEndian, v)
}

// parseDSFChunks walks the chunk sequence of an untagged DSF image. Every
// DSF chunk declares its size header-inclusive, so each chunk starts
// exactly where the previous declared size ends.
func parseDSFChunks(data []byte) ([]testChunk, error) {
	chunks := make([]testChunk, 0)

	offset := 0
	for offset+dataChunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint64(data[offset+4 : offset+12])

		if size < dataChunkHeaderSize {
			return nil, fmt.Errorf("%w: %q", errChunkHeaderTooSmall, id)
		}

		end := offset + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: %q", errChunkExceedsFileSize, id)
		}

		payload := append([]byte(nil), data[offset+12:end]...)
		chunks = append(chunks, testChunk{id: id, size: size, data: payload})

		offset = end
	}

	return chunks, nil
}

func findChunk(chunks []testChunk, id string) (*testChunk, int) {
	for i := range chunks {
		if chunks[i].id == id {
			return &chunks[i], i
		}
	}

	return nil, -1
}

// seqPayload returns n bytes of a repeating byte ramp, distinct enough to
// detect block-range copy mistakes.
func seqPayload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}

	return out
}
