package dsf

import (
	"bytes"
	"errors"
	"testing"
)

func decodeAll(t *testing.T, data []byte) *Decoder {
	t.Helper()

	d := NewDecoder(bytes.NewReader(data))
	d.ReadInfo()

	if err := d.Err(); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	return d
}

func TestWriteBlocksRoundTrip(t *testing.T) {
	src := testDSF{
		numChans:   2,
		sampleRate: 2822400,
		blockSize:  4,
		payload:    seqPayload(10 * 8), // 10 blocks of 8-byte frames
		fmtExtra:   []byte{1, 2, 3, 4, 5},
	}
	srcData := src.bytes()
	dec := decodeAll(t, srcData)

	var out bytes.Buffer

	enc := NewEncoderFromDecoder(&out, dec)

	padded, err := enc.WriteBlocks(bytes.NewReader(srcData), 2, 5)
	if err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}

	if padded != 0 {
		t.Fatalf("padded=%d, want 0", padded)
	}

	od := decodeAll(t, out.Bytes())

	// header fields carry over except total size, sample count and the
	// metadata pointer
	if od.FmtSize != dec.FmtSize ||
		od.FormatVersion != dec.FormatVersion ||
		od.FormatID != dec.FormatID ||
		od.ChannelType != dec.ChannelType ||
		od.NumChans != dec.NumChans ||
		od.SampleRate != dec.SampleRate ||
		od.BitsPerSample != dec.BitsPerSample ||
		od.BlockSize != dec.BlockSize {
		t.Fatalf("format fields changed:\ngot  %+v\nwant %+v", od, dec)
	}

	if !bytes.Equal(od.FmtExtra, dec.FmtExtra) {
		t.Fatalf("FmtExtra=%x, want %x", od.FmtExtra, dec.FmtExtra)
	}

	if od.MetadataOffset != 0 {
		t.Fatalf("MetadataOffset=%d, want 0", od.MetadataOffset)
	}

	if od.TotalFileSize != uint64(out.Len()) {
		t.Fatalf("TotalFileSize=%d, want %d", od.TotalFileSize, out.Len())
	}

	if od.SampleCount != 3*4*8 {
		t.Fatalf("SampleCount=%d, want %d", od.SampleCount, 3*4*8)
	}

	gotPayload := out.Bytes()[od.DataOffset : od.DataOffset+od.DataSize]
	wantPayload := src.payload[2*8 : 5*8]

	if !bytes.Equal(gotPayload, wantPayload) {
		t.Fatalf("payload mismatch:\ngot  %x\nwant %x", gotPayload, wantPayload)
	}
}

func TestWriteBlocksChunkSequence(t *testing.T) {
	src := testDSF{numChans: 1, sampleRate: 2822400, blockSize: 4, payload: seqPayload(4 * 4)}
	dec := decodeAll(t, src.bytes())

	var out bytes.Buffer

	enc := NewEncoderFromDecoder(&out, dec)
	if _, err := enc.WriteBlocks(bytes.NewReader(src.bytes()), 0, 4); err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}

	chunks, err := parseDSFChunks(out.Bytes())
	if err != nil {
		t.Fatalf("failed to walk chunks: %v", err)
	}

	wantIDs := []string{"DSD ", "fmt ", "data"}
	if len(chunks) != len(wantIDs) {
		t.Fatalf("chunk count=%d, want %d", len(chunks), len(wantIDs))
	}

	for i, id := range wantIDs {
		if chunks[i].id != id {
			t.Fatalf("chunk[%d]=%q, want %q", i, chunks[i].id, id)
		}
	}

	if dataChunk, _ := findChunk(chunks, "data"); dataChunk.size != uint64(dataChunkHeaderSize+16) {
		t.Fatalf("data chunk size=%d, want %d", dataChunk.size, dataChunkHeaderSize+16)
	}

	if enc.WrittenBytes != out.Len() {
		t.Fatalf("WrittenBytes=%d, want %d", enc.WrittenBytes, out.Len())
	}
}

func TestWriteBlocksEmptyRange(t *testing.T) {
	src := testDSF{numChans: 1, sampleRate: 2822400, blockSize: 4, payload: seqPayload(16)}
	dec := decodeAll(t, src.bytes())

	var out bytes.Buffer

	enc := NewEncoderFromDecoder(&out, dec)

	for _, bounds := range [][2]int64{{2, 2}, {3, 1}} {
		_, err := enc.WriteBlocks(bytes.NewReader(src.bytes()), bounds[0], bounds[1])
		if !errors.Is(err, ErrEmptyBlockRange) {
			t.Fatalf("WriteBlocks(%d, %d) err=%v, want ErrEmptyBlockRange", bounds[0], bounds[1], err)
		}
	}

	if out.Len() != 0 {
		t.Fatalf("wrote %d bytes for empty ranges, want none", out.Len())
	}
}

func TestWriteBlocksZeroFillsTruncatedSource(t *testing.T) {
	src := testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4, payload: seqPayload(10 * 8)}
	srcData := src.bytes()

	// chop 12 payload bytes off the end, keeping the header intact
	truncated := srcData[:len(srcData)-12]
	dec := decodeAll(t, truncated)

	var out bytes.Buffer

	enc := NewEncoderFromDecoder(&out, dec)

	padded, err := enc.WriteBlocks(bytes.NewReader(truncated), 8, 10)
	if err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}

	if padded != 12 {
		t.Fatalf("padded=%d, want 12", padded)
	}

	od := decodeAll(t, out.Bytes())
	if od.DataSize != 16 {
		t.Fatalf("DataSize=%d, want the full declared 16", od.DataSize)
	}

	gotPayload := out.Bytes()[od.DataOffset : od.DataOffset+od.DataSize]

	if !bytes.Equal(gotPayload[:4], src.payload[64:68]) {
		t.Fatalf("copied prefix mismatch: got %x, want %x", gotPayload[:4], src.payload[64:68])
	}

	if !bytes.Equal(gotPayload[4:], make([]byte, 12)) {
		t.Fatalf("expected a zero-filled suffix, got %x", gotPayload[4:])
	}
}

func TestWriteBlocksNilSource(t *testing.T) {
	var out bytes.Buffer

	enc := NewEncoderFromDecoder(&out, nil)
	if _, err := enc.WriteBlocks(nil, 0, 1); err == nil {
		t.Fatal("expected error for a nil source")
	}
}
